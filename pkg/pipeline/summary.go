package pipeline

import (
	"fmt"
	"time"

	"github.com/casthouse/stackup/pkg/types"
)

// printSummary emits the terminal human-readable report. Purely
// observational: nothing here affects the exit code.
func (p *Pipeline) printSummary(o *types.DeploymentOutcome) {
	fmt.Println()
	if o.Success {
		fmt.Printf("✓ Deployment succeeded (%s)\n", o.Elapsed().Round(summaryRounding))
	} else {
		fmt.Printf("✗ Deployment failed at stage %q (%s)\n", o.FailedStage, o.Elapsed().Round(summaryRounding))
	}
	fmt.Printf("  Environment: %s\n", o.Environment)
	fmt.Printf("  Domain:      %s\n", o.Domain)

	fmt.Println()
	for _, s := range o.Stages {
		switch {
		case s.Skipped:
			fmt.Printf("  - %s (skipped)\n", s.Stage)
		case s.Err != "" && s.Stage == o.FailedStage:
			fmt.Printf("  ✗ %s: %s\n", s.Stage, s.Err)
		case s.Err != "":
			fmt.Printf("  ! %s: %s\n", s.Stage, s.Err)
		default:
			fmt.Printf("  ✓ %s (%s)\n", s.Stage, s.Duration.Round(summaryRounding))
		}
	}

	if len(p.warnings) > 0 {
		fmt.Println()
		fmt.Println("Warnings:")
		for _, w := range p.warnings {
			fmt.Printf("  ! %s\n", w)
		}
	}

	if o.Success {
		fmt.Println()
		if p.appVersion != "" {
			fmt.Printf("  Application: %s\n", p.appVersion)
		}
		fmt.Printf("  App URL: %s\n", p.req.AppURL())
		fmt.Printf("  API URL: %s\n", p.req.APIURL())
		if o.BackupPath != "" {
			fmt.Printf("  Backup:  %s\n", o.BackupPath)
		}
	}
	fmt.Println()
}

const summaryRounding = 10 * time.Millisecond
