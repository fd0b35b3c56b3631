package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/casthouse/stackup/pkg/compose"
	"github.com/casthouse/stackup/pkg/history"
	"github.com/casthouse/stackup/pkg/log"
	"github.com/casthouse/stackup/pkg/metrics"
	"github.com/casthouse/stackup/pkg/pipeline"
	"github.com/casthouse/stackup/pkg/types"
	"github.com/spf13/cobra"
)

var deployCmd = &cobra.Command{
	Use:   "deploy [environment] [domain]",
	Short: "Deploy the stack for an environment",
	Long: `Deploy the stack for an environment.

The environment selects the compose profile: development (the default) uses
docker-compose.yml, production uses docker-compose.prod.yml. The domain
defaults to localhost.

Examples:
  # Local development deploy
  stackup deploy

  # Production deploy behind example.com
  stackup deploy production example.com`,
	Args: cobra.MaximumNArgs(2),
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().String("compose-dir", ".", "Directory containing compose profiles and env files")
	deployCmd.Flags().String("backup-dir", "backups", "Directory for pre-deploy backups")
	deployCmd.Flags().String("data-dir", ".stackup", "Directory for the deployment journal and lock")
	deployCmd.Flags().String("metrics-file", "", "Write Prometheus textfile metrics here (empty disables)")
	deployCmd.Flags().Bool("skip-backup", false, "Skip the production backup stage")
	deployCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	deployCmd.Flags().Bool("log-json", false, "Emit JSON logs instead of console output")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	composeDir, _ := cmd.Flags().GetString("compose-dir")
	backupDir, _ := cmd.Flags().GetString("backup-dir")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")
	skipBackup, _ := cmd.Flags().GetBool("skip-backup")
	logLevel, _ := cmd.Flags().GetString("log-level")
	logJSON, _ := cmd.Flags().GetBool("log-json")

	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})

	var envArg, domainArg string
	if len(args) > 0 {
		envArg = args[0]
	}
	if len(args) > 1 {
		domainArg = args[1]
	}
	env, err := types.ParseEnvironment(envArg)
	if err != nil {
		return err
	}
	req := types.NewRequest(env, domainArg)

	// One deployment at a time per data directory.
	lock, err := pipeline.AcquireLock(dataDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Errorf("failed to release deployment lock", err)
		}
	}()

	// An interrupt aborts the whole run; in-flight stages see the
	// cancelled context. No partial-stage rollback is attempted.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(req, compose.NewExecRuntime(), pipeline.Config{
		ComposeDir: composeDir,
		BackupDir:  backupDir,
		SkipBackup: skipBackup,
	})
	outcome := p.Run(ctx)

	journal(dataDir, outcome)
	if metricsFile != "" {
		exporter := metrics.NewExporter()
		exporter.Observe(outcome)
		if err := exporter.WriteFile(metricsFile); err != nil {
			log.Errorf("failed to export metrics", err)
		}
	}

	if !outcome.Success {
		return errors.New(outcome.Error)
	}
	return nil
}

// journal appends the outcome to the local history. Failing to record is
// never worth failing a deployment over.
func journal(dataDir string, outcome *types.DeploymentOutcome) {
	store, err := history.Open(dataDir)
	if err != nil {
		log.Errorf("failed to open deployment journal", err)
		return
	}
	defer store.Close()

	if err := store.Record(outcome); err != nil {
		log.Errorf("failed to journal deployment outcome", err)
	}
}
