package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/casthouse/stackup/pkg/types"
)

func TestExporterWritesTextfile(t *testing.T) {
	e := NewExporter()

	start := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	e.Observe(&types.DeploymentOutcome{
		RunID:      "run-1",
		Success:    true,
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Stages: []types.StageResult{
			{Stage: "lifecycle", Duration: 42 * time.Second},
			{Stage: "backup", Skipped: true},
		},
	})

	path := filepath.Join(t.TempDir(), "stackup.prom")
	if err := e.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	for _, want := range []string{
		"stackup_deploy_success 1",
		"stackup_deploy_duration_seconds 90",
		`stackup_stage_duration_seconds{stage="lifecycle"} 42`,
	} {
		if !strings.Contains(content, want) {
			t.Errorf("metrics file missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, `stage="backup"`) {
		t.Error("skipped stages must not be exported")
	}
}

func TestExporterFailureOutcome(t *testing.T) {
	e := NewExporter()
	e.Observe(&types.DeploymentOutcome{
		RunID:       "run-2",
		Success:     false,
		FailedStage: "readiness",
		StartedAt:   time.Now().Add(-time.Minute),
		FinishedAt:  time.Now(),
	})

	path := filepath.Join(t.TempDir(), "stackup.prom")
	if err := e.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "stackup_deploy_success 0") {
		t.Errorf("expected success gauge 0, got:\n%s", data)
	}
}
