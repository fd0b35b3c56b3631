package history

import (
	"testing"
	"time"

	"github.com/casthouse/stackup/pkg/types"
)

func outcome(runID string, finished time.Time, success bool) *types.DeploymentOutcome {
	return &types.DeploymentOutcome{
		RunID:       runID,
		Environment: types.EnvDevelopment,
		Domain:      "localhost",
		Success:     success,
		StartedAt:   finished.Add(-time.Minute),
		FinishedAt:  finished,
	}
}

func TestRecordAndRecent(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-1", "run-2", "run-3"} {
		if err := s.Record(outcome(id, base.Add(time.Duration(i)*time.Hour), i != 1)); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	recent, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent(2) returned %d records", len(recent))
	}
	if recent[0].RunID != "run-3" || recent[1].RunID != "run-2" {
		t.Errorf("wrong order: got %s, %s", recent[0].RunID, recent[1].RunID)
	}
	if recent[1].Success {
		t.Error("failed run should be journaled as failed")
	}
}

func TestRecentOnEmptyJournal(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	recent, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 0 {
		t.Errorf("expected empty journal, got %d records", len(recent))
	}
}
