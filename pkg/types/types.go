package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Environment selects which configuration profile a deployment targets.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// ParseEnvironment validates and converts an environment argument.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(s) {
	case EnvDevelopment, EnvProduction:
		return Environment(s), nil
	case "":
		return EnvDevelopment, nil
	}
	return "", fmt.Errorf("unknown environment %q (expected development or production)", s)
}

// DeploymentRequest captures the invocation parameters of one run.
// It is immutable for the duration of the run.
type DeploymentRequest struct {
	ID          string
	Environment Environment
	Domain      string
	StartedAt   time.Time
}

// NewRequest builds a request with a fresh run ID.
func NewRequest(env Environment, domain string) *DeploymentRequest {
	if domain == "" {
		domain = "localhost"
	}
	return &DeploymentRequest{
		ID:          uuid.New().String(),
		Environment: env,
		Domain:      domain,
		StartedAt:   time.Now(),
	}
}

// AppURL returns the public entry point for the deployed stack.
// Production is always served behind TLS; development is plain HTTP.
func (r *DeploymentRequest) AppURL() string {
	if r.Environment == EnvProduction {
		return "https://" + r.Domain
	}
	return "http://" + r.Domain
}

// APIURL returns the reverse-proxied API entry point.
func (r *DeploymentRequest) APIURL() string {
	return r.AppURL() + "/api"
}

// StageResult records the outcome of a single pipeline stage.
type StageResult struct {
	Stage    string        `json:"stage"`
	Skipped  bool          `json:"skipped,omitempty"`
	Err      string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// DeploymentOutcome is the terminal value of a run, produced exactly once.
type DeploymentOutcome struct {
	RunID       string        `json:"run_id"`
	Environment Environment   `json:"environment"`
	Domain      string        `json:"domain"`
	Success     bool          `json:"success"`
	FailedStage string        `json:"failed_stage,omitempty"`
	Error       string        `json:"error,omitempty"`
	Stages      []StageResult `json:"stages"`
	BackupPath  string        `json:"backup_path,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
}

// Elapsed returns the wall-clock duration of the run.
func (o *DeploymentOutcome) Elapsed() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}

// BackupRecord describes a pre-deploy snapshot of persistent state.
// Records are append-only: a new directory per run, never overwritten.
type BackupRecord struct {
	Path      string
	CreatedAt time.Time
	DumpFile  string
	StorageDir string
}

// ServiceState is the observed runtime state of one declared service.
type ServiceState struct {
	Service string
	Running bool
	Status  string
}
