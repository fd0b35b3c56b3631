package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/casthouse/stackup/pkg/compose"
	"github.com/casthouse/stackup/pkg/envfile"
	"github.com/casthouse/stackup/pkg/log"
	"github.com/casthouse/stackup/pkg/readiness"
	"github.com/casthouse/stackup/pkg/types"
	"github.com/casthouse/stackup/pkg/verify"
)

// Config carries the invocation knobs that are not part of the
// DeploymentRequest itself.
type Config struct {
	ComposeDir string
	BackupDir  string
	SkipBackup bool

	// Readiness gate budget. Zero values take the package defaults.
	ReadinessAttempts int
	ReadinessInterval time.Duration

	// NewLister builds the container state source for verification.
	// Defaults to the Docker SDK; tests inject a fake.
	NewLister func() (verify.ContainerLister, error)

	// EndpointProbe overrides the advisory public HTTP probe. Tests stub
	// it to avoid real network traffic.
	EndpointProbe func(ctx context.Context, url string) error
}

// Pipeline sequences one deployment run: a fixed, strictly ordered list of
// stages with fail-fast error propagation. There is no parallelism and no
// partial-stage rollback; the only suspension point is the readiness poll.
type Pipeline struct {
	req     *types.DeploymentRequest
	cfg     Config
	runtime compose.Runtime

	// Populated as stages run.
	env        *envfile.Profile
	profile    *compose.Profile
	manifest   *compose.Manifest
	backupRec  *types.BackupRecord
	appVersion string
	services   []types.ServiceState
	warnings   []string
}

// New builds a pipeline for one request.
func New(req *types.DeploymentRequest, rt compose.Runtime, cfg Config) *Pipeline {
	if cfg.ReadinessAttempts == 0 {
		cfg.ReadinessAttempts = readiness.DefaultAttempts
	}
	if cfg.ReadinessInterval == 0 {
		cfg.ReadinessInterval = readiness.DefaultInterval
	}
	if cfg.NewLister == nil {
		cfg.NewLister = func() (verify.ContainerLister, error) {
			return verify.NewDockerLister()
		}
	}
	return &Pipeline{req: req, cfg: cfg, runtime: rt}
}

type stage struct {
	name string
	kind error
	// skip returns a reason when the stage does not apply to this run.
	skip func() (bool, string)
	run  func(ctx context.Context) error
	// soft stages log their failure as a warning instead of aborting.
	soft bool
}

func (p *Pipeline) stages() []stage {
	return []stage{
		{name: "prerequisites", kind: ErrPrerequisite, run: p.runPrerequisites},
		{name: "environment", kind: ErrConfiguration, run: p.runEnvironment},
		{name: "backup", kind: nil, soft: true, skip: p.skipBackup, run: p.runBackup},
		{name: "lifecycle", kind: ErrLifecycle, run: p.runLifecycle},
		{name: "readiness", kind: ErrReadinessTimeout, run: p.runReadiness},
		{name: "bootstrap", kind: ErrBootstrap, run: p.runBootstrap},
		{name: "verify", kind: ErrHealthCheck, run: p.runVerify},
	}
}

// Run drives the pipeline to completion and returns the single outcome for
// this run. The summary is printed before returning, success or not.
func (p *Pipeline) Run(ctx context.Context) *types.DeploymentOutcome {
	outcome := &types.DeploymentOutcome{
		RunID:       p.req.ID,
		Environment: p.req.Environment,
		Domain:      p.req.Domain,
		StartedAt:   p.req.StartedAt,
	}

	log.Logger.Info().
		Str("run_id", p.req.ID).
		Str("environment", string(p.req.Environment)).
		Str("domain", p.req.Domain).
		Msg("starting deployment")

	var failed *StageError
	for _, s := range p.stages() {
		if failed != nil {
			break
		}

		if s.skip != nil {
			if skip, reason := s.skip(); skip {
				stageLogger := log.WithStage(s.name)
				stageLogger.Info().Str("reason", reason).Msg("stage skipped")
				outcome.Stages = append(outcome.Stages, types.StageResult{Stage: s.name, Skipped: true})
				continue
			}
		}

		stageStart := time.Now()
		err := s.run(ctx)
		result := types.StageResult{Stage: s.name, Duration: time.Since(stageStart)}

		switch {
		case err == nil:
			stageLogger := log.WithStage(s.name)
			stageLogger.Info().Dur("took", result.Duration).Msg("stage complete")
		case s.soft:
			result.Err = err.Error()
			p.warnf("%s failed (non-fatal): %v", s.name, err)
		default:
			result.Err = err.Error()
			failed = &StageError{Stage: s.name, Kind: s.kind, Err: err}
			stageLogger := log.WithStage(s.name)
			stageLogger.Error().Err(err).Msg("stage failed, aborting deployment")
		}
		outcome.Stages = append(outcome.Stages, result)
	}

	outcome.FinishedAt = time.Now()
	if failed != nil {
		outcome.Success = false
		outcome.FailedStage = failed.Stage
		outcome.Error = failed.Error()
	} else {
		outcome.Success = true
	}
	if p.backupRec != nil {
		outcome.BackupPath = p.backupRec.Path
	}

	p.printSummary(outcome)
	return outcome
}

func (p *Pipeline) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.warnings = append(p.warnings, msg)
	log.Warn(msg)
}

// resolveProfile selects the compose profile and parses its manifest once.
// Both the backup stage (which inspects the previous stack) and the
// lifecycle stage need it.
func (p *Pipeline) resolveProfile() error {
	if p.profile != nil {
		return nil
	}
	if p.env == nil {
		return fmt.Errorf("environment profile not materialized")
	}

	prof, err := compose.SelectProfile(p.cfg.ComposeDir, p.req.Environment, p.env.Path())
	if err != nil {
		return err
	}
	manifest, err := compose.LoadManifest(prof.File)
	if err != nil {
		return err
	}

	p.profile = &prof
	p.manifest = manifest
	return nil
}
