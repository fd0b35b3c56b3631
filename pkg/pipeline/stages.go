package pipeline

import (
	"context"

	"github.com/casthouse/stackup/pkg/backup"
	"github.com/casthouse/stackup/pkg/bootstrap"
	"github.com/casthouse/stackup/pkg/envfile"
	"github.com/casthouse/stackup/pkg/log"
	"github.com/casthouse/stackup/pkg/readiness"
	"github.com/casthouse/stackup/pkg/types"
	"github.com/casthouse/stackup/pkg/verify"
	"github.com/rs/zerolog"
)

// runPrerequisites verifies the container runtime and compose plugin before
// any stateful action. Each missing capability gets its own message.
func (p *Pipeline) runPrerequisites(ctx context.Context) error {
	if err := p.runtime.CheckBinary(); err != nil {
		return err
	}
	if err := p.runtime.CheckDaemon(ctx); err != nil {
		return err
	}
	return p.runtime.CheckCompose(ctx)
}

// runEnvironment materializes the env file, generating credentials only on
// first production use.
func (p *Pipeline) runEnvironment(ctx context.Context) error {
	env, created, err := envfile.Ensure(p.cfg.ComposeDir, p.req)
	if err != nil {
		return err
	}
	p.env = env

	logger := log.WithStage("environment")
	if created {
		logger.Info().Str("file", env.Path()).Msg("credentials generated")
	} else {
		logger.Info().Str("file", env.Path()).Msg("existing credentials reused")
	}
	return nil
}

func (p *Pipeline) skipBackup() (bool, string) {
	if p.req.Environment != types.EnvProduction {
		return true, "backups run for production only"
	}
	if p.cfg.SkipBackup {
		return true, "disabled with --skip-backup"
	}
	return false, ""
}

// runBackup snapshots the previous deployment's state. Failures here are
// downgraded to warnings by the driver.
func (p *Pipeline) runBackup(ctx context.Context) error {
	if err := p.resolveProfile(); err != nil {
		return err
	}

	agent := backup.NewAgent(p.runtime, p.cfg.BackupDir)
	exists, err := agent.PriorStateExists(ctx, *p.profile)
	if err != nil {
		return err
	}
	if !exists {
		stageLogger := log.WithStage("backup")
		stageLogger.Info().Msg("no prior persistent state, nothing to back up")
		return nil
	}

	record, err := agent.Run(ctx, *p.profile, p.env, p.req)
	if err != nil {
		return err
	}
	p.backupRec = record
	return nil
}

// runLifecycle tears down the previous service set and brings up the new
// one. Down is idempotent; Up rebuilds images as needed. Service readiness
// is explicitly NOT synchronous with Up returning.
func (p *Pipeline) runLifecycle(ctx context.Context) error {
	if err := p.resolveProfile(); err != nil {
		return err
	}

	logger := log.WithStage("lifecycle")
	p.logDeclaredHealthcheck(logger)

	logger.Info().Str("profile", p.profile.File).Msg("stopping previous service set")
	if err := p.runtime.Down(ctx, *p.profile); err != nil {
		return err
	}

	logger.Info().Strs("services", p.manifest.ServiceNames()).Msg("bringing service set up")
	return p.runtime.Up(ctx, *p.profile)
}

// logDeclaredHealthcheck surfaces the compose-declared database probe policy
// next to the orchestrator's own gate. The compose engine gates inter-service
// startup with the declared policy; the readiness stage gates the pipeline
// with its own budget. Two layers, independent on purpose.
func (p *Pipeline) logDeclaredHealthcheck(logger zerolog.Logger) {
	db, ok := p.manifest.Services["db"]
	if !ok || db.Healthcheck == nil {
		return
	}
	interval, timeout, retries, err := db.Healthcheck.Policy()
	if err != nil {
		logger.Warn().Err(err).Msg("database healthcheck declaration is invalid, relying on pipeline gate only")
		return
	}
	logger.Debug().
		Dur("interval", interval).
		Dur("timeout", timeout).
		Int("retries", retries).
		Msg("compose-declared database healthcheck")
}

// runReadiness blocks until the database accepts connections, bounded by
// the configured attempt budget.
func (p *Pipeline) runReadiness(ctx context.Context) error {
	checker := readiness.NewDatabaseChecker(p.runtime, *p.profile)
	poller := &readiness.Poller{
		Checker:  checker,
		Attempts: p.cfg.ReadinessAttempts,
		Interval: p.cfg.ReadinessInterval,
	}
	return poller.Wait(ctx)
}

// runBootstrap applies post-start application setup.
func (p *Pipeline) runBootstrap(ctx context.Context) error {
	return bootstrap.NewRunner(p.runtime, *p.profile, p.req.Environment).Run(ctx)
}

// runVerify confirms the stack serves. Service state and the app identity
// probe are fatal; endpoint and connectivity probes are advisory.
func (p *Pipeline) runVerify(ctx context.Context) error {
	lister, err := p.cfg.NewLister()
	if err != nil {
		return err
	}
	defer lister.Close()

	v := verify.NewVerifier(lister, p.runtime, *p.profile, p.manifest)

	states, err := v.ServicesRunning(ctx)
	p.services = states
	if err != nil {
		return err
	}

	version, err := v.AppIdentity(ctx)
	if err != nil {
		return err
	}
	p.appVersion = version

	probe := p.cfg.EndpointProbe
	if probe == nil {
		probe = v.PublicEndpoint
	}
	if err := probe(ctx, p.req.AppURL()); err != nil {
		p.warnf("public endpoint not verified: %v", err)
	}
	if err := v.DatabaseReachable(ctx, p.env); err != nil {
		p.warnf("database connectivity check failed: %v", err)
	}
	if err := v.CacheReachable(ctx, p.env); err != nil {
		p.warnf("cache connectivity check failed: %v", err)
	}
	return nil
}
