package bootstrap

import (
	"context"
	"fmt"

	"github.com/casthouse/stackup/pkg/compose"
	"github.com/casthouse/stackup/pkg/log"
	"github.com/casthouse/stackup/pkg/types"
)

// Runner applies one-time and idempotent application setup against the
// running app service. Steps run in a fixed order; a fatal step aborts the
// sequence, a best-effort step only logs.
type Runner struct {
	Runtime     compose.Runtime
	Profile     compose.Profile
	Service     string
	Environment types.Environment
}

// NewRunner returns a bootstrap runner for the app service.
func NewRunner(rt compose.Runtime, p compose.Profile, env types.Environment) *Runner {
	return &Runner{
		Runtime:     rt,
		Profile:     p,
		Service:     "app",
		Environment: env,
	}
}

type step struct {
	name  string
	fatal bool
	only  types.Environment // empty = all environments
	run   func(ctx context.Context) error
}

func (r *Runner) steps() []step {
	return []step{
		{name: "app key", fatal: true, run: r.ensureAppKey},
		{name: "config cache", fatal: true, run: r.exec("php", "artisan", "config:cache")},
		{name: "migrations", fatal: true, run: r.exec("php", "artisan", "migrate", "--force")},
		{name: "seed data", only: types.EnvDevelopment, run: r.exec("php", "artisan", "db:seed", "--force")},
		{name: "storage link", run: r.exec("php", "artisan", "storage:link")},
		{name: "permissions", fatal: true, run: r.normalizePermissions},
	}
}

// Run executes the bootstrap sequence. The returned error is nil unless a
// fatal step failed.
func (r *Runner) Run(ctx context.Context) error {
	logger := log.WithStage("bootstrap")

	for _, s := range r.steps() {
		if s.only != "" && s.only != r.Environment {
			logger.Debug().Str("step", s.name).Msg("step skipped for this environment")
			continue
		}

		logger.Info().Str("step", s.name).Msg("running bootstrap step")
		if err := s.run(ctx); err != nil {
			if s.fatal {
				return fmt.Errorf("bootstrap step %q failed: %w", s.name, err)
			}
			logger.Warn().Err(err).Str("step", s.name).Msg("bootstrap step failed, continuing")
		}
	}
	return nil
}

func (r *Runner) exec(cmd ...string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := r.Runtime.Exec(ctx, r.Profile, r.Service, cmd...)
		return err
	}
}

// ensureAppKey generates the application secret key only when absent.
// Regenerating an existing key would invalidate every encrypted value and
// session the application holds.
func (r *Runner) ensureAppKey(ctx context.Context) error {
	_, probeErr := r.Runtime.Exec(ctx, r.Profile, r.Service,
		"sh", "-c", `grep -qE '^APP_KEY=.+' .env`)
	if probeErr == nil {
		logger := log.WithStage("bootstrap")
		logger.Debug().Msg("application key already present")
		return nil
	}

	if _, err := r.Runtime.Exec(ctx, r.Profile, r.Service,
		"php", "artisan", "key:generate", "--force"); err != nil {
		return fmt.Errorf("key generation failed: %w", err)
	}
	return nil
}

// normalizePermissions fixes ownership and modes on the directories the
// application writes to. Left wrong, these fail silently at request time.
func (r *Runner) normalizePermissions(ctx context.Context) error {
	if _, err := r.Runtime.Exec(ctx, r.Profile, r.Service,
		"chown", "-R", "www-data:www-data", "storage", "bootstrap/cache"); err != nil {
		return err
	}
	_, err := r.Runtime.Exec(ctx, r.Profile, r.Service,
		"chmod", "-R", "775", "storage", "bootstrap/cache")
	return err
}
