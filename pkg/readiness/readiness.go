package readiness

import (
	"context"
	"fmt"
	"time"

	"github.com/casthouse/stackup/pkg/log"
)

// Result represents the outcome of a single readiness probe.
type Result struct {
	Ready     bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is a single readiness probe against one dependency.
type Checker interface {
	// Check performs the probe and returns the result.
	Check(ctx context.Context) Result

	// Name identifies the dependency being probed.
	Name() string
}

// Poller repeatedly probes a dependency until it reports ready or the
// attempt budget is exhausted. The budget is a policy constant, not a
// derived value: bounding retries trades a possible abort of a merely slow
// dependency against hanging forever on a crash-looping one.
type Poller struct {
	Checker  Checker
	Attempts int
	Interval time.Duration
}

// Defaults for the database gate: 30 attempts, 2 seconds apart.
const (
	DefaultAttempts = 30
	DefaultInterval = 2 * time.Second
)

// NewPoller returns a poller with the default budget.
func NewPoller(c Checker) *Poller {
	return &Poller{
		Checker:  c,
		Attempts: DefaultAttempts,
		Interval: DefaultInterval,
	}
}

// Wait blocks until the dependency is ready. It returns an error after
// exactly Attempts failed probes, or earlier if ctx is cancelled. No sleep
// follows the final attempt.
func (p *Poller) Wait(ctx context.Context) error {
	logger := log.WithComponent("readiness")

	var last Result
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("readiness wait for %s cancelled: %w", p.Checker.Name(), err)
		}

		last = p.Checker.Check(ctx)
		if last.Ready {
			logger.Info().
				Str("dependency", p.Checker.Name()).
				Int("attempt", attempt).
				Msg("dependency is ready")
			return nil
		}

		logger.Debug().
			Str("dependency", p.Checker.Name()).
			Int("attempt", attempt).
			Int("budget", p.Attempts).
			Str("probe", last.Message).
			Msg("dependency not ready yet")

		if attempt == p.Attempts {
			break
		}
		select {
		case <-time.After(p.Interval):
		case <-ctx.Done():
			return fmt.Errorf("readiness wait for %s cancelled: %w", p.Checker.Name(), ctx.Err())
		}
	}

	return fmt.Errorf("%s did not become ready after %d attempts (%s apart): %s",
		p.Checker.Name(), p.Attempts, p.Interval, last.Message)
}
