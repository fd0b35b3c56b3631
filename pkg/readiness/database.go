package readiness

import (
	"context"
	"time"

	"github.com/casthouse/stackup/pkg/compose"
)

// DatabaseChecker probes the database service from inside its own container,
// the same way the compose healthcheck does. Probing in-container avoids any
// dependency on published ports, which production profiles do not have.
type DatabaseChecker struct {
	Runtime compose.Runtime
	Profile compose.Profile
	Service string
	Command []string
}

// NewDatabaseChecker returns a checker with the standard mysqladmin probe.
func NewDatabaseChecker(rt compose.Runtime, p compose.Profile) *DatabaseChecker {
	return &DatabaseChecker{
		Runtime: rt,
		Profile: p,
		Service: "db",
		Command: []string{"mysqladmin", "ping", "-h", "localhost", "--silent"},
	}
}

func (c *DatabaseChecker) Name() string {
	return "database (" + c.Service + ")"
}

func (c *DatabaseChecker) Check(ctx context.Context) Result {
	start := time.Now()

	out, err := c.Runtime.Exec(ctx, c.Profile, c.Service, c.Command...)
	if err != nil {
		return Result{
			Ready:     false,
			Message:   err.Error(),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	msg := out
	if msg == "" {
		msg = "probe succeeded"
	}
	return Result{
		Ready:     true,
		Message:   msg,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}
