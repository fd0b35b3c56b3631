package pipeline

import (
	"errors"
	"fmt"
)

// Error categories, one per fatal failure mode. Stage errors wrap exactly
// one of these so callers can match with errors.Is.
var (
	ErrConfiguration    = errors.New("configuration error")
	ErrPrerequisite     = errors.New("prerequisite error")
	ErrLifecycle        = errors.New("lifecycle error")
	ErrReadinessTimeout = errors.New("readiness timeout")
	ErrBootstrap        = errors.New("bootstrap error")
	ErrHealthCheck      = errors.New("health check error")
)

// StageError identifies which pipeline stage aborted the run.
type StageError struct {
	Stage string
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
