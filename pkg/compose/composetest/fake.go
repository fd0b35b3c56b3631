// Package composetest provides a scriptable in-memory Runtime for pipeline
// tests. No docker daemon is required.
package composetest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/casthouse/stackup/pkg/compose"
)

// Call records one runtime invocation for assertion.
type Call struct {
	Op      string
	Service string
	Args    []string
}

// FakeRuntime implements compose.Runtime. Zero value is a healthy runtime
// where every operation succeeds.
type FakeRuntime struct {
	mu    sync.Mutex
	calls []Call

	// Errors by operation name ("daemon", "compose", "binary", "down",
	// "up", "copy").
	Fail map[string]error

	// ExecResults maps a joined command prefix to its output or error.
	// The longest matching prefix wins.
	ExecResults map[string]ExecResult

	// Volumes that exist.
	Volumes map[string]bool

	// StreamOutput is written to the writer on ExecStream.
	StreamOutput string
}

// ExecResult scripts one exec'd command.
type ExecResult struct {
	Output string
	Err    error
}

func (f *FakeRuntime) record(op, service string, args ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: op, Service: service, Args: args})
}

// Calls returns the recorded invocations in order.
func (f *FakeRuntime) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Ops returns just the operation names in order.
func (f *FakeRuntime) Ops() []string {
	calls := f.Calls()
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.Op
	}
	return ops
}

func (f *FakeRuntime) fail(op string) error {
	if f.Fail == nil {
		return nil
	}
	return f.Fail[op]
}

func (f *FakeRuntime) CheckBinary() error {
	f.record("binary", "")
	return f.fail("binary")
}

func (f *FakeRuntime) CheckDaemon(ctx context.Context) error {
	f.record("daemon", "")
	return f.fail("daemon")
}

func (f *FakeRuntime) CheckCompose(ctx context.Context) error {
	f.record("compose", "")
	return f.fail("compose")
}

func (f *FakeRuntime) Down(ctx context.Context, p compose.Profile) error {
	f.record("down", "")
	return f.fail("down")
}

func (f *FakeRuntime) Up(ctx context.Context, p compose.Profile) error {
	f.record("up", "")
	return f.fail("up")
}

func (f *FakeRuntime) Exec(ctx context.Context, p compose.Profile, service string, cmd ...string) (string, error) {
	f.record("exec", service, cmd...)

	joined := strings.Join(cmd, " ")
	var best string
	found := false
	for prefix := range f.ExecResults {
		if strings.HasPrefix(joined, prefix) && (!found || len(prefix) > len(best)) {
			best = prefix
			found = true
		}
	}
	if found {
		res := f.ExecResults[best]
		return res.Output, res.Err
	}
	return "", nil
}

func (f *FakeRuntime) ExecStream(ctx context.Context, p compose.Profile, service string, w io.Writer, cmd ...string) error {
	f.record("exec-stream", service, cmd...)
	if err := f.fail("exec-stream"); err != nil {
		return err
	}
	if f.StreamOutput != "" {
		if _, err := io.WriteString(w, f.StreamOutput); err != nil {
			return err
		}
	}
	return nil
}

func (f *FakeRuntime) CopyFrom(ctx context.Context, p compose.Profile, service, src, dst string) error {
	f.record("copy", service, src, dst)
	return f.fail("copy")
}

func (f *FakeRuntime) VolumeExists(ctx context.Context, name string) (bool, error) {
	f.record("volume", "", name)
	if err := f.fail("volume"); err != nil {
		return false, err
	}
	return f.Volumes[name], nil
}

// ExecCount returns how many exec calls ran a command starting with prefix.
func (f *FakeRuntime) ExecCount(prefix string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Op != "exec" && c.Op != "exec-stream" {
			continue
		}
		if strings.HasPrefix(strings.Join(c.Args, " "), prefix) {
			n++
		}
	}
	return n
}

var _ compose.Runtime = (*FakeRuntime)(nil)

// String helps test failure messages.
func (c Call) String() string {
	return fmt.Sprintf("%s %s %s", c.Op, c.Service, strings.Join(c.Args, " "))
}
