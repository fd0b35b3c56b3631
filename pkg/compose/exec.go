package compose

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/casthouse/stackup/pkg/log"
)

const maxOutputBytes = 64 * 1024 // 64KB

// Default timeouts per operation class. Up covers image builds, which can be
// slow on a cold cache.
const (
	checkTimeout = 10 * time.Second
	execTimeout  = 5 * time.Minute
	upTimeout    = 20 * time.Minute
	downTimeout  = 5 * time.Minute
)

// ExecRuntime drives the docker CLI and compose plugin via subprocesses.
type ExecRuntime struct {
	// Binary is the container runtime binary, normally "docker".
	Binary string
}

// NewExecRuntime returns a runtime bound to the docker binary.
func NewExecRuntime() *ExecRuntime {
	return &ExecRuntime{Binary: "docker"}
}

func (r *ExecRuntime) CheckBinary() error {
	if _, err := exec.LookPath(r.Binary); err != nil {
		return fmt.Errorf("container runtime %q not found on PATH: %w", r.Binary, err)
	}
	return nil
}

func (r *ExecRuntime) CheckDaemon(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if out, err := r.command(ctx, "info", "--format", "{{.ServerVersion}}").CombinedOutput(); err != nil {
		return fmt.Errorf("container runtime daemon is not reachable: %s", firstLine(out))
	}
	return nil
}

func (r *ExecRuntime) CheckCompose(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if out, err := r.command(ctx, "compose", "version").CombinedOutput(); err != nil {
		return fmt.Errorf("compose plugin is not available: %s", firstLine(out))
	}
	return nil
}

func (r *ExecRuntime) Down(ctx context.Context, p Profile) error {
	ctx, cancel := context.WithTimeout(ctx, downTimeout)
	defer cancel()

	return r.runCompose(ctx, p, "down", "--remove-orphans")
}

func (r *ExecRuntime) Up(ctx context.Context, p Profile) error {
	ctx, cancel := context.WithTimeout(ctx, upTimeout)
	defer cancel()

	return r.runCompose(ctx, p, "up", "-d", "--build")
}

func (r *ExecRuntime) Exec(ctx context.Context, p Profile, service string, cmd ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	args := append(r.composeArgs(p), "exec", "-T", service)
	args = append(args, cmd...)

	out, err := r.command(ctx, args...).CombinedOutput()
	output := truncate(out)
	if err != nil {
		return output, fmt.Errorf("exec in service %s failed: %w: %s", service, err, firstLine(out))
	}
	return output, nil
}

func (r *ExecRuntime) ExecStream(ctx context.Context, p Profile, service string, w io.Writer, cmd ...string) error {
	ctx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	args := append(r.composeArgs(p), "exec", "-T", service)
	args = append(args, cmd...)

	c := r.command(ctx, args...)
	c.Stdout = w
	var stderr bytes.Buffer
	c.Stderr = &stderr

	if err := c.Run(); err != nil {
		return fmt.Errorf("exec in service %s failed: %w: %s", service, err, firstLine(stderr.Bytes()))
	}
	return nil
}

func (r *ExecRuntime) CopyFrom(ctx context.Context, p Profile, service, src, dst string) error {
	ctx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	args := append(r.composeArgs(p), "cp", service+":"+src, dst)
	if out, err := r.command(ctx, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("copy from service %s failed: %w: %s", service, err, firstLine(out))
	}
	return nil
}

func (r *ExecRuntime) VolumeExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	err := r.command(ctx, "volume", "inspect", name).Run()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return false, nil
		}
		return false, fmt.Errorf("failed to inspect volume %s: %w", name, err)
	}
	return true, nil
}

// runCompose runs a compose subcommand, logging its output line count rather
// than the full build noise.
func (r *ExecRuntime) runCompose(ctx context.Context, p Profile, subcmd string, extra ...string) error {
	args := append(r.composeArgs(p), subcmd)
	args = append(args, extra...)

	logger := log.WithComponent("compose")
	logger.Debug().Strs("args", args).Msg("running compose command")

	out, err := r.command(ctx, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("compose %s failed: %w: %s", subcmd, err, truncate(out))
	}
	logger.Debug().Int("output_bytes", len(out)).Msgf("compose %s complete", subcmd)
	return nil
}

func (r *ExecRuntime) composeArgs(p Profile) []string {
	args := []string{"compose", "-p", p.Project, "-f", p.File}
	if p.EnvFile != "" {
		args = append(args, "--env-file", p.EnvFile)
	}
	return args
}

func (r *ExecRuntime) command(ctx context.Context, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, r.Binary, args...)
}

func truncate(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > maxOutputBytes {
		s = s[:maxOutputBytes] + "\n... (output truncated at 64KB)"
	}
	return s
}

func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		s = "(no output)"
	}
	return s
}
