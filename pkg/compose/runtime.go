package compose

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/casthouse/stackup/pkg/types"
)

// DefaultProject is the compose project name the stack runs under. All
// containers started by stackup carry the com.docker.compose.project label
// with this value.
const DefaultProject = "app"

// Profile selects the compose file and env file for one environment.
type Profile struct {
	Environment types.Environment
	File        string
	EnvFile     string
	Project     string
}

// SelectProfile resolves the configuration profile for an environment.
// Development uses docker-compose.yml, production docker-compose.prod.yml.
// The compose file must already exist; profiles are externally authored and
// never synthesized.
func SelectProfile(dir string, env types.Environment, envFile string) (Profile, error) {
	name := "docker-compose.yml"
	if env == types.EnvProduction {
		name = "docker-compose.prod.yml"
	}

	file := filepath.Join(dir, name)
	if _, err := os.Stat(file); err != nil {
		if os.IsNotExist(err) {
			return Profile{}, fmt.Errorf("compose file %s does not exist", file)
		}
		return Profile{}, fmt.Errorf("failed to stat compose file %s: %w", file, err)
	}

	return Profile{
		Environment: env,
		File:        file,
		EnvFile:     envFile,
		Project:     DefaultProject,
	}, nil
}

// Runtime is the narrow interface stackup needs from the container
// orchestration tool. One implementation shells out to the docker CLI; tests
// use the fake in composetest. Keeping the surface this small is what makes
// the pipeline testable without a daemon.
type Runtime interface {
	// CheckBinary verifies the container runtime binary is on PATH.
	CheckBinary() error

	// CheckDaemon verifies the runtime daemon is reachable.
	CheckDaemon(ctx context.Context) error

	// CheckCompose verifies the compose plugin is available.
	CheckCompose(ctx context.Context) error

	// Down stops and removes the service set. A no-op when nothing runs.
	Down(ctx context.Context, p Profile) error

	// Up builds and starts the service set in the background.
	Up(ctx context.Context, p Profile) error

	// Exec runs a command inside a running service and returns its
	// combined output.
	Exec(ctx context.Context, p Profile, service string, cmd ...string) (string, error)

	// ExecStream runs a command inside a service, streaming stdout to w.
	// Used for database dumps where output must not be buffered.
	ExecStream(ctx context.Context, p Profile, service string, w io.Writer, cmd ...string) error

	// CopyFrom copies a path out of a service container to the host.
	CopyFrom(ctx context.Context, p Profile, service, src, dst string) error

	// VolumeExists reports whether a named volume is present.
	VolumeExists(ctx context.Context, name string) (bool, error)
}
