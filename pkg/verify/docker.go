package verify

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// ContainerLister reports the observed state of the compose project's
// containers, keyed by compose service name. The interface exists so the
// pipeline is testable without a daemon.
type ContainerLister interface {
	List(ctx context.Context, project string) (map[string]string, error)
	Close() error
}

const (
	labelProject = "com.docker.compose.project"
	labelService = "com.docker.compose.service"
)

// DockerLister lists containers through the Docker SDK.
type DockerLister struct {
	cli *client.Client
}

// NewDockerLister creates a lister using environment defaults.
func NewDockerLister() (*DockerLister, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &DockerLister{cli: cli}, nil
}

// List returns service name → container state for every container carrying
// the compose project label. Stopped containers are included so a crashed
// service shows up as "exited" rather than missing.
func (d *DockerLister) List(ctx context.Context, project string) (map[string]string, error) {
	containers, err := d.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", labelProject+"="+project)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list project containers: %w", err)
	}

	states := make(map[string]string, len(containers))
	for _, c := range containers {
		service := c.Labels[labelService]
		if service == "" {
			continue
		}
		// Replicated services: one running container is enough.
		if states[service] != "running" {
			states[service] = c.State
		}
	}
	return states, nil
}

func (d *DockerLister) Close() error {
	return d.cli.Close()
}
