package verify

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/casthouse/stackup/pkg/compose"
	"github.com/casthouse/stackup/pkg/envfile"
	"github.com/casthouse/stackup/pkg/log"
	"github.com/casthouse/stackup/pkg/readiness"
	"github.com/casthouse/stackup/pkg/types"
	"github.com/redis/go-redis/v9"

	_ "github.com/go-sql-driver/mysql"
)

// Verifier confirms the deployed stack is actually serving. The first two
// checks (services running, app identity) are fatal; the connectivity and
// public endpoint checks are advisory.
type Verifier struct {
	Lister     ContainerLister
	Runtime    compose.Runtime
	Profile    compose.Profile
	Manifest   *compose.Manifest
	AppService string
}

// NewVerifier wires a verifier for one deployment.
func NewVerifier(lister ContainerLister, rt compose.Runtime, p compose.Profile, m *compose.Manifest) *Verifier {
	return &Verifier{
		Lister:     lister,
		Runtime:    rt,
		Profile:    p,
		Manifest:   m,
		AppService: "app",
	}
}

// ServicesRunning checks that every service declared in the manifest has a
// running container. It returns the observed states either way so the
// summary can show them.
func (v *Verifier) ServicesRunning(ctx context.Context) ([]types.ServiceState, error) {
	observed, err := v.Lister.List(ctx, v.Profile.Project)
	if err != nil {
		return nil, err
	}

	var states []types.ServiceState
	var down []string
	for _, name := range v.Manifest.ServiceNames() {
		state, found := observed[name]
		running := found && state == "running"
		if !running {
			if !found {
				state = "missing"
			}
			down = append(down, name+" ("+state+")")
		}
		states = append(states, types.ServiceState{Service: name, Running: running, Status: state})
	}

	if len(down) > 0 {
		return states, fmt.Errorf("services not running: %s", strings.Join(down, ", "))
	}
	return states, nil
}

// AppIdentity probes the application process with a version command and
// returns what it reports.
func (v *Verifier) AppIdentity(ctx context.Context) (string, error) {
	out, err := v.Runtime.Exec(ctx, v.Profile, v.AppService, "php", "artisan", "--version")
	if err != nil {
		return "", fmt.Errorf("application did not answer version probe: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// PublicEndpoint probes the public entry point over HTTP. Advisory: DNS and
// certificate propagation lag behind a fresh production deploy, so a failure
// here must not fail the run.
func (v *Verifier) PublicEndpoint(ctx context.Context, url string) error {
	res := readiness.NewHTTPChecker(url).Check(ctx)
	if !res.Ready {
		return fmt.Errorf("probe of %s failed: %s", url, res.Message)
	}
	return nil
}

// DatabaseReachable opens an authenticated connection to the database
// through its published host port. Advisory; skipped by the caller when the
// profile publishes no port.
func (v *Verifier) DatabaseReachable(ctx context.Context, creds *envfile.Profile) error {
	port := v.Manifest.HostPort("db")
	if port == "" {
		return nil
	}

	dsn := fmt.Sprintf("%s:%s@tcp(127.0.0.1:%s)/%s?timeout=5s",
		creds.Get(envfile.KeyDBUser),
		creds.Get(envfile.KeyDBPassword),
		port,
		creds.Get(envfile.KeyDBName),
	)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database handle: %w", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("database connection on port %s failed: %w", port, err)
	}

	logger := log.WithStage("verify")
	logger.Debug().Str("port", port).Msg("database reachable from host")
	return nil
}

// CacheReachable pings the cache through its published host port. Advisory;
// skipped when no port is published.
func (v *Verifier) CacheReachable(ctx context.Context, creds *envfile.Profile) error {
	port := v.Manifest.HostPort("cache")
	if port == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:" + port,
		Password:    creds.Get(envfile.KeyRedisPassword),
		DialTimeout: 5 * time.Second,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache ping on port %s failed: %w", port, err)
	}

	logger := log.WithStage("verify")
	logger.Debug().Str("port", port).Msg("cache reachable from host")
	return nil
}
