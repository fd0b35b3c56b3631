package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/casthouse/stackup/pkg/compose/composetest"
	"github.com/casthouse/stackup/pkg/envfile"
	"github.com/casthouse/stackup/pkg/log"
	"github.com/casthouse/stackup/pkg/types"
	"github.com/casthouse/stackup/pkg/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.Init(log.Config{Level: log.ErrorLevel})
}

const devCompose = `
services:
  db:
    image: mysql:8.0
    healthcheck:
      test: ["CMD", "mysqladmin", "ping", "-h", "localhost"]
      interval: 2s
      retries: 10
  cache:
    image: redis:7-alpine
  app:
    build: ./backend
    depends_on:
      - db
      - cache
  proxy:
    image: nginx:alpine
`

type stubLister struct {
	states map[string]string
}

func (s *stubLister) List(ctx context.Context, project string) (map[string]string, error) {
	return s.states, nil
}

func (s *stubLister) Close() error { return nil }

func allRunning() *stubLister {
	return &stubLister{states: map[string]string{
		"db": "running", "cache": "running", "app": "running", "proxy": "running",
	}}
}

// testEnv lays out a compose dir with both profiles and returns a ready
// Config wired to fakes.
func testEnv(t *testing.T, rt *composetest.FakeRuntime) Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docker-compose.yml"), []byte(devCompose), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docker-compose.prod.yml"), []byte(devCompose), 0644))

	return Config{
		ComposeDir:        dir,
		BackupDir:         filepath.Join(dir, "backups"),
		ReadinessAttempts: 3,
		ReadinessInterval: time.Millisecond,
		NewLister: func() (verify.ContainerLister, error) {
			return allRunning(), nil
		},
		EndpointProbe: func(ctx context.Context, url string) error {
			return nil
		},
	}
}

func TestDevelopmentDeploySucceeds(t *testing.T) {
	rt := &composetest.FakeRuntime{
		ExecResults: map[string]composetest.ExecResult{
			"php artisan --version": {Output: "Laravel Framework 11.9.2"},
		},
	}
	cfg := testEnv(t, rt)
	req := types.NewRequest(types.EnvDevelopment, "")

	outcome := New(req, rt, cfg).Run(context.Background())

	assert.True(t, outcome.Success, "outcome: %+v", outcome)
	assert.Empty(t, outcome.FailedStage)
	assert.Empty(t, outcome.BackupPath, "development must not create backups")
	assert.Equal(t, "http://localhost", req.AppURL())
	assert.Equal(t, "http://localhost/api", req.APIURL())

	// Down before up, both after the prerequisite checks.
	ops := rt.Ops()
	assert.Equal(t, "binary", ops[0])
	assert.Equal(t, "daemon", ops[1])
	assert.Equal(t, "compose", ops[2])
	downIdx, upIdx := indexOf(ops, "down"), indexOf(ops, "up")
	require.GreaterOrEqual(t, downIdx, 0)
	require.Greater(t, upIdx, downIdx)

	// Migrations ran once.
	assert.Equal(t, 1, rt.ExecCount("php artisan migrate"))

	// Backup stage is recorded as skipped.
	var backupStage *types.StageResult
	for i := range outcome.Stages {
		if outcome.Stages[i].Stage == "backup" {
			backupStage = &outcome.Stages[i]
		}
	}
	require.NotNil(t, backupStage)
	assert.True(t, backupStage.Skipped)
}

func TestDaemonUnreachableAbortsBeforeLifecycle(t *testing.T) {
	rt := &composetest.FakeRuntime{
		Fail: map[string]error{"daemon": errors.New("cannot connect to the docker daemon")},
	}
	cfg := testEnv(t, rt)

	outcome := New(types.NewRequest(types.EnvDevelopment, ""), rt, cfg).Run(context.Background())

	assert.False(t, outcome.Success)
	assert.Equal(t, "prerequisites", outcome.FailedStage)
	assert.Equal(t, -1, indexOf(rt.Ops(), "down"), "no lifecycle action may run")
	assert.Equal(t, -1, indexOf(rt.Ops(), "up"))
}

func TestReadinessTimeoutAbortsBeforeBootstrap(t *testing.T) {
	rt := &composetest.FakeRuntime{
		ExecResults: map[string]composetest.ExecResult{
			"mysqladmin ping": {Err: errors.New("connection refused")},
		},
	}
	cfg := testEnv(t, rt)
	cfg.ReadinessAttempts = 5

	outcome := New(types.NewRequest(types.EnvDevelopment, ""), rt, cfg).Run(context.Background())

	assert.False(t, outcome.Success)
	assert.Equal(t, "readiness", outcome.FailedStage)
	assert.Equal(t, 5, rt.ExecCount("mysqladmin ping"), "exactly the attempt budget")
	assert.Equal(t, 0, rt.ExecCount("php artisan migrate"), "no bootstrap after timeout")
}

func TestProductionBackupRunsBeforeTeardown(t *testing.T) {
	rt := &composetest.FakeRuntime{
		Volumes:      map[string]bool{"app_dbdata": true},
		StreamOutput: "-- dump\n",
		ExecResults: map[string]composetest.ExecResult{
			"php artisan --version": {Output: "Laravel Framework 11.9.2"},
		},
	}
	cfg := testEnv(t, rt)

	outcome := New(types.NewRequest(types.EnvProduction, "example.com"), rt, cfg).Run(context.Background())

	require.True(t, outcome.Success, "outcome: %+v", outcome)
	assert.NotEmpty(t, outcome.BackupPath)

	ops := rt.Ops()
	dumpIdx := indexOf(ops, "exec-stream")
	downIdx := indexOf(ops, "down")
	require.GreaterOrEqual(t, dumpIdx, 0)
	require.Greater(t, downIdx, dumpIdx, "backup must complete before teardown")
}

func TestProductionBackupFailureIsNonFatal(t *testing.T) {
	rt := &composetest.FakeRuntime{
		Volumes: map[string]bool{"app_dbdata": true},
		Fail:    map[string]error{"exec-stream": errors.New("mysqldump: no space left")},
		ExecResults: map[string]composetest.ExecResult{
			"php artisan --version": {Output: "Laravel Framework 11.9.2"},
		},
	}
	cfg := testEnv(t, rt)

	outcome := New(types.NewRequest(types.EnvProduction, "example.com"), rt, cfg).Run(context.Background())

	assert.True(t, outcome.Success, "backup failure must not abort the run")
	assert.Empty(t, outcome.BackupPath)
}

func TestSeedFailureDoesNotFailDevelopmentRun(t *testing.T) {
	rt := &composetest.FakeRuntime{
		ExecResults: map[string]composetest.ExecResult{
			"php artisan db:seed":   {Err: errors.New("seeder exploded")},
			"php artisan --version": {Output: "Laravel Framework 11.9.2"},
		},
	}
	cfg := testEnv(t, rt)

	outcome := New(types.NewRequest(types.EnvDevelopment, ""), rt, cfg).Run(context.Background())
	assert.True(t, outcome.Success)
}

func TestCrashedServiceFailsVerification(t *testing.T) {
	rt := &composetest.FakeRuntime{
		ExecResults: map[string]composetest.ExecResult{
			"php artisan --version": {Output: "Laravel Framework 11.9.2"},
		},
	}
	cfg := testEnv(t, rt)
	cfg.NewLister = func() (verify.ContainerLister, error) {
		return &stubLister{states: map[string]string{
			"db": "running", "cache": "running", "app": "exited", "proxy": "running",
		}}, nil
	}

	outcome := New(types.NewRequest(types.EnvDevelopment, ""), rt, cfg).Run(context.Background())

	assert.False(t, outcome.Success)
	assert.Equal(t, "verify", outcome.FailedStage)
}

func TestMissingComposeProfileFailsLifecycle(t *testing.T) {
	rt := &composetest.FakeRuntime{}
	cfg := testEnv(t, rt)
	require.NoError(t, os.Remove(filepath.Join(cfg.ComposeDir, "docker-compose.yml")))

	outcome := New(types.NewRequest(types.EnvDevelopment, ""), rt, cfg).Run(context.Background())

	assert.False(t, outcome.Success)
	assert.Equal(t, "lifecycle", outcome.FailedStage)
}

func TestProductionCredentialsStableAcrossRuns(t *testing.T) {
	rt := &composetest.FakeRuntime{
		ExecResults: map[string]composetest.ExecResult{
			"php artisan --version": {Output: "Laravel Framework 11.9.2"},
		},
	}
	cfg := testEnv(t, rt)

	first := New(types.NewRequest(types.EnvProduction, "example.com"), rt, cfg).Run(context.Background())
	require.True(t, first.Success)

	before, err := os.ReadFile(filepath.Join(cfg.ComposeDir, ".env.production"))
	require.NoError(t, err)

	second := New(types.NewRequest(types.EnvProduction, "example.com"), rt, cfg).Run(context.Background())
	require.True(t, second.Success)

	after, err := os.ReadFile(filepath.Join(cfg.ComposeDir, ".env.production"))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "credential file must be byte-stable across redeploys")

	p, err := envfile.Load(filepath.Join(cfg.ComposeDir, ".env.production"))
	require.NoError(t, err)
	assert.NotEmpty(t, p.Get(envfile.KeyDBRootPassword))
}

func TestStageErrorCategory(t *testing.T) {
	rt := &composetest.FakeRuntime{
		Fail: map[string]error{"binary": errors.New(`container runtime "docker" not found on PATH`)},
	}
	cfg := testEnv(t, rt)

	outcome := New(types.NewRequest(types.EnvDevelopment, ""), rt, cfg).Run(context.Background())
	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "prerequisite error")
}

func indexOf(ops []string, op string) int {
	for i, o := range ops {
		if o == op {
			return i
		}
	}
	return -1
}
