package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/casthouse/stackup/pkg/compose"
	"github.com/casthouse/stackup/pkg/envfile"
	"github.com/casthouse/stackup/pkg/log"
	"github.com/casthouse/stackup/pkg/types"
)

// DataVolume is the compose volume holding database state. Its presence is
// how a prior deployment is detected.
const DataVolume = "dbdata"

// Agent snapshots persistent state before a production redeploy: a full
// logical database dump plus a copy of the application's file storage.
type Agent struct {
	Runtime    compose.Runtime
	Dir        string
	DBService  string
	AppService string

	// StoragePath is the in-container path of mutable file storage.
	StoragePath string
}

// NewAgent returns an agent writing under dir.
func NewAgent(rt compose.Runtime, dir string) *Agent {
	return &Agent{
		Runtime:     rt,
		Dir:         dir,
		DBService:   "db",
		AppService:  "app",
		StoragePath: "/var/www/html/storage",
	}
}

// PriorStateExists reports whether the previous deployment left persistent
// database state behind. A fresh host has nothing worth backing up.
func (a *Agent) PriorStateExists(ctx context.Context, p compose.Profile) (bool, error) {
	return a.Runtime.VolumeExists(ctx, p.Project+"_"+DataVolume)
}

// Run creates a timestamped backup directory for this run. Directories are
// append-only: a name collision (two runs inside one second) is resolved by
// suffixing the run ID, never by overwriting.
func (a *Agent) Run(ctx context.Context, p compose.Profile, creds *envfile.Profile, req *types.DeploymentRequest) (*types.BackupRecord, error) {
	dir := filepath.Join(a.Dir, fmt.Sprintf("%s-%s", req.Environment, req.StartedAt.Format("20060102-150405")))
	if _, err := os.Stat(dir); err == nil {
		dir = dir + "-" + req.ID[:8]
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	logger := log.WithStage("backup")
	logger.Info().Str("dir", dir).Msg("backing up persistent state")

	record := &types.BackupRecord{
		Path:      dir,
		CreatedAt: req.StartedAt,
	}

	if err := a.dumpDatabase(ctx, p, creds, dir, record); err != nil {
		return nil, err
	}
	if err := a.copyStorage(ctx, p, dir, record); err != nil {
		return nil, err
	}

	logger.Info().Str("dir", dir).Msg("backup complete")
	return record, nil
}

func (a *Agent) dumpDatabase(ctx context.Context, p compose.Profile, creds *envfile.Profile, dir string, record *types.BackupRecord) error {
	dumpPath := filepath.Join(dir, "database.sql")
	f, err := os.OpenFile(dumpPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}
	defer f.Close()

	// MYSQL_PWD keeps the root password out of the container's argv.
	cmd := []string{
		"sh", "-c",
		fmt.Sprintf("MYSQL_PWD=%q mysqldump --all-databases --single-transaction -uroot", creds.Get(envfile.KeyDBRootPassword)),
	}
	if err := a.Runtime.ExecStream(ctx, p, a.DBService, f, cmd...); err != nil {
		return fmt.Errorf("database dump failed: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to flush dump file: %w", err)
	}

	record.DumpFile = dumpPath
	return nil
}

func (a *Agent) copyStorage(ctx context.Context, p compose.Profile, dir string, record *types.BackupRecord) error {
	dst := filepath.Join(dir, "storage")
	if err := a.Runtime.CopyFrom(ctx, p, a.AppService, a.StoragePath, dst); err != nil {
		return fmt.Errorf("storage snapshot failed: %w", err)
	}
	record.StorageDir = dst
	return nil
}
