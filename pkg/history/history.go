package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/casthouse/stackup/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var bucketDeployments = []byte("deployments")

// Store is the local deployment journal. Every run, successful or not,
// appends one record.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the journal under dataDir.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "history.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDeployments)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the journal.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one outcome. Keys sort chronologically so a reverse cursor
// walk yields newest-first.
func (s *Store) Record(o *types.DeploymentOutcome) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDeployments)
		data, err := json.Marshal(o)
		if err != nil {
			return err
		}
		key := o.FinishedAt.UTC().Format(time.RFC3339Nano) + "/" + o.RunID
		return b.Put([]byte(key), data)
	})
}

// Recent returns up to n outcomes, newest first.
func (s *Store) Recent(n int) ([]*types.DeploymentOutcome, error) {
	var out []*types.DeploymentOutcome

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketDeployments).Cursor()
		for k, v := c.Last(); k != nil && len(out) < n; k, v = c.Prev() {
			var o types.DeploymentOutcome
			if err := json.Unmarshal(v, &o); err != nil {
				return fmt.Errorf("corrupt journal entry %s: %w", k, err)
			}
			out = append(out, &o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
