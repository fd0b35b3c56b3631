// Package history journals deployment outcomes in a local BoltDB file, one
// append-only record per run. `stackup history` reads it newest-first.
package history
