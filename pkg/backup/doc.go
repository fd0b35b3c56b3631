/*
Package backup snapshots persistent state before a production redeploy.

Each run gets its own timestamped directory under the backup root containing
database.sql (a full mysqldump streamed out of the db service) and storage/
(a copy of the application's mutable file storage). Records are append-only.

The pipeline treats a backup failure as a warning, not a fatal error: a
failed backup must not block a redeploy. The warning is deliberately loud so
operators notice before data-destructive migrations run.
*/
package backup
