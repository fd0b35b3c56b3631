/*
Package bootstrap runs post-start application setup inside the app service.

The sequence is fixed: ensure the application key exists (generate only when
absent), cache configuration, apply pending migrations non-interactively,
seed data (development only, best-effort), create the public storage link
(best-effort), then normalize ownership and permissions on mutable
directories. Key, config, migration and permission failures are fatal; seed
and storage-link failures are logged and skipped.
*/
package bootstrap
