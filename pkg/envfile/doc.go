/*
Package envfile materializes per-environment configuration profiles.

A profile is a plain key=value file (.env.development, .env.production)
consumed by the compose profiles at stack start. Ensure creates the file on
first use: production credentials are generated from crypto/rand (32 bytes,
base64) and persisted with 0600 permissions; development gets fixed
local-only defaults.

The contract that matters is create-if-absent, never overwrite: once a
credential key has a value, no later run will change it. Redeploying must not
rotate database or cache passwords out from under a running stack. Only the
non-secret APP_ENV and APP_DOMAIN keys are refreshed per run.
*/
package envfile
