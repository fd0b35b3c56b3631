/*
Package log provides structured logging for stackup using zerolog.

The package wraps zerolog behind a small global-logger API. Init is called
once from main with the level and format selected by CLI flags; every other
package logs through the global Logger or a child logger created with
WithComponent or WithStage.

Console output is colored and human-readable, matching the interactive nature
of a deployment run:

	9:41AM INF bringing stack up stage=lifecycle profile=production
	9:41AM WRN backup failed, continuing stage=backup error="mysqldump: exit status 2"

JSON output (enabled with --log-json) emits one object per line for log
collectors:

	{"level":"info","stage":"lifecycle","time":"2026-08-30T09:41:00Z","message":"bringing stack up"}

# Usage

	log.Init(log.Config{Level: log.InfoLevel})

	stageLog := log.WithStage("readiness")
	stageLog.Info().Int("attempt", n).Msg("database not ready yet")

Warnings carry non-fatal stage failures (backup, seed, external HTTP probe);
errors are reserved for failures that abort the pipeline.
*/
package log
