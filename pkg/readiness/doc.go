/*
Package readiness gates the pipeline on external dependencies becoming ready.

A Checker performs one probe; the Poller runs it on a fixed interval with a
bounded attempt budget (default 30 attempts, 2 seconds apart) and fails the
deployment when the budget is exhausted. This gate is intentionally
independent of the healthcheck declared in the compose document: the compose
engine gates inter-service startup, the poller gates the pipeline itself.
*/
package readiness
