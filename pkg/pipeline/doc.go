/*
Package pipeline sequences a deployment run.

A run is a fixed, ordered list of stages (prerequisites, environment,
backup, lifecycle, readiness, bootstrap, verify) driven to completion
single-threaded with fail-fast semantics: the first fatal stage error aborts
the run and names the stage. Soft stages such as backup downgrade their
failure to a warning. Exactly one DeploymentOutcome is produced per run,
printed as the summary and handed back to the caller for journaling and
metrics export.

Every fatal error wraps one of the category sentinels (ErrPrerequisite,
ErrConfiguration, ErrLifecycle, ErrReadinessTimeout, ErrBootstrap,
ErrHealthCheck), so automation can match on errors.Is while humans read the
stage name in the summary.

AcquireLock serializes runs per data directory; concurrent deployments would
race on the credential file and the container set.
*/
package pipeline
