/*
Package compose drives the container orchestration tool through a narrow,
exec-based interface.

The Runtime interface covers exactly what the pipeline needs: prerequisite
checks (binary, daemon, compose plugin), stack lifecycle (Up, Down), command
execution inside running services (Exec, ExecStream), copying files out of
containers (CopyFrom), and volume existence. ExecRuntime is the production
implementation shelling out to the docker CLI; composetest.FakeRuntime is the
test double.

The package also parses the externally authored compose document (Manifest)
with yaml.v3. The orchestrator reads it for three things only: the declared
service names (health verification), the database healthcheck policy (logged
next to the orchestrator's own readiness gate), and published host ports
(advisory connectivity checks). Service definitions are never mutated;
dependency ordering between services is the compose engine's job, not ours.
*/
package compose
