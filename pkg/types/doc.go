/*
Package types defines the core data structures shared across stackup packages.

A DeploymentRequest is built once from the CLI arguments and threaded through
the pipeline unchanged. The pipeline produces exactly one DeploymentOutcome,
which is printed in the summary, journaled, and exported as metrics. All
types here are plain data with no behavior beyond construction and
formatting helpers, which keeps them safe to marshal and compare in tests.
*/
package types
