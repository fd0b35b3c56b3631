/*
Package metrics exports per-run deployment metrics for Prometheus.

A deployment is a one-shot process, so instead of a scrape endpoint the
exporter writes a textfile-collector file when --metrics-file is set:

	stackup_deploy_success 1
	stackup_deploy_timestamp_seconds 1.7729e+09
	stackup_deploy_duration_seconds 93.4
	stackup_stage_duration_seconds{stage="lifecycle"} 41.2

Point it at node_exporter's textfile directory to alert on failed or slow
deploys.
*/
package metrics
