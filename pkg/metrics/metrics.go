package metrics

import (
	"fmt"

	"github.com/casthouse/stackup/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
)

// Exporter collects per-run deployment metrics and writes them in the
// Prometheus textfile-collector format. stackup is a one-shot process, so
// there is no scrape endpoint: node_exporter (or anything else reading the
// textfile directory) picks the file up.
type Exporter struct {
	registry *prometheus.Registry

	success       prometheus.Gauge
	timestamp     prometheus.Gauge
	duration      prometheus.Gauge
	stageDuration *prometheus.GaugeVec
}

// NewExporter creates an exporter with its own registry.
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stackup_deploy_success",
			Help: "Whether the last deployment succeeded (1 = success, 0 = failure)",
		}),
		timestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stackup_deploy_timestamp_seconds",
			Help: "Unix timestamp of the last deployment completion",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stackup_deploy_duration_seconds",
			Help: "Wall-clock duration of the last deployment",
		}),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stackup_stage_duration_seconds",
			Help: "Duration of each pipeline stage in the last deployment",
		}, []string{"stage"}),
	}

	e.registry.MustRegister(e.success, e.timestamp, e.duration, e.stageDuration)
	return e
}

// Observe records one outcome.
func (e *Exporter) Observe(o *types.DeploymentOutcome) {
	if o.Success {
		e.success.Set(1)
	} else {
		e.success.Set(0)
	}
	e.timestamp.Set(float64(o.FinishedAt.Unix()))
	e.duration.Set(o.Elapsed().Seconds())

	for _, s := range o.Stages {
		if s.Skipped {
			continue
		}
		e.stageDuration.WithLabelValues(s.Stage).Set(s.Duration.Seconds())
	}
}

// WriteFile writes the collected metrics to path atomically.
func (e *Exporter) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
