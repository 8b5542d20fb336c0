// Package metrics exposes Prometheus metrics for harvest runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder registers and records harvest-run metrics.
type Recorder struct {
	registry    *prometheus.Registry
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_runs_total",
		Help: "Number of completed harvest runs by operation and outcome.",
	}, []string{"operation", "outcome"})

	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "harvester_run_duration_seconds",
		Help:    "Duration of harvest runs by operation.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"operation"})

	registry.MustRegister(runsTotal, runDuration)

	return &Recorder{
		registry:    registry,
		runsTotal:   runsTotal,
		runDuration: runDuration,
	}
}

// ObserveRun records one completed harvest run.
func (r *Recorder) ObserveRun(operation string, succeeded bool, duration time.Duration) {
	outcome := "success"
	if !succeeded {
		outcome = "failure"
	}
	r.runsTotal.WithLabelValues(operation, outcome).Inc()
	r.runDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Handler returns the HTTP handler serving the metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
