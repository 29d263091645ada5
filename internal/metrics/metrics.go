// Package metrics provides Prometheus metrics for the trend ingestion job.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "trends_ingest"

// Run outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds all ingestion metrics.
type Metrics struct {
	Runs              *prometheus.CounterVec
	RecordsFetched    prometheus.Counter
	RowsLoaded        prometheus.Counter
	DuplicatesRemoved prometheus.Counter
	RolloverRows      prometheus.Counter
	LastSuccess       prometheus.Gauge
	RunDuration       prometheus.Histogram

	registry *prometheus.Registry
}

// New creates and registers the ingestion metrics on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.Runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total ingestion runs by outcome",
		},
		[]string{"outcome"}, // "success", "failure"
	)

	m.RecordsFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_fetched_total",
		Help:      "Trending searches returned by the provider",
	})

	m.RowsLoaded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rows_loaded_total",
		Help:      "Rows loaded into rebuilt monthly tables",
	})

	m.DuplicatesRemoved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "duplicates_removed_total",
		Help:      "Rows dropped by (query, start_date) deduplication",
	})

	m.RolloverRows = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rollover_rows_total",
		Help:      "Rows carried over from the previous month's table",
	})

	m.LastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful run",
	})

	m.RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of a full ingestion run",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	m.registry.MustRegister(
		m.Runs,
		m.RecordsFetched,
		m.RowsLoaded,
		m.DuplicatesRemoved,
		m.RolloverRows,
		m.LastSuccess,
		m.RunDuration,
	)

	return m
}

// ObserveRun records the outcome and duration of one run.
func (m *Metrics) ObserveRun(outcome string, started, finished time.Time) {
	m.Runs.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(finished.Sub(started).Seconds())
	if outcome == OutcomeSuccess {
		m.LastSuccess.Set(float64(finished.Unix()))
	}
}

// Handler returns the HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Push sends the registry to a Prometheus Pushgateway.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
