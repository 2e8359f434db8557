// Package metrics provides Prometheus metrics for the schema registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the registry.
type Metrics struct {
	// Registration metrics
	RegistrationsTotal *prometheus.CounterVec
	PendingSchemas     prometheus.Gauge
	CommittedSchemas   prometheus.Gauge

	// Duplicate detection metrics
	DuplicateScans     prometheus.Counter
	DuplicatesDetected prometheus.Counter

	// Flush metrics
	FlushDuration prometheus.Histogram
	FlushFailures *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemareg_registrations_total",
			Help: "Total schema registrations by outcome",
		},
		[]string{"outcome"}, // accepted, idempotent, conflict, missing_id
	)

	m.PendingSchemas = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "schemareg_pending_schemas",
			Help: "Schemas accepted but not yet committed to the engine",
		},
	)

	m.CommittedSchemas = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "schemareg_committed_schemas",
			Help: "Schemas committed to the validation engine",
		},
	)

	m.DuplicateScans = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schemareg_duplicate_scans_total",
			Help: "Duplicate detection scans performed",
		},
	)

	m.DuplicatesDetected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schemareg_duplicates_detected_total",
			Help: "Structurally duplicate schema pairs detected",
		},
	)

	m.FlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "schemareg_flush_duration_seconds",
			Help:    "Duration of registry flushes",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.FlushFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemareg_flush_failures_total",
			Help: "Flush failures by cause",
		},
		[]string{"cause"}, // unresolved_reference, engine_rejection
	)

	m.registry.MustRegister(
		m.RegistrationsTotal,
		m.PendingSchemas,
		m.CommittedSchemas,
		m.DuplicateScans,
		m.DuplicatesDetected,
		m.FlushDuration,
		m.FlushFailures,
	)

	return m
}

// Handler returns an HTTP handler exposing the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
