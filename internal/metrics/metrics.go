// Package metrics exposes Prometheus metrics for the reconciliation loop.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opendkimctl_reconcile_cycles_total",
			Help: "Total number of reconciliation cycles by outcome",
		},
		[]string{"outcome"},
	)

	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "opendkimctl_reconcile_duration_seconds",
			Help:    "Duration of reconciliation cycles",
			Buckets: prometheus.DefBuckets,
		},
	)

	restartsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "opendkimctl_service_restarts_total",
			Help: "Total number of disruptive service restarts issued",
		},
	)

	reloadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "opendkimctl_service_reloads_total",
			Help: "Total number of service reloads issued",
		},
	)

	validationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "opendkimctl_external_validation_failures_total",
			Help: "Total number of opendkim-testkey validation failures",
		},
	)
)

// ObserveCycle records one finished reconciliation cycle.
func ObserveCycle(outcome string, d time.Duration) {
	cyclesTotal.WithLabelValues(outcome).Inc()
	cycleDuration.Observe(d.Seconds())
}

// RecordRestart counts a disruptive restart.
func RecordRestart() { restartsTotal.Inc() }

// RecordReload counts a reload.
func RecordReload() { reloadsTotal.Inc() }

// RecordValidationFailure counts a failed external validation.
func RecordValidationFailure() { validationFailuresTotal.Inc() }
