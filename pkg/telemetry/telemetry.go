// Package telemetry provides Prometheus metrics for the Fern engines.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResolutionRunsTotal tracks entity resolution runs by status
	ResolutionRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "resolution",
			Name:      "runs_total",
			Help:      "Total number of entity resolution runs by status",
		},
		[]string{"tenant_id", "status"},
	)

	// ResolutionRunDuration tracks resolution run duration in seconds
	ResolutionRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "resolution",
			Name:      "run_duration_seconds",
			Help:      "Duration of entity resolution runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"tenant_id"},
	)

	// BlockingCandidatesTotal tracks candidate pairs emitted by blocking
	BlockingCandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "blocking",
			Name:      "candidates_total",
			Help:      "Total number of candidate pairs emitted by blocking",
		},
		[]string{"strategy"},
	)

	// ScoredPairsTotal tracks scored pairs by threshold outcome
	ScoredPairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "scoring",
			Name:      "pairs_total",
			Help:      "Total number of scored pairs by threshold outcome",
		},
		[]string{"outcome"},
	)

	// ClustersFormed tracks clusters produced per resolution run
	ClustersFormed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "clustering",
			Name:      "clusters_formed_total",
			Help:      "Total number of entity clusters formed",
		},
	)

	// MetricsComputedTotal tracks computed metric values
	MetricsComputedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "computation",
			Name:      "metrics_total",
			Help:      "Total number of metric values computed",
		},
		[]string{"tenant_id"},
	)

	// ComputationDuration tracks metric computation duration in seconds
	ComputationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "computation",
			Name:      "duration_seconds",
			Help:      "Duration of metric computation runs in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"tenant_id"},
	)

	// ValidationFailuresTotal tracks failed invariant checks
	ValidationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "validation",
			Name:      "failures_total",
			Help:      "Total number of failed metric invariant checks",
		},
		[]string{"invariant", "severity"},
	)

	// AnomaliesDetectedTotal tracks detected anomalies by method
	AnomaliesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "detection",
			Name:      "anomalies_total",
			Help:      "Total number of detected anomalies by method",
		},
		[]string{"method"},
	)
)

// RecordResolutionRun records an entity resolution run metric
func RecordResolutionRun(tenantID, status string, durationSeconds float64) {
	ResolutionRunsTotal.WithLabelValues(tenantID, status).Inc()
	ResolutionRunDuration.WithLabelValues(tenantID).Observe(durationSeconds)
}

// RecordComputation records a metric computation run
func RecordComputation(tenantID string, metricCount int, durationSeconds float64) {
	MetricsComputedTotal.WithLabelValues(tenantID).Add(float64(metricCount))
	ComputationDuration.WithLabelValues(tenantID).Observe(durationSeconds)
}

// RecordAnomaly records a detected anomaly
func RecordAnomaly(method string) {
	AnomaliesDetectedTotal.WithLabelValues(method).Inc()
}
