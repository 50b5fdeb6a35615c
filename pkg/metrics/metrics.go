package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "case_review"

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Project lifecycle metrics
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "project_transitions_total",
			Help:      "Project operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// Import metrics
	ImportedRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_imported_total",
			Help:      "Case rows imported from uploaded sources",
		},
	)

	RejectedRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_rejected_total",
			Help:      "Case rows rejected during import",
		},
	)

	ImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Duration of source imports in seconds",
			Buckets:   []float64{.05, .1, .5, 1, 5, 15, 60, 300},
		},
	)

	// Lock wait metrics
	LockWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "project_lock_wait_seconds",
			Help:      "Time spent waiting for a project mutation lock",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// RecordTransition counts a project operation. outcome is "ok" or an error code.
func RecordTransition(operation, outcome string) {
	TransitionsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordImport records the result of one source import.
func RecordImport(imported, rejected int, startTime time.Time) {
	ImportedRowsTotal.Add(float64(imported))
	RejectedRowsTotal.Add(float64(rejected))
	ImportDuration.Observe(time.Since(startTime).Seconds())
}

// TrackLockWait returns a function that records how long a lock acquisition took.
func TrackLockWait() func() {
	start := time.Now()
	return func() {
		LockWaitDuration.Observe(time.Since(start).Seconds())
	}
}
