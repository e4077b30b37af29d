package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	BatchesInQueue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "batches_in_queue",
			Help: "Current number of batches waiting for the worker.",
		},
	)

	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batches_total",
			Help: "Total number of batches by terminal status.",
		},
		[]string{"status"},
	)

	VerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verdicts_total",
			Help: "Total number of row verdicts.",
		},
		[]string{"kind", "reason"},
	)

	RowsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rows_skipped_total",
			Help: "Total number of malformed rows skipped.",
		},
	)

	VerificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "verification_duration_seconds",
			Help:    "Duration of a single row verification.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	PagesScanned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "result_pages_scanned",
			Help:    "Result pages scanned per verification.",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
		},
	)

	LocatorResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locator_resolutions_total",
			Help: "Locator chain resolutions by role and winning strategy index.",
		},
		[]string{"role", "strategy"},
	)

	VerdictCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verdict_cache_lookups_total",
			Help: "Verdict memo lookups by result.",
		},
		[]string{"result"}, // hit, miss, error
	)
)
