// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Fetch metrics
	TargetsFetched prometheus.Counter
	TargetsFailed  prometheus.Counter
	FetchDuration  *prometheus.HistogramVec

	// Normalization metrics
	RecordsNormalized prometheus.Counter
	RecordsRejected   *prometheus.CounterVec

	// Diff metrics
	ListingsNew       prometheus.Counter
	ListingsUpdated   prometheus.Counter
	ListingsUnchanged prometheus.Counter
	ListingsRemoved   prometheus.Counter

	// Alert metrics
	AlertsSent   prometheus.Counter
	AlertsFailed prometheus.Counter

	// Run metrics
	RunsTotal         *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "dealradar"
	}

	return &Metrics{
		TargetsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "targets_fetched_total",
			Help:      "Total number of targets fetched successfully",
		}),
		TargetsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "targets_failed_total",
			Help:      "Total number of targets that failed to fetch",
		}),
		FetchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Fetch duration per target",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query_key"}),

		RecordsNormalized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalize",
			Name:      "records_normalized_total",
			Help:      "Total number of raw records normalized into listings",
		}),
		RecordsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalize",
			Name:      "records_rejected_total",
			Help:      "Total number of raw records rejected, by reason",
		}, []string{"reason"}),

		ListingsNew: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "diff",
			Name:      "listings_new_total",
			Help:      "Total number of listings classified as new",
		}),
		ListingsUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "diff",
			Name:      "listings_updated_total",
			Help:      "Total number of listings classified as updated",
		}),
		ListingsUnchanged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "diff",
			Name:      "listings_unchanged_total",
			Help:      "Total number of listings classified as unchanged",
		}),
		ListingsRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "diff",
			Name:      "listings_removed_total",
			Help:      "Total number of listings classified as removed",
		}),

		AlertsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "sent_total",
			Help:      "Total number of alerts delivered",
		}),
		AlertsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "failed_total",
			Help:      "Total number of alert delivery failures",
		}),

		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "total",
			Help:      "Total number of pipeline runs, by outcome",
		}, []string{"outcome"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of a full pipeline run",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "last_successful_timestamp",
			Help:      "Unix timestamp of the last successful run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
