// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// FRED metrics
	FREDRequestLatency *prometheus.HistogramVec
	FREDRetries        prometheus.Counter
	SeriesFetched      *prometheus.CounterVec
	ObservationsStored prometheus.Counter
	CacheLookups       *prometheus.CounterVec

	// Analysis metrics
	LinesAnalyzed prometheus.Counter
	SignalOnsets  prometheus.Counter

	// Batch metrics
	RegionsProcessed *prometheus.CounterVec
	BatchDuration    prometheus.Histogram
	RowsWritten      *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulBatch prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "sahm"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// FRED metrics
		FREDRequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fred",
			Name:      "request_latency_seconds",
			Help:      "FRED API request latency in seconds by outcome",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		FREDRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fred",
			Name:      "retries_total",
			Help:      "Total number of retried FRED requests",
		}),
		SeriesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fred",
			Name:      "series_fetched_total",
			Help:      "Total number of series fetch attempts by status",
		}, []string{"status"}),
		ObservationsStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "observations_stored_total",
			Help:      "Total number of observations written to the series cache",
		}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of series cache lookups by result",
		}, []string{"result"}),

		// Analysis metrics
		LinesAnalyzed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "lines_analyzed_total",
			Help:      "Total number of line analyses completed",
		}),
		SignalOnsets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "signal_onsets_total",
			Help:      "Total number of signal onsets detected",
		}),

		// Batch metrics
		RegionsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "regions_processed_total",
			Help:      "Total number of regions processed by status",
		}, []string{"status"}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "duration_seconds",
			Help:      "County batch run duration in seconds",
			Buckets:   []float64{10, 60, 300, 900, 1800, 3600, 7200},
		}),
		RowsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "rows_written_total",
			Help:      "Total number of output rows written by sink",
		}, []string{"sink"}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulBatch: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_batch_timestamp",
			Help:      "Unix timestamp of last successful batch run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)

// RecordFREDRequest records the latency of one FRED HTTP attempt.
func RecordFREDRequest(status string, d time.Duration) {
	DefaultMetrics.FREDRequestLatency.WithLabelValues(status).Observe(d.Seconds())
}

// RecordFREDRetry increments the FRED retry counter.
func RecordFREDRetry() {
	DefaultMetrics.FREDRetries.Inc()
}

// RecordSeriesFetched records the outcome of a series fetch.
func RecordSeriesFetched(err error) {
	DefaultMetrics.SeriesFetched.WithLabelValues(status(err)).Inc()
}

// RecordObservationsStored adds n to the stored observations counter.
func RecordObservationsStored(n int) {
	DefaultMetrics.ObservationsStored.Add(float64(n))
}

// RecordCacheLookup records a series cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.CacheLookups.WithLabelValues(result).Inc()
}

// RecordLineAnalyzed records a completed line analysis and its onsets.
func RecordLineAnalyzed(onsets int) {
	DefaultMetrics.LinesAnalyzed.Inc()
	DefaultMetrics.SignalOnsets.Add(float64(onsets))
}

// RecordRegion records the outcome of one batch region.
func RecordRegion(err error) {
	DefaultMetrics.RegionsProcessed.WithLabelValues(status(err)).Inc()
}

// RecordRowsWritten adds n rows to the counter for sink.
func RecordRowsWritten(sink string, n int) {
	DefaultMetrics.RowsWritten.WithLabelValues(sink).Add(float64(n))
}

// RecordBatch records a finished batch run.
func RecordBatch(d time.Duration, err error) {
	DefaultMetrics.BatchDuration.Observe(d.Seconds())
	if err == nil {
		DefaultMetrics.LastSuccessfulBatch.SetToCurrentTime()
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, d time.Duration, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(d.Seconds())
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
