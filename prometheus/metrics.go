package prometheus

import (
	"time"

	"content-service/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Stage workflow metrics
	StageTransitionsCounter prometheus.CounterVec

	// Generation job metrics
	GenerationJobsCounter prometheus.CounterVec
	JobPollDuration       prometheus.HistogramVec

	// Bulk import/export metrics
	ImportRowsCounter prometheus.CounterVec
	ExportsCounter    prometheus.Counter

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(config *config.Config) {
	// Use metric prefix from configuration
	prefix := config.Metrics.Prefix

	// HTTP request metrics
	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration
	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Stage workflow metrics
	StageTransitionsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_stage_transitions_total",
			Help: "Total number of stage transitions by direction and outcome",
		},
		[]string{"stage", "direction", "outcome"},
	)

	// Generation job metrics
	GenerationJobsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_generation_jobs_total",
			Help: "Total number of generation jobs by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	JobPollDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_job_poll_duration_seconds",
			Help:    "Wall-clock time spent awaiting generation jobs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	// Bulk import/export metrics
	ImportRowsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_import_rows_total",
			Help: "Total number of imported rows by result",
		},
		[]string{"result"},
	)

	ExportsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_exports_total",
			Help: "Total number of CSV exports",
		},
	)

	// Database operation metrics
	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordStageTransition increments the counter for stage transitions
func RecordStageTransition(stage, direction, outcome string) {
	StageTransitionsCounter.WithLabelValues(stage, direction, outcome).Inc()
}

// RecordGenerationJob increments the counter for generation jobs
func RecordGenerationJob(kind, outcome string) {
	GenerationJobsCounter.WithLabelValues(kind, outcome).Inc()
}

// RecordImportRow increments the counter for import row results
func RecordImportRow(result string, count int) {
	ImportRowsCounter.WithLabelValues(result).Add(float64(count))
}
