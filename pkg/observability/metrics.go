// Package observability provides Prometheus metrics for the pipeline
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// RecommendationsTotal tracks candidate recommendations produced by rule steps
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfwise_recommendations_total",
			Help: "Total candidate recommendations produced by business rules",
		},
		[]string{"rule", "action"},
	)

	// ValidationResultsTotal tracks sell-through gate outcomes
	ValidationResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfwise_validation_results_total",
			Help: "Sell-through validation outcomes",
		},
		[]string{"rule", "status"}, // status: approved, rejected, skipped
	)

	// BatchValidationDuration measures time spent validating a recommendation batch
	BatchValidationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shelfwise_batch_validation_duration_seconds",
			Help:    "Time taken to validate a recommendation batch",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	// StepDuration measures pipeline step execution duration
	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelfwise_step_duration_seconds",
			Help:    "Pipeline step execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"step", "status"}, // status: success, failed
	)

	// StepsTotal tracks the number of pipeline steps executed
	StepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfwise_steps_total",
			Help: "Total pipeline steps executed",
		},
		[]string{"step", "status"},
	)

	// RunsTotal tracks full pipeline runs
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfwise_runs_total",
			Help: "Total pipeline runs",
		},
		[]string{"status"}, // status: success, failed
	)

	// IngestRows tracks rows handled during sales ingestion
	IngestRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfwise_ingest_rows_total",
			Help: "Sales rows handled during ingestion",
		},
		[]string{"status"}, // status: ok, clamped, malformed
	)

	// BaselineLookups tracks baseline cache and provider outcomes
	BaselineLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfwise_baseline_lookups_total",
			Help: "Baseline lookup outcomes",
		},
		[]string{"result"}, // result: hit, miss, cache_hit, cache_error, error
	)

	// TasksTotal tracks distributed step tasks processed by workers
	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfwise_tasks_total",
			Help: "Distributed pipeline step tasks processed",
		},
		[]string{"step", "status"}, // status: success, failed
	)
)

// RecordRecommendation records a candidate recommendation emitted by a rule.
func RecordRecommendation(rule, action string) {
	RecommendationsTotal.WithLabelValues(rule, action).Inc()
}

// RecordValidationResult records the outcome of gating one recommendation row.
func RecordValidationResult(rule, status string) {
	ValidationResultsTotal.WithLabelValues(rule, status).Inc()
}

// ObserveBatchValidation records the duration of a batch validation pass.
func ObserveBatchValidation(seconds float64) {
	BatchValidationDuration.Observe(seconds)
}

// RecordStep records a pipeline step execution with its duration.
func RecordStep(step, status string, seconds float64) {
	StepsTotal.WithLabelValues(step, status).Inc()
	StepDuration.WithLabelValues(step, status).Observe(seconds)
}

// RecordRun records the outcome of a full pipeline run.
func RecordRun(status string) {
	RunsTotal.WithLabelValues(status).Inc()
}

// RecordIngestRow records the handling of one ingested sales row.
func RecordIngestRow(status string) {
	IngestRows.WithLabelValues(status).Inc()
}

// RecordBaselineLookup records a baseline lookup outcome.
func RecordBaselineLookup(result string) {
	BaselineLookups.WithLabelValues(result).Inc()
}

// RecordTask records a distributed step task outcome.
func RecordTask(step, status string) {
	TasksTotal.WithLabelValues(step, status).Inc()
}
