package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_stage_runs_total",
		Help: "Total number of pipeline stage runs started",
	}, []string{"stage"})

	StageFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_stage_failures_total",
		Help: "Total number of failed pipeline stage runs",
	}, []string{"stage"})

	StageStopsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_stage_stops_total",
		Help: "Total number of pipeline stage runs stopped by request",
	}, []string{"stage"})

	ProgressLinesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_progress_lines_dropped_total",
		Help: "Progress lines dropped because the stage's buffer was full",
	}, []string{"stage"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_stage_duration_seconds",
		Help:    "Wall-clock duration of pipeline stage runs",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"stage"})

	RowsGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dataset_rows_generated_total",
		Help: "Total number of ODS order and order-detail rows generated",
	})

	RowsLoadedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dataset_rows_loaded_total",
		Help: "Total number of rows written to ODS tables",
	}, []string{"table"})

	VerificationDiscrepancies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verification_discrepancies_total",
		Help: "Total number of consistency discrepancies detected",
	}, []string{"table"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
