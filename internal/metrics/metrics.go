// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

// Package metrics provides Prometheus instrumentation for:
//   - Square API call latency and errors
//   - Sync operation duration, throughput and watermark freshness
//   - MongoDB operation latency
//   - Report generation
//   - HTTP endpoint latency and throughput
//   - Circuit breaker state
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Square API Metrics
	SquareAPICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "square_api_call_duration_seconds",
			Help:    "Duration of Square API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	SquareAPIErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "square_api_errors_total",
			Help: "Total number of Square API errors",
		},
		[]string{"endpoint", "status_code"},
	)

	SquareAPIRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "square_api_rate_limited_total",
			Help: "Total number of HTTP 429 responses from the Square API",
		},
	)

	// Sync Operation Metrics
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of sync operations in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600}, // full syncs can take minutes
		},
		[]string{"connector"},
	)

	SyncRecordsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_records_upserted_total",
			Help: "Total number of documents upserted during sync",
		},
		[]string{"collection"},
	)

	SyncRecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_records_skipped_total",
			Help: "Total number of records skipped during sync",
		},
		[]string{"connector", "reason"}, // "boundary_duplicate", "fixed", "api_error"
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Total number of sync errors",
		},
		[]string{"error_type"}, // "square_api", "mongodb", "decode"
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp",
			Help: "Unix timestamp of last successful sync",
		},
	)

	SyncRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_running",
			Help: "Whether a sync run is currently in progress (0 or 1)",
		},
	)

	// MongoDB Metrics
	MongoOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mongodb_operation_duration_seconds",
			Help:    "Duration of MongoDB operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "collection"},
	)

	MongoOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mongodb_operation_errors_total",
			Help: "Total number of MongoDB operation errors",
		},
		[]string{"operation", "collection"},
	)

	// Report Metrics
	ReportBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "report_build_duration_seconds",
			Help:    "Duration of accounting report generation in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	ReportsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reports_generated_total",
			Help: "Total number of accounting reports generated",
		},
	)

	ReportErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "report_errors_total",
			Help: "Total number of report generation errors",
		},
	)

	// HTTP Endpoint Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordSquareAPICall records the duration of a Square API call.
func RecordSquareAPICall(endpoint string, duration time.Duration) {
	SquareAPICallDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordSquareAPIError records a Square API error response.
func RecordSquareAPIError(endpoint, statusCode string) {
	SquareAPIErrors.WithLabelValues(endpoint, statusCode).Inc()
}

// RecordSyncOperation records a completed connector sync run.
func RecordSyncOperation(connector string, duration time.Duration) {
	SyncDuration.WithLabelValues(connector).Observe(duration.Seconds())
}

// RecordUpsert records a successful document upsert.
func RecordUpsert(collection string) {
	SyncRecordsUpserted.WithLabelValues(collection).Inc()
}

// RecordSkip records a record skipped during sync.
func RecordSkip(connector, reason string) {
	SyncRecordsSkipped.WithLabelValues(connector, reason).Inc()
}

// RecordSyncError records a sync error by type.
func RecordSyncError(errorType string) {
	SyncErrors.WithLabelValues(errorType).Inc()
}

// RecordSyncSuccess marks the completion time of a successful full sync.
func RecordSyncSuccess() {
	SyncLastSuccess.SetToCurrentTime()
}

// RecordMongoOperation records the duration of a MongoDB operation.
func RecordMongoOperation(operation, collection string, duration time.Duration, err error) {
	MongoOperationDuration.WithLabelValues(operation, collection).Observe(duration.Seconds())
	if err != nil {
		MongoOperationErrors.WithLabelValues(operation, collection).Inc()
	}
}

// RecordReportBuild records a report generation attempt.
func RecordReportBuild(duration time.Duration, err error) {
	ReportBuildDuration.Observe(duration.Seconds())
	if err != nil {
		ReportErrors.Inc()
		return
	}
	ReportsGenerated.Inc()
}

// RecordHTTPRequest records an HTTP request with status and duration.
func RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
