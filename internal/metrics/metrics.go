// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

// Package metrics provides Prometheus instrumentation for Predikt.
//
// Collectors are registered via promauto at package load and exposed through
// the /metrics endpoint. Covered areas:
//   - Prediction throughput and latency
//   - Feature cache efficiency
//   - Feature extraction failures and cold-start fallbacks
//   - Store operation latency and failures
//   - Solver latency and failures
//   - HTTP endpoint latency and status codes
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Serving metrics.

	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predikt_predictions_total",
			Help: "Total number of predictions served",
		},
		[]string{"model"},
	)

	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "predikt_prediction_duration_seconds",
			Help:    "Prediction latency in seconds",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
		[]string{"model"},
	)

	ObservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predikt_observations_total",
			Help: "Total number of feedback observations accepted",
		},
		[]string{"model"},
	)

	ObservationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "predikt_observation_duration_seconds",
			Help:    "Feedback update latency in seconds, including the weight solve",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	// Degradation metrics. Extraction failures and cold starts are expected
	// recoverable events; corrupt records indicate a storage or codec bug.

	ExtractionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predikt_extraction_failures_total",
			Help: "Feature extraction failures degraded to the default feature vector",
		},
		[]string{"model"},
	)

	ColdStartFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predikt_cold_start_fallbacks_total",
			Help: "Predictions served with the average weight vector because no per-user weights exist",
		},
		[]string{"model"},
	)

	CorruptRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predikt_corrupt_records_total",
			Help: "Stored records that failed to decode",
		},
		[]string{"model", "table"},
	)

	// Feature cache metrics.

	FeatureCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predikt_feature_cache_hits_total",
			Help: "Feature cache hits",
		},
		[]string{"model"},
	)

	FeatureCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predikt_feature_cache_misses_total",
			Help: "Feature cache misses",
		},
		[]string{"model"},
	)

	// Store metrics.

	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "predikt_store_op_duration_seconds",
			Help:    "Duration of persistent store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"table", "op"},
	)

	StoreOpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predikt_store_op_errors_total",
			Help: "Persistent store operation failures, excluding not-found",
		},
		[]string{"table", "op"},
	)

	// Solver metrics.

	SolverDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "predikt_solver_duration_seconds",
			Help:    "Duration of the regularized least-squares solve",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
		},
		[]string{"model"},
	)

	SolverFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predikt_solver_failures_total",
			Help: "Least-squares solves that failed",
		},
		[]string{"model"},
	)

	// Retrain trigger metrics.

	RetrainTriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predikt_retrain_triggers_total",
			Help: "Offline retrain trigger attempts",
		},
		[]string{"model", "outcome"}, // "ok", "error", "breaker_open"
	)

	// HTTP metrics.

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predikt_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "predikt_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "route"},
	)
)

// ObserveHTTPRequest records a completed HTTP request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveStoreOp records a store operation and its error state.
func ObserveStoreOp(table, op string, duration time.Duration, failed bool) {
	StoreOpDuration.WithLabelValues(table, op).Observe(duration.Seconds())
	if failed {
		StoreOpErrors.WithLabelValues(table, op).Inc()
	}
}
