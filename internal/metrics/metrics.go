// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for production observability:
// - Database query performance (DuckDB)
// - API endpoint latency and throughput
// - Recommendation requests, scorer outcomes and fallbacks
// - Derived-structure cache slots
// - Model training and weight optimization
// - Circuit breakers guarding scorers

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of in-flight API requests",
		},
	)

	// Recommendation Metrics
	RecommendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_request_duration_seconds",
			Help:    "End-to-end latency of blended recommendation requests",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"strategy"}, // hybrid, popular_fallback
	)

	RecommendFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_fallbacks_total",
			Help: "Requests answered by the popularity fallback",
		},
		[]string{"reason"}, // empty_fusion, total_failure
	)

	ScorerOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_scorer_outcomes_total",
			Help: "Scorer branch outcomes per algorithm",
		},
		[]string{"algorithm", "result"}, // ok, empty, error, timeout, panic, rejected
	)

	ScorerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_scorer_duration_seconds",
			Help:    "Latency of a single scorer branch",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 3, 5, 10},
		},
		[]string{"algorithm"},
	)

	AlgorithmWeight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recommend_algorithm_weight",
			Help: "Current blend weight per algorithm",
		},
		[]string{"algorithm"},
	)

	AlgorithmEffectiveness = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recommend_algorithm_effectiveness",
			Help: "Effectiveness score from the last optimizer run",
		},
		[]string{"algorithm"},
	)

	OutcomeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_outcome_events_total",
			Help: "Recommendation outcome events by kind and result",
		},
		[]string{"kind", "result"}, // kind: impression, view, cart, purchase; result: published, stored, unattributed, failed
	)

	// Model Training Metrics
	TrainingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_training_duration_seconds",
			Help:    "Model training duration",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"model"},
	)

	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_training_runs_total",
			Help: "Model training runs by result",
		},
		[]string{"model", "result"}, // trained, skipped, failed, restored
	)

	// Cache Slot Metrics
	CacheSlotEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_slot_events_total",
			Help: "Get-or-build cache slot events",
		},
		[]string{"slot", "event"}, // hit, stale, miss, build, failure
	)

	CacheSlotBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_slot_build_duration_seconds",
			Help:    "Time to build a cached derived structure",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"slot"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordScorerOutcome records the result and latency of one scorer branch.
func RecordScorerOutcome(algorithm, result string, duration time.Duration) {
	ScorerOutcomes.WithLabelValues(algorithm, result).Inc()
	ScorerDuration.WithLabelValues(algorithm).Observe(duration.Seconds())
}

// RecordRecommendRequest records the latency of a blended request.
func RecordRecommendRequest(strategy string, duration time.Duration) {
	RecommendRequestDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// RecordFallback counts a request answered by the popularity fallback.
func RecordFallback(reason string) {
	RecommendFallbacks.WithLabelValues(reason).Inc()
}

// RecordTraining records a model training run.
func RecordTraining(model, result string, duration time.Duration) {
	TrainingRuns.WithLabelValues(model, result).Inc()
	if duration > 0 {
		TrainingDuration.WithLabelValues(model).Observe(duration.Seconds())
	}
}

// RecordCacheEvent counts a cache slot event.
func RecordCacheEvent(slot, event string) {
	CacheSlotEvents.WithLabelValues(slot, event).Inc()
}

// RecordCacheBuild records how long a slot build took.
func RecordCacheBuild(slot string, duration time.Duration) {
	CacheSlotBuildDuration.WithLabelValues(slot).Observe(duration.Seconds())
}

// SetAlgorithmWeights publishes the current blend weights.
func SetAlgorithmWeights(weights map[string]float64) {
	for name, w := range weights {
		AlgorithmWeight.WithLabelValues(name).Set(w)
	}
}

// SetAlgorithmEffectiveness publishes optimizer effectiveness scores.
func SetAlgorithmEffectiveness(scores map[string]float64) {
	for name, s := range scores {
		AlgorithmEffectiveness.WithLabelValues(name).Set(s)
	}
}

// RecordOutcomeEvent counts an outcome event on the logging path.
func RecordOutcomeEvent(kind, result string) {
	OutcomeEvents.WithLabelValues(kind, result).Inc()
}
