// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered on the default registry through promauto and
exposed at /metrics by the API router.

# Available Metrics

Recommendation:
  - recommend_request_duration_seconds{strategy}
  - recommend_scorer_outcomes_total{algorithm,result}
  - recommend_scorer_duration_seconds{algorithm}
  - recommend_fallbacks_total{reason}
  - recommend_algorithm_weight{algorithm}
  - recommend_algorithm_effectiveness{algorithm}
  - recommend_outcome_events_total{kind,result}
  - recommend_training_runs_total{model,result}

Caches and resilience:
  - cache_slot_events_total{slot,event}
  - cache_slot_build_duration_seconds{slot}
  - circuit_breaker_state{name}

Storage and HTTP:
  - duckdb_query_duration_seconds{operation,table}
  - api_requests_total{method,endpoint,status_code}
*/
package metrics
