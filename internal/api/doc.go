// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

/*
Package api serves the recommendation engine over HTTP using the chi router.

# Endpoints

	GET  /health
	GET  /metrics
	GET  /api/v1/recommendations/user/{userID}
	GET  /api/v1/recommendations/product/{productID}/similar
	POST /api/v1/recommendations/interactions
	GET  /api/v1/recommendations/weights
	GET  /api/v1/recommendations/ab-report?period=daily|weekly|monthly
	POST /api/v1/recommendations/optimize?period=daily|weekly|monthly
	GET  /api/v1/recommendations/status

User recommendations accept limit, include_reasons, filter_interacted,
category_id, brand, min_price, max_price, q, page and season_focus. Similar
products accept k and source (content or collaborative).

# Response Format

Every response uses the APIResponse envelope:

	{
	  "success": true,
	  "data": {...},
	  "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 12}
	}

Errors set success=false and carry {code, message, details, request_id}.
Validation failures use code VALIDATION_ERROR with the offending query or
JSON field name.

# Middleware

Global: request ID, real IP, panic recovery, CORS (go-chi/cors).
Recommendation routes add per-IP rate limiting (go-chi/httprate),
Prometheus request metrics and gzip compression.
*/
package api
