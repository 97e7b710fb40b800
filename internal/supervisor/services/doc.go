// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

/*
Package services provides suture.Service wrappers for Vitrine components.

Each wrapper translates a component lifecycle (ListenAndServe, Run, a
ticker-driven loop) into suture's context-aware Serve:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

RecommendService (model layer):
  - Optionally warms the caches and trains on startup
  - Calls Engine.Refresh every RefreshInterval
  - Failed cycles are logged and retried on the next tick

OutcomeSinkService (outcome layer):
  - Runs optimizer.Sink, the Watermill subscriber behind recommendation_logs
  - A subscription that closes unexpectedly is an error, so it is restarted

OptimizerService (outcome layer):
  - Runs the weight optimizer for the configured period every Interval
  - Refreshes behavior summaries after each run

HTTPServerService (API layer):
  - Wraps *http.Server with graceful shutdown

# Return Values

Serve returns ctx.Err() after a requested shutdown and a wrapped error on
failure. Suture restarts services that return before their context ends.
*/
package services
