// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

// Package optimizer logs recommendation outcomes and turns them into blend
// weights.
//
// # Outcome Logging
//
// Every served list and every later view, cart or purchase of a served
// product is an outcome event. Recorder publishes them on a Watermill topic
// and Sink consumes the topic and writes recommendation_logs rows:
//
//	Engine.Recommend ─┐
//	                  ├─> Recorder ─> [watermill topic] ─> Sink ─> LogStore
//	POST interaction ─┘
//
// Served lists become one "served" row per item, tagged with the algorithm
// credited for it. An interaction is attributed to the algorithm of the
// most recent impression of that product for that user within the
// attribution window; interactions on products that were never served (or
// served too long ago) are dropped.
//
// # Weight Optimization
//
// Optimizer.Run aggregates a trailing window (daily, weekly, monthly) per
// algorithm:
//
//	cartRate      = carts / views        (served count when no views were logged)
//	purchaseRate  = purchases / carts
//	effectiveness = (cartRate*2 + purchaseRate*4) / 3
//	weight        = default * effectiveness / mean(effectiveness)
//
// and persists the weights clipped to [0.3, 1.5]. Algorithms without logs
// keep their default. Below MinInteractions logged interactions nothing is
// written.
//
// # Behavior Summaries
//
// RefreshBehaviorSummaries recomputes the durable per-user summaries the
// blender reads for its behavior multipliers.
package optimizer
