// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

/*
Package database provides the DuckDB store behind the recommendation engine.

The store owns the catalog and interaction tables the engine reads, the
recommendation outcome log the optimizer aggregates, the blend weight history
and the per-user behavior summaries. A single *DB satisfies every storage
interface the engine declares:

  - recommend.DataProvider: GetProducts, GetInteractionEvents, GetUserEvents
  - recommend.WeightSource: LoadWeights
  - recommend.BehaviorSource: LoadBehaviorSummary
  - optimizer.Store: InsertRecommendationLogs, LastImpression, AlgorithmStats,
    SaveWeights, WeightHistory, SaveBehaviorSummaries

# Interaction Events

GetInteractionEvents unions the signal tables into one ordered stream:

	product_views         -> view (magnitude: view count)
	order_items           -> purchase (completed or delivered lines, summed quantity)
	reviews               -> review (magnitude: rating)
	cart_items            -> cart (magnitude: quantity)
	wishlist_items        -> wishlist
	recommendation_logs   -> reco_interaction (view, cart and purchase rows)

Each branch is filtered on its own timestamp column, so "since" bounds the
time the signal was last updated.

# Usage

	db, err := database.New(&cfg.Database)
	if err != nil {
	    return err
	}
	defer db.Close()

	events, err := db.GetInteractionEvents(ctx, time.Now().Add(-90*24*time.Hour))

# Timestamps

Columns are plain TIMESTAMP values holding UTC. Write helpers default zero
times to the store clock (SetClock) so tests can pin them.

# Testing

Tests open ":memory:" databases with SkipIndexes set.
*/
package database
