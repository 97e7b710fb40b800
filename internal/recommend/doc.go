// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

// Package recommend implements the hybrid product recommendation blender.
//
// # Architecture
//
// Raw interaction events (views, carts, purchases, reviews, wishlist adds and
// recommendation click-throughs) are aggregated into a sparse rating matrix.
// Independent scorers, each implementing [Scorer], turn that data into ranked
// product lists:
//
//   - neural: category affinity from a behavior feature vector, with a
//     rule-based backend when the network is undertrained
//   - collaborative: item-based cosine similarity over co-raters
//   - content: catalog feature similarity seeded from recent activity
//   - matrix: latent factor model trained by SGD
//   - popular: featured and most-viewed in-stock products
//
// The scorers live in the algorithms subpackage. The [Engine] fans a request
// out to every registered scorer, fuses the settled outputs with adaptive
// [AlgorithmWeights] and serves the popularity fallback when fusion yields
// nothing.
//
// # Request Lifecycle
//
//	RECEIVE_REQUEST -> FANOUT -> FUSE -> FILTER -> RANK -> RETURN
//
// Malformed context values are dropped (see [SanitizeContext]). Every scorer
// runs in its own goroutine under a per-algorithm deadline, a recover guard
// and a circuit breaker; failures settle as an empty list with zero
// confidence and never cancel the other branches.
//
// # Usage
//
//	manager := cache.NewManager(cache.ManagerConfig{RefreshAsync: true}, logger)
//	corpus := recommend.NewCorpus(db, nil, manager, cfg, logger)
//	engine, err := recommend.NewEngine(cfg, corpus, logger)
//
//	engine.RegisterScorer(algorithms.NewItemSimilarity(corpus, cfg, logger))
//	engine.SetFallback(popularity)
//
//	resp, err := engine.Recommend(ctx, recommend.Request{UserID: userID, Limit: 10})
//
// # Thread Safety
//
// The engine is safe for concurrent use. Derived structures are published
// through cache slots and never mutated after publication.
package recommend
