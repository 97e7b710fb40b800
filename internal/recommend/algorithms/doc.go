// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

// Package algorithms implements the scorers blended by recommend.Engine.
//
// Every scorer implements recommend.Scorer and reads shared data through a
// recommend.Corpus. Derived structures are registered as cache slots on the
// corpus cache manager so they are built once, shared, and refreshed on TTL.
//
// # Scorers
//
//   - ItemSimilarity (collaborative): cosine similarity between products
//     over their co-raters; predictions are similarity-weighted averages of
//     the user's own ratings.
//   - ContentEngine (content): category, price bucket, keyword and numeric
//     similarity, seeded from the user's recent purchases or views.
//   - LatentFactor (matrix): factors trained by SGD on the rating matrix.
//   - NeuralScorer (neural): a category distribution from a small network
//     over a 33-dimension behavior vector, or from RuleBackend while the
//     corpus is too small to train.
//   - Popularity (popular): featured, then most viewed, in-stock products.
//     Also serves the blender fallback.
//
// # Models
//
// LatentFactor and NeuralScorer implement recommend.Trainer. Their models
// live in manual cache slots: scheduled cache refreshes leave them alone
// and only Train replaces them, and only once they are older than their
// TTL. With a SnapshotStore, trained models are saved after every run and
// Restore reloads a young enough snapshot on start.
//
// # Usage
//
//	collab := algorithms.NewItemSimilarity(corpus, cfg, logger)
//	latent := algorithms.NewLatentFactor(corpus, cfg, store, logger)
//	popular := algorithms.NewPopularity(corpus, logger)
//
//	engine.RegisterScorer(collab)
//	engine.RegisterScorer(latent)
//	engine.RegisterScorer(popular)
//	engine.SetFallback(popular)
//
//	_ = latent.Restore(ctx)
//	_ = engine.Train(ctx)
package algorithms
