// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

// Package reranking implements post-fusion reranking for recommendation
// diversity.
//
// Reranking runs after fusion and the already-interacted filter, before the
// list is truncated to the request limit:
//
//	FANOUT -> FUSE -> FILTER -> [Reranker] -> truncate
//
// It is opt-in (recommend.RerankConfig.Enabled). Without it the blender's
// order is score descending, product ID ascending.
//
// # Maximal Marginal Relevance
//
// MMR greedily picks the product maximizing
//
//	lambda * relevance(i) - (1-lambda) * max sim(i, s) over selected s
//
// where relevance is the fused score divided by the list maximum and sim is
// the content similarity of two products, taken from the content scorer's
// cached feature map. Lambda 1 keeps the fused order; lambda 0 is pure
// diversity.
//
// When the similarity source is unavailable the fused order is kept. A
// reranking failure never fails a request.
package reranking
