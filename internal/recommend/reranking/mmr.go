// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package reranking

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/recommend"
)

// maxRerankSize limits slice allocations to prevent excessive memory usage.
const maxRerankSize = 10000

// SimilaritySource provides pairwise product similarity in [0, 1].
// algorithms.ContentEngine implements it.
type SimilaritySource interface {
	SimilarityFunc(ctx context.Context) (func(a, b int) float64, error)
}

// MMR implements Maximal Marginal Relevance reranking.
//
// Reference:
// Carbonell, J., & Goldstein, J. (1998). "The Use of MMR, Diversity-Based
// Reranking for Reordering Documents and Producing Summaries." SIGIR 1998.
type MMR struct {
	lambda float64
	source SimilaritySource
	logger zerolog.Logger
}

// NewMMR creates an MMR reranker. lambda is clamped to [0, 1].
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewMMR(lambda float64, source SimilaritySource, logger zerolog.Logger) *MMR {
	if lambda < 0 {
		lambda = 0
	}
	if lambda > 1 {
		lambda = 1
	}
	return &MMR{
		lambda: lambda,
		source: source,
		logger: logger.With().Str("component", "rerank").Logger(),
	}
}

// Name returns the reranker identifier.
func (m *MMR) Name() string {
	return "mmr"
}

// Lambda returns the relevance/diversity balance.
func (m *MMR) Lambda() float64 {
	return m.lambda
}

// Rerank returns at most k items chosen greedily by MMR. Fused scores are
// left untouched; only the order changes.
func (m *MMR) Rerank(ctx context.Context, items []recommend.FusedItem, k int) []recommend.FusedItem {
	if len(items) == 0 || k <= 0 {
		return items
	}
	if k > maxRerankSize {
		k = maxRerankSize
	}
	if k > len(items) {
		k = len(items)
	}
	if m.lambda >= 1 || m.source == nil {
		return items[:k]
	}

	sim, err := m.source.SimilarityFunc(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Str("stage", "rerank").Msg("Similarity unavailable, keeping fused order")
		return items[:k]
	}

	maxScore := 0.0
	for i := range items {
		maxScore = math.Max(maxScore, items[i].Score)
	}
	if maxScore <= 0 {
		maxScore = 1
	}

	// maxSim[i] is item i's highest similarity to anything selected so far.
	maxSim := make([]float64, len(items))
	picked := make([]bool, len(items))
	selected := make([]recommend.FusedItem, 0, k)

	for len(selected) < k {
		best := -1
		bestScore := math.Inf(-1)
		for i := range items {
			if picked[i] {
				continue
			}
			score := m.lambda*items[i].Score/maxScore - (1-m.lambda)*maxSim[i]
			if score > bestScore {
				bestScore = score
				best = i
			}
		}
		if best < 0 {
			break
		}

		picked[best] = true
		selected = append(selected, items[best])
		for i := range items {
			if picked[i] {
				continue
			}
			if s := sim(items[best].ProductID, items[i].ProductID); s > maxSim[i] {
				maxSim[i] = s
			}
		}
	}

	return selected
}

// Ensure MMR implements the interface.
var _ recommend.Reranker = (*MMR)(nil)
