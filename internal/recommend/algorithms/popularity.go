// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package algorithms

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/recommend"
)

// popularConfidence is the popularity scorer's confidence. Popularity is
// not personalized, so it ranks below every history-based scorer.
const popularConfidence = 0.5

// featuredBonus lifts featured products above any view-count score, which
// lies in [0, 1].
const featuredBonus = 2.0

// Popularity ranks in-stock products by featured flag, then view count,
// then ID. It is both a regular scorer and the blender's fallback.
type Popularity struct {
	corpus *recommend.Corpus
	logger zerolog.Logger
}

// NewPopularity creates the popularity scorer.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPopularity(corpus *recommend.Corpus, logger zerolog.Logger) *Popularity {
	return &Popularity{
		corpus: corpus,
		logger: logger.With().Str("algorithm", recommend.AlgorithmPopular).Logger(),
	}
}

// Name returns the algorithm identifier.
func (p *Popularity) Name() string {
	return recommend.AlgorithmPopular
}

// Rank orders the catalog's in-stock, filter-matching products that are not
// in exclude. Scores are the featured bonus plus the view count normalized
// by the catalog maximum.
func Rank(catalog *recommend.Catalog, filters *recommend.Filters, exclude map[int]struct{}, limit int, algorithm string) []recommend.ScoredProduct {
	candidates := make([]*recommend.Product, 0, catalog.Len())
	for i := range catalog.Products() {
		prod := &catalog.Products()[i]
		if !prod.InStock() || !filters.Match(prod) {
			continue
		}
		if _, skip := exclude[prod.ID]; skip {
			continue
		}
		candidates = append(candidates, prod)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.IsFeatured != b.IsFeatured {
			return a.IsFeatured
		}
		if a.ViewCount != b.ViewCount {
			return a.ViewCount > b.ViewCount
		}
		return a.ID < b.ID
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	maxViews := float64(catalog.MaxViewCount())
	out := make([]recommend.ScoredProduct, 0, len(candidates))
	for _, prod := range candidates {
		var score float64
		if maxViews > 0 {
			score = float64(prod.ViewCount) / maxViews
		}
		if prod.IsFeatured {
			score += featuredBonus
		}
		out = append(out, recommend.ScoredProduct{
			ProductID: prod.ID,
			Score:     score,
			Algorithm: algorithm,
		})
	}
	return out
}

// Score implements recommend.Scorer.
//
//nolint:gocritic // hugeParam: req passed by value per the Scorer interface
func (p *Popularity) Score(ctx context.Context, req recommend.ScoreRequest) (recommend.ScoreResult, error) {
	catalog, err := p.corpus.Catalog(ctx)
	if err != nil {
		return recommend.ScoreResult{}, &recommend.ScorerError{
			Algorithm: recommend.AlgorithmPopular,
			UserID:    req.UserID,
			Stage:     "catalog",
			Err:       err,
		}
	}
	items := Rank(catalog, &req.Filters, nil, req.Limit, recommend.AlgorithmPopular)
	if len(items) == 0 {
		return recommend.ScoreResult{}, nil
	}
	return recommend.ScoreResult{Items: items, Confidence: popularConfidence}, nil
}

// Fallback implements recommend.Fallbacker. It prefers the cached catalog
// and reads the provider directly when the cache cannot be built. Only a
// failure of both is returned.
//
//nolint:gocritic // hugeParam: filters passed by value for immutability
func (p *Popularity) Fallback(ctx context.Context, filters recommend.Filters, exclude map[int]struct{}, limit int) ([]recommend.ScoredProduct, error) {
	catalog, err := p.corpus.Catalog(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Str("stage", "fallback").Msg("Cached catalog unavailable, reading provider")
		catalog, err = p.corpus.LiveCatalog(ctx)
		if err != nil {
			return nil, fmt.Errorf("popularity fallback: %w", err)
		}
	}
	return Rank(catalog, &filters, exclude, limit, recommend.AlgorithmPopularFallback), nil
}
