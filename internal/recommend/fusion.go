// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package recommend

import (
	"sort"
)

// BranchOutput is the settled output of one scorer branch.
type BranchOutput struct {
	Algorithm  string
	Items      []ScoredProduct
	Confidence float64
}

// DecayFunc maps a zero-based list position to a rank weight.
type DecayFunc func(position int) float64

// LinearDecay is 1/(i/10+1): the tenth item keeps just over half its weight.
func LinearDecay(position int) float64 {
	return 1 / (float64(position)/10 + 1)
}

// ReciprocalRankDecay is 1/(i+1).
func ReciprocalRankDecay(position int) float64 {
	return 1 / float64(position+1)
}

// DecayByName returns the decay function for a configured name, defaulting to linear.
func DecayByName(name string) DecayFunc {
	if name == DecayReciprocalRank {
		return ReciprocalRankDecay
	}
	return LinearDecay
}

// FusedItem is a product after rank fusion.
type FusedItem struct {
	// ProductID is the fused product.
	ProductID int

	// Score is the summed weighted contribution across algorithms.
	Score float64

	// Algorithm is the largest contributor.
	Algorithm string

	// Sources lists every contributing algorithm, sorted.
	Sources []string
}

// Fuse combines ranked branch outputs. Position i of an algorithm's list
// contributes weight * confidence * decay(i); contributions for the same
// product are summed. A product listed twice by one algorithm only counts at
// its best position. Results are ordered by score descending, then product
// ID ascending.
//
//nolint:gocritic // hugeParam: weights passed by value for immutability
func Fuse(outputs []BranchOutput, weights AlgorithmWeights, decay DecayFunc) []FusedItem {
	if decay == nil {
		decay = LinearDecay
	}

	type candidate struct {
		score         float64
		contributions map[string]float64
	}
	candidates := make(map[int]*candidate)

	for _, out := range outputs {
		w := weights.Get(out.Algorithm) * out.Confidence
		if w <= 0 || len(out.Items) == 0 {
			continue
		}
		seen := make(map[int]struct{}, len(out.Items))
		for i, item := range out.Items {
			if _, dup := seen[item.ProductID]; dup {
				continue
			}
			seen[item.ProductID] = struct{}{}

			contribution := w * decay(i)
			c := candidates[item.ProductID]
			if c == nil {
				c = &candidate{contributions: make(map[string]float64, 2)}
				candidates[item.ProductID] = c
			}
			c.score += contribution
			c.contributions[out.Algorithm] += contribution
		}
	}

	fused := make([]FusedItem, 0, len(candidates))
	for id, c := range candidates {
		item := FusedItem{ProductID: id, Score: c.score}
		best := -1.0
		for alg, v := range c.contributions {
			item.Sources = append(item.Sources, alg)
			if v > best || (v == best && alg < item.Algorithm) {
				best = v
				item.Algorithm = alg
			}
		}
		sort.Strings(item.Sources)
		fused = append(fused, item)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].ProductID < fused[j].ProductID
	})
	return fused
}

// EffectiveWeights applies request-context and behavior multipliers to the
// base weights. behavior may be nil.
//
//nolint:gocritic // hugeParam: weights passed by value for immutability
func EffectiveWeights(base AlgorithmWeights, rc *RequestContext, behavior *BehaviorSummary, cfg *FusionConfig) AlgorithmWeights {
	w := base

	if rc.CategoryID != 0 || rc.SearchQuery != "" {
		w.Scale(AlgorithmContent, cfg.ContentContextBoost)
	}
	if rc.SeasonFocus {
		w.Scale(AlgorithmPopular, cfg.SeasonPopularBoost)
	}

	if behavior == nil {
		return w
	}

	if behavior.PurchaseFrequency >= cfg.FrequentBuyerThreshold {
		w.Scale(AlgorithmNeural, cfg.FrequentBuyerNeuralBoost)
		w.Scale(AlgorithmCollaborative, cfg.FrequentBuyerCollaborativeBoost)
	}
	if behavior.CartAbandonRate >= cfg.CartAbandonThreshold {
		w.Scale(AlgorithmContent, cfg.CartAbandonContentBoost)
	}
	switch {
	case behavior.BrandBreadth >= cfg.BrandExplorerThreshold:
		w.Scale(AlgorithmCollaborative, cfg.BrandExplorerCollaborativeBoost)
	case behavior.BrandBreadth > 0:
		w.Scale(AlgorithmContent, cfg.BrandLoyalContentBoost)
	}

	return w
}

// ReasonFor returns the display reason family for a fused item.
func ReasonFor(item *FusedItem) string {
	if len(item.Sources) > 1 {
		return "hybrid"
	}
	switch item.Algorithm {
	case AlgorithmNeural, AlgorithmMatrix, AlgorithmCollaborative:
		return "personalized"
	case AlgorithmContent:
		return "similar"
	default:
		return "popular"
	}
}
