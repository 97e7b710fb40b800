// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package algorithms

import (
	"context"
	"time"
)

// Rule blend weights.
const (
	ruleStaticWeight  = 0.5
	ruleSeasonWeight  = 0.3
	ruleRecencyWeight = 0.2
)

// BackendRule names the deterministic backend.
const BackendRule = "rule"

// RuleBackend produces a category distribution without a trained model:
// the user's static affinities, the categories popular this season and the
// user's recency-decayed affinities, blended 0.5 / 0.3 / 0.2.
type RuleBackend struct {
	space *FeatureSpace
	now   time.Time
}

// NewRuleBackend creates a rule backend over space evaluated at now.
func NewRuleBackend(space *FeatureSpace, now time.Time) *RuleBackend {
	return &RuleBackend{space: space, now: now}
}

// Name returns "rule".
func (r *RuleBackend) Name() string {
	return BackendRule
}

// Ready reports whether any category is known.
func (r *RuleBackend) Ready() bool {
	return r.space != nil && len(r.space.Categories) > 0
}

// Predict returns a distribution over the top categories. It sums to 1
// unless the profile and the season carry no signal, in which case it is
// all zeros.
func (r *RuleBackend) Predict(ctx context.Context, profile *BehaviorProfile) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	static := profile.CategoryAffinities()
	season := r.space.SeasonShares[SeasonOf(r.now)]

	out := make([]float64, TopCategories)
	var total float64
	for c := range out {
		out[c] = ruleStaticWeight*static[c] + ruleRecencyWeight*profile.Recency[c]
		if c < len(season) {
			out[c] += ruleSeasonWeight * season[c]
		}
		total += out[c]
	}
	if total > 0 {
		for c := range out {
			out[c] /= total
		}
	}
	return out, nil
}
