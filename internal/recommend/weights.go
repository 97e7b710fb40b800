// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package recommend

import (
	"fmt"
	"math"
)

// Weight bounds applied by the optimizer.
const (
	MinAlgorithmWeight = 0.3
	MaxAlgorithmWeight = 1.5
)

// AlgorithmWeights defines the blend weight of each scorer.
type AlgorithmWeights struct {
	// Neural is the weight of the neural (or rule-based) category scorer.
	Neural float64 `json:"neural" koanf:"neural"`

	// Collaborative is the weight of item-based collaborative filtering.
	Collaborative float64 `json:"collaborative" koanf:"collaborative"`

	// Content is the weight of content-based filtering.
	Content float64 `json:"content" koanf:"content"`

	// Matrix is the weight of the latent factor model.
	Matrix float64 `json:"matrix" koanf:"matrix"`

	// Popular is the weight of popularity ranking.
	Popular float64 `json:"popular" koanf:"popular"`
}

// DefaultWeights returns the weights used before the optimizer has enough data.
func DefaultWeights() AlgorithmWeights {
	return AlgorithmWeights{
		Neural:        1.0,
		Collaborative: 1.0,
		Content:       0.8,
		Matrix:        0.9,
		Popular:       0.5,
	}
}

// AlgorithmNames lists the weighted algorithms in a stable order.
func AlgorithmNames() []string {
	return []string{
		AlgorithmNeural,
		AlgorithmCollaborative,
		AlgorithmContent,
		AlgorithmMatrix,
		AlgorithmPopular,
	}
}

// Get returns the weight for an algorithm name, or 0 for unknown names.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (w AlgorithmWeights) Get(name string) float64 {
	switch name {
	case AlgorithmNeural:
		return w.Neural
	case AlgorithmCollaborative:
		return w.Collaborative
	case AlgorithmContent:
		return w.Content
	case AlgorithmMatrix:
		return w.Matrix
	case AlgorithmPopular, AlgorithmPopularFallback:
		return w.Popular
	default:
		return 0
	}
}

// Set updates the weight for an algorithm name.
func (w *AlgorithmWeights) Set(name string, value float64) error {
	switch name {
	case AlgorithmNeural:
		w.Neural = value
	case AlgorithmCollaborative:
		w.Collaborative = value
	case AlgorithmContent:
		w.Content = value
	case AlgorithmMatrix:
		w.Matrix = value
	case AlgorithmPopular:
		w.Popular = value
	default:
		return fmt.Errorf("unknown algorithm %q", name)
	}
	return nil
}

// Scale multiplies one algorithm's weight by factor.
func (w *AlgorithmWeights) Scale(name string, factor float64) {
	_ = w.Set(name, w.Get(name)*factor) //nolint:errcheck // callers only pass known names
}

// Clip returns a copy with every weight clipped to [lo, hi].
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (w AlgorithmWeights) Clip(lo, hi float64) AlgorithmWeights {
	clip := func(v float64) float64 {
		return math.Max(lo, math.Min(hi, v))
	}
	return AlgorithmWeights{
		Neural:        clip(w.Neural),
		Collaborative: clip(w.Collaborative),
		Content:       clip(w.Content),
		Matrix:        clip(w.Matrix),
		Popular:       clip(w.Popular),
	}
}

// ToMap returns the weights as a name-keyed map.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (w AlgorithmWeights) ToMap() map[string]float64 {
	return map[string]float64{
		AlgorithmNeural:        w.Neural,
		AlgorithmCollaborative: w.Collaborative,
		AlgorithmContent:       w.Content,
		AlgorithmMatrix:        w.Matrix,
		AlgorithmPopular:       w.Popular,
	}
}

// Validate checks that every weight is finite and non-negative.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (w AlgorithmWeights) Validate() error {
	for name, v := range w.ToMap() {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("weights.%s must be a non-negative number, got %v", name, v)
		}
	}
	return nil
}
