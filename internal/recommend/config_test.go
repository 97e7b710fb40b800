// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package recommend

import (
	"math"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("default weights", func(t *testing.T) {
		want := map[string]float64{
			AlgorithmNeural:        1.0,
			AlgorithmCollaborative: 1.0,
			AlgorithmContent:       0.8,
			AlgorithmMatrix:        0.9,
			AlgorithmPopular:       0.5,
		}
		for name, w := range want {
			if got := cfg.Weights.Get(name); got != w {
				t.Errorf("Weights.Get(%q) = %v, want %v", name, got, w)
			}
		}
	})

	t.Run("scorer deadlines", func(t *testing.T) {
		if got := cfg.Limits.TimeoutFor(AlgorithmNeural); got != 10*time.Second {
			t.Errorf("TimeoutFor(neural) = %v, want 10s", got)
		}
		if got := cfg.Limits.TimeoutFor(AlgorithmPopular); got != time.Second {
			t.Errorf("TimeoutFor(popular) = %v, want 1s", got)
		}
		if got := cfg.Limits.TimeoutFor(AlgorithmContent); got != 3*time.Second {
			t.Errorf("TimeoutFor(content) = %v, want 3s", got)
		}
	})

	t.Run("latent model defaults", func(t *testing.T) {
		if cfg.Latent.Factors != 10 || cfg.Latent.Iterations != 100 {
			t.Errorf("Latent = %+v, want K=10 and 100 iterations", cfg.Latent)
		}
		if cfg.Cache.LatentTTL != 24*time.Hour {
			t.Errorf("Cache.LatentTTL = %v, want 24h", cfg.Cache.LatentTTL)
		}
	})

	t.Run("interacted lookback", func(t *testing.T) {
		if cfg.Filter.InteractedLookback != 30*24*time.Hour {
			t.Errorf("Filter.InteractedLookback = %v, want 30 days", cfg.Filter.InteractedLookback)
		}
	})

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantError bool
	}{
		{
			name:   "valid default config",
			modify: func(c *Config) {},
		},
		{
			name:      "negative weight",
			modify:    func(c *Config) { c.Weights.Content = -1 },
			wantError: true,
		},
		{
			name:      "NaN weight",
			modify:    func(c *Config) { c.Weights.Matrix = math.NaN() },
			wantError: true,
		},
		{
			name:      "max limit below default",
			modify:    func(c *Config) { c.Limits.MaxLimit = 5 },
			wantError: true,
		},
		{
			name:      "zero scorer timeout",
			modify:    func(c *Config) { c.Limits.ScorerTimeout = 0 },
			wantError: true,
		},
		{
			name:      "unknown decay",
			modify:    func(c *Config) { c.Fusion.Decay = "exponential" },
			wantError: true,
		},
		{
			name:   "reciprocal rank decay",
			modify: func(c *Config) { c.Fusion.Decay = DecayReciprocalRank },
		},
		{
			name:      "zero latent factors",
			modify:    func(c *Config) { c.Latent.Factors = 0 },
			wantError: true,
		},
		{
			name:      "no hidden layers",
			modify:    func(c *Config) { c.Neural.Hidden = nil },
			wantError: true,
		},
		{
			name:      "dropout of one",
			modify:    func(c *Config) { c.Neural.Dropout = 1 },
			wantError: true,
		},
		{
			name:      "content similarity floor above one",
			modify:    func(c *Config) { c.Content.MinSimilarity = 1.5 },
			wantError: true,
		},
		{
			name:   "content similarity floor disabled",
			modify: func(c *Config) { c.Content.MinSimilarity = 0 },
		},
		{
			name:      "zero similarity workers",
			modify:    func(c *Config) { c.Collaborative.Workers = 0 },
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantError && err == nil {
				t.Error("Validate() = nil, want error")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestConfig_Clone(t *testing.T) {
	original := DefaultConfig()
	clone := original.Clone()

	clone.Neural.Hidden[0] = 99
	clone.Weights.Content = 1.4

	if original.Neural.Hidden[0] == 99 {
		t.Error("Clone() shares the hidden layer slice")
	}
	if original.Weights.Content == 1.4 {
		t.Error("Clone() shares weights")
	}
}

func TestAlgorithmWeights(t *testing.T) {
	t.Run("clip", func(t *testing.T) {
		w := AlgorithmWeights{Neural: 2, Collaborative: 0.1, Content: 1, Matrix: 1.5, Popular: 0.3}
		got := w.Clip(MinAlgorithmWeight, MaxAlgorithmWeight)
		want := AlgorithmWeights{Neural: 1.5, Collaborative: 0.3, Content: 1, Matrix: 1.5, Popular: 0.3}
		if got != want {
			t.Errorf("Clip() = %+v, want %+v", got, want)
		}
	})

	t.Run("fallback shares popular weight", func(t *testing.T) {
		w := DefaultWeights()
		if w.Get(AlgorithmPopularFallback) != w.Popular {
			t.Errorf("Get(popular_fallback) = %v, want %v", w.Get(AlgorithmPopularFallback), w.Popular)
		}
	})

	t.Run("set unknown", func(t *testing.T) {
		w := DefaultWeights()
		if err := w.Set("tensorflow", 1); err == nil {
			t.Error("Set(unknown) = nil, want error")
		}
	})

	t.Run("names cover map", func(t *testing.T) {
		m := DefaultWeights().ToMap()
		for _, name := range AlgorithmNames() {
			if _, ok := m[name]; !ok {
				t.Errorf("ToMap() missing %q", name)
			}
		}
	})
}
