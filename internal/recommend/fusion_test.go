// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package recommend

import (
	"errors"
	"math"
	"testing"
)

func ranked(algorithm string, ids ...int) []ScoredProduct {
	out := make([]ScoredProduct, len(ids))
	for i, id := range ids {
		out[i] = ScoredProduct{ProductID: id, Score: float64(len(ids) - i), Algorithm: algorithm}
	}
	return out
}

func TestFuse_HeavierWeightDominatesAtEqualPosition(t *testing.T) {
	t.Parallel()

	heavy := make([]int, 10)
	light := make([]int, 10)
	for i := range heavy {
		heavy[i] = 100 + i
		light[i] = 200 + i
	}

	weights := AlgorithmWeights{Collaborative: 1.0, Content: 0.5}
	fused := Fuse([]BranchOutput{
		{Algorithm: AlgorithmContent, Items: ranked(AlgorithmContent, light...), Confidence: 1},
		{Algorithm: AlgorithmCollaborative, Items: ranked(AlgorithmCollaborative, heavy...), Confidence: 1},
	}, weights, LinearDecay)

	if len(fused) != 20 {
		t.Fatalf("len(Fuse()) = %d, want 20", len(fused))
	}
	for i := 0; i < 10; i++ {
		if fused[i].Algorithm != AlgorithmCollaborative {
			t.Errorf("fused[%d] = %+v, want a collaborative product", i, fused[i])
		}
		if fused[i].ProductID != heavy[i] {
			t.Errorf("fused[%d].ProductID = %d, want %d", i, fused[i].ProductID, heavy[i])
		}
	}
	for i := 10; i < 20; i++ {
		if fused[i].Algorithm != AlgorithmContent {
			t.Errorf("fused[%d] = %+v, want a content product", i, fused[i])
		}
	}
}

func TestFuse_SumsAcrossAlgorithms(t *testing.T) {
	t.Parallel()

	weights := AlgorithmWeights{Collaborative: 1.0, Content: 1.0, Popular: 0.5}
	fused := Fuse([]BranchOutput{
		{Algorithm: AlgorithmCollaborative, Items: ranked(AlgorithmCollaborative, 1, 2), Confidence: 1},
		{Algorithm: AlgorithmContent, Items: ranked(AlgorithmContent, 2, 3), Confidence: 0.5},
		{Algorithm: AlgorithmPopular, Items: ranked(AlgorithmPopular, 9), Confidence: 0},
	}, weights, LinearDecay)

	byID := make(map[int]FusedItem)
	for _, f := range fused {
		byID[f.ProductID] = f
	}

	if _, ok := byID[9]; ok {
		t.Error("zero-confidence branch must not contribute")
	}

	want := 1.0*LinearDecay(1) + 0.5*LinearDecay(0)
	if got := byID[2].Score; math.Abs(got-want) > 1e-12 {
		t.Errorf("score(2) = %v, want %v", got, want)
	}
	if len(byID[2].Sources) != 2 {
		t.Errorf("Sources(2) = %v, want two algorithms", byID[2].Sources)
	}
	if byID[2].Algorithm != AlgorithmCollaborative {
		t.Errorf("dominant(2) = %s, want collaborative", byID[2].Algorithm)
	}
	if fused[0].ProductID != 2 {
		t.Errorf("top product = %d, want 2", fused[0].ProductID)
	}
}

func TestFuse_DuplicateInOneListCountsOnce(t *testing.T) {
	t.Parallel()

	fused := Fuse([]BranchOutput{
		{Algorithm: AlgorithmContent, Items: ranked(AlgorithmContent, 5, 5, 6), Confidence: 1},
	}, AlgorithmWeights{Content: 1}, LinearDecay)

	if len(fused) != 2 {
		t.Fatalf("len(Fuse()) = %d, want 2", len(fused))
	}
	if fused[0].ProductID != 5 || fused[0].Score != 1 {
		t.Errorf("fused[0] = %+v, want product 5 with score 1", fused[0])
	}
}

func TestDecayFunctions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		decay DecayFunc
		pos   int
		want  float64
	}{
		{name: "linear head", decay: LinearDecay, pos: 0, want: 1},
		{name: "linear tenth", decay: LinearDecay, pos: 10, want: 0.5},
		{name: "reciprocal head", decay: ReciprocalRankDecay, pos: 0, want: 1},
		{name: "reciprocal fourth", decay: ReciprocalRankDecay, pos: 3, want: 0.25},
		{name: "by name default", decay: DecayByName("bogus"), pos: 10, want: 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.decay(tt.pos); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("decay(%d) = %v, want %v", tt.pos, got, tt.want)
			}
		})
	}
}

func TestEffectiveWeights(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig().Fusion
	base := AlgorithmWeights{Neural: 1, Collaborative: 1, Content: 1, Matrix: 1, Popular: 1}

	tests := []struct {
		name     string
		rc       RequestContext
		behavior *BehaviorSummary
		want     AlgorithmWeights
	}{
		{
			name: "no context",
			want: base,
		},
		{
			name: "category boosts content",
			rc:   RequestContext{CategoryID: 3},
			want: AlgorithmWeights{Neural: 1, Collaborative: 1, Content: 1.5, Matrix: 1, Popular: 1},
		},
		{
			name: "search and season",
			rc:   RequestContext{SearchQuery: "lamp", SeasonFocus: true},
			want: AlgorithmWeights{Neural: 1, Collaborative: 1, Content: 1.5, Matrix: 1, Popular: 1.3},
		},
		{
			name:     "frequent buyer brand explorer",
			behavior: &BehaviorSummary{PurchaseFrequency: 3, BrandBreadth: 6},
			want:     AlgorithmWeights{Neural: 1.2, Collaborative: 1.1 * 1.15, Content: 1, Matrix: 1, Popular: 1},
		},
		{
			name:     "cart abandoner loyal to one brand",
			behavior: &BehaviorSummary{CartAbandonRate: 0.8, BrandBreadth: 1},
			want:     AlgorithmWeights{Neural: 1, Collaborative: 1, Content: 1.1 * 1.1, Matrix: 1, Popular: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectiveWeights(base, &tt.rc, tt.behavior, &cfg)
			for name, want := range tt.want.ToMap() {
				if math.Abs(got.Get(name)-want) > 1e-9 {
					t.Errorf("%s = %v, want %v", name, got.Get(name), want)
				}
			}
		})
	}
}

func TestReasonFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		item FusedItem
		want string
	}{
		{FusedItem{Algorithm: AlgorithmMatrix, Sources: []string{AlgorithmMatrix}}, "personalized"},
		{FusedItem{Algorithm: AlgorithmContent, Sources: []string{AlgorithmContent}}, "similar"},
		{FusedItem{Algorithm: AlgorithmPopular, Sources: []string{AlgorithmPopular}}, "popular"},
		{FusedItem{Algorithm: AlgorithmNeural, Sources: []string{AlgorithmContent, AlgorithmNeural}}, "hybrid"},
	}
	for _, tt := range tests {
		if got := ReasonFor(&tt.item); got != tt.want {
			t.Errorf("ReasonFor(%+v) = %q, want %q", tt.item, got, tt.want)
		}
	}
}

func TestSanitizeContext(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog([]Product{{ID: 1, CategoryID: 4}})

	tests := []struct {
		name         string
		in           RequestContext
		wantProblems int
		check        func(t *testing.T, rc RequestContext)
	}{
		{
			name: "valid context kept",
			in:   RequestContext{CategoryID: 4, PriceRange: &PriceRange{Min: 10, Max: 50}, SearchQuery: " desk "},
			check: func(t *testing.T, rc RequestContext) {
				if rc.CategoryID != 4 || rc.PriceRange == nil || rc.SearchQuery != "desk" {
					t.Errorf("context = %+v, want values kept", rc)
				}
			},
		},
		{
			name:         "unknown category dropped",
			in:           RequestContext{CategoryID: 99},
			wantProblems: 1,
			check: func(t *testing.T, rc RequestContext) {
				if rc.CategoryID != 0 {
					t.Errorf("CategoryID = %d, want 0", rc.CategoryID)
				}
			},
		},
		{
			name:         "inverted and negative prices dropped",
			in:           RequestContext{CategoryID: -1, PriceRange: &PriceRange{Min: 80, Max: 20}},
			wantProblems: 2,
			check: func(t *testing.T, rc RequestContext) {
				if rc.PriceRange != nil || rc.CategoryID != 0 {
					t.Errorf("context = %+v, want price range and category dropped", rc)
				}
			},
		},
		{
			name:         "NaN price dropped",
			in:           RequestContext{PriceRange: &PriceRange{Min: math.NaN()}},
			wantProblems: 1,
		},
		{
			name:         "oversized query dropped",
			in:           RequestContext{SearchQuery: string(make([]byte, 300))},
			wantProblems: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, problems := SanitizeContext(tt.in, catalog, 200)
			if len(problems) != tt.wantProblems {
				t.Fatalf("problems = %v, want %d", problems, tt.wantProblems)
			}
			for _, p := range problems {
				if !errors.Is(p, ErrInvalidContext) {
					t.Errorf("problem %v does not wrap ErrInvalidContext", p)
				}
			}
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}
