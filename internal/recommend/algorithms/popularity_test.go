// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package algorithms

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/recommend"
)

func popularityProducts() []recommend.Product {
	return []recommend.Product{
		{ID: 1, CategoryID: 1, Price: 10, Stock: 1, ViewCount: 50},
		{ID: 2, CategoryID: 1, Price: 20, Stock: 1, ViewCount: 90},
		{ID: 3, CategoryID: 2, Price: 30, Stock: 1, ViewCount: 5, IsFeatured: true},
		{ID: 4, CategoryID: 2, Price: 40, Stock: 0, ViewCount: 500, IsFeatured: true},
		{ID: 5, CategoryID: 1, Price: 50, Stock: 1, ViewCount: 50},
		{ID: 6, CategoryID: 2, Price: 60, Stock: 1, ViewCount: 5, IsFeatured: true},
	}
}

func TestRank(t *testing.T) {
	t.Parallel()

	catalog := recommend.NewCatalog(popularityProducts())
	tests := []struct {
		name    string
		filters recommend.Filters
		exclude map[int]struct{}
		limit   int
		want    []int
	}{
		{"featured, views, then id", recommend.Filters{}, nil, 0, []int{3, 6, 2, 1, 5}},
		{"limit", recommend.Filters{}, nil, 2, []int{3, 6}},
		{"category filter", recommend.Filters{CategoryID: 1}, nil, 10, []int{2, 1, 5}},
		{"price filter", recommend.Filters{PriceRange: &recommend.PriceRange{Min: 15, Max: 35}}, nil, 10, []int{3, 2}},
		{"exclude", recommend.Filters{}, map[int]struct{}{3: {}, 2: {}}, 10, []int{6, 1, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := productIDs(Rank(catalog, &tt.filters, tt.exclude, tt.limit, recommend.AlgorithmPopular))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Rank() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("scores follow order", func(t *testing.T) {
		items := Rank(catalog, &recommend.Filters{}, nil, 0, recommend.AlgorithmPopular)
		for i := 1; i < len(items); i++ {
			if items[i].Score > items[i-1].Score {
				t.Errorf("score %v at %d exceeds %v", items[i].Score, i, items[i-1].Score)
			}
		}
	})
}

func TestPopularity_ScoreAndFallback(t *testing.T) {
	t.Parallel()

	provider := &memProvider{products: popularityProducts()}
	p := NewPopularity(newTestCorpus(t, provider, nil), zerolog.Nop())
	ctx := context.Background()

	res, err := p.Score(ctx, recommend.ScoreRequest{UserID: 1, Limit: 3})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if got := productIDs(res.Items); !reflect.DeepEqual(got, []int{3, 6, 2}) {
		t.Errorf("Score() items = %v, want [3 6 2]", got)
	}
	if res.Confidence != popularConfidence || res.Items[0].Algorithm != recommend.AlgorithmPopular {
		t.Errorf("Score() = %+v, want popular with confidence %v", res, popularConfidence)
	}

	items, err := p.Fallback(ctx, recommend.Filters{}, map[int]struct{}{3: {}}, 2)
	if err != nil {
		t.Fatalf("Fallback() error = %v", err)
	}
	if got := productIDs(items); !reflect.DeepEqual(got, []int{6, 2}) {
		t.Errorf("Fallback() = %v, want [6 2]", got)
	}
	if items[0].Algorithm != recommend.AlgorithmPopularFallback {
		t.Errorf("Fallback() algorithm = %s, want %s", items[0].Algorithm, recommend.AlgorithmPopularFallback)
	}
}

func TestPopularity_FallbackReadsProviderWhenCacheFails(t *testing.T) {
	t.Parallel()

	provider := &memProvider{products: popularityProducts()}
	provider.failProducts.Store(1)
	p := NewPopularity(newTestCorpus(t, provider, nil), zerolog.Nop())

	items, err := p.Fallback(context.Background(), recommend.Filters{}, nil, 1)
	if err != nil {
		t.Fatalf("Fallback() error = %v", err)
	}
	if len(items) != 1 || items[0].ProductID != 3 {
		t.Errorf("Fallback() = %v, want [3]", productIDs(items))
	}
	if provider.productsCalled.Load() != 2 {
		t.Errorf("GetProducts calls = %d, want 2", provider.productsCalled.Load())
	}
}

func TestPopularity_FallbackCatalogDown(t *testing.T) {
	t.Parallel()

	provider := &memProvider{products: popularityProducts()}
	provider.failProducts.Store(2)
	p := NewPopularity(newTestCorpus(t, provider, nil), zerolog.Nop())

	_, err := p.Fallback(context.Background(), recommend.Filters{}, nil, 5)
	if !errors.Is(err, recommend.ErrCatalogUnavailable) {
		t.Errorf("Fallback() error = %v, want ErrCatalogUnavailable", err)
	}
}
