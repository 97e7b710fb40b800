// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package recommend

import (
	"testing"
	"time"
)

func testCatalog(ids ...int) *Catalog {
	products := make([]Product, 0, len(ids))
	for _, id := range ids {
		products = append(products, Product{ID: id, Name: "product", CategoryID: 1, Price: 10, Stock: 5})
	}
	return NewCatalog(products)
}

func TestAggregator_ScoringRules(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tests := []struct {
		name  string
		event InteractionEvent
		want  float64
		found bool
	}{
		{name: "single view", event: InteractionEvent{Type: EventView, Magnitude: 1}, want: 0.2, found: true},
		{name: "ten views", event: InteractionEvent{Type: EventView, Magnitude: 10}, want: 2.0, found: true},
		{name: "views capped at 3", event: InteractionEvent{Type: EventView, Magnitude: 40}, want: 3.0, found: true},
		{name: "zero views ignored", event: InteractionEvent{Type: EventView, Magnitude: 0}, found: false},
		{name: "purchase", event: InteractionEvent{Type: EventPurchase, Magnitude: 2}, want: 5.0, found: true},
		{name: "review raw rating", event: InteractionEvent{Type: EventReview, Magnitude: 3}, want: 3.0, found: true},
		{name: "review clamped", event: InteractionEvent{Type: EventReview, Magnitude: 9}, want: 5.0, found: true},
		{name: "reco view", event: InteractionEvent{Type: EventRecoInteraction, Action: "view"}, want: 2.0, found: true},
		{name: "reco cart", event: InteractionEvent{Type: EventRecoInteraction, Action: "cart"}, want: 4.0, found: true},
		{name: "reco purchase", event: InteractionEvent{Type: EventRecoInteraction, Action: "purchase"}, want: 5.0, found: true},
		{name: "reco unknown action", event: InteractionEvent{Type: EventRecoInteraction, Action: "hover"}, want: 1.0, found: true},
		{name: "cart has no default rule", event: InteractionEvent{Type: EventCart}, found: false},
		{name: "wishlist has no default rule", event: InteractionEvent{Type: EventWishlist}, found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ev := tt.event
			ev.UserID, ev.ProductID, ev.Timestamp = 1, 10, now

			m := NewAggregator().Aggregate([]InteractionEvent{ev}, testCatalog(10))
			got, ok := m.Rating(1, 10)
			if ok != tt.found {
				t.Fatalf("Rating() found = %v, want %v", ok, tt.found)
			}
			if ok && got != tt.want {
				t.Errorf("Rating() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregator_MaxRuleNotSum(t *testing.T) {
	t.Parallel()

	events := []InteractionEvent{
		{UserID: 1, ProductID: 10, Type: EventView, Magnitude: 10},
		{UserID: 1, ProductID: 10, Type: EventPurchase, Magnitude: 1},
		{UserID: 1, ProductID: 10, Type: EventReview, Magnitude: 2},
		{UserID: 1, ProductID: 10, Type: EventRecoInteraction, Action: "view"},
	}

	m := NewAggregator().Aggregate(events, testCatalog(10))
	got, _ := m.Rating(1, 10)
	if got != 5.0 {
		t.Errorf("Rating() = %v, want 5.0", got)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestAggregator_SkipsUnknownProducts(t *testing.T) {
	t.Parallel()

	events := []InteractionEvent{
		{UserID: 1, ProductID: 10, Type: EventPurchase},
		{UserID: 1, ProductID: 999, Type: EventPurchase},
		{UserID: 2, ProductID: 998, Type: EventView, Magnitude: 3},
	}

	m := NewAggregator().Aggregate(events, testCatalog(10))
	if _, ok := m.Rating(1, 999); ok {
		t.Error("rating for deleted product should be skipped")
	}
	if m.HasUser(2) {
		t.Error("user with only unknown-product events should be absent")
	}
	if got := m.Users(); len(got) != 1 || got[0] != 1 {
		t.Errorf("Users() = %v, want [1]", got)
	}
}

func TestAggregator_WithRule(t *testing.T) {
	t.Parallel()

	base := NewAggregator()
	withWishlist := base.WithRule(EventWishlist, func(ev *InteractionEvent) (float64, bool) {
		return 3.5, true
	})

	events := []InteractionEvent{{UserID: 1, ProductID: 10, Type: EventWishlist}}

	if _, ok := base.Aggregate(events, nil).Rating(1, 10); ok {
		t.Error("base aggregator must not be modified by WithRule")
	}
	got, ok := withWishlist.Aggregate(events, nil).Rating(1, 10)
	if !ok || got != 3.5 {
		t.Errorf("Rating() = %v, %v, want 3.5, true", got, ok)
	}

	withoutViews := base.WithRule(EventView, nil)
	if _, ok := withoutViews.Aggregate([]InteractionEvent{{UserID: 1, ProductID: 10, Type: EventView, Magnitude: 5}}, nil).Rating(1, 10); ok {
		t.Error("removed rule should ignore view events")
	}
}

func TestRatingMatrix_TriplesOrdered(t *testing.T) {
	t.Parallel()

	m := NewRatingMatrix(map[int]map[int]float64{
		2: {30: 1, 10: 2},
		1: {20: 5},
	})

	triples := m.Triples()
	want := []Rating{
		{UserID: 1, ProductID: 20, Value: 5},
		{UserID: 2, ProductID: 10, Value: 2},
		{UserID: 2, ProductID: 30, Value: 1},
	}
	if len(triples) != len(want) {
		t.Fatalf("len(Triples()) = %d, want %d", len(triples), len(want))
	}
	for i := range want {
		if triples[i] != want[i] {
			t.Errorf("Triples()[%d] = %+v, want %+v", i, triples[i], want[i])
		}
	}
	if got := m.Products(); len(got) != 3 || got[0] != 10 || got[2] != 30 {
		t.Errorf("Products() = %v, want [10 20 30]", got)
	}
}

func TestSummarizeBehavior(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	catalog := NewCatalog([]Product{
		{ID: 1, CategoryID: 1, Brand: "acme", Stock: 1},
		{ID: 2, CategoryID: 2, Brand: "globex", Stock: 1},
		{ID: 3, CategoryID: 2, Brand: "globex", Stock: 1},
	})
	events := []InteractionEvent{
		{UserID: 7, ProductID: 1, Type: EventPurchase, Timestamp: now.Add(-24 * time.Hour)},
		{UserID: 7, ProductID: 1, Type: EventCart, Timestamp: now.Add(-25 * time.Hour)},
		{UserID: 7, ProductID: 2, Type: EventCart, Timestamp: now.Add(-48 * time.Hour)},
		{UserID: 7, ProductID: 3, Type: EventView, Magnitude: 2, Timestamp: now.Add(-72 * time.Hour)},
		{UserID: 7, ProductID: 3, Type: EventPurchase, Timestamp: now.Add(-100 * 24 * time.Hour)},
		{UserID: 8, ProductID: 3, Type: EventPurchase, Timestamp: now},
	}

	s := SummarizeBehavior(7, events, catalog, 30*24*time.Hour, now)

	if s.Interactions != 4 {
		t.Errorf("Interactions = %d, want 4", s.Interactions)
	}
	if s.PurchaseFrequency != 1 {
		t.Errorf("PurchaseFrequency = %v, want 1", s.PurchaseFrequency)
	}
	if s.CartAbandonRate != 0.5 {
		t.Errorf("CartAbandonRate = %v, want 0.5", s.CartAbandonRate)
	}
	if s.BrandBreadth != 2 || s.CategoryBreadth != 2 {
		t.Errorf("breadth = %d brands, %d categories, want 2 and 2", s.BrandBreadth, s.CategoryBreadth)
	}
	if s.Window != "30d" {
		t.Errorf("Window = %q, want 30d", s.Window)
	}
	if !s.LastActive.Equal(now.Add(-24 * time.Hour)) {
		t.Errorf("LastActive = %v, want %v", s.LastActive, now.Add(-24*time.Hour))
	}
}
