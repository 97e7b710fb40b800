// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package optimizer

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/recommend"
)

func newTestOptimizer(store *memStore, provider recommend.DataProvider) *Optimizer {
	o := New(store, provider, DefaultConfig(), zerolog.Nop())
	o.SetClock(func() time.Time { return testNow })
	return o
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-3
}

func TestParsePeriod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Period
		window  time.Duration
		wantErr bool
	}{
		{"daily", PeriodDaily, 24 * time.Hour, false},
		{"weekly", PeriodWeekly, 7 * 24 * time.Hour, false},
		{"monthly", PeriodMonthly, 30 * 24 * time.Hour, false},
		{"", PeriodWeekly, 7 * 24 * time.Hour, false},
		{"hourly", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParsePeriod(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePeriod(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("ParsePeriod(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if got.Window() != tt.window {
				t.Errorf("Window() = %v, want %v", got.Window(), tt.window)
			}
		})
	}
}

func TestAlgorithmStats_ComputeRates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		stats             AlgorithmStats
		wantCart, wantBuy float64
		wantEff           float64
	}{
		{
			name:     "views as impressions",
			stats:    AlgorithmStats{Views: 100, Carts: 20, Purchases: 5},
			wantCart: 0.2, wantBuy: 0.25, wantEff: (0.4 + 1.0) / 3,
		},
		{
			name:     "served stands in without views",
			stats:    AlgorithmStats{Served: 50, Carts: 5},
			wantCart: 0.1, wantBuy: 0, wantEff: 0.2 / 3,
		},
		{
			name:  "nothing logged",
			stats: AlgorithmStats{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := tt.stats
			s.computeRates()
			if !approx(s.CartRate, tt.wantCart) {
				t.Errorf("CartRate = %v, want %v", s.CartRate, tt.wantCart)
			}
			if !approx(s.PurchaseRate, tt.wantBuy) {
				t.Errorf("PurchaseRate = %v, want %v", s.PurchaseRate, tt.wantBuy)
			}
			if !approx(s.Effectiveness, tt.wantEff) {
				t.Errorf("Effectiveness = %v, want %v", s.Effectiveness, tt.wantEff)
			}
		})
	}
}

func TestOptimizer_Run_FavorsEffectiveAlgorithm(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	at := testNow.Add(-24 * time.Hour)
	store.addOutcomes(recommend.AlgorithmCollaborative, 0, 100, 20, 5, at)
	store.addOutcomes(recommend.AlgorithmContent, 0, 100, 5, 1, at)

	o := newTestOptimizer(store, nil)
	var notified recommend.AlgorithmWeights
	o.OnUpdate(func(w recommend.AlgorithmWeights) { notified = w })

	res, err := o.Run(context.Background(), PeriodWeekly)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Applied {
		t.Fatalf("Applied = false, reason %q", res.Reason)
	}
	if res.Interactions != 231 {
		t.Errorf("Interactions = %d, want 231", res.Interactions)
	}

	collab := res.Weights.Get(recommend.AlgorithmCollaborative)
	content := res.Weights.Get(recommend.AlgorithmContent)
	if collab <= content {
		t.Errorf("collaborative weight %v should exceed content weight %v", collab, content)
	}
	if !approx(collab, 1.2174) {
		t.Errorf("collaborative weight = %v, want ~1.2174", collab)
	}
	if !approx(content, 0.6261) {
		t.Errorf("content weight = %v, want ~0.6261", content)
	}

	// Algorithms without logs keep their defaults.
	defaults := recommend.DefaultWeights()
	for _, name := range []string{recommend.AlgorithmNeural, recommend.AlgorithmMatrix, recommend.AlgorithmPopular} {
		if got, want := res.Weights.Get(name), defaults.Get(name); got != want {
			t.Errorf("%s weight = %v, want default %v", name, got, want)
		}
	}

	if len(store.weights) != 1 {
		t.Fatalf("saved %d weight records, want 1", len(store.weights))
	}
	if store.weights[0].Reason != "optimizer:weekly" {
		t.Errorf("Reason = %q, want optimizer:weekly", store.weights[0].Reason)
	}
	if !store.weights[0].CreatedAt.Equal(testNow) {
		t.Errorf("CreatedAt = %v, want %v", store.weights[0].CreatedAt, testNow)
	}
	if notified != res.Weights {
		t.Errorf("OnUpdate got %+v, want %+v", notified, res.Weights)
	}
	if o.LastResult() != res {
		t.Error("LastResult() should return the latest run")
	}
}

func TestOptimizer_Run_InsufficientData(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.addOutcomes(recommend.AlgorithmCollaborative, 0, 40, 10, 2, testNow.Add(-time.Hour))

	o := newTestOptimizer(store, nil)
	called := false
	o.OnUpdate(func(recommend.AlgorithmWeights) { called = true })

	res, err := o.Run(context.Background(), PeriodDaily)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Applied {
		t.Error("Applied = true, want false with 52 interactions")
	}
	if !strings.Contains(res.Reason, "insufficient data") {
		t.Errorf("Reason = %q, want insufficient data", res.Reason)
	}
	if res.Weights != recommend.DefaultWeights() {
		t.Errorf("Weights = %+v, want defaults", res.Weights)
	}
	if len(store.weights) != 0 {
		t.Errorf("saved %d weight records, want 0", len(store.weights))
	}
	if called {
		t.Error("OnUpdate should not fire when nothing was applied")
	}
}

func TestOptimizer_Run_IgnoresRowsOutsidePeriod(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.addOutcomes(recommend.AlgorithmCollaborative, 0, 100, 20, 5, testNow.Add(-3*24*time.Hour))

	o := newTestOptimizer(store, nil)
	res, err := o.Run(context.Background(), PeriodDaily)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Interactions != 0 {
		t.Errorf("Interactions = %d, want 0", res.Interactions)
	}
	if res.Applied {
		t.Error("Applied = true, want false")
	}
}

func TestOptimizer_Run_KeepsPreviousWeightsWhenSkipped(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	previous := recommend.DefaultWeights()
	previous.Collaborative = 1.4
	store.weights = append(store.weights, WeightRecord{Weights: previous, Reason: "manual", CreatedAt: testNow.Add(-time.Hour)})

	o := newTestOptimizer(store, nil)
	res, err := o.Run(context.Background(), PeriodWeekly)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Previous != previous || res.Weights != previous {
		t.Errorf("Weights = %+v, want previous %+v", res.Weights, previous)
	}
	if len(store.weights) != 1 {
		t.Errorf("weight history length = %d, want 1", len(store.weights))
	}
}

func TestOptimizer_Run_NoConversions(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.addOutcomes(recommend.AlgorithmCollaborative, 0, 150, 0, 0, testNow.Add(-time.Hour))

	o := newTestOptimizer(store, nil)
	res, err := o.Run(context.Background(), PeriodWeekly)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Applied {
		t.Error("Applied = true, want false without carts or purchases")
	}
}

func TestOptimizer_Run_ClipsWeights(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	at := testNow.Add(-time.Hour)
	store.addOutcomes(recommend.AlgorithmCollaborative, 0, 100, 50, 50, at)
	store.addOutcomes(recommend.AlgorithmContent, 0, 100, 1, 0, at)

	o := newTestOptimizer(store, nil)
	res, err := o.Run(context.Background(), PeriodWeekly)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Applied {
		t.Fatalf("Applied = false, reason %q", res.Reason)
	}
	if got := res.Weights.Get(recommend.AlgorithmCollaborative); got != recommend.MaxAlgorithmWeight {
		t.Errorf("collaborative weight = %v, want %v", got, recommend.MaxAlgorithmWeight)
	}
	if got := res.Weights.Get(recommend.AlgorithmContent); got != recommend.MinAlgorithmWeight {
		t.Errorf("content weight = %v, want %v", got, recommend.MinAlgorithmWeight)
	}
}

func TestOptimizer_Stats_FoldsPopularFallback(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	at := testNow.Add(-time.Hour)
	store.addOutcomes(recommend.AlgorithmPopular, 10, 10, 2, 0, at)
	store.addOutcomes(recommend.AlgorithmPopularFallback, 5, 10, 2, 1, at)
	store.addOutcomes(recommend.AlgorithmMatrix, 3, 0, 0, 0, at)

	o := newTestOptimizer(store, nil)
	stats, since, err := o.Stats(context.Background(), PeriodWeekly)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if want := testNow.Add(-7 * 24 * time.Hour); !since.Equal(want) {
		t.Errorf("since = %v, want %v", since, want)
	}
	if len(stats) != 2 {
		t.Fatalf("len(stats) = %d, want 2", len(stats))
	}
	if stats[0].Algorithm != recommend.AlgorithmMatrix || stats[1].Algorithm != recommend.AlgorithmPopular {
		t.Fatalf("order = [%s %s], want [matrix popular]", stats[0].Algorithm, stats[1].Algorithm)
	}
	popular := stats[1]
	if popular.Served != 15 || popular.Views != 20 || popular.Carts != 4 || popular.Purchases != 1 {
		t.Errorf("popular = %+v, want served 15 views 20 carts 4 purchases 1", popular)
	}
	if !approx(popular.CartRate, 0.2) {
		t.Errorf("CartRate = %v, want 0.2", popular.CartRate)
	}
}

func TestOptimizer_ABReport(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	at := testNow.Add(-time.Hour)
	store.addOutcomes(recommend.AlgorithmContent, 0, 100, 5, 1, at)
	store.addOutcomes(recommend.AlgorithmCollaborative, 0, 100, 20, 5, at)

	o := newTestOptimizer(store, nil)
	report, err := o.ABReport(context.Background(), PeriodWeekly)
	if err != nil {
		t.Fatalf("ABReport() error = %v", err)
	}
	if report.Best != recommend.AlgorithmCollaborative {
		t.Errorf("Best = %q, want collaborative", report.Best)
	}
	if report.RunnerUp != recommend.AlgorithmContent {
		t.Errorf("RunnerUp = %q, want content", report.RunnerUp)
	}
	if !approx(report.ImprovementPct, 55.5556) {
		t.Errorf("ImprovementPct = %v, want ~55.56", report.ImprovementPct)
	}
	if len(report.Ranking) != 2 {
		t.Errorf("len(Ranking) = %d, want 2", len(report.Ranking))
	}
}

func TestOptimizer_ABReport_SingleAlgorithm(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.addOutcomes(recommend.AlgorithmNeural, 4, 2, 1, 0, testNow.Add(-time.Hour))

	o := newTestOptimizer(store, nil)
	report, err := o.ABReport(context.Background(), PeriodDaily)
	if err != nil {
		t.Fatalf("ABReport() error = %v", err)
	}
	if report.Best != recommend.AlgorithmNeural || report.RunnerUp != "" {
		t.Errorf("Best/RunnerUp = %q/%q, want neural/empty", report.Best, report.RunnerUp)
	}
	if report.ImprovementPct != 0 {
		t.Errorf("ImprovementPct = %v, want 0", report.ImprovementPct)
	}
}

func TestOptimizer_RefreshBehaviorSummaries(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		products: []recommend.Product{
			{ID: 1, CategoryID: 10, Brand: "acme"},
			{ID: 2, CategoryID: 20, Brand: "globex"},
		},
		events: []recommend.InteractionEvent{
			{UserID: 7, ProductID: 1, Type: recommend.EventView, Magnitude: 3, Timestamp: testNow.Add(-2 * time.Hour)},
			{UserID: 7, ProductID: 2, Type: recommend.EventPurchase, Magnitude: 1, Timestamp: testNow.Add(-time.Hour)},
			{UserID: 9, ProductID: 1, Type: recommend.EventCart, Magnitude: 1, Timestamp: testNow.Add(-24 * time.Hour)},
			// Outside the 90 day window.
			{UserID: 11, ProductID: 2, Type: recommend.EventView, Magnitude: 1, Timestamp: testNow.Add(-100 * 24 * time.Hour)},
		},
	}
	store := newMemStore()
	o := newTestOptimizer(store, provider)

	n, err := o.RefreshBehaviorSummaries(context.Background())
	if err != nil {
		t.Fatalf("RefreshBehaviorSummaries() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("summaries = %d, want 2", n)
	}

	s7, ok := store.summaries[7]
	if !ok {
		t.Fatal("missing summary for user 7")
	}
	if s7.Interactions != 2 || s7.CategoryBreadth != 2 || s7.BrandBreadth != 2 {
		t.Errorf("user 7 = %+v, want 2 interactions over 2 categories and brands", s7)
	}
	if s7.Window != "90d" {
		t.Errorf("Window = %q, want 90d", s7.Window)
	}
	if s9 := store.summaries[9]; s9.CartAbandonRate != 1 {
		t.Errorf("user 9 CartAbandonRate = %v, want 1", s9.CartAbandonRate)
	}
	if _, ok := store.summaries[11]; ok {
		t.Error("user 11 is outside the window and should have no summary")
	}
}

func TestOptimizer_RefreshBehaviorSummaries_NoProvider(t *testing.T) {
	t.Parallel()

	o := newTestOptimizer(newMemStore(), nil)
	if _, err := o.RefreshBehaviorSummaries(context.Background()); err == nil {
		t.Error("RefreshBehaviorSummaries() without a provider should fail")
	}
}
