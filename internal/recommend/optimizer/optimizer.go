// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package optimizer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/metrics"
	"github.com/tomtom215/vitrine/internal/recommend"
)

// Config contains optimizer parameters.
type Config struct {
	// Defaults are the weights effectiveness ratios are applied to.
	Defaults recommend.AlgorithmWeights

	// MinInteractions is the number of logged interactions below which
	// weights are left alone.
	// Default: 100.
	MinInteractions int

	// MinWeight and MaxWeight clip the optimized weights.
	// Default: 0.3 and 1.5.
	MinWeight float64
	MaxWeight float64

	// BehaviorWindow is the trailing window of the behavior summaries.
	// Default: 90 days.
	BehaviorWindow time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Defaults:        recommend.DefaultWeights(),
		MinInteractions: 100,
		MinWeight:       recommend.MinAlgorithmWeight,
		MaxWeight:       recommend.MaxAlgorithmWeight,
		BehaviorWindow:  90 * 24 * time.Hour,
	}
}

// Result reports one optimizer run.
type Result struct {
	Period       Period                     `json:"period"`
	Since        time.Time                  `json:"since"`
	Interactions int                        `json:"interactions"`
	Stats        []AlgorithmStats           `json:"stats"`
	Previous     recommend.AlgorithmWeights `json:"previous"`
	Weights      recommend.AlgorithmWeights `json:"weights"`
	Applied      bool                       `json:"applied"`
	Reason       string                     `json:"reason,omitempty"`
	RanAt        time.Time                  `json:"ran_at"`
}

// Optimizer recomputes blend weights from logged outcomes and refreshes
// behavior summaries. It is safe for concurrent use; runs are serialized.
type Optimizer struct {
	store    Store
	provider recommend.DataProvider
	cfg      Config
	now      func() time.Time
	logger   zerolog.Logger

	onUpdate   func(recommend.AlgorithmWeights)
	onBehavior func()

	runMu  sync.Mutex
	lastMu sync.RWMutex
	last   *Result
}

// New creates an optimizer. provider is only needed for behavior summaries
// and may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(store Store, provider recommend.DataProvider, cfg Config, logger zerolog.Logger) *Optimizer {
	if cfg.MinWeight == 0 && cfg.MaxWeight == 0 {
		cfg.MinWeight, cfg.MaxWeight = recommend.MinAlgorithmWeight, recommend.MaxAlgorithmWeight
	}
	return &Optimizer{
		store:    store,
		provider: provider,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.With().Str("component", "optimizer").Logger(),
	}
}

// SetClock replaces the time source.
func (o *Optimizer) SetClock(now func() time.Time) {
	o.now = now
}

// OnUpdate registers a callback invoked with the new weights after they are
// persisted, e.g. to invalidate the blender's cached copy.
func (o *Optimizer) OnUpdate(fn func(recommend.AlgorithmWeights)) {
	o.onUpdate = fn
}

// OnBehaviorRefresh registers a callback invoked after behavior summaries
// are persisted.
func (o *Optimizer) OnBehaviorRefresh(fn func()) {
	o.onBehavior = fn
}

// LastResult returns the most recent run, or nil.
func (o *Optimizer) LastResult() *Result {
	o.lastMu.RLock()
	defer o.lastMu.RUnlock()
	return o.last
}

// Stats returns per-algorithm stats with derived rates over the period,
// ordered by algorithm name. popular_fallback is folded into popular.
func (o *Optimizer) Stats(ctx context.Context, period Period) ([]AlgorithmStats, time.Time, error) {
	since := o.now().Add(-period.Window())
	raw, err := o.store.AlgorithmStats(ctx, since)
	if err != nil {
		return nil, since, fmt.Errorf("load algorithm stats: %w", err)
	}

	merged := make(map[string]*AlgorithmStats)
	for i := range raw {
		name := raw[i].Algorithm
		if name == recommend.AlgorithmPopularFallback {
			name = recommend.AlgorithmPopular
		}
		s, ok := merged[name]
		if !ok {
			s = &AlgorithmStats{Algorithm: name}
			merged[name] = s
		}
		s.Served += raw[i].Served
		s.Views += raw[i].Views
		s.Carts += raw[i].Carts
		s.Purchases += raw[i].Purchases
	}

	out := make([]AlgorithmStats, 0, len(merged))
	for _, s := range merged {
		s.computeRates()
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Algorithm < out[j].Algorithm })
	return out, since, nil
}

// Run recomputes and persists weights from the period's logs.
func (o *Optimizer) Run(ctx context.Context, period Period) (*Result, error) {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	start := time.Now()
	stats, since, err := o.Stats(ctx, period)
	if err != nil {
		return nil, err
	}

	previous, ok, err := o.store.LoadWeights(ctx)
	if err != nil {
		return nil, fmt.Errorf("load current weights: %w", err)
	}
	if !ok {
		previous = o.cfg.Defaults
	}

	res := &Result{
		Period:   period,
		Since:    since,
		Stats:    stats,
		Previous: previous,
		Weights:  previous,
		RanAt:    o.now(),
	}
	for i := range stats {
		res.Interactions += stats[i].Interactions()
	}

	effectiveness := make(map[string]float64)
	var sum float64
	for i := range stats {
		if !isWeighted(stats[i].Algorithm) || !stats[i].HasLogs() {
			continue
		}
		effectiveness[stats[i].Algorithm] = stats[i].Effectiveness
		sum += stats[i].Effectiveness
	}

	switch {
	case res.Interactions < o.cfg.MinInteractions:
		res.Reason = fmt.Sprintf("insufficient data: %d interactions, need %d", res.Interactions, o.cfg.MinInteractions)
	case sum <= 0:
		res.Reason = "no algorithm produced carts or purchases"
	default:
		mean := sum / float64(len(effectiveness))
		weights := o.cfg.Defaults
		for name, eff := range effectiveness {
			_ = weights.Set(name, o.cfg.Defaults.Get(name)*eff/mean) //nolint:errcheck // names filtered by isWeighted
		}
		res.Weights = weights.Clip(o.cfg.MinWeight, o.cfg.MaxWeight)
		res.Applied = true
	}

	if res.Applied {
		record := &WeightRecord{
			Weights:   res.Weights,
			Reason:    fmt.Sprintf("optimizer:%s", period),
			CreatedAt: res.RanAt,
		}
		if err := o.store.SaveWeights(ctx, record); err != nil {
			return nil, fmt.Errorf("save weights: %w", err)
		}
		metrics.SetAlgorithmWeights(res.Weights.ToMap())
		metrics.SetAlgorithmEffectiveness(effectiveness)
		if o.onUpdate != nil {
			o.onUpdate(res.Weights)
		}
	}

	o.lastMu.Lock()
	o.last = res
	o.lastMu.Unlock()

	event := o.logger.Info()
	if !res.Applied {
		event = o.logger.Warn().Str("reason", res.Reason)
	}
	event.
		Str("period", string(period)).
		Int("interactions", res.Interactions).
		Bool("applied", res.Applied).
		Interface("weights", res.Weights.ToMap()).
		Dur("duration", time.Since(start)).
		Msg("Weight optimization complete")

	return res, nil
}

func isWeighted(name string) bool {
	for _, n := range recommend.AlgorithmNames() {
		if n == name {
			return true
		}
	}
	return false
}

// RefreshBehaviorSummaries recomputes and persists the behavior summary of
// every user active within the behavior window. It returns the number of
// summaries written.
func (o *Optimizer) RefreshBehaviorSummaries(ctx context.Context) (int, error) {
	if o.provider == nil {
		return 0, fmt.Errorf("behavior summaries need a data provider")
	}
	now := o.now()

	products, err := o.provider.GetProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("load products: %w", err)
	}
	catalog := recommend.NewCatalog(products)

	events, err := o.provider.GetInteractionEvents(ctx, now.Add(-o.cfg.BehaviorWindow))
	if err != nil {
		return 0, fmt.Errorf("load interaction events: %w", err)
	}

	byUser := make(map[int][]recommend.InteractionEvent)
	for i := range events {
		byUser[events[i].UserID] = append(byUser[events[i].UserID], events[i])
	}
	userIDs := make([]int, 0, len(byUser))
	for id := range byUser {
		userIDs = append(userIDs, id)
	}
	sort.Ints(userIDs)

	summaries := make([]recommend.BehaviorSummary, 0, len(userIDs))
	for _, id := range userIDs {
		summaries = append(summaries, recommend.SummarizeBehavior(id, byUser[id], catalog, o.cfg.BehaviorWindow, now))
	}
	if len(summaries) == 0 {
		return 0, nil
	}
	if err := o.store.SaveBehaviorSummaries(ctx, summaries); err != nil {
		return 0, fmt.Errorf("save behavior summaries: %w", err)
	}

	if o.onBehavior != nil {
		o.onBehavior()
	}
	o.logger.Info().Int("users", len(summaries)).Msg("Behavior summaries refreshed")
	return len(summaries), nil
}
