// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package optimizer

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/vitrine/internal/recommend"
)

// Log actions.
const (
	ActionServed   = "served"
	ActionView     = "view"
	ActionCart     = "cart"
	ActionPurchase = "purchase"
)

// ValidInteraction reports whether action is a loggable follow-up interaction.
func ValidInteraction(action string) bool {
	switch action {
	case ActionView, ActionCart, ActionPurchase:
		return true
	default:
		return false
	}
}

// Period selects the trailing window an optimizer run aggregates.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// ParsePeriod parses a period name. An empty name is weekly.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return Period(s), nil
	case "":
		return PeriodWeekly, nil
	default:
		return "", fmt.Errorf("unknown period %q (want daily, weekly or monthly)", s)
	}
}

// Window returns the period's trailing window.
func (p Period) Window() time.Duration {
	switch p {
	case PeriodDaily:
		return 24 * time.Hour
	case PeriodMonthly:
		return 30 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// LogEntry is one recommendation_logs row.
type LogEntry struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id,omitempty"`
	UserID    int       `json:"user_id"`
	ProductID int       `json:"product_id"`
	Algorithm string    `json:"algorithm"`
	Strategy  string    `json:"strategy,omitempty"`
	Action    string    `json:"action"`
	Position  int       `json:"position"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// AlgorithmStats are the outcome counts and derived rates of one algorithm
// over a window.
type AlgorithmStats struct {
	Algorithm     string  `json:"algorithm"`
	Served        int     `json:"served"`
	Views         int     `json:"views"`
	Carts         int     `json:"carts"`
	Purchases     int     `json:"purchases"`
	CartRate      float64 `json:"cart_rate"`
	PurchaseRate  float64 `json:"purchase_rate"`
	Effectiveness float64 `json:"effectiveness"`
}

// Interactions returns the number of follow-up interactions.
func (s *AlgorithmStats) Interactions() int {
	return s.Views + s.Carts + s.Purchases
}

// HasLogs reports whether anything was logged for the algorithm.
func (s *AlgorithmStats) HasLogs() bool {
	return s.Served > 0 || s.Interactions() > 0
}

// computeRates fills the derived rates. Views of a served product are the
// impression signal; the served count stands in when no views were logged.
func (s *AlgorithmStats) computeRates() {
	impressions := s.Views
	if impressions == 0 {
		impressions = s.Served
	}
	s.CartRate, s.PurchaseRate = 0, 0
	if impressions > 0 {
		s.CartRate = float64(s.Carts) / float64(impressions)
	}
	if s.Carts > 0 {
		s.PurchaseRate = float64(s.Purchases) / float64(s.Carts)
	}
	s.Effectiveness = (s.CartRate*2 + s.PurchaseRate*4) / 3
}

// WeightRecord is one row of the weight history.
type WeightRecord struct {
	Weights   recommend.AlgorithmWeights `json:"weights"`
	Reason    string                     `json:"reason"`
	CreatedAt time.Time                  `json:"created_at"`
}

// LogStore persists recommendation outcome rows.
type LogStore interface {
	// InsertRecommendationLogs writes rows in one batch.
	InsertRecommendationLogs(ctx context.Context, entries []LogEntry) error

	// LastImpression returns the newest served row for the user and product
	// created within [since, until], or nil when there is none.
	LastImpression(ctx context.Context, userID, productID int, since, until time.Time) (*LogEntry, error)

	// AlgorithmStats returns raw per-algorithm counts for rows created at or
	// after since. Derived rates are left zero.
	AlgorithmStats(ctx context.Context, since time.Time) ([]AlgorithmStats, error)
}

// WeightStore persists the weight history. The latest row wins.
type WeightStore interface {
	recommend.WeightSource

	SaveWeights(ctx context.Context, record *WeightRecord) error
	WeightHistory(ctx context.Context, limit int) ([]WeightRecord, error)
}

// BehaviorStore persists per-user behavior summaries keyed by user and window.
type BehaviorStore interface {
	SaveBehaviorSummaries(ctx context.Context, summaries []recommend.BehaviorSummary) error
}

// Store is everything the optimizer persists.
type Store interface {
	LogStore
	WeightStore
	BehaviorStore
}
