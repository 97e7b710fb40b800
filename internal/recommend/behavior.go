// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package recommend

import (
	"fmt"
	"time"
)

// BehaviorSummary is the durable per-user behavior digest written by the
// optimizer and read by the blender for weight multipliers.
type BehaviorSummary struct {
	// UserID identifies the user.
	UserID int `json:"user_id"`

	// Window labels the trailing window the summary covers (e.g. "90d").
	Window string `json:"window"`

	// PurchaseFrequency is purchases per 30 days over the window.
	PurchaseFrequency float64 `json:"purchase_frequency"`

	// CartAbandonRate is the share of carted products never purchased.
	CartAbandonRate float64 `json:"cart_abandon_rate"`

	// BrandBreadth is the number of distinct brands interacted with.
	BrandBreadth int `json:"brand_breadth"`

	// CategoryBreadth is the number of distinct categories interacted with.
	CategoryBreadth int `json:"category_breadth"`

	// Interactions is the number of events in the window.
	Interactions int `json:"interactions"`

	// LastActive is the timestamp of the newest event.
	LastActive time.Time `json:"last_active"`

	// ComputedAt is when the summary was computed.
	ComputedAt time.Time `json:"computed_at"`
}

// WindowLabel formats a window duration as whole days.
func WindowLabel(window time.Duration) string {
	return fmt.Sprintf("%dd", int(window.Hours()/24))
}

// SummarizeBehavior digests one user's events within window. Events on
// products missing from the catalog still count toward frequency but not
// toward brand or category breadth.
func SummarizeBehavior(userID int, events []InteractionEvent, catalog *Catalog, window time.Duration, now time.Time) BehaviorSummary {
	summary := BehaviorSummary{
		UserID:     userID,
		Window:     WindowLabel(window),
		ComputedAt: now,
	}

	cutoff := now.Add(-window)
	brands := make(map[string]struct{})
	categories := make(map[int]struct{})
	carted := make(map[int]struct{})
	purchased := make(map[int]struct{})
	purchases := 0

	for i := range events {
		ev := &events[i]
		if ev.UserID != userID || ev.Timestamp.Before(cutoff) {
			continue
		}
		summary.Interactions++
		if ev.Timestamp.After(summary.LastActive) {
			summary.LastActive = ev.Timestamp
		}

		switch {
		case ev.Type == EventPurchase, ev.Type == EventRecoInteraction && ev.Action == "purchase":
			purchases++
			purchased[ev.ProductID] = struct{}{}
		case ev.Type == EventCart, ev.Type == EventRecoInteraction && ev.Action == "cart":
			carted[ev.ProductID] = struct{}{}
		}

		if catalog == nil {
			continue
		}
		if p, ok := catalog.Product(ev.ProductID); ok {
			categories[p.CategoryID] = struct{}{}
			if p.Brand != "" {
				brands[p.Brand] = struct{}{}
			}
		}
	}

	if days := window.Hours() / 24; days > 0 {
		summary.PurchaseFrequency = float64(purchases) * 30 / days
	}
	if len(carted) > 0 {
		abandoned := 0
		for id := range carted {
			if _, ok := purchased[id]; !ok {
				abandoned++
			}
		}
		summary.CartAbandonRate = float64(abandoned) / float64(len(carted))
	}
	summary.BrandBreadth = len(brands)
	summary.CategoryBreadth = len(categories)

	return summary
}
