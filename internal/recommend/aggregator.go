// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package recommend

import (
	"math"
	"sort"
)

// Rating bounds for explicit and derived ratings.
const (
	MinRating = 1.0
	MaxRating = 5.0
)

// RatingFunc converts one event into a rating. ok is false when the event
// carries no usable signal.
type RatingFunc func(ev *InteractionEvent) (rating float64, ok bool)

// RecoActionRatings are the ratings for interactions with served recommendations.
var RecoActionRatings = map[string]float64{
	"view":     2.0,
	"cart":     4.0,
	"purchase": 5.0,
}

// RecoActionDefaultRating applies to unrecognized recommendation actions.
const RecoActionDefaultRating = 1.0

// DefaultRatingRules returns the built-in event rating table.
func DefaultRatingRules() map[EventType]RatingFunc {
	return map[EventType]RatingFunc{
		EventView: func(ev *InteractionEvent) (float64, bool) {
			if ev.Magnitude <= 0 {
				return 0, false
			}
			return math.Min(ev.Magnitude*0.2, 3.0), true
		},
		EventPurchase: func(ev *InteractionEvent) (float64, bool) {
			return MaxRating, true
		},
		EventReview: func(ev *InteractionEvent) (float64, bool) {
			if ev.Magnitude <= 0 {
				return 0, false
			}
			return math.Max(MinRating, math.Min(MaxRating, ev.Magnitude)), true
		},
		EventRecoInteraction: func(ev *InteractionEvent) (float64, bool) {
			if r, ok := RecoActionRatings[ev.Action]; ok {
				return r, true
			}
			return RecoActionDefaultRating, true
		},
	}
}

// Aggregator turns interaction events into a RatingMatrix. It is immutable;
// WithRule returns a modified copy.
type Aggregator struct {
	rules map[EventType]RatingFunc
}

// NewAggregator creates an aggregator with the default rating rules.
func NewAggregator() *Aggregator {
	return &Aggregator{rules: DefaultRatingRules()}
}

// WithRule returns a copy of the aggregator with fn registered for t.
// A nil fn removes the rule.
func (a *Aggregator) WithRule(t EventType, fn RatingFunc) *Aggregator {
	rules := make(map[EventType]RatingFunc, len(a.rules)+1)
	for k, v := range a.rules {
		rules[k] = v
	}
	if fn == nil {
		delete(rules, t)
	} else {
		rules[t] = fn
	}
	return &Aggregator{rules: rules}
}

// Aggregate builds the rating matrix. For each (user, product) pair the
// maximum rating across events is kept. Events without a rule, events the
// rule rejects, and events on products absent from catalog are skipped.
// A nil catalog disables the product check.
func (a *Aggregator) Aggregate(events []InteractionEvent, catalog *Catalog) *RatingMatrix {
	ratings := make(map[int]map[int]float64)

	for i := range events {
		ev := &events[i]
		rule, ok := a.rules[ev.Type]
		if !ok {
			continue
		}
		if catalog != nil && !catalog.Contains(ev.ProductID) {
			continue
		}
		r, ok := rule(ev)
		if !ok || r <= 0 || math.IsNaN(r) {
			continue
		}

		row := ratings[ev.UserID]
		if row == nil {
			row = make(map[int]float64)
			ratings[ev.UserID] = row
		}
		if cur, exists := row[ev.ProductID]; !exists || r > cur {
			row[ev.ProductID] = r
		}
	}

	return NewRatingMatrix(ratings)
}

// Rating is a single (user, product, value) triple.
type Rating struct {
	UserID    int
	ProductID int
	Value     float64
}

// RatingMatrix is a sparse, immutable user x product rating matrix.
type RatingMatrix struct {
	ratings  map[int]map[int]float64
	users    []int
	products []int
	entries  int
}

// NewRatingMatrix wraps a prepared rating map. The map must not be modified afterwards.
func NewRatingMatrix(ratings map[int]map[int]float64) *RatingMatrix {
	m := &RatingMatrix{ratings: ratings}

	productSet := make(map[int]struct{})
	m.users = make([]int, 0, len(ratings))
	for u, row := range ratings {
		m.users = append(m.users, u)
		m.entries += len(row)
		for p := range row {
			productSet[p] = struct{}{}
		}
	}
	m.products = make([]int, 0, len(productSet))
	for p := range productSet {
		m.products = append(m.products, p)
	}
	sort.Ints(m.users)
	sort.Ints(m.products)

	return m
}

// Rating returns the stored rating for (userID, productID).
func (m *RatingMatrix) Rating(userID, productID int) (float64, bool) {
	r, ok := m.ratings[userID][productID]
	return r, ok
}

// HasUser reports whether the user has any rating.
func (m *RatingMatrix) HasUser(userID int) bool {
	return len(m.ratings[userID]) > 0
}

// UserRatings returns the user's ratings. The map is shared and must not be modified.
func (m *RatingMatrix) UserRatings(userID int) map[int]float64 {
	return m.ratings[userID]
}

// Users returns user IDs in ascending order.
func (m *RatingMatrix) Users() []int {
	return m.users
}

// Products returns rated product IDs in ascending order.
func (m *RatingMatrix) Products() []int {
	return m.products
}

// Len returns the number of stored ratings.
func (m *RatingMatrix) Len() int {
	return m.entries
}

// Triples returns every rating ordered by user then product.
func (m *RatingMatrix) Triples() []Rating {
	out := make([]Rating, 0, m.entries)
	for _, u := range m.users {
		row := m.ratings[u]
		ids := make([]int, 0, len(row))
		for p := range row {
			ids = append(ids, p)
		}
		sort.Ints(ids)
		for _, p := range ids {
			out = append(out, Rating{UserID: u, ProductID: p, Value: row[p]})
		}
	}
	return out
}
