// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package algorithms

import (
	"math"
	"sort"
	"time"

	"github.com/tomtom215/vitrine/internal/recommend"
)

// Behavior vector layout.
const (
	TopCategories = 10
	TopBrands     = 5

	offsetCategories = 0
	offsetBrands     = offsetCategories + TopCategories
	offsetPrice      = offsetBrands + TopBrands
	offsetTimeOfDay  = offsetPrice + 3
	offsetSeason     = offsetTimeOfDay + 4
	offsetScalars    = offsetSeason + 4

	// BehaviorDims is the length of a behavior feature vector.
	BehaviorDims = offsetScalars + 7

	// PreferenceDims is the length of a user-preference vector:
	// price, novelty, featured, view count.
	PreferenceDims = 4
)

// recencyHalfLife controls the recency-decayed affinities and the recency
// scalar.
const recencyHalfLife = 30 * 24 * time.Hour

// activityScale normalizes log-scaled activity: 1000 events map to 1.
var activityScale = math.Log1p(1000)

// Season indexes meteorological seasons (northern hemisphere).
type Season int

const (
	SeasonSpring Season = iota
	SeasonSummer
	SeasonAutumn
	SeasonWinter
)

// SeasonOf returns the season containing t.
func SeasonOf(t time.Time) Season {
	switch t.Month() {
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	case time.September, time.October, time.November:
		return SeasonAutumn
	default:
		return SeasonWinter
	}
}

// eventWeight is how much one event counts toward affinities.
func eventWeight(ev *recommend.InteractionEvent) float64 {
	action := ev.Action
	switch ev.Type {
	case recommend.EventPurchase:
		return 3
	case recommend.EventCart, recommend.EventWishlist:
		return 2
	case recommend.EventReview:
		if ev.Magnitude >= 4 {
			return 1.5
		}
		return 0.5
	case recommend.EventView:
		return 1
	case recommend.EventRecoInteraction:
		switch action {
		case "purchase":
			return 3
		case "cart":
			return 2
		case "view":
			return 1
		}
		return 0.5
	default:
		return 0
	}
}

// FeatureSpace fixes the categories, brands and scales a behavior vector is
// expressed in. Fields are exported so it can travel with a model snapshot.
type FeatureSpace struct {
	Categories    []int
	Brands        []string
	CategoryIndex map[int]int
	BrandIndex    map[string]int
	MaxPrice      float64
	MaxViews      int

	// SeasonShares[s][c] is the share of season s activity that landed in
	// top category c.
	SeasonShares [4][]float64

	NewWindow time.Duration
}

// BuildFeatureSpace ranks categories and brands by weighted activity across
// all users and keeps the top 10 and top 5. Ties break on ID or name.
func BuildFeatureSpace(catalog *recommend.Catalog, events []recommend.InteractionEvent, newWindow time.Duration) *FeatureSpace {
	catWeight := make(map[int]float64)
	brandWeight := make(map[string]float64)
	for i := range events {
		p, ok := catalog.Product(events[i].ProductID)
		if !ok {
			continue
		}
		w := eventWeight(&events[i])
		catWeight[p.CategoryID] += w
		if p.Brand != "" {
			brandWeight[p.Brand] += w
		}
	}

	categories := make([]int, 0, len(catWeight))
	for id := range catWeight {
		categories = append(categories, id)
	}
	sort.Slice(categories, func(i, j int) bool {
		wi, wj := catWeight[categories[i]], catWeight[categories[j]]
		if wi != wj {
			return wi > wj
		}
		return categories[i] < categories[j]
	})
	if len(categories) > TopCategories {
		categories = categories[:TopCategories]
	}

	brands := make([]string, 0, len(brandWeight))
	for b := range brandWeight {
		brands = append(brands, b)
	}
	sort.Slice(brands, func(i, j int) bool {
		wi, wj := brandWeight[brands[i]], brandWeight[brands[j]]
		if wi != wj {
			return wi > wj
		}
		return brands[i] < brands[j]
	})
	if len(brands) > TopBrands {
		brands = brands[:TopBrands]
	}

	s := &FeatureSpace{
		Categories:    categories,
		Brands:        brands,
		CategoryIndex: make(map[int]int, len(categories)),
		BrandIndex:    make(map[string]int, len(brands)),
		MaxViews:      catalog.MaxViewCount(),
		NewWindow:     newWindow,
	}
	for i, id := range categories {
		s.CategoryIndex[id] = i
	}
	for i, b := range brands {
		s.BrandIndex[b] = i
	}
	for _, p := range catalog.Products() {
		if p.Price > s.MaxPrice {
			s.MaxPrice = p.Price
		}
	}

	var seasonTotals [4]float64
	for i := range s.SeasonShares {
		s.SeasonShares[i] = make([]float64, TopCategories)
	}
	for i := range events {
		p, ok := catalog.Product(events[i].ProductID)
		if !ok {
			continue
		}
		season := SeasonOf(events[i].Timestamp)
		w := eventWeight(&events[i])
		seasonTotals[season] += w
		if c, ok := s.CategoryIndex[p.CategoryID]; ok {
			s.SeasonShares[season][c] += w
		}
	}
	for season := range s.SeasonShares {
		if seasonTotals[season] > 0 {
			for c := range s.SeasonShares[season] {
				s.SeasonShares[season][c] /= seasonTotals[season]
			}
		}
	}
	return s
}

// ProductPreference describes a product on the same axes as a user's
// preference vector, each in [0, 1].
func (s *FeatureSpace) ProductPreference(p *recommend.Product, now time.Time) [PreferenceDims]float64 {
	var v [PreferenceDims]float64
	if s.MaxPrice > 0 {
		v[0] = math.Min(1, p.Price/s.MaxPrice)
	}
	if !p.CreatedAt.IsZero() && now.Sub(p.CreatedAt) <= s.NewWindow {
		v[1] = 1
	}
	if p.IsFeatured {
		v[2] = 1
	}
	if s.MaxViews > 0 {
		v[3] = math.Min(1, float64(p.ViewCount)/float64(s.MaxViews))
	}
	return v
}

// BehaviorProfile is one user's behavior encoded in a FeatureSpace.
type BehaviorProfile struct {
	UserID int

	// Vector is the BehaviorDims-long network input.
	Vector []float64

	// Labels are the user's strong-interaction shares over the top
	// categories. Nil when the user has no strong interaction there.
	Labels []float64

	// Recency holds recency-decayed category affinities over the top
	// categories, normalized to sum to 1.
	Recency []float64

	// Preference is the mean ProductPreference of interacted products.
	Preference [PreferenceDims]float64

	Strong int
	Events int
}

// CategoryAffinities returns the static affinity slice of the vector.
func (b *BehaviorProfile) CategoryAffinities() []float64 {
	return b.Vector[offsetCategories : offsetCategories+TopCategories]
}

// BuildProfile encodes one user's events. Events on products missing from
// the catalog are ignored.
func (s *FeatureSpace) BuildProfile(userID int, events []recommend.InteractionEvent, catalog *recommend.Catalog, now time.Time) *BehaviorProfile {
	b := &BehaviorProfile{
		UserID:  userID,
		Vector:  make([]float64, BehaviorDims),
		Recency: make([]float64, TopCategories),
	}
	labels := make([]float64, TopCategories)
	categories := make(map[int]struct{})

	var (
		totalWeight, brandWeight float64
		priceSum                 float64
		priceMin                 = math.Inf(1)
		priceMax                 float64
		priced                   int
		wishlists, reviews       int
		reviewSum                float64
		lastActive               time.Time
		labelTotal, recencyTotal float64
	)

	for i := range events {
		ev := &events[i]
		if ev.UserID != userID {
			continue
		}
		p, ok := catalog.Product(ev.ProductID)
		if !ok {
			continue
		}
		b.Events++
		w := eventWeight(ev)
		totalWeight += w
		categories[p.CategoryID] = struct{}{}
		if ev.Timestamp.After(lastActive) {
			lastActive = ev.Timestamp
		}

		if c, ok := s.CategoryIndex[p.CategoryID]; ok {
			b.Vector[offsetCategories+c] += w
			decay := math.Exp2(-now.Sub(ev.Timestamp).Hours() / recencyHalfLife.Hours())
			b.Recency[c] += w * decay
			recencyTotal += w * decay
			if ev.Strong() {
				labels[c] += w
				labelTotal += w
			}
		}
		if bi, ok := s.BrandIndex[p.Brand]; ok && p.Brand != "" {
			b.Vector[offsetBrands+bi] += w
		}
		brandWeight += w

		if s.MaxPrice > 0 {
			norm := p.Price / s.MaxPrice
			priceSum += norm
			priceMin = math.Min(priceMin, norm)
			priceMax = math.Max(priceMax, norm)
			priced++
		}

		hour := ev.Timestamp.Hour()
		b.Vector[offsetTimeOfDay+hour/6]++
		b.Vector[offsetSeason+int(SeasonOf(ev.Timestamp))]++

		switch ev.Type {
		case recommend.EventWishlist:
			wishlists++
		case recommend.EventReview:
			reviews++
			reviewSum += ev.Magnitude
		}
		if ev.Strong() {
			b.Strong++
		}

		pref := s.ProductPreference(p, now)
		for k := range b.Preference {
			b.Preference[k] += pref[k]
		}
	}

	if b.Events == 0 {
		return b
	}

	normalize := func(v []float64, total float64) {
		if total <= 0 {
			return
		}
		for i := range v {
			v[i] /= total
		}
	}
	normalize(b.Vector[offsetCategories:offsetCategories+TopCategories], totalWeight)
	normalize(b.Vector[offsetBrands:offsetBrands+TopBrands], brandWeight)
	normalize(b.Vector[offsetTimeOfDay:offsetTimeOfDay+4], float64(b.Events))
	normalize(b.Vector[offsetSeason:offsetSeason+4], float64(b.Events))
	normalize(b.Recency, recencyTotal)
	for k := range b.Preference {
		b.Preference[k] /= float64(b.Events)
	}

	if priced > 0 {
		b.Vector[offsetPrice] = priceSum / float64(priced)
		b.Vector[offsetPrice+1] = priceMin
		b.Vector[offsetPrice+2] = priceMax
	}

	summary := recommend.SummarizeBehavior(userID, events, catalog, 90*24*time.Hour, now)
	b.Vector[offsetScalars] = math.Min(1, summary.PurchaseFrequency/10)
	b.Vector[offsetScalars+1] = summary.CartAbandonRate
	b.Vector[offsetScalars+2] = math.Exp2(-now.Sub(lastActive).Hours() / recencyHalfLife.Hours())
	b.Vector[offsetScalars+3] = float64(wishlists) / float64(b.Events)
	if reviews > 0 {
		b.Vector[offsetScalars+4] = reviewSum / float64(reviews) / recommend.MaxRating
	}
	b.Vector[offsetScalars+5] = math.Min(1, math.Log1p(float64(b.Events))/activityScale)
	b.Vector[offsetScalars+6] = math.Min(1, float64(len(categories))/float64(TopCategories))

	if labelTotal > 0 {
		normalize(labels, labelTotal)
		b.Labels = labels
	}
	return b
}

// BuildProfiles encodes every user in the snapshot.
func (s *FeatureSpace) BuildProfiles(snapshot *recommend.InteractionSnapshot, catalog *recommend.Catalog, now time.Time) []*BehaviorProfile {
	users := snapshot.UserIDs()
	out := make([]*BehaviorProfile, 0, len(users))
	for _, u := range users {
		p := s.BuildProfile(u, snapshot.UserEvents(u), catalog, now)
		if p.Events > 0 {
			out = append(out, p)
		}
	}
	return out
}

// preferenceSimilarity is 1 minus the mean absolute difference, in [0, 1].
func preferenceSimilarity(a, b [PreferenceDims]float64) float64 {
	var diff float64
	for i := range a {
		diff += math.Abs(a[i] - b[i])
	}
	return 1 - diff/PreferenceDims
}
