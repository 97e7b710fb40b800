// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package recommend

import (
	"context"
	"time"
)

// Algorithm names used for weights, tagging and outcome attribution.
const (
	AlgorithmNeural          = "neural"
	AlgorithmCollaborative   = "collaborative"
	AlgorithmContent         = "content"
	AlgorithmMatrix          = "matrix"
	AlgorithmPopular         = "popular"
	AlgorithmPopularFallback = "popular_fallback"
)

// Response strategies.
const (
	StrategyHybrid          = "hybrid"
	StrategyPopularFallback = "popular_fallback"
)

// EventType classifies a raw interaction signal.
type EventType string

const (
	// EventView is a product page view; Magnitude carries the view count.
	EventView EventType = "view"
	// EventCart is an add-to-cart.
	EventCart EventType = "cart"
	// EventPurchase is a completed order line; Magnitude carries the quantity.
	EventPurchase EventType = "purchase"
	// EventReview is a product review; Magnitude carries the 1-5 rating.
	EventReview EventType = "review"
	// EventWishlist is a wishlist add.
	EventWishlist EventType = "wishlist"
	// EventRecoInteraction is an interaction with a served recommendation;
	// Action carries view, cart or purchase.
	EventRecoInteraction EventType = "reco_interaction"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventView, EventCart, EventPurchase, EventReview, EventWishlist, EventRecoInteraction:
		return true
	default:
		return false
	}
}

// InteractionEvent is a single user-product signal read from the interaction store.
type InteractionEvent struct {
	// UserID identifies the user.
	UserID int `json:"user_id"`

	// ProductID identifies the product.
	ProductID int `json:"product_id"`

	// Type classifies the signal.
	Type EventType `json:"type"`

	// Magnitude is the type-specific strength (view count, quantity, rating).
	Magnitude float64 `json:"magnitude"`

	// Action is the recommendation interaction type for reco_interaction events.
	Action string `json:"action,omitempty"`

	// Timestamp is when the signal was last updated.
	Timestamp time.Time `json:"timestamp"`
}

// Strong reports whether the event expresses intent beyond browsing.
func (e *InteractionEvent) Strong() bool {
	switch e.Type {
	case EventPurchase, EventCart, EventWishlist:
		return true
	case EventReview:
		return e.Magnitude >= 4
	case EventRecoInteraction:
		return e.Action == "cart" || e.Action == "purchase"
	default:
		return false
	}
}

// Engaged reports whether the event counts as the user having interacted
// with the product for the already-interacted filter.
func (e *InteractionEvent) Engaged() bool {
	switch e.Type {
	case EventView, EventCart, EventPurchase:
		return true
	case EventRecoInteraction:
		return e.Action == "view" || e.Action == "cart" || e.Action == "purchase"
	default:
		return false
	}
}

// Product is a catalog entry.
type Product struct {
	// ID is the product identifier.
	ID int `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Description is the free-text description.
	Description string `json:"description"`

	// CategoryID is the catalog category.
	CategoryID int `json:"category_id"`

	// Brand is the manufacturer or label.
	Brand string `json:"brand,omitempty"`

	// Price is the current unit price.
	Price float64 `json:"price"`

	// Stock is the units available.
	Stock int `json:"stock"`

	// IsFeatured marks merchandised products.
	IsFeatured bool `json:"is_featured"`

	// ViewCount is the catalog-wide view counter.
	ViewCount int `json:"view_count"`

	// CreatedAt is when the product was listed.
	CreatedAt time.Time `json:"created_at"`
}

// InStock reports whether the product can be sold.
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// PriceRange bounds a price filter. A zero Max means unbounded.
type PriceRange struct {
	Min float64 `json:"min" validate:"gte=0"`
	Max float64 `json:"max" validate:"gte=0"`
}

// Contains reports whether price lies within the range.
func (r *PriceRange) Contains(price float64) bool {
	if price < r.Min {
		return false
	}
	return r.Max <= 0 || price <= r.Max
}

// Filters restricts candidate products.
type Filters struct {
	CategoryID int         `json:"category_id,omitempty"`
	Brand      string      `json:"brand,omitempty"`
	PriceRange *PriceRange `json:"price_range,omitempty"`
}

// IsZero reports whether no filter is set.
func (f *Filters) IsZero() bool {
	return f.CategoryID == 0 && f.Brand == "" && f.PriceRange == nil
}

// Match reports whether p passes every set filter.
func (f *Filters) Match(p *Product) bool {
	if f.CategoryID != 0 && p.CategoryID != f.CategoryID {
		return false
	}
	if f.Brand != "" && p.Brand != f.Brand {
		return false
	}
	if f.PriceRange != nil && !f.PriceRange.Contains(p.Price) {
		return false
	}
	return true
}

// RequestContext carries optional browsing context used for filtering and weighting.
type RequestContext struct {
	// CategoryID is the category being browsed.
	CategoryID int `json:"category_id,omitempty"`

	// Brand restricts results to one brand.
	Brand string `json:"brand,omitempty"`

	// PriceRange restricts results to a price band.
	PriceRange *PriceRange `json:"price_range,omitempty"`

	// SearchQuery is the active search text.
	SearchQuery string `json:"search_query,omitempty"`

	// CurrentPage identifies the page requesting recommendations.
	CurrentPage string `json:"current_page,omitempty"`

	// SeasonFocus boosts seasonal and popular products.
	SeasonFocus bool `json:"season_focus,omitempty"`
}

// Filters derives the candidate filters implied by the context.
func (c *RequestContext) Filters() Filters {
	return Filters{
		CategoryID: c.CategoryID,
		Brand:      c.Brand,
		PriceRange: c.PriceRange,
	}
}

// Request is a recommendation request.
type Request struct {
	// UserID is the user to recommend for.
	UserID int `json:"user_id"`

	// Limit is the number of products to return.
	Limit int `json:"limit"`

	// IncludeReasons adds a display reason to every item.
	IncludeReasons bool `json:"include_reasons"`

	// FilterInteracted drops recently viewed, carted or purchased products.
	FilterInteracted bool `json:"filter_interacted"`

	// Context carries optional browsing context.
	Context RequestContext `json:"context"`

	// RequestID is a unique request identifier for tracing.
	RequestID string `json:"request_id,omitempty"`
}

// ScoredProduct is one ranked recommendation.
type ScoredProduct struct {
	// ProductID is the recommended product.
	ProductID int `json:"product_id"`

	// Score is the algorithm or fused score (higher is better).
	Score float64 `json:"score"`

	// Algorithm is the algorithm credited with this item.
	Algorithm string `json:"algorithm"`

	// Reason is a short display reason.
	Reason string `json:"reason,omitempty"`
}

// ScoreRequest is the per-branch input the blender hands to each scorer.
type ScoreRequest struct {
	UserID  int
	Limit   int
	Filters Filters
	Context RequestContext
}

// ScoreResult is a scorer's ranked output and its confidence for this request.
type ScoreResult struct {
	Items      []ScoredProduct
	Confidence float64
}

// Scorer is one independently failing recommendation branch.
type Scorer interface {
	// Name returns the algorithm name used for weights and tagging.
	Name() string

	// Score returns a ranked list for the request. An empty list with a nil
	// error means the scorer has no data for this user.
	Score(ctx context.Context, req ScoreRequest) (ScoreResult, error)
}

// DataProvider abstracts catalog and interaction storage.
type DataProvider interface {
	// GetProducts returns the full catalog.
	GetProducts(ctx context.Context) ([]Product, error)

	// GetInteractionEvents returns all interaction events since the given time.
	GetInteractionEvents(ctx context.Context, since time.Time) ([]InteractionEvent, error)

	// GetUserEvents returns one user's interaction events since the given time.
	GetUserEvents(ctx context.Context, userID int, since time.Time) ([]InteractionEvent, error)
}

// WeightSource supplies the persisted algorithm weights. ok is false when
// nothing has been persisted yet.
type WeightSource interface {
	LoadWeights(ctx context.Context) (weights AlgorithmWeights, ok bool, err error)
}

// BehaviorSource supplies durable per-user behavior summaries. A nil summary
// with a nil error means none has been computed for the user.
type BehaviorSource interface {
	LoadBehaviorSummary(ctx context.Context, userID int) (*BehaviorSummary, error)
}

// OutcomeRecorder receives every served recommendation list.
type OutcomeRecorder interface {
	RecordServed(ctx context.Context, req *Request, resp *Response) error
}

// Response is a ranked recommendation list.
type Response struct {
	// Items are the ranked recommendations.
	Items []ScoredProduct `json:"items"`

	// Strategy is hybrid or popular_fallback.
	Strategy string `json:"strategy"`

	// Degraded is set when every scorer failed.
	Degraded bool `json:"degraded"`

	// Metadata describes how the response was produced.
	Metadata ResponseMetadata `json:"metadata"`
}

// ResponseMetadata describes how a response was produced.
type ResponseMetadata struct {
	// RequestID is the request identifier.
	RequestID string `json:"request_id"`

	// UserID is the requesting user.
	UserID int `json:"user_id"`

	// GeneratedAt is when the response was produced.
	GeneratedAt time.Time `json:"generated_at"`

	// LatencyMS is the end-to-end latency in milliseconds.
	LatencyMS int64 `json:"latency_ms"`

	// Weights are the effective per-algorithm weights after multipliers.
	Weights map[string]float64 `json:"weights,omitempty"`

	// Algorithms reports the outcome of every scorer branch.
	Algorithms []AlgorithmOutcome `json:"algorithms"`

	// CandidateCount is the number of distinct fused products before filtering.
	CandidateCount int `json:"candidate_count"`

	// FilteredCount is the number of products removed as already interacted.
	FilteredCount int `json:"filtered_count"`
}

// Outcome statuses for a scorer branch.
const (
	OutcomeOK       = "ok"
	OutcomeEmpty    = "empty"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
	OutcomePanic    = "panic"
	OutcomeRejected = "rejected"
)

// AlgorithmOutcome reports the outcome of one scorer branch.
type AlgorithmOutcome struct {
	Algorithm  string  `json:"algorithm"`
	Status     string  `json:"status"`
	Items      int     `json:"items"`
	Confidence float64 `json:"confidence"`
	LatencyMS  int64   `json:"latency_ms"`
	Error      string  `json:"error,omitempty"`
}

// Failed reports whether the branch produced no usable output because of a failure.
func (o *AlgorithmOutcome) Failed() bool {
	switch o.Status {
	case OutcomeError, OutcomeTimeout, OutcomePanic, OutcomeRejected:
		return true
	default:
		return false
	}
}
