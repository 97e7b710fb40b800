// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package api

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/tomtom215/vitrine/internal/recommend"
)

// Similar-product sources.
const (
	SourceContent       = "content"
	SourceCollaborative = "collaborative"
)

// RecommendationsRequest holds the validated parameters of
// GET /api/v1/recommendations/user/{userID}.
type RecommendationsRequest struct {
	UserID           int     `query:"user_id" validate:"gte=1"`
	Limit            int     `query:"limit" validate:"gte=0,lte=100"`
	IncludeReasons   bool    `query:"include_reasons"`
	FilterInteracted bool    `query:"filter_interacted"`
	CategoryID       int     `query:"category_id" validate:"gte=0"`
	Brand            string  `query:"brand" validate:"max=100"`
	MinPrice         float64 `query:"min_price" validate:"gte=0"`
	MaxPrice         float64 `query:"max_price" validate:"omitempty,gtefield=MinPrice"`
	Search           string  `query:"q" validate:"max=1000"`
	Page             string  `query:"page" validate:"max=200"`
	SeasonFocus      bool    `query:"season_focus"`
}

// ToRequest converts the parameters to an engine request. A price range is
// set only when either bound was given.
func (q *RecommendationsRequest) ToRequest(requestID string) recommend.Request {
	rc := recommend.RequestContext{
		CategoryID:  q.CategoryID,
		Brand:       q.Brand,
		SearchQuery: q.Search,
		CurrentPage: q.Page,
		SeasonFocus: q.SeasonFocus,
	}
	if q.MinPrice > 0 || q.MaxPrice > 0 {
		rc.PriceRange = &recommend.PriceRange{Min: q.MinPrice, Max: q.MaxPrice}
	}
	return recommend.Request{
		UserID:           q.UserID,
		Limit:            q.Limit,
		IncludeReasons:   q.IncludeReasons,
		FilterInteracted: q.FilterInteracted,
		Context:          rc,
		RequestID:        requestID,
	}
}

// SimilarRequest holds the validated parameters of
// GET /api/v1/recommendations/product/{productID}/similar.
type SimilarRequest struct {
	ProductID int    `query:"product_id" validate:"gte=1"`
	K         int    `query:"k" validate:"gte=1,lte=50"`
	Source    string `query:"source" validate:"oneof=content collaborative"`
}

// InteractionRequest is the body of POST /api/v1/recommendations/interactions.
type InteractionRequest struct {
	UserID    int    `json:"user_id" validate:"required,gt=0"`
	ProductID int    `json:"product_id" validate:"required,gt=0"`
	Action    string `json:"action" validate:"required,interaction_action"`
}

// PeriodRequest holds the period query parameter of the optimizer endpoints.
type PeriodRequest struct {
	Period string `query:"period" validate:"omitempty,period"`
}

// queryParser reads typed query parameters and keeps the first parse error.
type queryParser struct {
	values url.Values
	err    error
}

func newQueryParser(values url.Values) *queryParser {
	return &queryParser{values: values}
}

func (p *queryParser) Int(key string, def int) int {
	raw := p.values.Get(key)
	if raw == "" || p.err != nil {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.err = fmt.Errorf("%s must be an integer", key)
		return def
	}
	return v
}

func (p *queryParser) Float(key string, def float64) float64 {
	raw := p.values.Get(key)
	if raw == "" || p.err != nil {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.err = fmt.Errorf("%s must be a number", key)
		return def
	}
	return v
}

func (p *queryParser) Bool(key string, def bool) bool {
	raw := p.values.Get(key)
	if raw == "" || p.err != nil {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.err = fmt.Errorf("%s must be true or false", key)
		return def
	}
	return v
}

func (p *queryParser) String(key, def string) string {
	if raw := p.values.Get(key); raw != "" {
		return raw
	}
	return def
}

// Err returns the first parse error.
func (p *queryParser) Err() error {
	return p.err
}

// pathInt parses a positive integer path parameter.
func pathInt(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return v, nil
}
