// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/vitrine/internal/logging"
	"github.com/tomtom215/vitrine/internal/recommend"
	"github.com/tomtom215/vitrine/internal/validation"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 16

// SimilarResponse is the payload of the similar-products endpoint.
type SimilarResponse struct {
	ProductID int                       `json:"product_id"`
	Source    string                    `json:"source"`
	Items     []recommend.ScoredProduct `json:"items"`
}

// GetRecommendations handles GET /api/v1/recommendations/user/{userID}.
// The blender never fails a request while the catalog is readable; only a
// catalog outage on the fallback path yields 503.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, err := pathInt(chi.URLParam(r, "userID"))
	if err != nil {
		rw.BadRequest(ErrCodeInvalidParameter, "userID must be a positive integer")
		return
	}

	p := newQueryParser(r.URL.Query())
	req := RecommendationsRequest{
		UserID:           userID,
		Limit:            p.Int("limit", 0),
		IncludeReasons:   p.Bool("include_reasons", false),
		FilterInteracted: p.Bool("filter_interacted", h.config.FilterInteractedDefault),
		CategoryID:       p.Int("category_id", 0),
		Brand:            p.String("brand", ""),
		MinPrice:         p.Float("min_price", 0),
		MaxPrice:         p.Float("max_price", 0),
		Search:           p.String("q", ""),
		Page:             p.String("page", ""),
		SeasonFocus:      p.Bool("season_focus", false),
	}
	if err := p.Err(); err != nil {
		rw.BadRequest(ErrCodeInvalidParameter, err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr)
		return
	}

	ctx, cancel := context.WithTimeout(logging.ContextWithUserID(r.Context(), userID), h.config.RequestTimeout)
	defer cancel()

	resp, err := h.deps.Engine.Recommend(ctx, req.ToRequest(logging.RequestIDFromContext(ctx)))
	if err != nil {
		if errors.Is(err, recommend.ErrCatalogUnavailable) {
			logging.CtxErr(ctx, err).Msg("Recommendation failed")
			rw.ServiceUnavailable("Product catalog unavailable")
			return
		}
		rw.InternalError("Failed to generate recommendations", err)
		return
	}
	rw.Success(resp)
}

// GetSimilarProducts handles GET /api/v1/recommendations/product/{productID}/similar.
// source=content (default) ranks by attribute similarity; collaborative
// ranks by the item-item rating similarity.
func (h *Handler) GetSimilarProducts(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	productID, err := pathInt(chi.URLParam(r, "productID"))
	if err != nil {
		rw.BadRequest(ErrCodeInvalidParameter, "productID must be a positive integer")
		return
	}

	p := newQueryParser(r.URL.Query())
	req := SimilarRequest{
		ProductID: productID,
		K:         p.Int("k", h.config.DefaultSimilarK),
		Source:    p.String("source", SourceContent),
	}
	if err := p.Err(); err != nil {
		rw.BadRequest(ErrCodeInvalidParameter, err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.config.RequestTimeout)
	defer cancel()

	var items []recommend.ScoredProduct
	switch req.Source {
	case SourceCollaborative:
		if h.deps.Collaborative == nil {
			rw.ServiceUnavailable("Collaborative similarity is not enabled")
			return
		}
		items, err = h.deps.Collaborative.FindSimilarItems(ctx, req.ProductID, req.K)
	default:
		if h.deps.Content == nil {
			rw.ServiceUnavailable("Content similarity is not enabled")
			return
		}
		items, err = h.deps.Content.FindSimilarProducts(ctx, req.ProductID, req.K, recommend.Filters{})
	}
	if err != nil {
		rw.InternalError("Failed to find similar products", err)
		return
	}
	if items == nil {
		items = []recommend.ScoredProduct{}
	}

	rw.Success(SimilarResponse{ProductID: req.ProductID, Source: req.Source, Items: items})
}

// RecordInteraction handles POST /api/v1/recommendations/interactions.
// The event is published to the outcome log and attributed asynchronously,
// so the response is 202.
func (h *Handler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.deps.Interactions == nil {
		rw.ServiceUnavailable("Outcome logging is not enabled")
		return
	}

	var req InteractionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		rw.BadRequest(ErrCodeBadRequest, "Invalid JSON body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr)
		return
	}

	if err := h.deps.Interactions.RecordInteraction(r.Context(), req.UserID, req.ProductID, req.Action); err != nil {
		rw.InternalError("Failed to record interaction", err)
		return
	}
	rw.Accepted(req)
}

// GetStatus handles GET /api/v1/recommendations/status.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"engine": h.deps.Engine.Status(),
	}
	if h.deps.OutcomeSink != nil {
		data["outcome_sink"] = h.deps.OutcomeSink.Stats()
	}
	if h.deps.Optimizer != nil {
		if last := h.deps.Optimizer.LastResult(); last != nil {
			data["last_optimization"] = last
		}
	}
	NewResponseWriter(w, r).Success(data)
}
