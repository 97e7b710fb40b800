// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package api

import (
	"context"
	"net/http"

	"github.com/tomtom215/vitrine/internal/recommend"
	"github.com/tomtom215/vitrine/internal/recommend/optimizer"
	"github.com/tomtom215/vitrine/internal/validation"
)

// WeightsResponse is the payload of the weights endpoint.
type WeightsResponse struct {
	Weights          recommend.AlgorithmWeights `json:"weights"`
	LastOptimization *optimizer.Result          `json:"last_optimization,omitempty"`
}

// GetWeights handles GET /api/v1/recommendations/weights.
func (h *Handler) GetWeights(w http.ResponseWriter, r *http.Request) {
	resp := WeightsResponse{Weights: h.deps.Engine.Weights(r.Context())}
	if h.deps.Optimizer != nil {
		resp.LastOptimization = h.deps.Optimizer.LastResult()
	}
	NewResponseWriter(w, r).Success(resp)
}

// parsePeriod validates the period query parameter. An absent period is weekly.
func parsePeriod(rw *ResponseWriter, r *http.Request) (optimizer.Period, bool) {
	req := PeriodRequest{Period: r.URL.Query().Get("period")}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr)
		return "", false
	}
	period, err := optimizer.ParsePeriod(req.Period)
	if err != nil {
		rw.BadRequest(ErrCodeInvalidParameter, err.Error())
		return "", false
	}
	return period, true
}

// GetABReport handles GET /api/v1/recommendations/ab-report?period=.
func (h *Handler) GetABReport(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.deps.Optimizer == nil {
		rw.ServiceUnavailable("Optimizer is not enabled")
		return
	}
	period, ok := parsePeriod(rw, r)
	if !ok {
		return
	}

	report, err := h.deps.Optimizer.ABReport(r.Context(), period)
	if err != nil {
		rw.InternalError("Failed to build A/B report", err)
		return
	}
	rw.Success(report)
}

// RunOptimizer handles POST /api/v1/recommendations/optimize?period=.
// The run is synchronous; with too few interactions the result reports
// applied=false and the weights are unchanged.
func (h *Handler) RunOptimizer(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.deps.Optimizer == nil {
		rw.ServiceUnavailable("Optimizer is not enabled")
		return
	}
	period, ok := parsePeriod(rw, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.config.OptimizeTimeout)
	defer cancel()

	result, err := h.deps.Optimizer.Run(ctx, period)
	if err != nil {
		rw.InternalError("Weight optimization failed", err)
		return
	}
	rw.Success(result)
}
