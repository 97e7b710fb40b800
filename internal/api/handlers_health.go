// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package api

import (
	"context"
	"net/http"
	"time"
)

// HealthStatus is the payload of /health.
type HealthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	DatabaseConnected bool    `json:"database_connected"`
	ModelsTrained     bool    `json:"models_trained"`
	Uptime            float64 `json:"uptime_seconds"`
}

// Health handles GET /health. It answers 200 while the database is
// reachable (models may still be training; the popularity path serves in
// the meantime) and 503 otherwise.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbConnected := h.deps.DB == nil || h.deps.DB.Ping(ctx) == nil
	status := h.deps.Engine.Status()

	health := HealthStatus{
		Status:            "healthy",
		Version:           h.config.Version,
		DatabaseConnected: dbConnected,
		ModelsTrained:     status.Training.Runs > 0,
		Uptime:            time.Since(h.startTime).Seconds(),
	}

	rw := NewResponseWriter(w, r)
	if !dbConnected {
		health.Status = "unhealthy"
		rw.WithStatus(http.StatusServiceUnavailable, health)
		return
	}
	rw.Success(health)
}
