// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package api

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/recommend"
	"github.com/tomtom215/vitrine/internal/recommend/optimizer"
)

// Recommender is the blender surface served by the API.
// Satisfied by *recommend.Engine.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Response, error)
	Weights(ctx context.Context) recommend.AlgorithmWeights
	Status() recommend.EngineStatus
}

// ContentSimilarity finds products with similar attributes.
// Satisfied by *algorithms.ContentEngine.
type ContentSimilarity interface {
	FindSimilarProducts(ctx context.Context, productID, k int, filters recommend.Filters) ([]recommend.ScoredProduct, error)
}

// CollaborativeSimilarity finds products rated alike by the same users.
// Satisfied by *algorithms.ItemSimilarity.
type CollaborativeSimilarity interface {
	FindSimilarItems(ctx context.Context, productID, k int) ([]recommend.ScoredProduct, error)
}

// InteractionRecorder publishes follow-up interactions to the outcome log.
// Satisfied by *optimizer.Recorder.
type InteractionRecorder interface {
	RecordInteraction(ctx context.Context, userID, productID int, action string) error
}

// WeightOptimizer runs and reports on weight optimization.
// Satisfied by *optimizer.Optimizer.
type WeightOptimizer interface {
	Run(ctx context.Context, period optimizer.Period) (*optimizer.Result, error)
	ABReport(ctx context.Context, period optimizer.Period) (*optimizer.ABReport, error)
	LastResult() *optimizer.Result
}

// OutcomeSinkStats exposes the outcome sink counters.
// Satisfied by *optimizer.Sink.
type OutcomeSinkStats interface {
	Stats() optimizer.SinkStats
}

// Pinger checks store connectivity. Satisfied by *database.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the components the handlers serve. Engine is required;
// endpoints whose component is nil answer 503.
type Dependencies struct {
	Engine        Recommender
	Content       ContentSimilarity
	Collaborative CollaborativeSimilarity
	Interactions  InteractionRecorder
	Optimizer     WeightOptimizer
	OutcomeSink   OutcomeSinkStats
	DB            Pinger
}

// HandlerConfig holds handler timeouts and defaults.
type HandlerConfig struct {
	// RequestTimeout bounds one recommendation request.
	// Default: 10s.
	RequestTimeout time.Duration

	// OptimizeTimeout bounds a manual optimizer run.
	// Default: 2m.
	OptimizeTimeout time.Duration

	// DefaultSimilarK is the similar-products count when k is absent.
	// Default: 10.
	DefaultSimilarK int

	// FilterInteractedDefault applies when filter_interacted is absent.
	// Default: true.
	FilterInteractedDefault bool

	// Version is reported by /health.
	Version string
}

// DefaultHandlerConfig returns production defaults.
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		RequestTimeout:          10 * time.Second,
		OptimizeTimeout:         2 * time.Minute,
		DefaultSimilarK:         10,
		FilterInteractedDefault: true,
		Version:                 "dev",
	}
}

// Handler serves the recommendation API.
type Handler struct {
	deps      Dependencies
	config    HandlerConfig
	logger    zerolog.Logger
	startTime time.Time
}

// NewHandler creates a handler. Zero config fields take defaults.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(deps Dependencies, cfg HandlerConfig, logger zerolog.Logger) *Handler {
	def := DefaultHandlerConfig()
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.OptimizeTimeout <= 0 {
		cfg.OptimizeTimeout = def.OptimizeTimeout
	}
	if cfg.DefaultSimilarK <= 0 {
		cfg.DefaultSimilarK = def.DefaultSimilarK
	}
	if cfg.Version == "" {
		cfg.Version = def.Version
	}
	return &Handler{
		deps:      deps,
		config:    cfg,
		logger:    logger.With().Str("component", "api").Logger(),
		startTime: time.Now(),
	}
}
