// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// failureStreakAlert is the number of consecutive failed refreshes after
// which failures are logged at error level.
const failureStreakAlert = 3

// RecommendEngine is the part of the blender the model layer drives.
type RecommendEngine interface {
	// Train retrains every model-owning scorer.
	Train(ctx context.Context) error
	// Refresh rebuilds stale cache slots and then retrains.
	Refresh(ctx context.Context) error
}

// RecommendServiceConfig configures the refresh loop.
type RecommendServiceConfig struct {
	// TrainOnStartup runs one refresh before the first tick.
	TrainOnStartup bool
	// RefreshInterval defaults to 15 minutes.
	RefreshInterval time.Duration
	// TrainTimeout bounds one refresh and defaults to 30 minutes.
	TrainTimeout time.Duration
}

// RecommendService keeps the engine's caches and models fresh. A failed
// refresh is retried on the next tick; the service itself only exits on
// cancellation, so the engine keeps serving from the previous build.
type RecommendService struct {
	engine RecommendEngine
	config RecommendServiceConfig
	logger zerolog.Logger
	streak atomic.Int32
}

// NewRecommendService creates the service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRecommendService(engine RecommendEngine, cfg RecommendServiceConfig, logger zerolog.Logger) *RecommendService {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 15 * time.Minute
	}
	if cfg.TrainTimeout <= 0 {
		cfg.TrainTimeout = 30 * time.Minute
	}
	return &RecommendService{
		engine: engine,
		config: cfg,
		logger: logger.With().Str("service", "recommend").Logger(),
	}
}

// Serve implements suture.Service.
func (s *RecommendService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("train_on_startup", s.config.TrainOnStartup).
		Dur("refresh_interval", s.config.RefreshInterval).
		Msg("recommendation service starting")

	if s.config.TrainOnStartup {
		s.refresh(ctx, "startup")
	}

	ticker := time.NewTicker(s.config.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.refresh(ctx, "scheduled")
		}
	}
}

// FailureStreak returns the number of refreshes that failed in a row.
func (s *RecommendService) FailureStreak() int {
	return int(s.streak.Load())
}

func (s *RecommendService) refresh(ctx context.Context, trigger string) {
	refreshCtx, cancel := context.WithTimeout(ctx, s.config.TrainTimeout)
	defer cancel()

	start := time.Now()
	err := s.engine.Refresh(refreshCtx)
	if err == nil {
		s.streak.Store(0)
		s.logger.Info().Str("trigger", trigger).Dur("duration", time.Since(start)).Msg("refresh cycle complete")
		return
	}
	if ctx.Err() != nil {
		return
	}

	n := s.streak.Add(1)
	event := s.logger.Warn()
	if n >= failureStreakAlert {
		event = s.logger.Error()
	}
	event.Err(err).Str("trigger", trigger).Int32("consecutive_failures", n).Msg("refresh failed, serving previous build")
}

func (s *RecommendService) String() string { return "recommend-service" }
