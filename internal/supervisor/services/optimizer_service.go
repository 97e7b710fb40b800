// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/recommend/optimizer"
)

// WeightOptimizer is the scheduled part of the optimizer.
type WeightOptimizer interface {
	Run(ctx context.Context, period optimizer.Period) (*optimizer.Result, error)
	RefreshBehaviorSummaries(ctx context.Context) (int, error)
}

// OptimizerServiceConfig holds the schedule of the optimizer service.
type OptimizerServiceConfig struct {
	// Period is the outcome window of each run.
	Period optimizer.Period

	// Interval is the time between runs.
	// Default: 24 hours.
	Interval time.Duration

	// RunOnStartup performs one run as soon as the service starts.
	RunOnStartup bool
}

// OptimizerService periodically recomputes blend weights from the outcome
// log and refreshes the per-user behavior summaries.
type OptimizerService struct {
	optimizer WeightOptimizer
	config    OptimizerServiceConfig
	logger    zerolog.Logger
	name      string
}

// NewOptimizerService creates a new optimizer service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewOptimizerService(opt WeightOptimizer, cfg OptimizerServiceConfig, logger zerolog.Logger) *OptimizerService {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.Period == "" {
		cfg.Period = optimizer.PeriodWeekly
	}
	return &OptimizerService{
		optimizer: opt,
		config:    cfg,
		logger:    logger.With().Str("service", "optimizer").Logger(),
		name:      "optimizer-service",
	}
}

// Serve implements the suture.Service interface.
func (s *OptimizerService) Serve(ctx context.Context) error {
	s.logger.Info().
		Str("period", string(s.config.Period)).
		Dur("interval", s.config.Interval).
		Msg("optimizer service starting")

	if s.config.RunOnStartup {
		s.cycle(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("optimizer service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

// cycle runs the optimizer and then the behavior summaries. A failed step is
// logged and does not skip the other.
func (s *OptimizerService) cycle(ctx context.Context) {
	if _, err := s.optimizer.Run(ctx, s.config.Period); err != nil {
		s.logger.Error().Err(err).Msg("weight optimization failed")
	}
	if _, err := s.optimizer.RefreshBehaviorSummaries(ctx); err != nil {
		s.logger.Error().Err(err).Msg("behavior summary refresh failed")
	}
}

// String returns the service name for logging.
func (s *OptimizerService) String() string {
	return s.name
}
