// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package main

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/config"
	"github.com/tomtom215/vitrine/internal/database"
	"github.com/tomtom215/vitrine/internal/logging"
	"github.com/tomtom215/vitrine/internal/recommend"
	"github.com/tomtom215/vitrine/internal/recommend/optimizer"
	"github.com/tomtom215/vitrine/internal/supervisor/services"
)

// OutcomeComponents holds the outcome pipeline: served lists and interactions
// are published on an in-process bus and written to recommendation_logs by
// the sink, which the optimizer later reads.
type OutcomeComponents struct {
	PubSub    *gochannel.GoChannel
	Recorder  *optimizer.Recorder
	Sink      *optimizer.Sink
	Optimizer *optimizer.Optimizer

	// ServiceConfig is the schedule of the background optimizer.
	ServiceConfig services.OptimizerServiceConfig
}

// Close shuts the bus down. Publishing after Close fails.
func (c *OutcomeComponents) Close() error {
	return c.PubSub.Close()
}

// initOutcomes wires the outcome bus to the engine and the optimizer back
// into the engine's weight cache.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initOutcomes(cfg *config.Config, db *database.DB, engine *recommend.Engine, logger zerolog.Logger) (*OutcomeComponents, error) {
	period, err := optimizer.ParsePeriod(cfg.Optimizer.Period)
	if err != nil {
		return nil, fmt.Errorf("optimizer period: %w", err)
	}

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.Optimizer.BufferSize,
	}, logging.NewWatermillLogger(logger))

	recorder := optimizer.NewRecorder(pubsub, cfg.Optimizer.Topic, time.Now, logger)
	sink := optimizer.NewSink(pubsub, cfg.Optimizer.Topic, db, cfg.Optimizer.AttributionWindow, logger)
	engine.SetOutcomeRecorder(recorder)

	opt := optimizer.New(db, db, cfg.OptimizerSettings(), logger)
	opt.OnUpdate(func(w recommend.AlgorithmWeights) {
		engine.InvalidateWeights()
		logger.Info().
			Float64("neural", w.Neural).
			Float64("collaborative", w.Collaborative).
			Float64("content", w.Content).
			Float64("matrix", w.Matrix).
			Float64("popular", w.Popular).
			Msg("Blend weights updated")
	})
	opt.OnBehaviorRefresh(engine.InvalidateBehavior)

	return &OutcomeComponents{
		PubSub:    pubsub,
		Recorder:  recorder,
		Sink:      sink,
		Optimizer: opt,
		ServiceConfig: services.OptimizerServiceConfig{
			Period:   period,
			Interval: cfg.Optimizer.Interval,
		},
	}, nil
}
