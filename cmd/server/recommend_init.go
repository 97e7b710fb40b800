// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/cache"
	"github.com/tomtom215/vitrine/internal/config"
	"github.com/tomtom215/vitrine/internal/database"
	"github.com/tomtom215/vitrine/internal/recommend"
	"github.com/tomtom215/vitrine/internal/recommend/algorithms"
	"github.com/tomtom215/vitrine/internal/recommend/reranking"
	"github.com/tomtom215/vitrine/internal/recommend/storage"
)

// RecommendComponents holds the engine and the scorers the API queries directly.
type RecommendComponents struct {
	Engine        *recommend.Engine
	Content       *algorithms.ContentEngine
	Collaborative *algorithms.ItemSimilarity

	// Store is nil when the model store is disabled.
	Store *storage.Store
}

// Close releases the model store.
func (c *RecommendComponents) Close() error {
	if c.Store == nil {
		return nil
	}
	return c.Store.Close()
}

// initRecommend builds the corpus, registers every scorer and restores
// stored model snapshots.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initRecommend(ctx context.Context, cfg *config.Config, db *database.DB, logger zerolog.Logger) (*RecommendComponents, error) {
	rc := &cfg.Recommend

	manager := cache.NewManager(cache.ManagerConfig{RefreshAsync: rc.Cache.RefreshAsync}, logger)
	corpus := recommend.NewCorpus(db, recommend.NewAggregator(), manager, rc, logger)

	engine, err := recommend.NewEngine(rc, corpus, logger)
	if err != nil {
		return nil, fmt.Errorf("create recommendation engine: %w", err)
	}
	engine.SetWeightSource(db)
	engine.SetBehaviorSource(db)

	components := &RecommendComponents{Engine: engine}

	// A nil *storage.Store must not reach the scorers as a non-nil interface.
	var snapshots algorithms.SnapshotStore
	if cfg.ModelStore.Enabled {
		store, err := storage.Open(storage.Options{
			Path:     cfg.ModelStore.Path,
			InMemory: cfg.ModelStore.InMemory,
			Retain:   cfg.ModelStore.Retain,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("open model store: %w", err)
		}
		components.Store = store
		snapshots = store
	} else {
		logger.Info().Msg("Model store disabled, models retrain on every start")
	}

	neural := algorithms.NewNeuralScorer(corpus, rc, snapshots, logger)
	latent := algorithms.NewLatentFactor(corpus, rc, snapshots, logger)
	components.Content = algorithms.NewContentEngine(corpus, rc, logger)
	components.Collaborative = algorithms.NewItemSimilarity(corpus, rc, logger)
	popularity := algorithms.NewPopularity(corpus, logger)

	engine.RegisterScorer(neural)
	engine.RegisterScorer(components.Collaborative)
	engine.RegisterScorer(components.Content)
	engine.RegisterScorer(latent)
	engine.RegisterScorer(popularity)
	engine.SetFallback(popularity)

	if rc.Rerank.Enabled {
		engine.SetReranker(reranking.NewMMR(rc.Rerank.Lambda, components.Content, logger))
		logger.Info().Float64("lambda", rc.Rerank.Lambda).Msg("MMR diversity reranking enabled")
	}

	if snapshots != nil {
		if err := latent.Restore(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to restore latent model, it will be retrained")
		}
		if err := neural.Restore(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to restore neural model, it will be retrained")
		}
	}

	logger.Info().
		Bool("breakers", rc.Breaker.Enabled).
		Bool("train_on_startup", rc.TrainOnStartup).
		Dur("refresh_interval", rc.RefreshInterval).
		Msg("Recommendation engine initialized")

	return components, nil
}
