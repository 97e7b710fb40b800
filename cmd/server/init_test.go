// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package main

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/config"
	"github.com/tomtom215/vitrine/internal/database"
	"github.com/tomtom215/vitrine/internal/recommend"
	"github.com/tomtom215/vitrine/internal/recommend/optimizer"
)

func testConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{
			Path:        ":memory:",
			MaxMemory:   "512MB",
			SkipIndexes: true,
		},
		Recommend: *recommend.DefaultConfig(),
		Optimizer: config.OptimizerConfig{
			Period:            "daily",
			Interval:          time.Hour,
			MinInteractions:   100,
			BehaviorWindow:    90 * 24 * time.Hour,
			AttributionWindow: 24 * time.Hour,
			BufferSize:        16,
		},
		ModelStore: config.ModelStoreConfig{Enabled: true, InMemory: true, Retain: 2},
	}
}

func openTestDB(t *testing.T, cfg *config.Config) *database.DB {
	t.Helper()
	db, err := database.New(&cfg.Database)
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return db
}

func TestInitRecommendAndOutcomes(t *testing.T) {
	cfg := testConfig()
	cfg.Recommend.Rerank.Enabled = true
	db := openTestDB(t, cfg)
	ctx := context.Background()

	rec, err := initRecommend(ctx, cfg, db, zerolog.Nop())
	if err != nil {
		t.Fatalf("initRecommend() error = %v", err)
	}
	t.Cleanup(func() {
		if err := rec.Close(); err != nil {
			t.Errorf("rec.Close() error = %v", err)
		}
	})

	if rec.Store == nil {
		t.Error("Store = nil, want an in-memory model store")
	}
	if got := len(rec.Engine.Status().Scorers); got != 5 {
		t.Errorf("registered scorers = %d, want 5", got)
	}

	outcomes, err := initOutcomes(cfg, db, rec.Engine, zerolog.Nop())
	if err != nil {
		t.Fatalf("initOutcomes() error = %v", err)
	}
	t.Cleanup(func() {
		if err := outcomes.Close(); err != nil {
			t.Errorf("outcomes.Close() error = %v", err)
		}
	})

	if outcomes.ServiceConfig.Period != optimizer.PeriodDaily {
		t.Errorf("Period = %q, want daily", outcomes.ServiceConfig.Period)
	}
	if outcomes.ServiceConfig.Interval != time.Hour {
		t.Errorf("Interval = %v, want 1h", outcomes.ServiceConfig.Interval)
	}

	// An empty catalog still answers through the fallback path.
	resp, err := rec.Engine.Recommend(ctx, recommend.Request{UserID: 1, Limit: 5})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(resp.Items) != 0 {
		t.Errorf("len(Items) = %d, want 0 on an empty catalog", len(resp.Items))
	}
}

func TestInitRecommend_StoreDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.ModelStore.Enabled = false
	db := openTestDB(t, cfg)

	rec, err := initRecommend(context.Background(), cfg, db, zerolog.Nop())
	if err != nil {
		t.Fatalf("initRecommend() error = %v", err)
	}
	if rec.Store != nil {
		t.Error("Store should be nil when the model store is disabled")
	}
	if err := rec.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestInitOutcomes_InvalidPeriod(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Optimizer.Period = "hourly"

	if _, err := initOutcomes(cfg, nil, nil, zerolog.Nop()); err == nil {
		t.Error("initOutcomes(hourly) should fail")
	}
}
