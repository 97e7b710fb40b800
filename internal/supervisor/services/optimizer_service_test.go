// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/recommend/optimizer"
)

type mockOptimizer struct {
	mu        sync.Mutex
	runs      []optimizer.Period
	summaries int
	runErr    error
}

func (m *mockOptimizer) Run(ctx context.Context, period optimizer.Period) (*optimizer.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, period)
	if m.runErr != nil {
		return nil, m.runErr
	}
	return &optimizer.Result{Period: period}, nil
}

func (m *mockOptimizer) RefreshBehaviorSummaries(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries++
	return 3, nil
}

func (m *mockOptimizer) counts() (runs []optimizer.Period, summaries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]optimizer.Period(nil), m.runs...), m.summaries
}

func TestOptimizerService_Defaults(t *testing.T) {
	t.Parallel()
	s := NewOptimizerService(&mockOptimizer{}, OptimizerServiceConfig{}, zerolog.Nop())

	if s.config.Interval != 24*time.Hour {
		t.Errorf("Interval = %v, want 24h", s.config.Interval)
	}
	if s.config.Period != optimizer.PeriodWeekly {
		t.Errorf("Period = %q, want weekly", s.config.Period)
	}
	if got := s.String(); got != "optimizer-service" {
		t.Errorf("String() = %q, want optimizer-service", got)
	}
}

func TestOptimizerService_RunOnStartup(t *testing.T) {
	t.Parallel()
	opt := &mockOptimizer{}
	s := NewOptimizerService(opt, OptimizerServiceConfig{
		Period:       optimizer.PeriodDaily,
		Interval:     time.Hour,
		RunOnStartup: true,
	}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	if err := s.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
	}

	runs, summaries := opt.counts()
	if len(runs) != 1 || runs[0] != optimizer.PeriodDaily {
		t.Errorf("runs = %v, want one daily run", runs)
	}
	if summaries != 1 {
		t.Errorf("summaries = %d, want 1", summaries)
	}
}

func TestOptimizerService_Scheduled(t *testing.T) {
	t.Parallel()
	opt := &mockOptimizer{runErr: errors.New("db down")}
	s := NewOptimizerService(opt, OptimizerServiceConfig{Interval: 40 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_ = s.Serve(ctx)

	runs, summaries := opt.counts()
	if len(runs) < 2 {
		t.Errorf("runs = %d, want >= 2", len(runs))
	}
	if summaries != len(runs) {
		t.Errorf("summaries = %d, want %d (a failed run does not skip summaries)", summaries, len(runs))
	}
}
