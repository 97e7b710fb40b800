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
)

// mockRecommendEngine is a mock implementation for testing.
type mockRecommendEngine struct {
	mu           sync.Mutex
	refreshCalls int
	trainCalls   int
	refreshErr   error
	refreshDelay time.Duration
}

func (m *mockRecommendEngine) Train(ctx context.Context) error {
	m.mu.Lock()
	m.trainCalls++
	m.mu.Unlock()
	return nil
}

func (m *mockRecommendEngine) Refresh(ctx context.Context) error {
	m.mu.Lock()
	m.refreshCalls++
	m.mu.Unlock()

	if m.refreshDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.refreshDelay):
		}
	}
	return m.refreshErr
}

func (m *mockRecommendEngine) getRefreshCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshCalls
}

func TestRecommendService_String(t *testing.T) {
	t.Parallel()
	service := NewRecommendService(&mockRecommendEngine{}, RecommendServiceConfig{}, zerolog.Nop())

	if got := service.String(); got != "recommend-service" {
		t.Errorf("String() = %q, want %q", got, "recommend-service")
	}
}

func TestNewRecommendService_Defaults(t *testing.T) {
	t.Parallel()
	service := NewRecommendService(&mockRecommendEngine{}, RecommendServiceConfig{}, zerolog.Nop())

	if service.config.RefreshInterval != 15*time.Minute {
		t.Errorf("RefreshInterval = %v, want 15m", service.config.RefreshInterval)
	}
	if service.config.TrainTimeout != 30*time.Minute {
		t.Errorf("TrainTimeout = %v, want 30m", service.config.TrainTimeout)
	}
}

func TestRecommendService_Startup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		trainOnStartup bool
		want           int
	}{
		{"refresh on startup", true, 1},
		{"no refresh on startup", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			engine := &mockRecommendEngine{}
			service := NewRecommendService(engine, RecommendServiceConfig{
				TrainOnStartup:  tt.trainOnStartup,
				RefreshInterval: time.Hour,
			}, zerolog.Nop())

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_ = service.Serve(ctx)

			if got := engine.getRefreshCalls(); got != tt.want {
				t.Errorf("Refresh() called %d times, want %d", got, tt.want)
			}
		})
	}
}

func TestRecommendService_ScheduledRefresh(t *testing.T) {
	t.Parallel()
	engine := &mockRecommendEngine{}
	service := NewRecommendService(engine, RecommendServiceConfig{
		RefreshInterval: 50 * time.Millisecond,
	}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Millisecond)
	defer cancel()
	_ = service.Serve(ctx)

	if got := engine.getRefreshCalls(); got < 2 {
		t.Errorf("Refresh() called %d times, want >= 2", got)
	}
}

func TestRecommendService_GracefulShutdown(t *testing.T) {
	t.Parallel()
	engine := &mockRecommendEngine{refreshDelay: 50 * time.Millisecond}
	service := NewRecommendService(engine, RecommendServiceConfig{
		TrainOnStartup:  true,
		RefreshInterval: time.Hour,
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- service.Serve(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve() did not complete in time")
	}
}

func TestRecommendService_RefreshErrorKeepsRunning(t *testing.T) {
	t.Parallel()
	engine := &mockRecommendEngine{refreshErr: errors.New("all models failed")}
	service := NewRecommendService(engine, RecommendServiceConfig{
		TrainOnStartup:  true,
		RefreshInterval: 40 * time.Millisecond,
	}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	err := service.Serve(ctx)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
	}
	if got := engine.getRefreshCalls(); got < 2 {
		t.Errorf("Refresh() called %d times, want retries after failure", got)
	}
}

func TestRecommendService_FailureStreak(t *testing.T) {
	t.Parallel()
	engine := &mockRecommendEngine{refreshErr: errors.New("catalog query failed")}
	service := NewRecommendService(engine, RecommendServiceConfig{}, zerolog.Nop())
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		service.refresh(ctx, "test")
		if got := service.FailureStreak(); got != i {
			t.Fatalf("FailureStreak() after %d failures = %d", i, got)
		}
	}

	engine.mu.Lock()
	engine.refreshErr = nil
	engine.mu.Unlock()
	service.refresh(ctx, "test")
	if got := service.FailureStreak(); got != 0 {
		t.Errorf("FailureStreak() after success = %d, want 0", got)
	}
}
