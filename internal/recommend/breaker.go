// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package recommend

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/vitrine/internal/metrics"
)

// breakerScorer wraps a scorer in a circuit breaker so a persistently failing
// branch is skipped instead of burning its deadline on every request.
//
// The breaker uses real time for its interval and open timeout.
type breakerScorer struct {
	inner Scorer
	cb    *gobreaker.CircuitBreaker[ScoreResult]
}

func newBreakerScorer(inner Scorer, cfg *BreakerConfig, logger zerolog.Logger) *breakerScorer {
	name := "scorer-" + inner.Name()
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	threshold := cfg.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker[ScoreResult](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A cancelled caller says nothing about the scorer's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Scorer circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &breakerScorer{inner: inner, cb: cb}
}

func (b *breakerScorer) Name() string {
	return b.inner.Name()
}

func (b *breakerScorer) Score(ctx context.Context, req ScoreRequest) (ScoreResult, error) {
	return b.cb.Execute(func() (ScoreResult, error) {
		return b.inner.Score(ctx, req)
	})
}

// State returns the breaker state name.
func (b *breakerScorer) State() string {
	return b.cb.State().String()
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
