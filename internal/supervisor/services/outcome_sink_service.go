// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package services

import (
	"context"
	"fmt"
)

// OutcomeSink consumes outcome events until its context ends.
//
// Satisfied by *optimizer.Sink.
type OutcomeSink interface {
	Run(ctx context.Context) error
}

// OutcomeSinkService wraps the outcome log subscriber as a supervised
// service. A subscription that closes while the context is still live is
// reported as an error so the supervisor restarts it.
type OutcomeSinkService struct {
	sink OutcomeSink
	name string
}

// NewOutcomeSinkService creates a new outcome sink service.
func NewOutcomeSinkService(sink OutcomeSink) *OutcomeSinkService {
	return &OutcomeSinkService{
		sink: sink,
		name: "outcome-sink",
	}
}

// Serve implements suture.Service.
func (s *OutcomeSinkService) Serve(ctx context.Context) error {
	err := s.sink.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("outcome sink failed: %w", err)
	}
	return fmt.Errorf("outcome sink subscription closed")
}

// String implements fmt.Stringer for logging.
func (s *OutcomeSinkService) String() string {
	return s.name
}
