// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package supervisor

import (
	"context"
	"sync/atomic"
)

// stubService fails once per scripted error, then runs until canceled.
type stubService struct {
	name     string
	failures []error
	runs     atomic.Int32
	exits    atomic.Int32
}

func newStubService(name string, failures ...error) *stubService {
	return &stubService{name: name, failures: failures}
}

func (s *stubService) Serve(ctx context.Context) error {
	n := int(s.runs.Add(1))
	defer s.exits.Add(1)
	if n <= len(s.failures) {
		return s.failures[n-1]
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *stubService) String() string { return s.name }
