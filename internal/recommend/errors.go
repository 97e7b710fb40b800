// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package recommend

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable means there is no history to score with. Scorers
	// normally answer this with an empty list instead of returning it.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrComputeBackend means a numeric backend crashed or is unavailable.
	ErrComputeBackend = errors.New("compute backend failure")

	// ErrTimeout means a scorer exceeded its deadline.
	ErrTimeout = errors.New("scorer timeout")

	// ErrInvalidContext marks a malformed request context value. It is
	// logged and the value is dropped; it never fails a request.
	ErrInvalidContext = errors.New("invalid request context")

	// ErrTotalAlgorithmFailure means every scorer failed.
	ErrTotalAlgorithmFailure = errors.New("all scorers failed")

	// ErrCatalogUnavailable means the catalog could not be read on the
	// fallback path. This is the only error surfaced to callers.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrSnapshotNotFound means no model snapshot has been stored under a name.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrModelNotReady means a model has not been trained or restored yet.
	ErrModelNotReady = errors.New("model not ready")
)

// ScorerError wraps a failure at a scorer boundary with diagnostic fields.
type ScorerError struct {
	Algorithm string
	UserID    int
	Stage     string
	Err       error
}

func (e *ScorerError) Error() string {
	return fmt.Sprintf("%s scorer failed for user %d at %s: %v", e.Algorithm, e.UserID, e.Stage, e.Err)
}

func (e *ScorerError) Unwrap() error {
	return e.Err
}
