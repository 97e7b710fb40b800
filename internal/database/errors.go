// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package database

import (
	"errors"
	"io"
	"strings"

	"github.com/tomtom215/vitrine/internal/logging"
)

// ErrInvalidInput is returned by write helpers for rows that fail basic checks.
var ErrInvalidInput = errors.New("invalid input")

// conflictMarkers are the DuckDB messages for an optimistic concurrency
// failure that is safe to retry.
var conflictMarkers = []string{"Transaction conflict", "Conflict on update"}

func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, m := range conflictMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// closeWithLog closes c, logging a failure at warn level. An empty what
// discards the error instead, for cleanup on paths that already failed.
func closeWithLog(c io.Closer, what string) {
	if c == nil {
		return
	}
	err := c.Close()
	if err != nil && what != "" {
		logging.Warn().Err(err).Str("resource", what).Msg("Close failed")
	}
}
