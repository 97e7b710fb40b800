// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// conflictRetries bounds retries of a write that lost a DuckDB optimistic
// concurrency race (concurrent UPSERTs on the same key).
const conflictRetries = 3

// withConflictRetry runs fn in a transaction, retrying on transaction
// conflicts with exponential backoff (1ms, 2ms, 4ms).
func (db *DB) withConflictRetry(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err := db.inTx(ctx, fn)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTransactionConflict(err) {
			return err
		}
		if attempt < conflictRetries-1 {
			backoff := time.Millisecond * time.Duration(1<<uint(attempt))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// inTx runs fn inside a transaction, committing on success.
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback() //nolint:errcheck // the original error is more useful
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
