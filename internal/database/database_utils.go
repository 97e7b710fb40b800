// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package database

import (
	"context"
	"fmt"
	"time"
)

const (
	queryTimeout  = 30 * time.Second
	schemaTimeout = 60 * time.Second
)

// withQueryTimeout bounds ctx by queryTimeout unless the caller already set
// a deadline.
func withQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, queryTimeout)
}

// Checkpoint folds the DuckDB write-ahead log into the database file.
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// GetDatabasePath returns the configured database path.
func (db *DB) GetDatabasePath() string {
	return db.cfg.Path
}

// TableCounts returns the row count of every data table, for the status
// endpoint.
func (db *DB) TableCounts(ctx context.Context) (map[string]int64, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	counts := make(map[string]int64, len(dataTables))
	for _, table := range dataTables {
		var n int64
		if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil { //nolint:gosec // names come from dataTables
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
