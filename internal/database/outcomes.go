// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/vitrine/internal/metrics"
	"github.com/tomtom215/vitrine/internal/recommend/optimizer"
)

// InsertRecommendationLogs writes outcome rows in one transaction. Rows
// without an id get a fresh UUID.
func (db *DB) InsertRecommendationLogs(ctx context.Context, entries []optimizer.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO recommendation_logs
				(id, request_id, user_id, product_id, algorithm, strategy, action, position, score, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer closeWithLog(stmt, "prepared statement")

		for i := range entries {
			e := &entries[i]
			id := e.ID
			if id == "" {
				id = uuid.NewString()
			}
			if _, err := stmt.ExecContext(ctx, id, e.RequestID, e.UserID, e.ProductID, e.Algorithm,
				e.Strategy, e.Action, e.Position, e.Score, db.orDefault(e.CreatedAt)); err != nil {
				return err
			}
		}
		return nil
	})
	metrics.RecordDBQuery("insert", "recommendation_logs", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert recommendation logs: %w", err)
	}
	return nil
}

// LastImpression returns the newest served row for the user and product
// created within [since, until], or nil when there is none.
func (db *DB) LastImpression(ctx context.Context, userID, productID int, since, until time.Time) (*optimizer.LogEntry, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	start := time.Now()
	var e optimizer.LogEntry
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, request_id, user_id, product_id, algorithm, COALESCE(strategy, ''),
		       action, position, score, created_at
		FROM recommendation_logs
		WHERE user_id = ? AND product_id = ? AND action = ?
		  AND created_at >= ? AND created_at <= ?
		ORDER BY created_at DESC, position ASC
		LIMIT 1`,
		userID, productID, optimizer.ActionServed, since.UTC(), until.UTC(),
	).Scan(&e.ID, &e.RequestID, &e.UserID, &e.ProductID, &e.Algorithm, &e.Strategy,
		&e.Action, &e.Position, &e.Score, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("select", "recommendation_logs", time.Since(start), nil)
		return nil, nil
	}
	metrics.RecordDBQuery("select", "recommendation_logs", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query last impression: %w", err)
	}
	return &e, nil
}

// AlgorithmStats returns raw per-algorithm outcome counts for rows created at
// or after since, ordered by algorithm.
func (db *DB) AlgorithmStats(ctx context.Context, since time.Time) ([]optimizer.AlgorithmStats, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT
			algorithm,
			COUNT(*) FILTER (WHERE action = 'served') AS served,
			COUNT(*) FILTER (WHERE action = 'view') AS views,
			COUNT(*) FILTER (WHERE action = 'cart') AS carts,
			COUNT(*) FILTER (WHERE action = 'purchase') AS purchases
		FROM recommendation_logs
		WHERE created_at >= ?
		GROUP BY algorithm
		ORDER BY algorithm`, since.UTC())
	if err != nil {
		metrics.RecordDBQuery("aggregate", "recommendation_logs", time.Since(start), err)
		return nil, fmt.Errorf("failed to query algorithm stats: %w", err)
	}
	defer rows.Close()

	var stats []optimizer.AlgorithmStats
	for rows.Next() {
		var s optimizer.AlgorithmStats
		if err := rows.Scan(&s.Algorithm, &s.Served, &s.Views, &s.Carts, &s.Purchases); err != nil {
			return nil, fmt.Errorf("failed to scan algorithm stats: %w", err)
		}
		stats = append(stats, s)
	}
	err = rows.Err()
	metrics.RecordDBQuery("aggregate", "recommendation_logs", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate algorithm stats: %w", err)
	}
	return stats, nil
}

var _ optimizer.LogStore = (*DB)(nil)
