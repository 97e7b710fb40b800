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

	"github.com/tomtom215/vitrine/internal/metrics"
	"github.com/tomtom215/vitrine/internal/recommend"
	"github.com/tomtom215/vitrine/internal/recommend/optimizer"
)

// SaveBehaviorSummaries upserts summaries keyed by (user_id, window).
func (db *DB) SaveBehaviorSummaries(ctx context.Context, summaries []recommend.BehaviorSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := db.withConflictRetry(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO user_behavior_summaries
				(user_id, window_label, purchase_frequency, cart_abandon_rate, brand_breadth,
				 category_breadth, interactions, last_active, computed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id, window_label) DO UPDATE SET
				purchase_frequency = EXCLUDED.purchase_frequency,
				cart_abandon_rate = EXCLUDED.cart_abandon_rate,
				brand_breadth = EXCLUDED.brand_breadth,
				category_breadth = EXCLUDED.category_breadth,
				interactions = EXCLUDED.interactions,
				last_active = EXCLUDED.last_active,
				computed_at = EXCLUDED.computed_at`)
		if err != nil {
			return err
		}
		defer closeWithLog(stmt, "prepared statement")

		for i := range summaries {
			s := &summaries[i]
			var lastActive sql.NullTime
			if !s.LastActive.IsZero() {
				lastActive = sql.NullTime{Time: s.LastActive.UTC(), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, s.UserID, s.Window, s.PurchaseFrequency, s.CartAbandonRate,
				s.BrandBreadth, s.CategoryBreadth, s.Interactions, lastActive, db.orDefault(s.ComputedAt)); err != nil {
				return err
			}
		}
		return nil
	})
	metrics.RecordDBQuery("upsert", "user_behavior_summaries", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to save behavior summaries: %w", err)
	}
	return nil
}

// LoadBehaviorSummary returns the user's most recently computed summary, or
// nil when none exists.
func (db *DB) LoadBehaviorSummary(ctx context.Context, userID int) (*recommend.BehaviorSummary, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	start := time.Now()
	var (
		s          recommend.BehaviorSummary
		lastActive sql.NullTime
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT user_id, window_label, purchase_frequency, cart_abandon_rate, brand_breadth,
		       category_breadth, interactions, last_active, computed_at
		FROM user_behavior_summaries
		WHERE user_id = ?
		ORDER BY computed_at DESC, window_label
		LIMIT 1`, userID,
	).Scan(&s.UserID, &s.Window, &s.PurchaseFrequency, &s.CartAbandonRate, &s.BrandBreadth,
		&s.CategoryBreadth, &s.Interactions, &lastActive, &s.ComputedAt)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("select", "user_behavior_summaries", time.Since(start), nil)
		return nil, nil
	}
	metrics.RecordDBQuery("select", "user_behavior_summaries", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to load behavior summary: %w", err)
	}
	if lastActive.Valid {
		s.LastActive = lastActive.Time
	}
	return &s, nil
}

var (
	_ recommend.BehaviorSource = (*DB)(nil)
	_ optimizer.BehaviorStore  = (*DB)(nil)
	_ optimizer.Store          = (*DB)(nil)
)
