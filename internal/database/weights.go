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

const weightColumns = `neural, collaborative, content, matrix, popular, reason, created_at`

// LoadWeights returns the newest persisted weights. ok is false when the
// history is empty.
func (db *DB) LoadWeights(ctx context.Context) (recommend.AlgorithmWeights, bool, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	start := time.Now()
	var rec optimizer.WeightRecord
	err := scanWeightRecord(db.conn.QueryRowContext(ctx,
		`SELECT `+weightColumns+` FROM algorithm_weights ORDER BY created_at DESC, id DESC LIMIT 1`), &rec)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("select", "algorithm_weights", time.Since(start), nil)
		return recommend.AlgorithmWeights{}, false, nil
	}
	metrics.RecordDBQuery("select", "algorithm_weights", time.Since(start), err)
	if err != nil {
		return recommend.AlgorithmWeights{}, false, fmt.Errorf("failed to load weights: %w", err)
	}
	return rec.Weights, true, nil
}

// SaveWeights appends a row to the weight history.
func (db *DB) SaveWeights(ctx context.Context, record *optimizer.WeightRecord) error {
	if record == nil {
		return fmt.Errorf("%w: nil weight record", ErrInvalidInput)
	}
	if err := record.Weights.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	w := record.Weights
	return db.exec(ctx, "insert", "algorithm_weights",
		`INSERT INTO algorithm_weights (`+weightColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.Neural, w.Collaborative, w.Content, w.Matrix, w.Popular, record.Reason, db.orDefault(record.CreatedAt))
}

// WeightHistory returns up to limit records, newest first. limit <= 0 returns all.
func (db *DB) WeightHistory(ctx context.Context, limit int) ([]optimizer.WeightRecord, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	query := `SELECT ` + weightColumns + ` FROM algorithm_weights ORDER BY created_at DESC, id DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.RecordDBQuery("select", "algorithm_weights", time.Since(start), err)
		return nil, fmt.Errorf("failed to query weight history: %w", err)
	}
	defer rows.Close()

	var history []optimizer.WeightRecord
	for rows.Next() {
		var rec optimizer.WeightRecord
		if err := scanWeightRecord(rows, &rec); err != nil {
			return nil, fmt.Errorf("failed to scan weight record: %w", err)
		}
		history = append(history, rec)
	}
	err = rows.Err()
	metrics.RecordDBQuery("select", "algorithm_weights", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate weight history: %w", err)
	}
	return history, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWeightRecord(row rowScanner, rec *optimizer.WeightRecord) error {
	w := &rec.Weights
	return row.Scan(&w.Neural, &w.Collaborative, &w.Content, &w.Matrix, &w.Popular, &rec.Reason, &rec.CreatedAt)
}

var (
	_ recommend.WeightSource = (*DB)(nil)
	_ optimizer.WeightStore  = (*DB)(nil)
)
