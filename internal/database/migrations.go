// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/vitrine/internal/logging"
)

// Migration is one append-only schema change applied after the base tables
// exist. Versions increase by one; a released migration is never edited.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

func migrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "reco_logs_strategy",
			SQL:     `ALTER TABLE recommendation_logs ADD COLUMN IF NOT EXISTS strategy TEXT DEFAULT ''`,
		},
	}
}

// migrate applies every migration newer than the recorded schema version,
// each in its own transaction together with its bookkeeping row.
func (db *DB) migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT current_timestamp
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	current, err := db.GetCurrentSchemaVersion(ctx)
	if err != nil {
		return err
	}

	applied := 0
	for _, m := range migrations() {
		if m.Version <= current {
			continue
		}
		err := db.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.Version, m.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration v%d %s: %w", m.Version, m.Name, err)
		}
		applied++
	}

	if applied > 0 {
		logging.Info().Int("applied", applied).Int("from_version", current).Msg("Database migrated")
	}
	return nil
}

// GetCurrentSchemaVersion returns the highest applied migration version, or
// 0 on a fresh database.
func (db *DB) GetCurrentSchemaVersion(ctx context.Context) (int, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	var version int
	if err := db.conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
