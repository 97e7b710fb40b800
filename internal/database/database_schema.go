// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

/*
database_schema.go - Database Schema Management

Tables:
  - products: The catalog (category, brand, price, stock, featured flag, view counter)
  - product_views: Per user and product view counters with the last view time
  - order_items: Order lines; only completed or delivered lines count as purchases
  - reviews: One 1-5 rating per user and product
  - wishlist_items, cart_items: Current wishlist and cart contents
  - recommendation_logs: Served recommendations and the interactions attributed to them
  - algorithm_weights: Blend weight history; the newest row is the live set
  - user_behavior_summaries: Derived per-user behavior keyed by (user_id, window_label)

All timestamps are stored as UTC TIMESTAMP values.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"strings"
)

// dataTables lists the tables reported by TableCounts.
var dataTables = []string{
	"products",
	"product_views",
	"order_items",
	"reviews",
	"wishlist_items",
	"cart_items",
	"recommendation_logs",
	"algorithm_weights",
	"user_behavior_summaries",
}

// execDDL runs statements in order, stopping at the first failure.
func (db *DB) execDDL(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", strings.TrimSpace(strings.SplitN(stmt, "(", 2)[0]), err)
		}
	}
	return nil
}

// tableDDL creates the base tables. Later changes go through migrations.
func tableDDL() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category_id INTEGER NOT NULL,
			brand TEXT NOT NULL DEFAULT '',
			price DOUBLE NOT NULL DEFAULT 0,
			stock INTEGER NOT NULL DEFAULT 0,
			is_featured BOOLEAN NOT NULL DEFAULT false,
			is_active BOOLEAN NOT NULL DEFAULT true,
			view_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS product_views (
			user_id INTEGER NOT NULL,
			product_id INTEGER NOT NULL,
			view_count INTEGER NOT NULL DEFAULT 1,
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, product_id)
		);`,

		`CREATE TABLE IF NOT EXISTS order_items (
			order_id TEXT NOT NULL,
			user_id INTEGER NOT NULL,
			product_id INTEGER NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 1,
			unit_price DOUBLE NOT NULL DEFAULT 0,
			order_status TEXT NOT NULL,
			ordered_at TIMESTAMP NOT NULL,
			PRIMARY KEY (order_id, product_id)
		);`,

		`CREATE TABLE IF NOT EXISTS reviews (
			user_id INTEGER NOT NULL,
			product_id INTEGER NOT NULL,
			rating INTEGER NOT NULL,
			comment TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, product_id)
		);`,

		`CREATE TABLE IF NOT EXISTS wishlist_items (
			user_id INTEGER NOT NULL,
			product_id INTEGER NOT NULL,
			added_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, product_id)
		);`,

		`CREATE TABLE IF NOT EXISTS cart_items (
			user_id INTEGER NOT NULL,
			product_id INTEGER NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 1,
			added_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, product_id)
		);`,

		`CREATE TABLE IF NOT EXISTS recommendation_logs (
			id TEXT PRIMARY KEY,
			request_id TEXT NOT NULL DEFAULT '',
			user_id INTEGER NOT NULL,
			product_id INTEGER NOT NULL,
			algorithm TEXT NOT NULL,
			action TEXT NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			score DOUBLE NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		);`,

		`CREATE SEQUENCE IF NOT EXISTS algorithm_weights_seq START 1;`,

		`CREATE TABLE IF NOT EXISTS algorithm_weights (
			id BIGINT PRIMARY KEY DEFAULT nextval('algorithm_weights_seq'),
			neural DOUBLE NOT NULL,
			collaborative DOUBLE NOT NULL,
			content DOUBLE NOT NULL,
			matrix DOUBLE NOT NULL,
			popular DOUBLE NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS user_behavior_summaries (
			user_id INTEGER NOT NULL,
			window_label TEXT NOT NULL,
			purchase_frequency DOUBLE NOT NULL DEFAULT 0,
			cart_abandon_rate DOUBLE NOT NULL DEFAULT 0,
			brand_breadth INTEGER NOT NULL DEFAULT 0,
			category_breadth INTEGER NOT NULL DEFAULT 0,
			interactions INTEGER NOT NULL DEFAULT 0,
			last_active TIMESTAMP,
			computed_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, window_label)
		);`,
	}
}

// CreateIndexes creates the secondary indexes. It is idempotent.
func (db *DB) CreateIndexes(ctx context.Context) error {
	return db.execDDL(ctx, indexDDL())
}

func indexDDL() []string {
	return []string{
		// Only insert-only tables are indexed: DuckDB rewrites updates of
		// indexed rows as delete+insert, which trips the upserted primary keys.
		`CREATE INDEX IF NOT EXISTS idx_order_items_user ON order_items(user_id, ordered_at);`,
		// Attribution lookups: newest impression of a product for a user
		`CREATE INDEX IF NOT EXISTS idx_reco_logs_lookup ON recommendation_logs(user_id, product_id, action, created_at);`,
		// Optimizer aggregation by time window
		`CREATE INDEX IF NOT EXISTS idx_reco_logs_created ON recommendation_logs(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_algorithm_weights_created ON algorithm_weights(created_at);`,
	}
}
