// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/vitrine/internal/metrics"
	"github.com/tomtom215/vitrine/internal/recommend"
)

// completedOrderStatuses are the order_status values that count as purchases.
var completedOrderStatuses = []string{"completed", "delivered"}

// GetProducts returns the active catalog ordered by id.
func (db *DB) GetProducts(ctx context.Context) ([]recommend.Product, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, description, category_id, brand, price, stock,
		       is_featured, view_count, created_at
		FROM products
		WHERE is_active
		ORDER BY id`)
	if err != nil {
		metrics.RecordDBQuery("select", "products", time.Since(start), err)
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []recommend.Product
	for rows.Next() {
		var p recommend.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CategoryID, &p.Brand,
			&p.Price, &p.Stock, &p.IsFeatured, &p.ViewCount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	err = rows.Err()
	metrics.RecordDBQuery("select", "products", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

// GetInteractionEvents returns every interaction signal updated at or after since.
func (db *DB) GetInteractionEvents(ctx context.Context, since time.Time) ([]recommend.InteractionEvent, error) {
	query, args := buildEventsQuery(since, nil)
	return db.queryEvents(ctx, "all", query, args)
}

// GetUserEvents returns one user's interaction signals updated at or after since.
func (db *DB) GetUserEvents(ctx context.Context, userID int, since time.Time) ([]recommend.InteractionEvent, error) {
	query, args := buildEventsQuery(since, &userID)
	return db.queryEvents(ctx, "user", query, args)
}

// buildEventsQuery unions every signal table into
// (user_id, product_id, event_type, magnitude, action, ts) rows.
// A nil userID selects all users.
func buildEventsQuery(since time.Time, userID *int) (string, []interface{}) {
	statuses := "'" + strings.Join(completedOrderStatuses, "', '") + "'"

	branches := []struct {
		sql    string
		tsCol  string
		suffix string
	}{
		{
			sql:   `SELECT user_id, product_id, 'view' AS event_type, CAST(view_count AS DOUBLE) AS magnitude, '' AS action, updated_at AS ts FROM product_views`,
			tsCol: "updated_at",
		},
		{
			sql:    `SELECT user_id, product_id, 'purchase', CAST(SUM(quantity) AS DOUBLE), '', MAX(ordered_at) FROM order_items`,
			tsCol:  "ordered_at",
			suffix: ` AND order_status IN (` + statuses + `) GROUP BY user_id, product_id`,
		},
		{
			sql:   `SELECT user_id, product_id, 'review', CAST(rating AS DOUBLE), '', created_at FROM reviews`,
			tsCol: "created_at",
		},
		{
			sql:   `SELECT user_id, product_id, 'cart', CAST(quantity AS DOUBLE), '', added_at FROM cart_items`,
			tsCol: "added_at",
		},
		{
			sql:   `SELECT user_id, product_id, 'wishlist', CAST(1 AS DOUBLE), '', added_at FROM wishlist_items`,
			tsCol: "added_at",
		},
		{
			sql:    `SELECT user_id, product_id, 'reco_interaction', CAST(1 AS DOUBLE), action, created_at FROM recommendation_logs`,
			tsCol:  "created_at",
			suffix: ` AND action IN ('view', 'cart', 'purchase')`,
		},
	}

	parts := make([]string, 0, len(branches))
	args := make([]interface{}, 0, 2*len(branches))
	for _, b := range branches {
		where := " WHERE " + b.tsCol + " >= ?"
		args = append(args, since.UTC())
		if userID != nil {
			where += " AND user_id = ?"
			args = append(args, *userID)
		}
		parts = append(parts, b.sql+where+b.suffix)
	}

	query := strings.Join(parts, "\nUNION ALL\n") + "\nORDER BY ts, user_id, product_id, event_type"
	return query, args
}

func (db *DB) queryEvents(ctx context.Context, scope, query string, args []interface{}) ([]recommend.InteractionEvent, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.RecordDBQuery("select_"+scope, "interaction_events", time.Since(start), err)
		return nil, fmt.Errorf("failed to query interaction events: %w", err)
	}
	defer rows.Close()

	var events []recommend.InteractionEvent
	for rows.Next() {
		var (
			ev        recommend.InteractionEvent
			eventType string
		)
		if err := rows.Scan(&ev.UserID, &ev.ProductID, &eventType, &ev.Magnitude, &ev.Action, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan interaction event: %w", err)
		}
		ev.Type = recommend.EventType(eventType)
		events = append(events, ev)
	}
	err = rows.Err()
	metrics.RecordDBQuery("select_"+scope, "interaction_events", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate interaction events: %w", err)
	}
	return events, nil
}

var _ recommend.DataProvider = (*DB)(nil)
