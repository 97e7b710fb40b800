// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

/*
writes.go - Catalog and Interaction Writes

The recommendation engine only reads these tables. The helpers here exist for
seeding, the interactions endpoint and tests: product upserts, view counters,
order lines, reviews, wishlist and cart contents.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/vitrine/internal/metrics"
	"github.com/tomtom215/vitrine/internal/recommend"
)

// OrderLine is one order_items row.
type OrderLine struct {
	OrderID   string
	UserID    int
	ProductID int
	Quantity  int
	UnitPrice float64
	Status    string
	OrderedAt time.Time
}

// orDefault returns t in UTC, or the database clock when t is zero.
func (db *DB) orDefault(t time.Time) time.Time {
	if t.IsZero() {
		return db.now()
	}
	return t.UTC()
}

func (db *DB) exec(ctx context.Context, operation, table, query string, args ...interface{}) error {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, query, args...)
	metrics.RecordDBQuery(operation, table, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to %s %s: %w", operation, table, err)
	}
	return nil
}

// UpsertProduct inserts or replaces a catalog entry and marks it active.
// The view counter of an existing product is preserved.
func (db *DB) UpsertProduct(ctx context.Context, p *recommend.Product) error {
	if p == nil || p.ID <= 0 || p.Name == "" {
		return fmt.Errorf("%w: product needs an id and a name", ErrInvalidInput)
	}
	return db.exec(ctx, "upsert", "products", `
		INSERT INTO products (id, name, description, category_id, brand, price, stock,
		                      is_featured, is_active, view_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, true, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category_id = EXCLUDED.category_id,
			brand = EXCLUDED.brand,
			price = EXCLUDED.price,
			stock = EXCLUDED.stock,
			is_featured = EXCLUDED.is_featured,
			is_active = true`,
		p.ID, p.Name, p.Description, p.CategoryID, p.Brand, p.Price, p.Stock,
		p.IsFeatured, p.ViewCount, db.orDefault(p.CreatedAt))
}

// SetProductActive hides or restores a product. Inactive products are not
// returned by GetProducts, so interactions on them are skipped by scorers.
func (db *DB) SetProductActive(ctx context.Context, productID int, active bool) error {
	return db.exec(ctx, "update", "products",
		`UPDATE products SET is_active = ? WHERE id = ?`, active, productID)
}

// SetProductStock updates the units available.
func (db *DB) SetProductStock(ctx context.Context, productID, stock int) error {
	return db.exec(ctx, "update", "products",
		`UPDATE products SET stock = ? WHERE id = ?`, stock, productID)
}

// RecordView counts one product page view and bumps the catalog-wide counter.
func (db *DB) RecordView(ctx context.Context, userID, productID, durationSeconds int, at time.Time) error {
	at = db.orDefault(at)
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := db.withConflictRetry(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO product_views (user_id, product_id, view_count, duration_seconds, updated_at)
			VALUES (?, ?, 1, ?, ?)
			ON CONFLICT (user_id, product_id) DO UPDATE SET
				view_count = product_views.view_count + 1,
				duration_seconds = product_views.duration_seconds + EXCLUDED.duration_seconds,
				updated_at = GREATEST(product_views.updated_at, EXCLUDED.updated_at)`,
			userID, productID, durationSeconds, at); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE products SET view_count = view_count + 1 WHERE id = ?`, productID)
		return err
	})
	metrics.RecordDBQuery("upsert", "product_views", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to record view: %w", err)
	}
	return nil
}

// InsertOrderLines writes order lines in one transaction.
func (db *DB) InsertOrderLines(ctx context.Context, lines []OrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		if lines[i].OrderID == "" || lines[i].Status == "" {
			return fmt.Errorf("%w: order line %d needs an order id and a status", ErrInvalidInput, i)
		}
	}
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO order_items (order_id, user_id, product_id, quantity, unit_price, order_status, ordered_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer closeWithLog(stmt, "prepared statement")

		for i := range lines {
			l := &lines[i]
			qty := l.Quantity
			if qty <= 0 {
				qty = 1
			}
			if _, err := stmt.ExecContext(ctx, l.OrderID, l.UserID, l.ProductID, qty,
				l.UnitPrice, l.Status, db.orDefault(l.OrderedAt)); err != nil {
				return err
			}
		}
		return nil
	})
	metrics.RecordDBQuery("insert", "order_items", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert order lines: %w", err)
	}
	return nil
}

// SetOrderStatus moves every line of an order to status.
func (db *DB) SetOrderStatus(ctx context.Context, orderID, status string) error {
	return db.exec(ctx, "update", "order_items",
		`UPDATE order_items SET order_status = ? WHERE order_id = ?`, status, orderID)
}

// UpsertReview stores a user's rating of a product, replacing an earlier one.
func (db *DB) UpsertReview(ctx context.Context, userID, productID, rating int, comment string, at time.Time) error {
	return db.exec(ctx, "upsert", "reviews", `
		INSERT INTO reviews (user_id, product_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, product_id) DO UPDATE SET
			rating = EXCLUDED.rating,
			comment = EXCLUDED.comment,
			created_at = EXCLUDED.created_at`,
		userID, productID, rating, comment, db.orDefault(at))
}

// AddToWishlist adds a product to a user's wishlist. Re-adding is a no-op.
func (db *DB) AddToWishlist(ctx context.Context, userID, productID int, at time.Time) error {
	return db.exec(ctx, "insert", "wishlist_items", `
		INSERT INTO wishlist_items (user_id, product_id, added_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, product_id) DO NOTHING`,
		userID, productID, db.orDefault(at))
}

// AddToCart puts quantity units of a product in a user's cart, adding to any
// quantity already there.
func (db *DB) AddToCart(ctx context.Context, userID, productID, quantity int, at time.Time) error {
	if quantity <= 0 {
		quantity = 1
	}
	return db.exec(ctx, "upsert", "cart_items", `
		INSERT INTO cart_items (user_id, product_id, quantity, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, product_id) DO UPDATE SET
			quantity = cart_items.quantity + EXCLUDED.quantity,
			added_at = EXCLUDED.added_at`,
		userID, productID, quantity, db.orDefault(at))
}

// RemoveFromCart drops a product from a user's cart.
func (db *DB) RemoveFromCart(ctx context.Context, userID, productID int) error {
	return db.exec(ctx, "delete", "cart_items",
		`DELETE FROM cart_items WHERE user_id = ? AND product_id = ?`, userID, productID)
}
