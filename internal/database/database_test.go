// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/vitrine/internal/config"
	"github.com/tomtom215/vitrine/internal/recommend"
)

// testDBSemaphore serializes DuckDB usage across parallel tests. It is held
// for the whole test, not just creation: concurrent CGO calls from many
// in-memory databases can hang under CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

// setupTestDB creates a new in-memory test database with a pinned clock.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	cfg := &config.DatabaseConfig{
		Path:        ":memory:",
		MaxMemory:   "512MB",
		SkipIndexes: true,
	}

	type result struct {
		db  *DB
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		db, err := New(cfg)
		resultCh <- result{db: db, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("Failed to create test database: %v", res.err)
		}
		res.db.SetClock(func() time.Time { return testNow })
		t.Cleanup(func() {
			if err := res.db.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
		return res.db
	case <-time.After(120 * time.Second):
		t.Fatalf("Timeout: database creation took longer than 120s")
		return nil
	}
}

// seedProducts inserts products 1..n, alternating categories 10 and 20.
func seedProducts(t *testing.T, db *DB, n int) {
	t.Helper()
	for id := 1; id <= n; id++ {
		category := 10
		if id%2 == 0 {
			category = 20
		}
		p := &recommend.Product{
			ID:         id,
			Name:       "product",
			CategoryID: category,
			Brand:      "acme",
			Price:      float64(id) * 10,
			Stock:      5,
			CreatedAt:  testNow.Add(-time.Duration(id) * time.Hour),
		}
		if err := db.UpsertProduct(context.Background(), p); err != nil {
			t.Fatalf("UpsertProduct(%d) error = %v", id, err)
		}
	}
}

func TestNew_NilConfig(t *testing.T) {
	t.Parallel()

	if _, err := New(nil); err == nil {
		t.Error("New(nil) should fail")
	}
}

func TestNew_SchemaInitialized(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	counts, err := db.TableCounts(ctx)
	if err != nil {
		t.Fatalf("TableCounts() error = %v", err)
	}
	if len(counts) != len(dataTables) {
		t.Errorf("TableCounts() returned %d tables, want %d", len(counts), len(dataTables))
	}
	for table, n := range counts {
		if n != 0 {
			t.Errorf("%s has %d rows, want 0", table, n)
		}
	}

	version, err := db.GetCurrentSchemaVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentSchemaVersion() error = %v", err)
	}
	if want := len(migrations()); version != want {
		t.Errorf("schema version = %d, want %d", version, want)
	}

	// Migrations are idempotent.
	if err := db.migrate(ctx); err != nil {
		t.Errorf("second migrate() error = %v", err)
	}
	if err := db.CreateIndexes(ctx); err != nil {
		t.Errorf("CreateIndexes() error = %v", err)
	}
}

func TestGetProducts(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	seedProducts(t, db, 4)
	if err := db.SetProductActive(ctx, 3, false); err != nil {
		t.Fatalf("SetProductActive() error = %v", err)
	}
	if err := db.SetProductStock(ctx, 2, 0); err != nil {
		t.Fatalf("SetProductStock() error = %v", err)
	}

	products, err := db.GetProducts(ctx)
	if err != nil {
		t.Fatalf("GetProducts() error = %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("len(products) = %d, want 3", len(products))
	}
	wantIDs := []int{1, 2, 4}
	for i, p := range products {
		if p.ID != wantIDs[i] {
			t.Errorf("products[%d].ID = %d, want %d", i, p.ID, wantIDs[i])
		}
	}
	if products[1].Stock != 0 {
		t.Errorf("product 2 stock = %d, want 0", products[1].Stock)
	}
	if products[2].CategoryID != 20 || products[2].Price != 40 {
		t.Errorf("product 4 = %+v, want category 20 price 40", products[2])
	}
	if want := testNow.Add(-time.Hour); !products[0].CreatedAt.Equal(want) {
		t.Errorf("product 1 CreatedAt = %v, want %v", products[0].CreatedAt, want)
	}
}

func TestUpsertProduct(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	seedProducts(t, db, 1)
	if err := db.RecordView(ctx, 7, 1, 30, time.Time{}); err != nil {
		t.Fatalf("RecordView() error = %v", err)
	}

	updated := &recommend.Product{ID: 1, Name: "renamed", CategoryID: 30, Price: 99, Stock: 1}
	if err := db.UpsertProduct(ctx, updated); err != nil {
		t.Fatalf("UpsertProduct() error = %v", err)
	}

	products, err := db.GetProducts(ctx)
	if err != nil {
		t.Fatalf("GetProducts() error = %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("len(products) = %d, want 1", len(products))
	}
	p := products[0]
	if p.Name != "renamed" || p.CategoryID != 30 {
		t.Errorf("product = %+v, want renamed in category 30", p)
	}
	if p.ViewCount != 1 {
		t.Errorf("ViewCount = %d, want 1 (preserved across upsert)", p.ViewCount)
	}

	tests := []struct {
		name string
		p    *recommend.Product
	}{
		{"nil", nil},
		{"missing id", &recommend.Product{Name: "x"}},
		{"missing name", &recommend.Product{ID: 5}},
	}
	for _, tt := range tests {
		if err := db.UpsertProduct(ctx, tt.p); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("UpsertProduct(%s) error = %v, want ErrInvalidInput", tt.name, err)
		}
	}
}

func TestSeedDemoData(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	size := DemoSize{Products: 24, Users: 6, Categories: 4}
	if err := db.SeedDemoData(ctx, size, 42); err != nil {
		t.Fatalf("SeedDemoData() error = %v", err)
	}

	counts, err := db.TableCounts(ctx)
	if err != nil {
		t.Fatalf("TableCounts() error = %v", err)
	}
	if counts["products"] != 24 {
		t.Errorf("products = %d, want 24", counts["products"])
	}
	if counts["product_views"] == 0 {
		t.Error("product_views should not be empty")
	}

	events, err := db.GetInteractionEvents(ctx, testNow.Add(-90*24*time.Hour))
	if err != nil {
		t.Fatalf("GetInteractionEvents() error = %v", err)
	}
	if len(events) == 0 {
		t.Fatal("seeded data produced no events")
	}

	// A second seed is a no-op.
	if err := db.SeedDemoData(ctx, size, 7); err != nil {
		t.Fatalf("second SeedDemoData() error = %v", err)
	}
	again, err := db.TableCounts(ctx)
	if err != nil {
		t.Fatalf("TableCounts() error = %v", err)
	}
	if again["product_views"] != counts["product_views"] {
		t.Errorf("product_views changed from %d to %d on re-seed", counts["product_views"], again["product_views"])
	}
}
