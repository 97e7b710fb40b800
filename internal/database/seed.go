// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package database

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/tomtom215/vitrine/internal/logging"
	"github.com/tomtom215/vitrine/internal/recommend"
)

// DemoSize controls the volume of SeedDemoData.
type DemoSize struct {
	Products   int
	Users      int
	Categories int
}

// DefaultDemoSize is large enough to train every model.
var DefaultDemoSize = DemoSize{Products: 120, Users: 80, Categories: 8}

var demoBrands = []string{"Northwind", "Acme", "Globex", "Initech", "Umbrella", "Stark", "Wayne", "Hooli"}

var demoNouns = map[int][]string{
	0: {"running shoe", "trail shoe", "sandal", "boot"},
	1: {"rain jacket", "fleece", "parka", "windbreaker"},
	2: {"coffee grinder", "espresso machine", "kettle", "french press"},
	3: {"desk lamp", "floor lamp", "string lights", "reading light"},
	4: {"backpack", "duffel bag", "tote", "messenger bag"},
	5: {"headphones", "earbuds", "speaker", "soundbar"},
	6: {"yoga mat", "dumbbell set", "kettlebell", "foam roller"},
	7: {"sunscreen", "beach towel", "swim goggles", "sun hat"},
}

// SeedDemoData fills an empty database with a deterministic synthetic catalog
// and interaction history. It does nothing when products already exist.
func (db *DB) SeedDemoData(ctx context.Context, size DemoSize, seed int64) error {
	var existing int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&existing); err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if existing > 0 {
		logging.Debug().Int("products", existing).Msg("Skipping demo seed, catalog is not empty")
		return nil
	}
	if size.Products <= 0 || size.Users <= 0 || size.Categories <= 0 {
		return fmt.Errorf("%w: demo size must be positive", ErrInvalidInput)
	}

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // synthetic data
	now := db.now()

	for id := 1; id <= size.Products; id++ {
		category := (id - 1) % size.Categories
		nouns := demoNouns[category%len(demoNouns)]
		noun := nouns[rng.Intn(len(nouns))]
		brand := demoBrands[rng.Intn(len(demoBrands))]
		p := &recommend.Product{
			ID:          id,
			Name:        fmt.Sprintf("%s %s %d", brand, noun, id),
			Description: fmt.Sprintf("A %s by %s, built for everyday use.", noun, brand),
			CategoryID:  category + 1,
			Brand:       brand,
			Price:       float64(10+rng.Intn(290)) + 0.99,
			Stock:       rng.Intn(50),
			IsFeatured:  rng.Intn(10) == 0,
			CreatedAt:   now.Add(-time.Duration(rng.Intn(365*24)) * time.Hour),
		}
		if err := db.UpsertProduct(ctx, p); err != nil {
			return err
		}
	}

	var lines []OrderLine
	for user := 1; user <= size.Users; user++ {
		// Each user favors one or two categories.
		favorite := rng.Intn(size.Categories)
		second := rng.Intn(size.Categories)
		for i := 0; i < 6+rng.Intn(10); i++ {
			category := favorite
			if rng.Intn(3) == 0 {
				category = second
			}
			product := demoProductIn(rng, category, size)
			at := now.Add(-time.Duration(rng.Intn(60*24)) * time.Hour)

			if err := db.RecordView(ctx, user, product, 10+rng.Intn(300), at); err != nil {
				return err
			}
			switch roll := rng.Intn(10); {
			case roll < 2:
				lines = append(lines, OrderLine{
					OrderID:   fmt.Sprintf("demo-%d-%d", user, i),
					UserID:    user,
					ProductID: product,
					Quantity:  1 + rng.Intn(2),
					Status:    "completed",
					OrderedAt: at.Add(time.Hour),
				})
				if rng.Intn(2) == 0 {
					if err := db.UpsertReview(ctx, user, product, 3+rng.Intn(3), "", at.Add(48*time.Hour)); err != nil {
						return err
					}
				}
			case roll < 4:
				if err := db.AddToCart(ctx, user, product, 1, at); err != nil {
					return err
				}
			case roll < 5:
				if err := db.AddToWishlist(ctx, user, product, at); err != nil {
					return err
				}
			}
		}
	}
	if err := db.InsertOrderLines(ctx, lines); err != nil {
		return err
	}

	logging.Info().
		Int("products", size.Products).
		Int("users", size.Users).
		Int("orders", len(lines)).
		Msg("Seeded demo data")
	return nil
}

// demoProductIn picks a product id in category (0-based) under the
// round-robin assignment used by SeedDemoData.
func demoProductIn(rng *rand.Rand, category int, size DemoSize) int {
	perCategory := size.Products / size.Categories
	if perCategory == 0 {
		return 1 + rng.Intn(size.Products)
	}
	return category + 1 + size.Categories*rng.Intn(perCategory)
}
