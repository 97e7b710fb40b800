// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/cache"
)

// Catalog is an immutable, ID-indexed snapshot of the product catalog.
type Catalog struct {
	products     []Product
	index        map[int]int
	categories   map[int]struct{}
	maxViewCount int
}

// NewCatalog copies and indexes products, ordered by ID.
func NewCatalog(products []Product) *Catalog {
	c := &Catalog{
		products:   append([]Product(nil), products...),
		index:      make(map[int]int, len(products)),
		categories: make(map[int]struct{}),
	}
	sort.Slice(c.products, func(i, j int) bool { return c.products[i].ID < c.products[j].ID })
	for i := range c.products {
		c.index[c.products[i].ID] = i
		c.categories[c.products[i].CategoryID] = struct{}{}
		if c.products[i].ViewCount > c.maxViewCount {
			c.maxViewCount = c.products[i].ViewCount
		}
	}
	return c
}

// Product returns the product with the given ID.
func (c *Catalog) Product(id int) (*Product, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return &c.products[i], true
}

// Contains reports whether the catalog has the product.
func (c *Catalog) Contains(id int) bool {
	_, ok := c.index[id]
	return ok
}

// HasCategory reports whether any product belongs to the category.
func (c *Catalog) HasCategory(id int) bool {
	_, ok := c.categories[id]
	return ok
}

// Products returns all products ordered by ID. The slice is shared and must not be modified.
func (c *Catalog) Products() []Product {
	return c.products
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

// MaxViewCount returns the largest view count in the catalog.
func (c *Catalog) MaxViewCount() int {
	return c.maxViewCount
}

// InteractionSnapshot is the cached interaction history and the rating
// matrix aggregated from it.
type InteractionSnapshot struct {
	// Events are all events within the history lookback.
	Events []InteractionEvent

	// Ratings is the aggregated rating matrix.
	Ratings *RatingMatrix

	byUser map[int][]int
}

func newInteractionSnapshot(events []InteractionEvent, ratings *RatingMatrix) *InteractionSnapshot {
	s := &InteractionSnapshot{
		Events:  events,
		Ratings: ratings,
		byUser:  make(map[int][]int),
	}
	for i := range events {
		s.byUser[events[i].UserID] = append(s.byUser[events[i].UserID], i)
	}
	return s
}

// UserEvents returns a copy of one user's events from the snapshot.
func (s *InteractionSnapshot) UserEvents(userID int) []InteractionEvent {
	idx := s.byUser[userID]
	out := make([]InteractionEvent, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.Events[i])
	}
	return out
}

// UserIDs returns the users with at least one event, ascending.
func (s *InteractionSnapshot) UserIDs() []int {
	ids := make([]int, 0, len(s.byUser))
	for id := range s.byUser {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Corpus gives scorers cached, read-only access to catalog and interaction
// data, and live access to a single user's recent events.
type Corpus struct {
	provider   DataProvider
	aggregator *Aggregator
	lookback   time.Duration
	manager    *cache.Manager
	logger     zerolog.Logger

	catalog      *cache.Slot[*Catalog]
	interactions *cache.Slot[*InteractionSnapshot]
}

// NewCorpus creates a corpus whose catalog and interaction snapshots live in
// the given cache manager.
func NewCorpus(provider DataProvider, aggregator *Aggregator, manager *cache.Manager, cfg *Config, logger zerolog.Logger) *Corpus {
	if aggregator == nil {
		aggregator = NewAggregator()
	}
	c := &Corpus{
		provider:   provider,
		aggregator: aggregator,
		lookback:   cfg.History.Lookback,
		manager:    manager,
		logger:     logger.With().Str("component", "corpus").Logger(),
	}

	c.catalog = cache.NewSlot(manager, "catalog", cfg.Cache.CatalogTTL, c.buildCatalog)
	c.interactions = cache.NewSlot(manager, "ratings", cfg.Cache.RatingsTTL, c.buildInteractions)
	return c
}

// Manager returns the cache manager so derived structures can register slots.
func (c *Corpus) Manager() *cache.Manager {
	return c.manager
}

// Now returns the cache clock's current time.
func (c *Corpus) Now() time.Time {
	return c.manager.Now()
}

// Catalog returns the cached catalog snapshot.
func (c *Corpus) Catalog(ctx context.Context) (*Catalog, error) {
	return c.catalog.Get(ctx)
}

// LiveCatalog reads the catalog straight from the provider, bypassing the cache.
func (c *Corpus) LiveCatalog(ctx context.Context) (*Catalog, error) {
	products, err := c.provider.GetProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	return NewCatalog(products), nil
}

// Interactions returns the cached interaction snapshot.
func (c *Corpus) Interactions(ctx context.Context) (*InteractionSnapshot, error) {
	return c.interactions.Get(ctx)
}

// Ratings returns the cached rating matrix.
func (c *Corpus) Ratings(ctx context.Context) (*RatingMatrix, error) {
	snap, err := c.interactions.Get(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Ratings, nil
}

// UserEvents reads one user's events since the given time from the provider.
func (c *Corpus) UserEvents(ctx context.Context, userID int, since time.Time) ([]InteractionEvent, error) {
	events, err := c.provider.GetUserEvents(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("get user events: %w", err)
	}
	return events, nil
}

func (c *Corpus) buildCatalog(ctx context.Context) (*Catalog, error) {
	products, err := c.provider.GetProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	c.logger.Debug().Int("products", len(products)).Msg("Catalog snapshot loaded")
	return NewCatalog(products), nil
}

func (c *Corpus) buildInteractions(ctx context.Context) (*InteractionSnapshot, error) {
	catalog, err := c.catalog.Get(ctx)
	if err != nil {
		return nil, err
	}

	var since time.Time
	if c.lookback > 0 {
		since = c.manager.Now().Add(-c.lookback)
	}
	events, err := c.provider.GetInteractionEvents(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("load interaction events: %w", err)
	}

	ratings := c.aggregator.Aggregate(events, catalog)
	c.logger.Debug().
		Int("events", len(events)).
		Int("users", len(ratings.Users())).
		Int("ratings", ratings.Len()).
		Msg("Rating matrix aggregated")

	return newInteractionSnapshot(events, ratings), nil
}
