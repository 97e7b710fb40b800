// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package algorithms

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/cache"
	"github.com/tomtom215/vitrine/internal/recommend"
)

// testNow is the fixed clock for every algorithm test.
var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// memProvider implements recommend.DataProvider in memory.
type memProvider struct {
	mu             sync.Mutex
	products       []recommend.Product
	events         []recommend.InteractionEvent
	failProducts   atomic.Int32
	productsCalled atomic.Int32
}

func (m *memProvider) GetProducts(ctx context.Context) ([]recommend.Product, error) {
	m.productsCalled.Add(1)
	if m.failProducts.Load() > 0 {
		m.failProducts.Add(-1)
		return nil, errors.New("connection refused")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recommend.Product(nil), m.products...), nil
}

func (m *memProvider) GetInteractionEvents(ctx context.Context, since time.Time) ([]recommend.InteractionEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []recommend.InteractionEvent
	for _, ev := range m.events {
		if !ev.Timestamp.Before(since) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *memProvider) GetUserEvents(ctx context.Context, userID int, since time.Time) ([]recommend.InteractionEvent, error) {
	all, _ := m.GetInteractionEvents(ctx, since)
	var out []recommend.InteractionEvent
	for _, ev := range all {
		if ev.UserID == userID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// memSnapshots implements SnapshotStore with gob, like the badger store.
type memSnapshots struct {
	mu    sync.Mutex
	blobs map[string][]byte
	saved map[string]time.Time
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{blobs: make(map[string][]byte), saved: make(map[string]time.Time)}
}

func (s *memSnapshots) SaveSnapshot(ctx context.Context, name string, version int, v any) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[name] = buf.Bytes()
	s.saved[name] = testNow
	return nil
}

func (s *memSnapshots) LoadSnapshot(ctx context.Context, name string, v any) (time.Time, error) {
	s.mu.Lock()
	blob, ok := s.blobs[name]
	savedAt := s.saved[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, recommend.ErrSnapshotNotFound
	}
	return savedAt, gob.NewDecoder(bytes.NewReader(blob)).Decode(v)
}

func newTestCorpus(t *testing.T, provider recommend.DataProvider, cfg *recommend.Config) *recommend.Corpus {
	t.Helper()
	if cfg == nil {
		cfg = recommend.DefaultConfig()
	}
	manager := cache.NewManager(cache.ManagerConfig{Clock: fixedClock{now: testNow}}, zerolog.Nop())
	return recommend.NewCorpus(provider, nil, manager, cfg, zerolog.Nop())
}

func review(userID, productID int, rating float64) recommend.InteractionEvent {
	return recommend.InteractionEvent{
		UserID:    userID,
		ProductID: productID,
		Type:      recommend.EventReview,
		Magnitude: rating,
		Timestamp: testNow.Add(-24 * time.Hour),
	}
}

func event(userID, productID int, typ recommend.EventType, magnitude float64, age time.Duration) recommend.InteractionEvent {
	return recommend.InteractionEvent{
		UserID:    userID,
		ProductID: productID,
		Type:      typ,
		Magnitude: magnitude,
		Timestamp: testNow.Add(-age),
	}
}

func simpleCatalog(n int) []recommend.Product {
	products := make([]recommend.Product, n)
	for i := range products {
		products[i] = recommend.Product{
			ID:         i + 1,
			Name:       "Product",
			CategoryID: i%3 + 1,
			Price:      float64(10 * (i + 1)),
			Stock:      10,
			ViewCount:  i,
			CreatedAt:  testNow.Add(-365 * 24 * time.Hour),
		}
	}
	return products
}

func productIDs(items []recommend.ScoredProduct) []int {
	ids := make([]int, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	return ids
}

func indexOf(ids []int, id int) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
