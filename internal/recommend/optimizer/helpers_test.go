// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package optimizer

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/vitrine/internal/recommend"
)

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

// memStore implements Store in memory.
type memStore struct {
	mu        sync.Mutex
	logs      []LogEntry
	weights   []WeightRecord
	summaries map[int]recommend.BehaviorSummary

	// insertFailures makes the next N inserts fail.
	insertFailures int
	insertCalls    int
}

func newMemStore() *memStore {
	return &memStore{summaries: make(map[int]recommend.BehaviorSummary)}
}

func (m *memStore) InsertRecommendationLogs(ctx context.Context, entries []LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++
	if m.insertFailures > 0 {
		m.insertFailures--
		return context.DeadlineExceeded
	}
	m.logs = append(m.logs, entries...)
	return nil
}

func (m *memStore) LastImpression(ctx context.Context, userID, productID int, since, until time.Time) (*LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *LogEntry
	for i := range m.logs {
		e := m.logs[i]
		if e.Action != ActionServed || e.UserID != userID || e.ProductID != productID {
			continue
		}
		if e.CreatedAt.Before(since) || e.CreatedAt.After(until) {
			continue
		}
		if best == nil || e.CreatedAt.After(best.CreatedAt) {
			best = &e
		}
	}
	return best, nil
}

func (m *memStore) AlgorithmStats(ctx context.Context, since time.Time) ([]AlgorithmStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	by := make(map[string]*AlgorithmStats)
	for _, e := range m.logs {
		if e.CreatedAt.Before(since) {
			continue
		}
		s, ok := by[e.Algorithm]
		if !ok {
			s = &AlgorithmStats{Algorithm: e.Algorithm}
			by[e.Algorithm] = s
		}
		switch e.Action {
		case ActionServed:
			s.Served++
		case ActionView:
			s.Views++
		case ActionCart:
			s.Carts++
		case ActionPurchase:
			s.Purchases++
		}
	}
	out := make([]AlgorithmStats, 0, len(by))
	for _, s := range by {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Algorithm < out[j].Algorithm })
	return out, nil
}

func (m *memStore) LoadWeights(ctx context.Context) (recommend.AlgorithmWeights, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.weights) == 0 {
		return recommend.AlgorithmWeights{}, false, nil
	}
	return m.weights[len(m.weights)-1].Weights, true, nil
}

func (m *memStore) SaveWeights(ctx context.Context, record *WeightRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weights = append(m.weights, *record)
	return nil
}

func (m *memStore) WeightHistory(ctx context.Context, limit int) ([]WeightRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WeightRecord, 0, len(m.weights))
	for i := len(m.weights) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, m.weights[i])
	}
	return out, nil
}

func (m *memStore) SaveBehaviorSummaries(ctx context.Context, summaries []recommend.BehaviorSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range summaries {
		m.summaries[s.UserID] = s
	}
	return nil
}

func (m *memStore) logCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}

func (m *memStore) logsWithAction(action string) []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LogEntry
	for _, e := range m.logs {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// addOutcomes appends synthetic rows for one algorithm at the given time.
func (m *memStore) addOutcomes(algorithm string, served, views, carts, purchases int, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	add := func(action string, n int) {
		for i := 0; i < n; i++ {
			m.logs = append(m.logs, LogEntry{
				UserID:    i + 1,
				ProductID: i + 1,
				Algorithm: algorithm,
				Action:    action,
				CreatedAt: at,
			})
		}
	}
	add(ActionServed, served)
	add(ActionView, views)
	add(ActionCart, carts)
	add(ActionPurchase, purchases)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// fakeProvider implements recommend.DataProvider.
type fakeProvider struct {
	products []recommend.Product
	events   []recommend.InteractionEvent
}

func (p *fakeProvider) GetProducts(ctx context.Context) ([]recommend.Product, error) {
	return p.products, nil
}

func (p *fakeProvider) GetInteractionEvents(ctx context.Context, since time.Time) ([]recommend.InteractionEvent, error) {
	var out []recommend.InteractionEvent
	for _, e := range p.events {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (p *fakeProvider) GetUserEvents(ctx context.Context, userID int, since time.Time) ([]recommend.InteractionEvent, error) {
	var out []recommend.InteractionEvent
	for _, e := range p.events {
		if e.UserID == userID && !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}
