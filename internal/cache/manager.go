// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/vitrine/internal/metrics"
)

// State is the lifecycle position of a cache slot.
type State int32

const (
	// StateEmpty means nothing has been published yet (or the slot was invalidated).
	StateEmpty State = iota
	// StateBuilding means a build is in flight.
	StateBuilding
	// StateReady means a published entry is younger than its TTL.
	StateReady
	// StateStale means the published entry has outlived its TTL.
	StateStale
)

// String returns the state name used in logs and status output.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	case StateStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Clock supplies the current time for staleness checks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Entry is an immutable published value.
type Entry[T any] struct {
	Data    T
	BuiltAt time.Time
	TTL     time.Duration
}

// Expired reports whether the entry has outlived its TTL. A zero TTL never expires.
func (e *Entry[T]) Expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.BuiltAt) >= e.TTL
}

// BuildFunc produces a fresh value for a slot.
type BuildFunc[T any] func(ctx context.Context) (T, error)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Clock defaults to SystemClock.
	Clock Clock

	// RefreshAsync serves stale data while one background rebuild runs.
	// When false, a stale read rebuilds inline.
	RefreshAsync bool

	// BuildTimeout bounds background rebuilds. Defaults to 10 minutes.
	BuildTimeout time.Duration
}

// SlotStatus is a point-in-time snapshot of one slot.
type SlotStatus struct {
	Name     string        `json:"name"`
	State    string        `json:"state"`
	BuiltAt  time.Time     `json:"built_at,omitempty"`
	TTL      time.Duration `json:"ttl"`
	Hits     uint64        `json:"hits"`
	Misses   uint64        `json:"misses"`
	Builds   uint64        `json:"builds"`
	Failures uint64        `json:"failures"`
}

type managedSlot interface {
	status() SlotStatus
	refreshIfNeeded(ctx context.Context) error
	Invalidate()
}

// Manager owns a set of named get-or-build slots sharing one clock.
type Manager struct {
	clock        Clock
	refreshAsync bool
	buildTimeout time.Duration
	logger       zerolog.Logger

	mu    sync.RWMutex
	slots map[string]managedSlot

	wg sync.WaitGroup
}

// NewManager creates a cache manager.
//
//nolint:gocritic // hugeParam: config passed by value for immutability
func NewManager(cfg ManagerConfig, logger zerolog.Logger) *Manager {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.BuildTimeout <= 0 {
		cfg.BuildTimeout = 10 * time.Minute
	}
	return &Manager{
		clock:        cfg.Clock,
		refreshAsync: cfg.RefreshAsync,
		buildTimeout: cfg.BuildTimeout,
		logger:       logger.With().Str("component", "cache").Logger(),
		slots:        make(map[string]managedSlot),
	}
}

// Clock returns the manager's clock.
func (m *Manager) Clock() Clock {
	return m.clock
}

// Now returns the manager clock's current time.
func (m *Manager) Now() time.Time {
	return m.clock.Now()
}

// Status returns a snapshot of every slot, sorted by name.
func (m *Manager) Status() []SlotStatus {
	m.mu.RLock()
	out := make([]SlotStatus, 0, len(m.slots))
	for _, s := range m.slots {
		out = append(out, s.status())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RefreshAll rebuilds every empty or stale slot. Slots are refreshed in
// name order; a failing slot does not stop the others.
func (m *Manager) RefreshAll(ctx context.Context) error {
	m.mu.RLock()
	names := make([]string, 0, len(m.slots))
	for name := range m.slots {
		names = append(names, name)
	}
	m.mu.RUnlock()
	sort.Strings(names)

	var failed []string
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.mu.RLock()
		s := m.slots[name]
		m.mu.RUnlock()
		if err := s.refreshIfNeeded(ctx); err != nil {
			m.logger.Warn().Err(err).Str("slot", name).Msg("Scheduled refresh failed")
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("refresh failed for slots %v", failed)
	}
	return nil
}

// InvalidateAll drops every published entry.
func (m *Manager) InvalidateAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.slots {
		s.Invalidate()
	}
}

// Wait blocks until background refreshes have finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) register(name string, s managedSlot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.slots[name]; exists {
		m.logger.Warn().Str("slot", name).Msg("Replacing existing cache slot registration")
	}
	m.slots[name] = s
}

// Slot is a single get-or-build cache cell. Published values are treated as
// immutable; readers never observe a partially built value.
type Slot[T any] struct {
	name   string
	ttl    time.Duration
	build  BuildFunc[T]
	m      *Manager
	manual bool

	entry      atomic.Pointer[Entry[T]]
	building   atomic.Bool
	refreshing atomic.Bool
	group      singleflight.Group

	hits, misses, builds, failures atomic.Uint64
}

// NewSlot creates a slot and registers it with the manager.
func NewSlot[T any](m *Manager, name string, ttl time.Duration, build BuildFunc[T]) *Slot[T] {
	s := &Slot[T]{
		name:  name,
		ttl:   ttl,
		build: build,
		m:     m,
	}
	m.register(name, s)
	return s
}

// NewManualSlot creates a slot that RefreshAll skips. Its value changes only
// through Refresh or Set, which suits trained models with their own schedule.
func NewManualSlot[T any](m *Manager, name string, ttl time.Duration, build BuildFunc[T]) *Slot[T] {
	s := &Slot[T]{
		name:   name,
		ttl:    ttl,
		build:  build,
		m:      m,
		manual: true,
	}
	m.register(name, s)
	return s
}

// Name returns the slot name.
func (s *Slot[T]) Name() string { return s.name }

// Get returns the cached value, building it when the slot is empty.
// Stale values are either refreshed inline or served while a single
// background rebuild runs, depending on the manager configuration.
func (s *Slot[T]) Get(ctx context.Context) (T, error) {
	if e := s.entry.Load(); e != nil {
		if !e.Expired(s.m.clock.Now()) {
			s.hits.Add(1)
			metrics.RecordCacheEvent(s.name, "hit")
			return e.Data, nil
		}

		metrics.RecordCacheEvent(s.name, "stale")
		if s.m.refreshAsync {
			s.hits.Add(1)
			s.refreshInBackground()
			return e.Data, nil
		}

		data, err := s.getOrBuild(ctx)
		if err != nil {
			// A failed refresh never replaces valid data.
			s.m.logger.Warn().Err(err).Str("slot", s.name).Msg("Refresh failed, serving stale entry")
			return e.Data, nil
		}
		return data, nil
	}

	s.misses.Add(1)
	metrics.RecordCacheEvent(s.name, "miss")
	return s.getOrBuild(ctx)
}

// Peek returns the published entry without triggering a build.
func (s *Slot[T]) Peek() (*Entry[T], bool) {
	e := s.entry.Load()
	return e, e != nil
}

// State returns the current lifecycle state.
func (s *Slot[T]) State() State {
	if s.building.Load() {
		return StateBuilding
	}
	e := s.entry.Load()
	if e == nil {
		return StateEmpty
	}
	if e.Expired(s.m.clock.Now()) {
		return StateStale
	}
	return StateReady
}

// Refresh forces a rebuild regardless of age and publishes it on success.
func (s *Slot[T]) Refresh(ctx context.Context) (T, error) {
	v, err, _ := s.group.Do("build", func() (any, error) {
		return s.buildAndPublish(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	data, _ := v.(T)
	return data, nil
}

// Invalidate drops the published entry; the next Get rebuilds.
func (s *Slot[T]) Invalidate() {
	s.entry.Store(nil)
}

// Set publishes a value built elsewhere (for example a restored snapshot).
func (s *Slot[T]) Set(data T, builtAt time.Time) {
	s.entry.Store(&Entry[T]{Data: data, BuiltAt: builtAt, TTL: s.ttl})
}

func (s *Slot[T]) getOrBuild(ctx context.Context) (T, error) {
	v, err, _ := s.group.Do("build", func() (any, error) {
		// Another flight may have published while this caller queued.
		if e := s.entry.Load(); e != nil && !e.Expired(s.m.clock.Now()) {
			return e.Data, nil
		}
		return s.buildAndPublish(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	data, _ := v.(T)
	return data, nil
}

func (s *Slot[T]) buildAndPublish(ctx context.Context) (data T, err error) {
	s.building.Store(true)
	defer s.building.Store(false)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("build %s panicked: %v", s.name, r)
		}
		if err != nil {
			s.failures.Add(1)
			metrics.RecordCacheEvent(s.name, "failure")
		}
	}()

	data, err = s.build(ctx)
	if err != nil {
		return data, fmt.Errorf("build %s: %w", s.name, err)
	}

	s.entry.Store(&Entry[T]{Data: data, BuiltAt: s.m.clock.Now(), TTL: s.ttl})
	s.builds.Add(1)
	metrics.RecordCacheEvent(s.name, "build")
	metrics.RecordCacheBuild(s.name, time.Since(start))

	s.m.logger.Debug().
		Str("slot", s.name).
		Dur("duration", time.Since(start)).
		Msg("Cache slot rebuilt")

	return data, nil
}

func (s *Slot[T]) refreshInBackground() {
	if !s.refreshing.CompareAndSwap(false, true) {
		return
	}
	s.m.wg.Add(1)
	go func() {
		defer s.m.wg.Done()
		defer s.refreshing.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), s.m.buildTimeout)
		defer cancel()

		if _, err := s.getOrBuild(ctx); err != nil {
			s.m.logger.Warn().Err(err).Str("slot", s.name).Msg("Background refresh failed")
		}
	}()
}

func (s *Slot[T]) refreshIfNeeded(ctx context.Context) error {
	if s.manual {
		return nil
	}
	switch s.State() {
	case StateReady, StateBuilding:
		return nil
	default:
		_, err := s.getOrBuild(ctx)
		return err
	}
}

func (s *Slot[T]) status() SlotStatus {
	st := SlotStatus{
		Name:     s.name,
		State:    s.State().String(),
		TTL:      s.ttl,
		Hits:     s.hits.Load(),
		Misses:   s.misses.Load(),
		Builds:   s.builds.Load(),
		Failures: s.failures.Load(),
	}
	if e := s.entry.Load(); e != nil {
		st.BuiltAt = e.BuiltAt
	}
	return st
}
