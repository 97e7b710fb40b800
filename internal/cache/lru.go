// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package cache

import (
	"container/list"
	"sync"
	"time"
)

const (
	defaultLRUCapacity = 10000
	defaultLRUTTL      = 5 * time.Minute
)

type lruItem[K comparable, V any] struct {
	key     K
	value   V
	expires time.Time
}

// LRU is a mutex-guarded least recently used cache with a fixed TTL per
// entry. Expired entries are dropped when they are next looked up or when
// they fall off the back of the list.
//
// The engine keeps per-user behavior summaries in one: read on every
// request, rewritten only by the optimizer.
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	clock    Clock
	order    *list.List // front is most recently used
	index    map[K]*list.Element
	hits     uint64
	misses   uint64
}

// NewLRU creates a cache of at most capacity entries living ttl each.
// Non-positive values take the defaults; a nil clock is SystemClock.
func NewLRU[K comparable, V any](capacity int, ttl time.Duration, clock Clock) *LRU[K, V] {
	if capacity <= 0 {
		capacity = defaultLRUCapacity
	}
	if ttl <= 0 {
		ttl = defaultLRUTTL
	}
	if clock == nil {
		clock = SystemClock
	}
	return &LRU[K, V]{
		capacity: capacity,
		ttl:      ttl,
		clock:    clock,
		order:    list.New(),
		index:    make(map[K]*list.Element),
	}
}

func (c *LRU[K, V]) item(e *list.Element) *lruItem[K, V] {
	return e.Value.(*lruItem[K, V]) //nolint:forcetypeassert // only lruItems are stored
}

// Get returns the live value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.index[key]; ok {
		it := c.item(e)
		if !c.clock.Now().After(it.expires) {
			c.order.MoveToFront(e)
			c.hits++
			return it.value, true
		}
		c.drop(e)
	}
	c.misses++
	var zero V
	return zero, false
}

// Add stores value under key with a fresh TTL, evicting from the back of
// the list while over capacity.
func (c *LRU[K, V]) Add(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.clock.Now().Add(c.ttl)
	if e, ok := c.index[key]; ok {
		it := c.item(e)
		it.value, it.expires = value, expires
		c.order.MoveToFront(e)
		return
	}
	c.index[key] = c.order.PushFront(&lruItem[K, V]{key: key, value: value, expires: expires})
	for c.order.Len() > c.capacity {
		c.drop(c.order.Back())
	}
}

// Remove drops key and reports whether it was present.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.index[key]
	if ok {
		c.drop(e)
	}
	return ok
}

// Purge empties the cache. Counters are kept.
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	clear(c.index)
}

// Len counts stored entries, expired or not.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns hit and miss counts.
func (c *LRU[K, V]) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *LRU[K, V]) drop(e *list.Element) {
	c.order.Remove(e)
	delete(c.index, c.item(e).key)
}
