// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

/*
Package cache provides get-or-build caching for expensive derived structures.

The recommendation engine keeps several process-wide, read-mostly values
(rating matrix, item similarity matrix, product feature vectors, latent
factors, neural model). Each lives in a Slot owned by a Manager.

# Lifecycle

	EMPTY -> BUILDING -> READY -> STALE (after TTL) -> BUILDING -> ...

A failed build never publishes anything: an empty slot stays empty and is
retried on the next access, a stale slot keeps serving its previous value.
Values are published by atomic pointer swap, so readers only ever see
complete structures.

# Concurrency

Concurrent builds of the same slot are collapsed with singleflight. With
RefreshAsync enabled, a stale read returns the previous value immediately and
starts exactly one background rebuild.

# Testing

The Manager takes a Clock, so tests can advance time deterministically:

	clock := &fakeClock{now: start}
	m := cache.NewManager(cache.ManagerConfig{Clock: clock}, zerolog.Nop())
	slot := cache.NewSlot(m, "similarity", time.Hour, build)
	clock.Advance(time.Hour) // slot is now stale
*/
package cache
