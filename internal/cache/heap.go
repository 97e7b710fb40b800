// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package cache

import "sort"

// TopK keeps the k best values pushed into it, where better is defined by
// less(a, b) reporting that a ranks below b. The worst kept value sits at
// the root of a min-heap, so each Push is O(log k) and selecting the top k
// of n candidates is O(n log k) instead of sorting all n.
//
// TopK is not safe for concurrent use.
type TopK[T any] struct {
	heap []T
	k    int
	less func(a, b T) bool
}

// NewTopK creates a selector for the k best values. A non-positive k keeps
// every value.
func NewTopK[T any](k int, less func(a, b T) bool) *TopK[T] {
	capacity := k
	if capacity <= 0 || capacity > 1024 {
		capacity = 64
	}
	return &TopK[T]{
		heap: make([]T, 0, capacity),
		k:    k,
		less: less,
	}
}

// Push offers a value. It reports whether the value was kept.
func (t *TopK[T]) Push(v T) bool {
	if t.k <= 0 || len(t.heap) < t.k {
		t.heap = append(t.heap, v)
		t.bubbleUp(len(t.heap) - 1)
		return true
	}
	if !t.less(t.heap[0], v) {
		return false
	}
	t.heap[0] = v
	t.bubbleDown(0)
	return true
}

// Len returns the number of kept values.
func (t *TopK[T]) Len() int {
	return len(t.heap)
}

// Min returns the worst kept value.
func (t *TopK[T]) Min() (T, bool) {
	if len(t.heap) == 0 {
		var zero T
		return zero, false
	}
	return t.heap[0], true
}

// Sorted returns the kept values best first and resets the selector.
func (t *TopK[T]) Sorted() []T {
	out := t.heap
	t.heap = nil
	sort.Slice(out, func(i, j int) bool {
		return t.less(out[j], out[i])
	})
	return out
}

// bubbleUp moves element at index i up to its correct position.
func (t *TopK[T]) bubbleUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !t.less(t.heap[i], t.heap[parent]) {
			break
		}
		t.heap[i], t.heap[parent] = t.heap[parent], t.heap[i]
		i = parent
	}
}

// bubbleDown moves element at index i down to its correct position.
func (t *TopK[T]) bubbleDown(i int) {
	n := len(t.heap)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2

		if left < n && t.less(t.heap[left], t.heap[smallest]) {
			smallest = left
		}
		if right < n && t.less(t.heap[right], t.heap[smallest]) {
			smallest = right
		}
		if smallest == i {
			return
		}
		t.heap[i], t.heap[smallest] = t.heap[smallest], t.heap[i]
		i = smallest
	}
}
