// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package algorithms

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/tomtom215/vitrine/internal/cache"
	"github.com/tomtom215/vitrine/internal/recommend"
)

// SnapshotStore persists trained models so a restart can skip retraining.
type SnapshotStore interface {
	// SaveSnapshot stores v under name.
	SaveSnapshot(ctx context.Context, name string, version int, v any) error

	// LoadSnapshot decodes the snapshot stored under name into v and returns
	// when it was saved.
	LoadSnapshot(ctx context.Context, name string, v any) (time.Time, error)
}

// scratchPool hands out reusable float64 buffers for per-request numeric
// work. Every borrowed buffer is returned on both success and failure paths.
var scratchPool = sync.Pool{
	New: func() any {
		buf := make([]float64, 0, 64)
		return &buf
	},
}

// borrowScratch returns a zeroed buffer of length n.
func borrowScratch(n int) *[]float64 {
	bufPtr, _ := scratchPool.Get().(*[]float64)
	if bufPtr == nil {
		buf := make([]float64, 0, n)
		bufPtr = &buf
	}
	buf := *bufPtr
	if cap(buf) < n {
		buf = make([]float64, n)
	} else {
		buf = buf[:n]
		for i := range buf {
			buf[i] = 0
		}
	}
	*bufPtr = buf
	return bufPtr
}

// releaseScratch returns a buffer to the pool.
func releaseScratch(bufPtr *[]float64) {
	if bufPtr == nil {
		return
	}
	*bufPtr = (*bufPtr)[:0]
	scratchPool.Put(bufPtr)
}

// rankedBelow orders scored products by score, with the lower product ID
// ranking higher on ties.
func rankedBelow(a, b recommend.ScoredProduct) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.ProductID > b.ProductID
}

// rankScores orders scores descending with product ID ascending on ties and
// keeps the top limit. A non-positive limit keeps everything.
func rankScores(scores map[int]float64, algorithm string, limit int) []recommend.ScoredProduct {
	top := cache.NewTopK(limit, rankedBelow)
	for id, score := range scores {
		top.Push(recommend.ScoredProduct{ProductID: id, Score: score, Algorithm: algorithm})
	}
	return top.Sorted()
}

// cosineSimilarity computes cosine similarity between two vectors.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// jaccardSimilarity computes |A∩B| / |A∪B| over two keyword sets.
func jaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for k := range small {
		if _, ok := large[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// ContextCancelled checks if the context has been canceled.
func ContextCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Ensure all scorers implement the blender interfaces.
var (
	_ recommend.Scorer     = (*ItemSimilarity)(nil)
	_ recommend.Scorer     = (*ContentEngine)(nil)
	_ recommend.Scorer     = (*LatentFactor)(nil)
	_ recommend.Scorer     = (*NeuralScorer)(nil)
	_ recommend.Scorer     = (*Popularity)(nil)
	_ recommend.Fallbacker = (*Popularity)(nil)
	_ recommend.Trainer    = (*LatentFactor)(nil)
	_ recommend.Trainer    = (*NeuralScorer)(nil)
)
