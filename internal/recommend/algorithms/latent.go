// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package algorithms

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/cache"
	"github.com/tomtom215/vitrine/internal/recommend"
)

// LatentSnapshotName is the model store key for the latent factor model.
const LatentSnapshotName = "latent"

// latentSnapshotVersion is bumped whenever LatentModel changes shape.
const latentSnapshotVersion = 1

// LatentModel holds trained user and product factors. Fields are exported
// so the model can be gob-encoded into the model store. Immutable once
// published.
type LatentModel struct {
	Factors        int
	UserIndex      map[int]int
	ProductIndex   map[int]int
	UserFactors    [][]float64
	ProductFactors [][]float64
	Epochs         int
	Loss           float64
	TrainedAt      time.Time
}

// Predict returns the dot product of the user and product factors. ok is
// false when either side is outside the trained index.
func (m *LatentModel) Predict(userID, productID int) (float64, bool) {
	u, ok := m.UserIndex[userID]
	if !ok {
		return 0, false
	}
	p, ok := m.ProductIndex[productID]
	if !ok {
		return 0, false
	}
	return dot(m.UserFactors[u], m.ProductFactors[p]), true
}

// HasUser reports whether the user was part of training.
func (m *LatentModel) HasUser(userID int) bool {
	_, ok := m.UserIndex[userID]
	return ok
}

// TrainLatentModel fits factors by stochastic gradient descent over the
// rating triples, minimizing squared error plus L2 on both factor sets.
// Training stops early once an epoch improves the loss by less than the
// configured tolerance. A zero seed seeds from the clock.
//
//nolint:gocritic // hugeParam: config passed by value for immutability
func TrainLatentModel(ctx context.Context, ratings *recommend.RatingMatrix, cfg recommend.LatentConfig, now time.Time) (*LatentModel, error) {
	triples := ratings.Triples()
	if len(triples) == 0 {
		return nil, fmt.Errorf("%w: no ratings to train on", recommend.ErrDataUnavailable)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	//nolint:gosec // G404: math/rand is acceptable for ML initialization (not security)
	rng := rand.New(rand.NewSource(seed))

	k := cfg.Factors
	users := ratings.Users()
	products := ratings.Products()
	m := &LatentModel{
		Factors:        k,
		UserIndex:      make(map[int]int, len(users)),
		ProductIndex:   make(map[int]int, len(products)),
		UserFactors:    make([][]float64, len(users)),
		ProductFactors: make([][]float64, len(products)),
	}

	initFactors := func(rows [][]float64) {
		for i := range rows {
			rows[i] = make([]float64, k)
			for f := range rows[i] {
				rows[i][f] = rng.NormFloat64() * cfg.InitStdDev
			}
		}
	}
	for i, u := range users {
		m.UserIndex[u] = i
	}
	for i, p := range products {
		m.ProductIndex[p] = i
	}
	initFactors(m.UserFactors)
	initFactors(m.ProductFactors)

	lr := cfg.LearningRate
	reg := cfg.Regularization
	prevLoss := math.Inf(1)

	// Holds the user row before its update so both gradients use the
	// pre-step values.
	scratch := borrowScratch(k)
	defer releaseScratch(scratch)
	pu := *scratch

	for epoch := 0; epoch < cfg.Iterations; epoch++ {
		if ContextCancelled(ctx) {
			return nil, ctx.Err()
		}

		var loss float64
		for _, idx := range rng.Perm(len(triples)) {
			r := &triples[idx]
			urow := m.UserFactors[m.UserIndex[r.UserID]]
			prow := m.ProductFactors[m.ProductIndex[r.ProductID]]

			e := r.Value - dot(urow, prow)
			loss += e * e

			copy(pu, urow)
			for f := 0; f < k; f++ {
				urow[f] += lr * (e*prow[f] - reg*pu[f])
				prow[f] += lr * (e*pu[f] - reg*prow[f])
			}
		}

		for _, row := range m.UserFactors {
			loss += reg * dot(row, row)
		}
		for _, row := range m.ProductFactors {
			loss += reg * dot(row, row)
		}
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return nil, fmt.Errorf("%w: latent training diverged at epoch %d", recommend.ErrComputeBackend, epoch)
		}

		m.Epochs = epoch + 1
		m.Loss = loss
		if prevLoss-loss < cfg.Tolerance {
			break
		}
		prevLoss = loss
	}

	m.TrainedAt = now
	return m, nil
}

// LatentFactor is the matrix factorization scorer. Its model is trained on
// a schedule, snapshotted to the model store, and restored on start.
type LatentFactor struct {
	corpus *recommend.Corpus
	cfg    recommend.LatentConfig
	ttl    time.Duration
	store  SnapshotStore
	logger zerolog.Logger

	model *cache.Slot[*LatentModel]
}

// NewLatentFactor creates the matrix scorer. store may be nil, which
// disables snapshots.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewLatentFactor(corpus *recommend.Corpus, cfg *recommend.Config, store SnapshotStore, logger zerolog.Logger) *LatentFactor {
	l := &LatentFactor{
		corpus: corpus,
		cfg:    cfg.Latent,
		ttl:    cfg.Cache.LatentTTL,
		store:  store,
		logger: logger.With().Str("algorithm", recommend.AlgorithmMatrix).Logger(),
	}
	l.model = cache.NewManualSlot(corpus.Manager(), "latent", cfg.Cache.LatentTTL, l.train)
	return l
}

// Name returns the algorithm identifier.
func (l *LatentFactor) Name() string {
	return recommend.AlgorithmMatrix
}

func (l *LatentFactor) train(ctx context.Context) (*LatentModel, error) {
	ratings, err := l.corpus.Ratings(ctx)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	m, err := TrainLatentModel(ctx, ratings, l.cfg, l.corpus.Now())
	if err != nil {
		return nil, err
	}
	l.logger.Info().
		Int("users", len(m.UserIndex)).
		Int("products", len(m.ProductIndex)).
		Int("epochs", m.Epochs).
		Float64("loss", m.Loss).
		Dur("duration", time.Since(start)).
		Msg("Latent factor model trained")

	if l.store != nil {
		if err := l.store.SaveSnapshot(ctx, LatentSnapshotName, latentSnapshotVersion, m); err != nil {
			l.logger.Warn().Err(err).Msg("Failed to snapshot latent model")
		}
	}
	return m, nil
}

// Train retrains the model unless the published one is younger than its TTL.
func (l *LatentFactor) Train(ctx context.Context) error {
	switch l.model.State() {
	case cache.StateReady, cache.StateBuilding:
		return nil
	}
	_, err := l.model.Refresh(ctx)
	return err
}

// Restore loads the stored snapshot when it is younger than the TTL.
// A missing snapshot is not an error.
func (l *LatentFactor) Restore(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	var m LatentModel
	savedAt, err := l.store.LoadSnapshot(ctx, LatentSnapshotName, &m)
	if errors.Is(err, recommend.ErrSnapshotNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore latent model: %w", err)
	}
	if age := l.corpus.Now().Sub(savedAt); age >= l.ttl {
		l.logger.Info().Dur("age", age).Msg("Latent snapshot expired, retraining")
		return nil
	}
	l.model.Set(&m, savedAt)
	l.logger.Info().Time("saved_at", savedAt).Int("users", len(m.UserIndex)).Msg("Latent model restored from snapshot")
	return nil
}

// Model returns the published model without triggering training.
func (l *LatentFactor) Model() (*LatentModel, error) {
	e, ok := l.model.Peek()
	if !ok || e.Data == nil {
		return nil, recommend.ErrModelNotReady
	}
	return e.Data, nil
}

// Predict returns the model's predicted rating.
func (l *LatentFactor) Predict(userID, productID int) (float64, error) {
	m, err := l.Model()
	if err != nil {
		return 0, err
	}
	v, _ := m.Predict(userID, productID)
	return v, nil
}

// GetMatrixFactorizationRecommendations ranks the filter-matching products a
// known user has not rated. Unknown users and an untrained model yield an
// empty list.
//
//nolint:gocritic // hugeParam: filters passed by value for immutability
func (l *LatentFactor) GetMatrixFactorizationRecommendations(ctx context.Context, userID, limit int, filters recommend.Filters) ([]recommend.ScoredProduct, error) {
	m, err := l.Model()
	if err != nil || !m.HasUser(userID) {
		return nil, nil //nolint:nilerr // untrained model means no opinion
	}
	ratings, err := l.corpus.Ratings(ctx)
	if err != nil {
		return nil, err
	}
	catalog, err := l.corpus.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	rated := ratings.UserRatings(userID)
	scores := make(map[int]float64)
	for i := range catalog.Products() {
		p := &catalog.Products()[i]
		if _, ok := rated[p.ID]; ok {
			continue
		}
		if !filters.Match(p) {
			continue
		}
		if v, ok := m.Predict(userID, p.ID); ok {
			scores[p.ID] = v
		}
	}
	return rankScores(scores, recommend.AlgorithmMatrix, limit), nil
}

// FindSimilarUsers returns the k users whose factor vectors are closest by
// cosine similarity.
func (l *LatentFactor) FindSimilarUsers(ctx context.Context, userID, k int) ([]Neighbor, error) {
	m, err := l.Model()
	if err != nil {
		return nil, err
	}
	u, ok := m.UserIndex[userID]
	if !ok {
		return nil, nil
	}
	target := m.UserFactors[u]

	out := make([]Neighbor, 0, len(m.UserIndex)-1)
	for other, idx := range m.UserIndex {
		if other == userID {
			continue
		}
		if len(out)%512 == 0 && ContextCancelled(ctx) {
			return nil, ctx.Err()
		}
		out = append(out, Neighbor{ID: other, Similarity: cosineSimilarity(target, m.UserFactors[idx])})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].ID < out[j].ID
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// Score implements recommend.Scorer.
//
//nolint:gocritic // hugeParam: req passed by value per the Scorer interface
func (l *LatentFactor) Score(ctx context.Context, req recommend.ScoreRequest) (recommend.ScoreResult, error) {
	items, err := l.GetMatrixFactorizationRecommendations(ctx, req.UserID, req.Limit, req.Filters)
	if err != nil {
		return recommend.ScoreResult{}, &recommend.ScorerError{
			Algorithm: recommend.AlgorithmMatrix,
			UserID:    req.UserID,
			Stage:     "predict",
			Err:       fmt.Errorf("%w: %w", recommend.ErrDataUnavailable, err),
		}
	}
	if len(items) == 0 {
		return recommend.ScoreResult{}, nil
	}
	return recommend.ScoreResult{Items: items, Confidence: l.cfg.Confidence}, nil
}
