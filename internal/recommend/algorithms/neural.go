// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package algorithms

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/cache"
	"github.com/tomtom215/vitrine/internal/recommend"
)

// Product score blend for the neural scorer.
const (
	neuralCategoryWeight   = 0.7
	neuralPreferenceWeight = 0.3
)

// NeuralSnapshotName is the model store key for the neural model.
const NeuralSnapshotName = "neural"

const neuralSnapshotVersion = 1

// BackendNeural names the trained network backend.
const BackendNeural = "neural"

// errInsufficientTraining skips a training cycle on a small corpus.
var errInsufficientTraining = errors.New("insufficient training data")

// ScoringBackend maps a behavior profile to a distribution over the top
// categories of its feature space.
type ScoringBackend interface {
	Name() string
	Ready() bool
	Predict(ctx context.Context, profile *BehaviorProfile) ([]float64, error)
}

// NeuralModel is a trained network together with the feature space its
// inputs were encoded in.
type NeuralModel struct {
	Space     *FeatureSpace
	Net       *Network
	Profiles  int
	Strong    int
	Loss      float64
	TrainedAt time.Time
}

// NeuralBackend scores with a trained NeuralModel.
type NeuralBackend struct {
	model *NeuralModel
}

// NewNeuralBackend wraps a trained model.
func NewNeuralBackend(model *NeuralModel) *NeuralBackend {
	return &NeuralBackend{model: model}
}

// Name returns "neural".
func (b *NeuralBackend) Name() string {
	return BackendNeural
}

// Ready reports whether the model has a network.
func (b *NeuralBackend) Ready() bool {
	return b.model != nil && b.model.Net != nil
}

// Predict runs the network on the profile vector.
func (b *NeuralBackend) Predict(ctx context.Context, profile *BehaviorProfile) ([]float64, error) {
	if !b.Ready() {
		return nil, recommend.ErrModelNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := b.model.Net.Forward(profile.Vector)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", recommend.ErrComputeBackend, err)
	}
	return out, nil
}

// NeuralScorer predicts which categories a user is drawn to and ranks
// in-stock products by that distribution and by how closely they match the
// user's price, novelty, featured and popularity preferences. It uses the
// trained network when one is available and the rule backend otherwise.
type NeuralScorer struct {
	corpus    *recommend.Corpus
	cfg       recommend.NeuralConfig
	newWindow time.Duration
	lookback  time.Duration
	ttl       time.Duration
	store     SnapshotStore
	logger    zerolog.Logger

	model *cache.Slot[*NeuralModel]
	space *cache.Slot[*FeatureSpace]
}

// NewNeuralScorer creates the neural scorer. store may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewNeuralScorer(corpus *recommend.Corpus, cfg *recommend.Config, store SnapshotStore, logger zerolog.Logger) *NeuralScorer {
	n := &NeuralScorer{
		corpus:    corpus,
		cfg:       cfg.Neural,
		newWindow: cfg.Content.NewProductWindow,
		lookback:  cfg.History.Lookback,
		ttl:       cfg.Cache.NeuralTTL,
		store:     store,
		logger:    logger.With().Str("algorithm", recommend.AlgorithmNeural).Logger(),
	}
	n.model = cache.NewManualSlot(corpus.Manager(), "neural", cfg.Cache.NeuralTTL, n.train)
	n.space = cache.NewSlot(corpus.Manager(), "behavior_space", cfg.Cache.FeaturesTTL, n.buildSpace)
	return n
}

// Name returns the algorithm identifier.
func (n *NeuralScorer) Name() string {
	return recommend.AlgorithmNeural
}

func (n *NeuralScorer) buildSpace(ctx context.Context) (*FeatureSpace, error) {
	catalog, err := n.corpus.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := n.corpus.Interactions(ctx)
	if err != nil {
		return nil, err
	}
	return BuildFeatureSpace(catalog, snap.Events, n.newWindow), nil
}

// Backend returns the active backend and the feature space profiles must be
// encoded in.
func (n *NeuralScorer) Backend(ctx context.Context) (ScoringBackend, *FeatureSpace, error) {
	if e, ok := n.model.Peek(); ok && e.Data != nil && e.Data.Net != nil {
		return NewNeuralBackend(e.Data), e.Data.Space, nil
	}
	space, err := n.space.Get(ctx)
	if err != nil {
		return nil, nil, err
	}
	return NewRuleBackend(space, n.corpus.Now()), space, nil
}

func (n *NeuralScorer) train(ctx context.Context) (*NeuralModel, error) {
	catalog, err := n.corpus.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := n.corpus.Interactions(ctx)
	if err != nil {
		return nil, err
	}
	now := n.corpus.Now()
	space := BuildFeatureSpace(catalog, snap.Events, n.newWindow)
	profiles := space.BuildProfiles(snap, catalog, now)

	strong := 0
	var x, y [][]float64
	for _, p := range profiles {
		strong += p.Strong
		if p.Labels != nil {
			x = append(x, p.Vector)
			y = append(y, p.Labels)
		}
	}
	if len(profiles) < n.cfg.MinProfiles || strong < n.cfg.MinStrongInteractions || len(x) == 0 {
		return nil, fmt.Errorf("%w: %d profiles, %d strong interactions", errInsufficientTraining, len(profiles), strong)
	}

	seed := n.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	//nolint:gosec // G404: math/rand is acceptable for ML initialization (not security)
	rng := rand.New(rand.NewSource(seed))

	sizes := append([]int{BehaviorDims}, n.cfg.Hidden...)
	sizes = append(sizes, TopCategories)
	net, err := NewNetwork(sizes, rng)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	loss, err := net.Fit(ctx, x, y, TrainOptions{
		LearningRate: n.cfg.LearningRate,
		Epochs:       n.cfg.Epochs,
		BatchSize:    n.cfg.BatchSize,
		Dropout:      n.cfg.Dropout,
	}, rng)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", recommend.ErrComputeBackend, err)
	}

	m := &NeuralModel{
		Space:     space,
		Net:       net,
		Profiles:  len(profiles),
		Strong:    strong,
		Loss:      loss,
		TrainedAt: now,
	}
	n.logger.Info().
		Int("profiles", len(profiles)).
		Int("labeled", len(x)).
		Int("strong", strong).
		Float64("loss", loss).
		Dur("duration", time.Since(start)).
		Msg("Neural model trained")

	if n.store != nil {
		if err := n.store.SaveSnapshot(ctx, NeuralSnapshotName, neuralSnapshotVersion, m); err != nil {
			n.logger.Warn().Err(err).Msg("Failed to snapshot neural model")
		}
	}
	return m, nil
}

// Train retrains the network unless the published one is younger than its
// TTL. A corpus below the minimum size skips the cycle without error; the
// rule backend keeps serving.
func (n *NeuralScorer) Train(ctx context.Context) error {
	switch n.model.State() {
	case cache.StateReady, cache.StateBuilding:
		return nil
	}
	_, err := n.model.Refresh(ctx)
	if errors.Is(err, errInsufficientTraining) {
		n.logger.Info().Err(err).Msg("Neural training skipped, using rule backend")
		return nil
	}
	return err
}

// Restore loads the stored snapshot when it is younger than the TTL.
func (n *NeuralScorer) Restore(ctx context.Context) error {
	if n.store == nil {
		return nil
	}
	var m NeuralModel
	savedAt, err := n.store.LoadSnapshot(ctx, NeuralSnapshotName, &m)
	if errors.Is(err, recommend.ErrSnapshotNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore neural model: %w", err)
	}
	if age := n.corpus.Now().Sub(savedAt); age >= n.ttl {
		n.logger.Info().Dur("age", age).Msg("Neural snapshot expired, retraining")
		return nil
	}
	n.model.Set(&m, savedAt)
	n.logger.Info().Time("saved_at", savedAt).Msg("Neural model restored from snapshot")
	return nil
}

// Recommend ranks in-stock, filter-matching products for the user and
// reports which backend produced the ranking. Users without history get an
// empty list.
//
//nolint:gocritic // hugeParam: filters passed by value for immutability
func (n *NeuralScorer) Recommend(ctx context.Context, userID, limit int, filters recommend.Filters) ([]recommend.ScoredProduct, string, error) {
	backend, space, err := n.Backend(ctx)
	if err != nil {
		return nil, "", err
	}
	if !backend.Ready() {
		return nil, backend.Name(), nil
	}

	var since time.Time
	if n.lookback > 0 {
		since = n.corpus.Now().Add(-n.lookback)
	}
	events, err := n.corpus.UserEvents(ctx, userID, since)
	if err != nil {
		return nil, backend.Name(), err
	}
	catalog, err := n.corpus.Catalog(ctx)
	if err != nil {
		return nil, backend.Name(), err
	}

	now := n.corpus.Now()
	profile := space.BuildProfile(userID, events, catalog, now)
	if profile.Events == 0 {
		return nil, backend.Name(), nil
	}

	probs, err := backend.Predict(ctx, profile)
	if err != nil {
		return nil, backend.Name(), err
	}

	scores := make(map[int]float64)
	for i := range catalog.Products() {
		p := &catalog.Products()[i]
		if !p.InStock() || !filters.Match(p) {
			continue
		}
		var catProb float64
		if c, ok := space.CategoryIndex[p.CategoryID]; ok && c < len(probs) {
			catProb = probs[c]
		}
		sim := preferenceSimilarity(profile.Preference, space.ProductPreference(p, now))
		if score := neuralCategoryWeight*catProb + neuralPreferenceWeight*sim; score > 0 {
			scores[p.ID] = score
		}
	}
	return rankScores(scores, recommend.AlgorithmNeural, limit), backend.Name(), nil
}

// Score implements recommend.Scorer.
//
//nolint:gocritic // hugeParam: req passed by value per the Scorer interface
func (n *NeuralScorer) Score(ctx context.Context, req recommend.ScoreRequest) (recommend.ScoreResult, error) {
	items, backend, err := n.Recommend(ctx, req.UserID, req.Limit, req.Filters)
	if err != nil {
		return recommend.ScoreResult{}, &recommend.ScorerError{
			Algorithm: recommend.AlgorithmNeural,
			UserID:    req.UserID,
			Stage:     backend,
			Err:       err,
		}
	}
	if len(items) == 0 {
		return recommend.ScoreResult{}, nil
	}
	confidence := n.cfg.RuleConfidence
	if backend == BackendNeural {
		confidence = n.cfg.NeuralConfidence
	}
	return recommend.ScoreResult{Items: items, Confidence: confidence}, nil
}
