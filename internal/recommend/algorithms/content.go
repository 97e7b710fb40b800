// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package algorithms

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/cache"
	"github.com/tomtom215/vitrine/internal/recommend"
)

// Numeric feature keys.
const (
	FeatureFeatured   = "featured"
	FeatureNew        = "new"
	FeaturePopularity = "popularity"
)

// priceBucketBounds are the upper bounds of the first six price buckets;
// bucket 6 is [1000, inf).
var priceBucketBounds = [...]float64{25, 50, 100, 200, 500, 1000}

// PriceBucketCount is the number of price buckets.
const PriceBucketCount = len(priceBucketBounds) + 1

// PriceBucket maps a price to its bucket index in [0, 6].
func PriceBucket(price float64) int {
	for i, bound := range priceBucketBounds {
		if price < bound {
			return i
		}
	}
	return len(priceBucketBounds)
}

// ProductFeatureVector is the content representation of one product.
type ProductFeatureVector struct {
	ProductID   int
	CategoryID  int
	PriceBucket int
	Keywords    map[string]struct{}
	Numeric     map[string]float64
}

// NewProductFeatureVector derives a feature vector. maxViews normalizes the
// popularity feature and now decides the new flag.
func NewProductFeatureVector(p *recommend.Product, maxViews int, newWindow time.Duration, now time.Time) *ProductFeatureVector {
	v := &ProductFeatureVector{
		ProductID:   p.ID,
		CategoryID:  p.CategoryID,
		PriceBucket: PriceBucket(p.Price),
		Keywords:    Tokenize(p.Name, p.Description),
		Numeric:     make(map[string]float64, 3),
	}
	if p.IsFeatured {
		v.Numeric[FeatureFeatured] = 1
	} else {
		v.Numeric[FeatureFeatured] = 0
	}
	if !p.CreatedAt.IsZero() && now.Sub(p.CreatedAt) <= newWindow {
		v.Numeric[FeatureNew] = 1
	} else {
		v.Numeric[FeatureNew] = 0
	}
	if maxViews > 0 {
		v.Numeric[FeaturePopularity] = float64(p.ViewCount) / float64(maxViews)
	} else {
		v.Numeric[FeaturePopularity] = 0
	}
	return v
}

// CalculateSimilarityScore blends category match, price bucket proximity,
// keyword Jaccard and numeric proximity, divided by the weight of the
// components that apply. The result is in [0, 1] and maximal for a == b.
func CalculateSimilarityScore(a, b *ProductFeatureVector, cfg *recommend.ContentConfig) float64 {
	var score, applicable float64

	if cfg.CategoryWeight > 0 {
		applicable += cfg.CategoryWeight
		if a.CategoryID == b.CategoryID {
			score += cfg.CategoryWeight
		}
	}

	if cfg.PriceWeight > 0 {
		applicable += cfg.PriceWeight
		distance := math.Abs(float64(a.PriceBucket - b.PriceBucket))
		score += cfg.PriceWeight * (1 - distance/float64(PriceBucketCount-1))
	}

	if cfg.KeywordWeight > 0 && (len(a.Keywords) > 0 || len(b.Keywords) > 0) {
		applicable += cfg.KeywordWeight
		score += cfg.KeywordWeight * jaccardSimilarity(a.Keywords, b.Keywords)
	}

	if cfg.NumericWeight > 0 {
		var diff float64
		shared := 0
		for k, va := range a.Numeric {
			vb, ok := b.Numeric[k]
			if !ok {
				continue
			}
			diff += math.Min(1, math.Abs(va-vb))
			shared++
		}
		if shared > 0 {
			applicable += cfg.NumericWeight
			score += cfg.NumericWeight * (1 - diff/float64(shared))
		}
	}

	if applicable == 0 {
		return 0
	}
	return score / applicable
}

// FeatureMap holds the feature vector of every catalog product.
type FeatureMap struct {
	vectors map[int]*ProductFeatureVector
	ids     []int
}

// Vector returns a product's feature vector.
func (f *FeatureMap) Vector(productID int) (*ProductFeatureVector, bool) {
	v, ok := f.vectors[productID]
	return v, ok
}

// Len returns the number of vectors.
func (f *FeatureMap) Len() int {
	return len(f.ids)
}

// BuildFeatureMap derives vectors for every product in the catalog.
func BuildFeatureMap(catalog *recommend.Catalog, newWindow time.Duration, now time.Time) *FeatureMap {
	products := catalog.Products()
	f := &FeatureMap{
		vectors: make(map[int]*ProductFeatureVector, len(products)),
		ids:     make([]int, 0, len(products)),
	}
	for i := range products {
		f.vectors[products[i].ID] = NewProductFeatureVector(&products[i], catalog.MaxViewCount(), newWindow, now)
		f.ids = append(f.ids, products[i].ID)
	}
	return f
}

// ContentEngine is content-based filtering over catalog features.
type ContentEngine struct {
	corpus   *recommend.Corpus
	cfg      recommend.ContentConfig
	lookback time.Duration
	logger   zerolog.Logger

	features *cache.Slot[*FeatureMap]
}

// NewContentEngine creates the content scorer. Feature vectors are cached in
// the corpus cache manager.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewContentEngine(corpus *recommend.Corpus, cfg *recommend.Config, logger zerolog.Logger) *ContentEngine {
	c := &ContentEngine{
		corpus:   corpus,
		cfg:      cfg.Content,
		lookback: cfg.History.Lookback,
		logger:   logger.With().Str("algorithm", recommend.AlgorithmContent).Logger(),
	}
	c.features = cache.NewSlot(corpus.Manager(), "features", cfg.Cache.FeaturesTTL, c.build)
	return c
}

func (c *ContentEngine) build(ctx context.Context) (*FeatureMap, error) {
	catalog, err := c.corpus.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	f := BuildFeatureMap(catalog, c.cfg.NewProductWindow, c.corpus.Now())
	c.logger.Debug().Int("products", f.Len()).Msg("Feature vectors built")
	return f, nil
}

// Name returns the algorithm identifier.
func (c *ContentEngine) Name() string {
	return recommend.AlgorithmContent
}

// Features returns the cached feature map.
func (c *ContentEngine) Features(ctx context.Context) (*FeatureMap, error) {
	return c.features.Get(ctx)
}

// SimilarityFunc returns a pairwise content similarity over the cached
// feature map. Products missing from the map score 0 against everything.
func (c *ContentEngine) SimilarityFunc(ctx context.Context) (func(a, b int) float64, error) {
	f, err := c.features.Get(ctx)
	if err != nil {
		return nil, err
	}
	cfg := c.cfg
	return func(a, b int) float64 {
		va, okA := f.Vector(a)
		vb, okB := f.Vector(b)
		if !okA || !okB {
			return 0
		}
		return CalculateSimilarityScore(va, vb, &cfg)
	}, nil
}

// FindSimilarProducts ranks filter-matching products by content similarity
// to productID, excluding productID itself.
//
//nolint:gocritic // hugeParam: filters passed by value for immutability
func (c *ContentEngine) FindSimilarProducts(ctx context.Context, productID, k int, filters recommend.Filters) ([]recommend.ScoredProduct, error) {
	f, err := c.features.Get(ctx)
	if err != nil {
		return nil, err
	}
	seed, ok := f.Vector(productID)
	if !ok {
		return nil, nil
	}
	return c.rankAgainstSeeds(ctx, f, []*ProductFeatureVector{seed}, k, 0, filters)
}

// GetContentBasedRecommendations seeds from the user's most recent purchases
// and recently viewed products, and ranks every other product by its best
// similarity to any seed. Candidates below MinSimilarity are dropped.
//
//nolint:gocritic // hugeParam: filters passed by value for immutability
func (c *ContentEngine) GetContentBasedRecommendations(ctx context.Context, userID, limit int, filters recommend.Filters) ([]recommend.ScoredProduct, error) {
	var since time.Time
	if c.lookback > 0 {
		since = c.corpus.Now().Add(-c.lookback)
	}
	events, err := c.corpus.UserEvents(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	seedIDs := SelectSeeds(events, c.cfg.MaxPurchaseSeeds, c.cfg.MaxViewSeeds)
	if len(seedIDs) == 0 {
		return nil, nil
	}

	f, err := c.features.Get(ctx)
	if err != nil {
		return nil, err
	}
	seeds := make([]*ProductFeatureVector, 0, len(seedIDs))
	for _, id := range seedIDs {
		if v, ok := f.Vector(id); ok {
			seeds = append(seeds, v)
		}
	}
	if len(seeds) == 0 {
		return nil, nil
	}
	return c.rankAgainstSeeds(ctx, f, seeds, limit, c.cfg.MinSimilarity, filters)
}

func (c *ContentEngine) rankAgainstSeeds(ctx context.Context, f *FeatureMap, seeds []*ProductFeatureVector, limit int, floor float64, filters recommend.Filters) ([]recommend.ScoredProduct, error) {
	catalog, err := c.corpus.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	isSeed := make(map[int]struct{}, len(seeds))
	for _, s := range seeds {
		isSeed[s.ProductID] = struct{}{}
	}

	scores := make(map[int]float64)
	for i, id := range f.ids {
		if i%256 == 0 && ContextCancelled(ctx) {
			return nil, ctx.Err()
		}
		if _, skip := isSeed[id]; skip {
			continue
		}
		p, ok := catalog.Product(id)
		if !ok || !filters.Match(p) {
			continue
		}
		candidate := f.vectors[id]
		best := 0.0
		for _, s := range seeds {
			if sim := CalculateSimilarityScore(s, candidate, &c.cfg); sim > best {
				best = sim
			}
		}
		if best > 0 && best >= floor {
			scores[id] = best
		}
	}
	return rankScores(scores, recommend.AlgorithmContent, limit), nil
}

// SelectSeeds picks up to maxPurchases of the most recent distinct
// purchases, followed by up to maxViews of the most recent distinct viewed
// products that are not already seeds.
func SelectSeeds(events []recommend.InteractionEvent, maxPurchases, maxViews int) []int {
	sorted := append([]recommend.InteractionEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	seen := make(map[int]struct{})
	var seeds []int
	pick := func(match func(ev *recommend.InteractionEvent) bool, limit int) {
		taken := 0
		for i := range sorted {
			if taken >= limit {
				return
			}
			if !match(&sorted[i]) {
				continue
			}
			if _, dup := seen[sorted[i].ProductID]; dup {
				continue
			}
			seen[sorted[i].ProductID] = struct{}{}
			seeds = append(seeds, sorted[i].ProductID)
			taken++
		}
	}

	pick(func(ev *recommend.InteractionEvent) bool {
		return ev.Type == recommend.EventPurchase ||
			(ev.Type == recommend.EventRecoInteraction && ev.Action == "purchase")
	}, maxPurchases)
	pick(func(ev *recommend.InteractionEvent) bool {
		return ev.Type == recommend.EventView ||
			(ev.Type == recommend.EventRecoInteraction && ev.Action == "view")
	}, maxViews)
	return seeds
}

// Score implements recommend.Scorer.
//
//nolint:gocritic // hugeParam: req passed by value per the Scorer interface
func (c *ContentEngine) Score(ctx context.Context, req recommend.ScoreRequest) (recommend.ScoreResult, error) {
	items, err := c.GetContentBasedRecommendations(ctx, req.UserID, req.Limit, req.Filters)
	if err != nil {
		return recommend.ScoreResult{}, &recommend.ScorerError{
			Algorithm: recommend.AlgorithmContent,
			UserID:    req.UserID,
			Stage:     "similarity",
			Err:       fmt.Errorf("%w: %w", recommend.ErrDataUnavailable, err),
		}
	}
	if len(items) == 0 {
		return recommend.ScoreResult{}, nil
	}
	return recommend.ScoreResult{Items: items, Confidence: c.cfg.Confidence}, nil
}
