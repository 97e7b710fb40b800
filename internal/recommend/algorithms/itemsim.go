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
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/cache"
	"github.com/tomtom215/vitrine/internal/recommend"
)

// Neighbor is a similar product and its similarity.
type Neighbor struct {
	ID         int
	Similarity float64
}

// SimilarityMatrix is a sparse, symmetric item-item cosine similarity matrix.
// Only pairs with at least one co-rater are stored; every other pair has
// similarity 0. Immutable once built.
type SimilarityMatrix struct {
	sims      map[int]map[int]float64
	neighbors map[int][]Neighbor
}

// Similarity returns sim(a, b). sim(a, a) is always 1.
func (m *SimilarityMatrix) Similarity(a, b int) float64 {
	if a == b {
		return 1
	}
	return m.sims[a][b]
}

// Neighbors returns a's neighbors ordered by similarity descending, capped
// at the configured neighbor count. The slice is shared and must not be
// modified.
func (m *SimilarityMatrix) Neighbors(a int) []Neighbor {
	return m.neighbors[a]
}

// Pairs returns the number of stored unordered pairs.
func (m *SimilarityMatrix) Pairs() int {
	n := 0
	for _, row := range m.sims {
		n += len(row)
	}
	return n / 2
}

// BuildSimilarityMatrix computes cosine similarity for every product pair over
// the users who rated both. Each unordered pair is computed once and mirrored
// so sim(a,b) and sim(b,a) are the same value. Rows are spread across workers.
func BuildSimilarityMatrix(ctx context.Context, ratings *recommend.RatingMatrix, workers, maxNeighbors int) (*SimilarityMatrix, error) {
	if workers < 1 {
		workers = 1
	}

	// Inverted index: product -> user -> rating.
	index := make(map[int]map[int]float64)
	for _, r := range ratings.Triples() {
		row := index[r.ProductID]
		if row == nil {
			row = make(map[int]float64)
			index[r.ProductID] = row
		}
		row[r.UserID] = r.Value
	}

	products := ratings.Products()
	m := &SimilarityMatrix{
		sims:      make(map[int]map[int]float64, len(products)),
		neighbors: make(map[int][]Neighbor, len(products)),
	}

	type pairSim struct {
		a, b int
		sim  float64
	}

	jobs := make(chan int)
	results := make(chan []pairSim, workers)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range jobs {
				rowA := index[a]
				type acc struct{ dot, na, nb float64 }
				partial := make(map[int]*acc)
				for user, ra := range rowA {
					for b, rb := range ratings.UserRatings(user) {
						if b <= a {
							continue
						}
						p := partial[b]
						if p == nil {
							p = &acc{}
							partial[b] = p
						}
						p.dot += ra * rb
						p.na += ra * ra
						p.nb += rb * rb
					}
				}
				out := make([]pairSim, 0, len(partial))
				for b, p := range partial {
					if p.na == 0 || p.nb == 0 {
						continue
					}
					out = append(out, pairSim{a: a, b: b, sim: p.dot / (math.Sqrt(p.na) * math.Sqrt(p.nb))})
				}
				results <- out
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, a := range products {
			if ContextCancelled(ctx) {
				return
			}
			jobs <- a
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	set := func(a, b int, v float64) {
		row := m.sims[a]
		if row == nil {
			row = make(map[int]float64)
			m.sims[a] = row
		}
		row[b] = v
	}
	for batch := range results {
		for _, p := range batch {
			set(p.a, p.b, p.sim)
			set(p.b, p.a, p.sim)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build similarity matrix: %w", err)
	}

	for a, row := range m.sims {
		list := make([]Neighbor, 0, len(row))
		for b, v := range row {
			list = append(list, Neighbor{ID: b, Similarity: v})
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].Similarity != list[j].Similarity {
				return list[i].Similarity > list[j].Similarity
			}
			return list[i].ID < list[j].ID
		})
		if maxNeighbors > 0 && len(list) > maxNeighbors {
			list = list[:maxNeighbors]
		}
		m.neighbors[a] = list
	}

	return m, nil
}

// ItemSimilarity is item-based collaborative filtering over the rating matrix.
//
// For a user u and an unrated product p:
//
//	predict(u, p) = sum_j sim(p, j) * r(u, j) / sum_j sim(p, j)
//
// over the products j rated by u with sim(p, j) > 0.
type ItemSimilarity struct {
	corpus *recommend.Corpus
	cfg    recommend.CollaborativeConfig
	logger zerolog.Logger

	matrix *cache.Slot[*SimilarityMatrix]
}

// NewItemSimilarity creates the collaborative scorer. The similarity matrix
// is cached in the corpus cache manager.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewItemSimilarity(corpus *recommend.Corpus, cfg *recommend.Config, logger zerolog.Logger) *ItemSimilarity {
	s := &ItemSimilarity{
		corpus: corpus,
		cfg:    cfg.Collaborative,
		logger: logger.With().Str("algorithm", recommend.AlgorithmCollaborative).Logger(),
	}
	s.matrix = cache.NewSlot(corpus.Manager(), "similarity", cfg.Cache.SimilarityTTL, s.build)
	return s
}

func (s *ItemSimilarity) build(ctx context.Context) (*SimilarityMatrix, error) {
	ratings, err := s.corpus.Ratings(ctx)
	if err != nil {
		return nil, err
	}
	m, err := BuildSimilarityMatrix(ctx, ratings, s.cfg.Workers, s.cfg.MaxNeighbors)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().
		Int("products", len(ratings.Products())).
		Int("pairs", m.Pairs()).
		Msg("Similarity matrix built")
	return m, nil
}

// Name returns the algorithm identifier.
func (s *ItemSimilarity) Name() string {
	return recommend.AlgorithmCollaborative
}

// Matrix returns the cached similarity matrix.
func (s *ItemSimilarity) Matrix(ctx context.Context) (*SimilarityMatrix, error) {
	return s.matrix.Get(ctx)
}

// FindSimilarItems returns the k most similar products, excluding productID.
func (s *ItemSimilarity) FindSimilarItems(ctx context.Context, productID, k int) ([]recommend.ScoredProduct, error) {
	m, err := s.matrix.Get(ctx)
	if err != nil {
		return nil, err
	}
	list := m.Neighbors(productID)
	if k > 0 && len(list) > k {
		list = list[:k]
	}
	out := make([]recommend.ScoredProduct, 0, len(list))
	for _, n := range list {
		out = append(out, recommend.ScoredProduct{
			ProductID: n.ID,
			Score:     n.Similarity,
			Algorithm: recommend.AlgorithmCollaborative,
		})
	}
	return out, nil
}

// PredictRating returns the stored rating unchanged when the user already
// rated the product, otherwise the similarity-weighted average of the user's
// other ratings. Returns 0 when no positive overlap exists.
func (s *ItemSimilarity) PredictRating(ctx context.Context, userID, productID int) (float64, error) {
	ratings, err := s.corpus.Ratings(ctx)
	if err != nil {
		return 0, err
	}
	if r, ok := ratings.Rating(userID, productID); ok {
		return r, nil
	}
	m, err := s.matrix.Get(ctx)
	if err != nil {
		return 0, err
	}
	return predictFromSimilarity(m, ratings.UserRatings(userID), productID), nil
}

func predictFromSimilarity(m *SimilarityMatrix, userRatings map[int]float64, productID int) float64 {
	var num, den float64
	for j, r := range userRatings {
		sim := m.Similarity(productID, j)
		if sim <= 0 {
			continue
		}
		num += sim * r
		den += sim
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// GetCollaborativeRecommendations ranks the catalog products the user has
// not rated by predicted rating. Cold-start users get an empty list.
//
//nolint:gocritic // hugeParam: filters passed by value for immutability
func (s *ItemSimilarity) GetCollaborativeRecommendations(ctx context.Context, userID, limit int, filters recommend.Filters) ([]recommend.ScoredProduct, error) {
	ratings, err := s.corpus.Ratings(ctx)
	if err != nil {
		return nil, err
	}
	userRatings := ratings.UserRatings(userID)
	if len(userRatings) == 0 {
		return nil, nil
	}

	m, err := s.matrix.Get(ctx)
	if err != nil {
		return nil, err
	}
	catalog, err := s.corpus.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	// Only products sharing a co-rater with something the user rated can
	// score above zero. Rows are read uncapped so the neighbor limit never
	// hides a product with a positive prediction.
	candidates := make(map[int]struct{})
	for j := range userRatings {
		for id, sim := range m.sims[j] {
			if sim > 0 {
				candidates[id] = struct{}{}
			}
		}
	}

	scores := make(map[int]float64, len(candidates))
	for id := range candidates {
		if _, rated := userRatings[id]; rated {
			continue
		}
		p, ok := catalog.Product(id)
		if !ok || !filters.Match(p) {
			continue
		}
		if pred := predictFromSimilarity(m, userRatings, id); pred > 0 {
			scores[id] = pred
		}
	}

	return rankScores(scores, recommend.AlgorithmCollaborative, limit), nil
}

// Score implements recommend.Scorer.
//
//nolint:gocritic // hugeParam: req passed by value per the Scorer interface
func (s *ItemSimilarity) Score(ctx context.Context, req recommend.ScoreRequest) (recommend.ScoreResult, error) {
	items, err := s.GetCollaborativeRecommendations(ctx, req.UserID, req.Limit, req.Filters)
	if err != nil {
		return recommend.ScoreResult{}, &recommend.ScorerError{
			Algorithm: recommend.AlgorithmCollaborative,
			UserID:    req.UserID,
			Stage:     "predict",
			Err:       fmt.Errorf("%w: %w", recommend.ErrDataUnavailable, err),
		}
	}
	if len(items) == 0 {
		return recommend.ScoreResult{}, nil
	}
	return recommend.ScoreResult{Items: items, Confidence: s.cfg.Confidence}, nil
}
