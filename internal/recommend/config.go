// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package recommend

import (
	"fmt"
	"time"
)

// Position decay functions for rank fusion.
const (
	// DecayLinear is 1/(i/10+1).
	DecayLinear = "linear"
	// DecayReciprocalRank is 1/(i+1).
	DecayReciprocalRank = "reciprocal_rank"
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// Weights are the default blend weights, used until the optimizer
	// persists its own.
	Weights AlgorithmWeights `json:"weights" koanf:"weights"`

	// Limits contains request limits and per-scorer deadlines.
	Limits LimitsConfig `json:"limits" koanf:"limits"`

	// Fusion contains rank fusion and contextual multiplier parameters.
	Fusion FusionConfig `json:"fusion" koanf:"fusion"`

	// Filter contains already-interacted filtering parameters.
	Filter FilterConfig `json:"filter" koanf:"filter"`

	// Cache contains TTLs for derived structures.
	Cache CacheConfig `json:"cache" koanf:"cache"`

	// Breaker contains per-scorer circuit breaker parameters.
	Breaker BreakerConfig `json:"breaker" koanf:"breaker"`

	// History bounds how much interaction history is aggregated.
	History HistoryConfig `json:"history" koanf:"history"`

	// Collaborative contains item similarity parameters.
	Collaborative CollaborativeConfig `json:"collaborative" koanf:"collaborative"`

	// Content contains content feature parameters.
	Content ContentConfig `json:"content" koanf:"content"`

	// Latent contains latent factor model parameters.
	Latent LatentConfig `json:"latent" koanf:"latent"`

	// Neural contains neural scorer parameters.
	Neural NeuralConfig `json:"neural" koanf:"neural"`

	// Rerank contains the optional diversity reranking stage.
	Rerank RerankConfig `json:"rerank" koanf:"rerank"`

	// RefreshInterval is how often the background service refreshes cached
	// structures and retrains the models.
	// Default: 15m.
	RefreshInterval time.Duration `json:"refresh_interval" koanf:"refresh_interval"`

	// TrainOnStartup trains the models before the first refresh tick.
	// Default: true.
	TrainOnStartup bool `json:"train_on_startup" koanf:"train_on_startup"`
}

// LimitsConfig contains request limits and per-scorer deadlines.
type LimitsConfig struct {
	// DefaultLimit is used when a request does not set one.
	// Default: 10.
	DefaultLimit int `json:"default_limit" koanf:"default_limit"`

	// MaxLimit caps the requested limit.
	// Default: 100.
	MaxLimit int `json:"max_limit" koanf:"max_limit"`

	// ScorerTimeout is the deadline for collaborative, content and matrix branches.
	// Default: 3s.
	ScorerTimeout time.Duration `json:"scorer_timeout" koanf:"scorer_timeout"`

	// PopularTimeout is the deadline for the popularity branch.
	// Default: 1s.
	PopularTimeout time.Duration `json:"popular_timeout" koanf:"popular_timeout"`

	// NeuralTimeout is the deadline for the neural branch.
	// Default: 10s.
	NeuralTimeout time.Duration `json:"neural_timeout" koanf:"neural_timeout"`

	// MaxSearchQueryLength drops longer search queries from the context.
	// Default: 200.
	MaxSearchQueryLength int `json:"max_search_query_length" koanf:"max_search_query_length"`
}

// TimeoutFor returns the branch deadline for an algorithm.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (l LimitsConfig) TimeoutFor(algorithm string) time.Duration {
	switch algorithm {
	case AlgorithmNeural:
		return l.NeuralTimeout
	case AlgorithmPopular:
		return l.PopularTimeout
	default:
		return l.ScorerTimeout
	}
}

// FusionConfig contains rank fusion and contextual multiplier parameters.
type FusionConfig struct {
	// Decay selects the position decay function.
	// Default: linear.
	Decay string `json:"decay" koanf:"decay"`

	// ContentContextBoost scales content when a category or search query is active.
	// Default: 1.5.
	ContentContextBoost float64 `json:"content_context_boost" koanf:"content_context_boost"`

	// SeasonPopularBoost scales popularity when season focus is set.
	// Default: 1.3.
	SeasonPopularBoost float64 `json:"season_popular_boost" koanf:"season_popular_boost"`

	// FrequentBuyerThreshold is purchases per 30 days above which a user is
	// treated as a frequent buyer.
	// Default: 2.
	FrequentBuyerThreshold float64 `json:"frequent_buyer_threshold" koanf:"frequent_buyer_threshold"`

	// FrequentBuyerNeuralBoost scales neural for frequent buyers.
	// Default: 1.2.
	FrequentBuyerNeuralBoost float64 `json:"frequent_buyer_neural_boost" koanf:"frequent_buyer_neural_boost"`

	// FrequentBuyerCollaborativeBoost scales collaborative for frequent buyers.
	// Default: 1.1.
	FrequentBuyerCollaborativeBoost float64 `json:"frequent_buyer_collaborative_boost" koanf:"frequent_buyer_collaborative_boost"`

	// CartAbandonThreshold is the abandon rate above which content is boosted.
	// Default: 0.5.
	CartAbandonThreshold float64 `json:"cart_abandon_threshold" koanf:"cart_abandon_threshold"`

	// CartAbandonContentBoost scales content for frequent cart abandoners.
	// Default: 1.1.
	CartAbandonContentBoost float64 `json:"cart_abandon_content_boost" koanf:"cart_abandon_content_boost"`

	// BrandExplorerThreshold is the distinct brand count above which a user
	// is treated as a brand explorer.
	// Default: 5.
	BrandExplorerThreshold int `json:"brand_explorer_threshold" koanf:"brand_explorer_threshold"`

	// BrandExplorerCollaborativeBoost scales collaborative for brand explorers.
	// Default: 1.15.
	BrandExplorerCollaborativeBoost float64 `json:"brand_explorer_collaborative_boost" koanf:"brand_explorer_collaborative_boost"`

	// BrandLoyalContentBoost scales content for users loyal to few brands.
	// Default: 1.1.
	BrandLoyalContentBoost float64 `json:"brand_loyal_content_boost" koanf:"brand_loyal_content_boost"`
}

// FilterConfig contains already-interacted filtering parameters.
type FilterConfig struct {
	// InteractedLookback is how far back interactions count as "already seen".
	// Default: 30 days.
	InteractedLookback time.Duration `json:"interacted_lookback" koanf:"interacted_lookback"`
}

// CacheConfig contains TTLs for derived structures.
type CacheConfig struct {
	// CatalogTTL bounds the catalog snapshot.
	// Default: 10m.
	CatalogTTL time.Duration `json:"catalog_ttl" koanf:"catalog_ttl"`

	// RatingsTTL bounds the rating matrix.
	// Default: 30m.
	RatingsTTL time.Duration `json:"ratings_ttl" koanf:"ratings_ttl"`

	// SimilarityTTL bounds the item similarity matrix.
	// Default: 1h.
	SimilarityTTL time.Duration `json:"similarity_ttl" koanf:"similarity_ttl"`

	// FeaturesTTL bounds the product feature vector map.
	// Default: 6h.
	FeaturesTTL time.Duration `json:"features_ttl" koanf:"features_ttl"`

	// LatentTTL bounds the latent factor model. Retraining is skipped while
	// the model is younger.
	// Default: 24h.
	LatentTTL time.Duration `json:"latent_ttl" koanf:"latent_ttl"`

	// NeuralTTL bounds the neural scorer model.
	// Default: 24h.
	NeuralTTL time.Duration `json:"neural_ttl" koanf:"neural_ttl"`

	// WeightsTTL bounds the in-memory copy of persisted weights.
	// Default: 5m.
	WeightsTTL time.Duration `json:"weights_ttl" koanf:"weights_ttl"`

	// BehaviorTTL bounds how long a user's stored behavior summary is reused
	// before it is read again.
	// Default: 10m.
	BehaviorTTL time.Duration `json:"behavior_ttl" koanf:"behavior_ttl"`

	// BehaviorEntries caps the number of users whose summaries are held.
	// Default: 10000.
	BehaviorEntries int `json:"behavior_entries" koanf:"behavior_entries"`

	// RefreshAsync serves stale structures while one background rebuild runs.
	// Default: true.
	RefreshAsync bool `json:"refresh_async" koanf:"refresh_async"`
}

// BreakerConfig contains per-scorer circuit breaker parameters.
type BreakerConfig struct {
	// Enabled wraps every scorer in a circuit breaker.
	// Default: true.
	Enabled bool `json:"enabled" koanf:"enabled"`

	// MaxRequests is the number of trial requests in half-open state.
	// Default: 3.
	MaxRequests uint32 `json:"max_requests" koanf:"max_requests"`

	// Interval is the closed-state counter reset period.
	// Default: 60s.
	Interval time.Duration `json:"interval" koanf:"interval"`

	// Timeout is how long the breaker stays open.
	// Default: 30s.
	Timeout time.Duration `json:"timeout" koanf:"timeout"`

	// ConsecutiveFailures trips the breaker.
	// Default: 5.
	ConsecutiveFailures uint32 `json:"consecutive_failures" koanf:"consecutive_failures"`
}

// HistoryConfig bounds how much interaction history is aggregated.
type HistoryConfig struct {
	// Lookback is the age of the oldest event loaded into the rating matrix.
	// Default: 365 days.
	Lookback time.Duration `json:"lookback" koanf:"lookback"`

	// BehaviorWindow is the window used for on-the-fly behavior summaries.
	// Default: 90 days.
	BehaviorWindow time.Duration `json:"behavior_window" koanf:"behavior_window"`
}

// CollaborativeConfig contains item similarity parameters.
type CollaborativeConfig struct {
	// Workers is the number of goroutines computing similarity rows.
	// Default: 4.
	Workers int `json:"workers" koanf:"workers"`

	// MaxNeighbors caps the stored neighbor list per product (0 = unlimited).
	// It bounds similar-item lookups; user recommendations read full rows.
	// Default: 0.
	MaxNeighbors int `json:"max_neighbors" koanf:"max_neighbors"`

	// Confidence is the scorer confidence for users with a full history.
	// Default: 0.8.
	Confidence float64 `json:"confidence" koanf:"confidence"`
}

// ContentConfig contains content feature parameters.
type ContentConfig struct {
	// CategoryWeight weights an exact category match.
	// Default: 3.0.
	CategoryWeight float64 `json:"category_weight" koanf:"category_weight"`

	// PriceWeight weights price bucket proximity.
	// Default: 1.5.
	PriceWeight float64 `json:"price_weight" koanf:"price_weight"`

	// KeywordWeight weights keyword Jaccard similarity.
	// Default: 2.0.
	KeywordWeight float64 `json:"keyword_weight" koanf:"keyword_weight"`

	// NumericWeight weights numeric feature proximity.
	// Default: 1.0.
	NumericWeight float64 `json:"numeric_weight" koanf:"numeric_weight"`

	// MaxPurchaseSeeds is the number of recent purchases used as seeds.
	// Default: 5.
	MaxPurchaseSeeds int `json:"max_purchase_seeds" koanf:"max_purchase_seeds"`

	// MaxViewSeeds is the number of recent views used as seeds.
	// Default: 5.
	MaxViewSeeds int `json:"max_view_seeds" koanf:"max_view_seeds"`

	// MinSimilarity is the best seed similarity a candidate needs to be
	// recommended to a user. Similar-product lookups ignore it.
	// Default: 0.4. Zero disables the floor.
	MinSimilarity float64 `json:"min_similarity" koanf:"min_similarity"`

	// NewProductWindow marks products younger than this as new.
	// Default: 30 days.
	NewProductWindow time.Duration `json:"new_product_window" koanf:"new_product_window"`

	// Confidence is the scorer confidence when seeds exist.
	// Default: 0.7.
	Confidence float64 `json:"confidence" koanf:"confidence"`
}

// LatentConfig contains latent factor model parameters.
type LatentConfig struct {
	// Factors is the latent dimension K.
	// Default: 10.
	Factors int `json:"factors" koanf:"factors"`

	// LearningRate is the SGD step size.
	// Default: 0.01.
	LearningRate float64 `json:"learning_rate" koanf:"learning_rate"`

	// Regularization is the L2 coefficient on both factor matrices.
	// Default: 0.01.
	Regularization float64 `json:"regularization" koanf:"regularization"`

	// Iterations is the maximum number of epochs.
	// Default: 100.
	Iterations int `json:"iterations" koanf:"iterations"`

	// Tolerance stops training when the epoch loss improves by less.
	// Default: 1e-6.
	Tolerance float64 `json:"tolerance" koanf:"tolerance"`

	// InitStdDev scales the random factor initialization.
	// Default: 0.1.
	InitStdDev float64 `json:"init_std_dev" koanf:"init_std_dev"`

	// Seed seeds initialization and shuffling. Zero seeds from the clock.
	// Default: 42.
	Seed int64 `json:"seed" koanf:"seed"`

	// Confidence is the scorer confidence.
	// Default: 0.75.
	Confidence float64 `json:"confidence" koanf:"confidence"`
}

// NeuralConfig contains neural scorer parameters.
type NeuralConfig struct {
	// Hidden lists the hidden layer widths.
	// Default: [32, 16].
	Hidden []int `json:"hidden" koanf:"hidden"`

	// Dropout is the inverted dropout rate applied to hidden layers while training.
	// Default: 0.2.
	Dropout float64 `json:"dropout" koanf:"dropout"`

	// LearningRate is the mini-batch SGD step size.
	// Default: 0.05.
	LearningRate float64 `json:"learning_rate" koanf:"learning_rate"`

	// Epochs is the number of training epochs.
	// Default: 150.
	Epochs int `json:"epochs" koanf:"epochs"`

	// BatchSize is the mini-batch size.
	// Default: 16.
	BatchSize int `json:"batch_size" koanf:"batch_size"`

	// MinProfiles is the minimum number of behavior profiles to train.
	// Default: 50.
	MinProfiles int `json:"min_profiles" koanf:"min_profiles"`

	// MinStrongInteractions is the minimum number of strong interactions to train.
	// Default: 100.
	MinStrongInteractions int `json:"min_strong_interactions" koanf:"min_strong_interactions"`

	// Seed seeds weight initialization, dropout and shuffling. Zero seeds from the clock.
	// Default: 42.
	Seed int64 `json:"seed" koanf:"seed"`

	// NeuralConfidence is the scorer confidence with a trained network.
	// Default: 0.9.
	NeuralConfidence float64 `json:"neural_confidence" koanf:"neural_confidence"`

	// RuleConfidence is the scorer confidence with the rule backend.
	// Default: 0.6.
	RuleConfidence float64 `json:"rule_confidence" koanf:"rule_confidence"`
}

// RerankConfig contains the optional diversity reranking stage.
type RerankConfig struct {
	// Enabled applies MMR diversification after the interacted filter.
	// Default: false.
	Enabled bool `json:"enabled" koanf:"enabled"`

	// Lambda balances relevance (1.0) against diversity (0.0).
	// Default: 0.7.
	Lambda float64 `json:"lambda" koanf:"lambda"`
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() *Config {
	return &Config{
		Weights: DefaultWeights(),
		Limits: LimitsConfig{
			DefaultLimit:         10,
			MaxLimit:             100,
			ScorerTimeout:        3 * time.Second,
			PopularTimeout:       time.Second,
			NeuralTimeout:        10 * time.Second,
			MaxSearchQueryLength: 200,
		},
		Fusion: FusionConfig{
			Decay:                           DecayLinear,
			ContentContextBoost:             1.5,
			SeasonPopularBoost:              1.3,
			FrequentBuyerThreshold:          2,
			FrequentBuyerNeuralBoost:        1.2,
			FrequentBuyerCollaborativeBoost: 1.1,
			CartAbandonThreshold:            0.5,
			CartAbandonContentBoost:         1.1,
			BrandExplorerThreshold:          5,
			BrandExplorerCollaborativeBoost: 1.15,
			BrandLoyalContentBoost:          1.1,
		},
		Filter: FilterConfig{
			InteractedLookback: 30 * 24 * time.Hour,
		},
		Cache: CacheConfig{
			CatalogTTL:      10 * time.Minute,
			RatingsTTL:      30 * time.Minute,
			SimilarityTTL:   time.Hour,
			FeaturesTTL:     6 * time.Hour,
			LatentTTL:       24 * time.Hour,
			NeuralTTL:       24 * time.Hour,
			WeightsTTL:      5 * time.Minute,
			BehaviorTTL:     10 * time.Minute,
			BehaviorEntries: 10000,
			RefreshAsync:    true,
		},
		Breaker: BreakerConfig{
			Enabled:             true,
			MaxRequests:         3,
			Interval:            60 * time.Second,
			Timeout:             30 * time.Second,
			ConsecutiveFailures: 5,
		},
		History: HistoryConfig{
			Lookback:       365 * 24 * time.Hour,
			BehaviorWindow: 90 * 24 * time.Hour,
		},
		Collaborative: CollaborativeConfig{
			Workers:    4,
			Confidence: 0.8,
		},
		Content: ContentConfig{
			CategoryWeight:   3.0,
			PriceWeight:      1.5,
			KeywordWeight:    2.0,
			NumericWeight:    1.0,
			MaxPurchaseSeeds: 5,
			MaxViewSeeds:     5,
			MinSimilarity:    0.4,
			NewProductWindow: 30 * 24 * time.Hour,
			Confidence:       0.7,
		},
		Latent: LatentConfig{
			Factors:        10,
			LearningRate:   0.01,
			Regularization: 0.01,
			Iterations:     100,
			Tolerance:      1e-6,
			InitStdDev:     0.1,
			Seed:           42,
			Confidence:     0.75,
		},
		Neural: NeuralConfig{
			Hidden:                []int{32, 16},
			Dropout:               0.2,
			LearningRate:          0.05,
			Epochs:                150,
			BatchSize:             16,
			MinProfiles:           50,
			MinStrongInteractions: 100,
			Seed:                  42,
			NeuralConfidence:      0.9,
			RuleConfidence:        0.6,
		},
		Rerank: RerankConfig{
			Lambda: 0.7,
		},
		RefreshInterval: 15 * time.Minute,
		TrainOnStartup:  true,
	}
}

// Validate checks the configuration for errors.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}

	if c.Limits.DefaultLimit < 1 {
		return fmt.Errorf("limits.default_limit must be positive, got %d", c.Limits.DefaultLimit)
	}
	if c.Limits.MaxLimit < c.Limits.DefaultLimit {
		return fmt.Errorf("limits.max_limit must be >= limits.default_limit, got %d < %d", c.Limits.MaxLimit, c.Limits.DefaultLimit)
	}
	if c.Limits.ScorerTimeout <= 0 || c.Limits.PopularTimeout <= 0 || c.Limits.NeuralTimeout <= 0 {
		return fmt.Errorf("limits: scorer timeouts must be positive")
	}

	switch c.Fusion.Decay {
	case DecayLinear, DecayReciprocalRank:
	default:
		return fmt.Errorf("fusion.decay must be %q or %q, got %q", DecayLinear, DecayReciprocalRank, c.Fusion.Decay)
	}

	if c.Filter.InteractedLookback < 0 {
		return fmt.Errorf("filter.interacted_lookback must be non-negative, got %v", c.Filter.InteractedLookback)
	}

	if c.Cache.LatentTTL <= 0 {
		return fmt.Errorf("cache.latent_ttl must be positive, got %v", c.Cache.LatentTTL)
	}

	if c.Collaborative.Workers < 1 {
		return fmt.Errorf("collaborative.workers must be positive, got %d", c.Collaborative.Workers)
	}

	if c.Content.CategoryWeight < 0 || c.Content.PriceWeight < 0 || c.Content.KeywordWeight < 0 || c.Content.NumericWeight < 0 {
		return fmt.Errorf("content: feature weights must be non-negative")
	}
	if c.Content.MinSimilarity < 0 || c.Content.MinSimilarity > 1 {
		return fmt.Errorf("content.min_similarity must be in [0,1], got %f", c.Content.MinSimilarity)
	}

	if c.Latent.Factors < 1 {
		return fmt.Errorf("latent.factors must be positive, got %d", c.Latent.Factors)
	}
	if c.Latent.LearningRate <= 0 {
		return fmt.Errorf("latent.learning_rate must be positive, got %f", c.Latent.LearningRate)
	}
	if c.Latent.Regularization < 0 {
		return fmt.Errorf("latent.regularization must be non-negative, got %f", c.Latent.Regularization)
	}
	if c.Latent.Iterations < 1 {
		return fmt.Errorf("latent.iterations must be positive, got %d", c.Latent.Iterations)
	}

	if len(c.Neural.Hidden) == 0 {
		return fmt.Errorf("neural.hidden must list at least one layer")
	}
	for i, width := range c.Neural.Hidden {
		if width < 1 {
			return fmt.Errorf("neural.hidden[%d] must be positive, got %d", i, width)
		}
	}
	if c.Neural.Dropout < 0 || c.Neural.Dropout >= 1 {
		return fmt.Errorf("neural.dropout must be in [0, 1), got %f", c.Neural.Dropout)
	}
	if c.Neural.Epochs < 1 || c.Neural.BatchSize < 1 {
		return fmt.Errorf("neural.epochs and neural.batch_size must be positive")
	}

	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be positive, got %v", c.RefreshInterval)
	}

	if c.Rerank.Lambda < 0 || c.Rerank.Lambda > 1 {
		return fmt.Errorf("rerank.lambda must be in [0, 1], got %f", c.Rerank.Lambda)
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Neural.Hidden = append([]int(nil), c.Neural.Hidden...)
	return &clone
}
