// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/cache"
	"github.com/tomtom215/vitrine/internal/metrics"
)

// Fallbacker serves the popular_fallback path when fusion yields nothing.
// It must keep working when the cached catalog does not.
type Fallbacker interface {
	Fallback(ctx context.Context, filters Filters, exclude map[int]struct{}, limit int) ([]ScoredProduct, error)
}

// Reranker reorders the filtered fused list before it is truncated to the
// request limit. It returns at most k items.
type Reranker interface {
	Name() string
	Rerank(ctx context.Context, items []FusedItem, k int) []FusedItem
}

// Trainer is implemented by scorers that own a periodically retrained model.
type Trainer interface {
	Name() string
	Train(ctx context.Context) error
}

// TrainingStatus reports the state of the most recent training cycle.
type TrainingStatus struct {
	IsTraining     bool              `json:"is_training"`
	LastTrainedAt  time.Time         `json:"last_trained_at,omitempty"`
	LastDurationMS int64             `json:"last_duration_ms"`
	Runs           int               `json:"runs"`
	Errors         map[string]string `json:"errors,omitempty"`
}

// ScorerStatus reports one registered scorer.
type ScorerStatus struct {
	Name    string `json:"name"`
	Breaker string `json:"breaker,omitempty"`
	Trains  bool   `json:"trains"`
}

// EngineStatus is an operational snapshot of the engine.
type EngineStatus struct {
	Scorers   []ScorerStatus     `json:"scorers"`
	Training  TrainingStatus     `json:"training"`
	Cache     []cache.SlotStatus `json:"cache"`
	Requests  int64              `json:"requests"`
	Fallbacks int64              `json:"fallbacks"`
	Degraded  int64              `json:"degraded"`
	Errors    int64              `json:"errors"`
}

// Engine is the hybrid blender. It fans a request out to every registered
// scorer, fuses the settled outputs with adaptive weights and falls back to
// popularity when nothing usable comes back. It is safe for concurrent use.
type Engine struct {
	config *Config
	logger zerolog.Logger
	corpus *Corpus
	decay  DecayFunc

	scorers  []Scorer
	breakers map[string]*breakerScorer
	trainers []Trainer
	scorerMu sync.RWMutex

	fallback       Fallbacker
	weightSource   WeightSource
	behaviorSource BehaviorSource
	recorder       OutcomeRecorder
	reranker       Reranker

	weights   *cache.Slot[AlgorithmWeights]
	behaviors *cache.LRU[int, *BehaviorSummary]

	trainMu     sync.Mutex
	statusMu    sync.RWMutex
	trainStatus TrainingStatus

	requestCount  atomic.Int64
	fallbackCount atomic.Int64
	degradedCount atomic.Int64
	errorCount    atomic.Int64
}

// NewEngine creates a blender over the given corpus.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, corpus *Corpus, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if corpus == nil {
		return nil, fmt.Errorf("corpus is required")
	}

	e := &Engine{
		config:   cfg,
		logger:   logger.With().Str("component", "recommend").Logger(),
		corpus:   corpus,
		decay:    DecayByName(cfg.Fusion.Decay),
		breakers: make(map[string]*breakerScorer),
	}
	e.weights = cache.NewSlot(corpus.Manager(), "weights", cfg.Cache.WeightsTTL, e.loadWeights)
	e.behaviors = cache.NewLRU[int, *BehaviorSummary](cfg.Cache.BehaviorEntries, cfg.Cache.BehaviorTTL, corpus.Manager().Clock())
	return e, nil
}

// Config returns the engine configuration. It must not be modified.
func (e *Engine) Config() *Config {
	return e.config
}

// Corpus returns the shared data corpus.
func (e *Engine) Corpus() *Corpus {
	return e.corpus
}

// SetFallback sets the popular_fallback provider.
func (e *Engine) SetFallback(f Fallbacker) {
	e.fallback = f
}

// SetWeightSource sets the store persisted weights are read from.
func (e *Engine) SetWeightSource(ws WeightSource) {
	e.weightSource = ws
}

// SetBehaviorSource sets the store durable behavior summaries are read from.
func (e *Engine) SetBehaviorSource(bs BehaviorSource) {
	e.behaviorSource = bs
}

// SetOutcomeRecorder sets the recorder every served list is handed to.
func (e *Engine) SetOutcomeRecorder(r OutcomeRecorder) {
	e.recorder = r
}

// SetReranker sets an optional reranking stage, such as diversification.
func (e *Engine) SetReranker(r Reranker) {
	e.reranker = r
}

// RegisterScorer adds a scorer branch. Scorers that implement Trainer are
// also retrained by Train.
func (e *Engine) RegisterScorer(s Scorer) {
	e.scorerMu.Lock()
	defer e.scorerMu.Unlock()

	if t, ok := s.(Trainer); ok {
		e.trainers = append(e.trainers, t)
	}

	if e.config.Breaker.Enabled {
		b := newBreakerScorer(s, &e.config.Breaker, e.logger)
		e.breakers[s.Name()] = b
		s = b
	}
	e.scorers = append(e.scorers, s)

	e.logger.Info().Str("algorithm", s.Name()).Msg("Registered scorer")
}

func (e *Engine) getScorers() []Scorer {
	e.scorerMu.RLock()
	defer e.scorerMu.RUnlock()
	return append([]Scorer(nil), e.scorers...)
}

// Weights returns the current base weights: the persisted ones when the
// optimizer has written any, otherwise the configured defaults.
func (e *Engine) Weights(ctx context.Context) AlgorithmWeights {
	w, err := e.weights.Get(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Str("stage", "weights").Msg("Using default weights")
		return e.config.Weights
	}
	return w
}

// InvalidateWeights drops the cached weights so the next request reloads them.
func (e *Engine) InvalidateWeights() {
	e.weights.Invalidate()
}

func (e *Engine) loadWeights(ctx context.Context) (AlgorithmWeights, error) {
	if e.weightSource == nil {
		return e.config.Weights, nil
	}
	w, ok, err := e.weightSource.LoadWeights(ctx)
	if err != nil {
		return AlgorithmWeights{}, fmt.Errorf("load weights: %w", err)
	}
	if !ok {
		return e.config.Weights, nil
	}
	if err := w.Validate(); err != nil {
		return AlgorithmWeights{}, fmt.Errorf("persisted weights: %w", err)
	}
	return w.Clip(MinAlgorithmWeight, MaxAlgorithmWeight), nil
}

// Recommend produces a ranked list for a user. It only returns an error when
// every scorer came back empty and the fallback path could not read the
// catalog either.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	e.requestCount.Add(1)

	req = e.prepareRequest(req)
	logger := e.logger.With().
		Str("request_id", req.RequestID).
		Int("user_id", req.UserID).
		Logger()

	// RECEIVE_REQUEST
	catalog, err := e.corpus.Catalog(ctx)
	if err != nil {
		logger.Warn().Err(err).Str("stage", "sanitize").Msg("Catalog unavailable, skipping category check")
		catalog = nil
	}
	rc, problems := SanitizeContext(req.Context, catalog, e.config.Limits.MaxSearchQueryLength)
	for _, p := range problems {
		logger.Warn().Err(p).Str("stage", "sanitize").Msg("Dropped request context value")
	}
	req.Context = rc

	// FANOUT
	outputs, outcomes := e.fanOut(ctx, &req)

	// FUSE
	userEvents := e.loadUserEvents(ctx, &req, logger)
	behavior := e.behaviorFor(ctx, req.UserID, userEvents, catalog, logger)
	effective := EffectiveWeights(e.Weights(ctx), &req.Context, behavior, &e.config.Fusion)
	fused := Fuse(outputs, effective, e.decay)

	// FILTER
	var exclude map[int]struct{}
	if req.FilterInteracted {
		exclude = e.interactedSet(userEvents)
	}
	kept := fused[:0:0]
	for i := range fused {
		if _, seen := exclude[fused[i].ProductID]; seen {
			continue
		}
		kept = append(kept, fused[i])
	}

	filtered := len(fused) - len(kept)

	// RANK
	if e.reranker != nil && len(kept) > 1 {
		kept = e.reranker.Rerank(ctx, kept, req.Limit)
	}
	if len(kept) > req.Limit {
		kept = kept[:req.Limit]
	}

	resp := &Response{
		Strategy: StrategyHybrid,
		Metadata: ResponseMetadata{
			RequestID:      req.RequestID,
			UserID:         req.UserID,
			GeneratedAt:    e.corpus.Now(),
			Weights:        effective.ToMap(),
			Algorithms:     outcomes,
			CandidateCount: len(fused),
			FilteredCount:  filtered,
		},
	}
	resp.Items = make([]ScoredProduct, 0, len(kept))
	for i := range kept {
		item := ScoredProduct{
			ProductID: kept[i].ProductID,
			Score:     kept[i].Score,
			Algorithm: kept[i].Algorithm,
		}
		if req.IncludeReasons {
			item.Reason = ReasonFor(&kept[i])
		}
		resp.Items = append(resp.Items, item)
	}

	if len(resp.Items) == 0 {
		if err := e.serveFallback(ctx, &req, exclude, outcomes, resp, logger); err != nil {
			e.errorCount.Add(1)
			return nil, err
		}
	}

	// RETURN
	resp.Metadata.LatencyMS = time.Since(start).Milliseconds()
	metrics.RecordRecommendRequest(resp.Strategy, time.Since(start))

	if e.recorder != nil {
		if err := e.recorder.RecordServed(ctx, &req, resp); err != nil {
			logger.Error().Err(err).Str("stage", "record").Msg("Failed to record served recommendations")
		}
	}

	logger.Debug().
		Str("strategy", resp.Strategy).
		Bool("degraded", resp.Degraded).
		Int("candidates", resp.Metadata.CandidateCount).
		Int("returned", len(resp.Items)).
		Int64("latency_ms", resp.Metadata.LatencyMS).
		Msg("Recommendation complete")

	return resp, nil
}

// prepareRequest applies limit defaults and assigns a request ID.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) prepareRequest(req Request) Request {
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	if req.Limit <= 0 {
		req.Limit = e.config.Limits.DefaultLimit
	}
	if req.Limit > e.config.Limits.MaxLimit {
		req.Limit = e.config.Limits.MaxLimit
	}
	return req
}

type branchResult struct {
	result   ScoreResult
	err      error
	panicked bool
}

// fanOut runs every scorer in its own goroutine and collects all settled
// outcomes. A failing branch never cancels another.
func (e *Engine) fanOut(ctx context.Context, req *Request) ([]BranchOutput, []AlgorithmOutcome) {
	scorers := e.getScorers()
	sreq := ScoreRequest{
		UserID:  req.UserID,
		Limit:   req.Limit,
		Filters: req.Context.Filters(),
		Context: req.Context,
	}

	outputs := make([]BranchOutput, len(scorers))
	outcomes := make([]AlgorithmOutcome, len(scorers))

	var wg sync.WaitGroup
	for i, s := range scorers {
		wg.Add(1)
		go func(idx int, s Scorer) {
			defer wg.Done()
			outputs[idx], outcomes[idx] = e.runBranch(ctx, s, sreq)
		}(i, s)
	}
	wg.Wait()

	return outputs, outcomes
}

// runBranch races one scorer against its deadline. Errors, panics, open
// breakers and timeouts all settle as an empty list with zero confidence.
func (e *Engine) runBranch(ctx context.Context, s Scorer, sreq ScoreRequest) (BranchOutput, AlgorithmOutcome) {
	name := s.Name()
	start := time.Now()
	out := BranchOutput{Algorithm: name}
	outcome := AlgorithmOutcome{Algorithm: name}

	branchCtx, cancel := context.WithTimeout(ctx, e.config.Limits.TimeoutFor(name))
	defer cancel()

	done := make(chan branchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- branchResult{panicked: true, err: &ScorerError{
					Algorithm: name,
					UserID:    sreq.UserID,
					Stage:     "score",
					Err:       fmt.Errorf("%w: panic: %v", ErrComputeBackend, r),
				}}
			}
		}()
		res, err := s.Score(branchCtx, sreq)
		done <- branchResult{result: res, err: err}
	}()

	var res branchResult
	select {
	case res = <-done:
	case <-branchCtx.Done():
		res.err = &ScorerError{Algorithm: name, UserID: sreq.UserID, Stage: "score", Err: ErrTimeout}
	}

	elapsed := time.Since(start)
	outcome.LatencyMS = elapsed.Milliseconds()

	switch {
	case res.panicked:
		outcome.Status = OutcomePanic
		outcome.Error = res.err.Error()
		e.logger.Error().
			Err(res.err).
			Str("algorithm", name).
			Int("user_id", sreq.UserID).
			Str("stage", "score").
			Msg("Scorer panicked")
	case res.err != nil:
		outcome.Status = classifyBranchError(res.err)
		outcome.Error = res.err.Error()
		e.logger.Error().
			Err(res.err).
			Str("algorithm", name).
			Int("user_id", sreq.UserID).
			Str("stage", "score").
			Str("outcome", outcome.Status).
			Msg("Scorer failed")
	case len(res.result.Items) == 0:
		outcome.Status = OutcomeEmpty
	default:
		outcome.Status = OutcomeOK
		out.Items = res.result.Items
		out.Confidence = res.result.Confidence
		outcome.Items = len(res.result.Items)
		outcome.Confidence = res.result.Confidence
	}

	metrics.RecordScorerOutcome(name, outcome.Status, elapsed)
	return out, outcome
}

func classifyBranchError(err error) string {
	switch {
	case isBreakerRejection(err):
		return OutcomeRejected
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}

// loadUserEvents reads the user's recent events once for both the
// interacted filter and the on-the-fly behavior summary.
func (e *Engine) loadUserEvents(ctx context.Context, req *Request, logger zerolog.Logger) []InteractionEvent {
	lookback := e.config.History.BehaviorWindow
	if req.FilterInteracted && e.config.Filter.InteractedLookback > lookback {
		lookback = e.config.Filter.InteractedLookback
	}
	events, err := e.corpus.UserEvents(ctx, req.UserID, e.corpus.Now().Add(-lookback))
	if err != nil {
		logger.Warn().Err(err).Str("stage", "filter").Msg("User events unavailable")
		return nil
	}
	return events
}

// behaviorFor prefers the durable summary written by the optimizer and
// summarizes recent events when none exists.
func (e *Engine) behaviorFor(ctx context.Context, userID int, events []InteractionEvent, catalog *Catalog, logger zerolog.Logger) *BehaviorSummary {
	if e.behaviorSource != nil {
		summary, cached := e.behaviors.Get(userID)
		if !cached {
			var err error
			summary, err = e.behaviorSource.LoadBehaviorSummary(ctx, userID)
			if err != nil {
				logger.Warn().Err(err).Str("stage", "fuse").Msg("Behavior summary unavailable")
			} else {
				// nil is cached too: the user has no stored summary yet.
				e.behaviors.Add(userID, summary)
			}
		}
		if summary != nil {
			return summary
		}
	}
	if len(events) == 0 {
		return nil
	}
	summary := SummarizeBehavior(userID, events, catalog, e.config.History.BehaviorWindow, e.corpus.Now())
	return &summary
}

// InvalidateBehavior drops cached behavior summaries so the next request
// reads the refreshed ones.
func (e *Engine) InvalidateBehavior() {
	e.behaviors.Purge()
}

// interactedSet returns the products viewed, carted or purchased within the
// filter lookback.
func (e *Engine) interactedSet(events []InteractionEvent) map[int]struct{} {
	cutoff := e.corpus.Now().Add(-e.config.Filter.InteractedLookback)
	set := make(map[int]struct{})
	for i := range events {
		if events[i].Engaged() && !events[i].Timestamp.Before(cutoff) {
			set[events[i].ProductID] = struct{}{}
		}
	}
	return set
}

// serveFallback fills resp from the popularity fallback. The interacted
// filter is relaxed when it would leave nothing to show.
func (e *Engine) serveFallback(ctx context.Context, req *Request, exclude map[int]struct{}, outcomes []AlgorithmOutcome, resp *Response, logger zerolog.Logger) error {
	allFailed := len(outcomes) > 0
	for i := range outcomes {
		if !outcomes[i].Failed() {
			allFailed = false
			break
		}
	}

	reason := "empty"
	if allFailed {
		reason = "total_failure"
		logger.Error().Err(ErrTotalAlgorithmFailure).Str("stage", "fanout").Msg("Serving popularity fallback")
	}

	if e.fallback == nil {
		return fmt.Errorf("%w: no fallback configured", ErrCatalogUnavailable)
	}

	filters := req.Context.Filters()
	items, err := e.fallback.Fallback(ctx, filters, exclude, req.Limit)
	if err != nil {
		logger.Error().Err(err).Str("stage", "fallback").Msg("Popularity fallback failed")
		if errors.Is(err, ErrCatalogUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	if len(items) == 0 && len(exclude) > 0 {
		items, err = e.fallback.Fallback(ctx, filters, nil, req.Limit)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
		}
	}

	resp.Strategy = StrategyPopularFallback
	resp.Degraded = allFailed
	resp.Items = resp.Items[:0]
	for _, item := range items {
		item.Algorithm = AlgorithmPopularFallback
		if req.IncludeReasons {
			item.Reason = "popular"
		} else {
			item.Reason = ""
		}
		resp.Items = append(resp.Items, item)
	}

	e.fallbackCount.Add(1)
	if allFailed {
		e.degradedCount.Add(1)
	}
	metrics.RecordFallback(reason)
	return nil
}

// Train retrains every scorer that owns a model. Individual failures are
// logged and reported in the status but do not stop the others. Returns
// immediately with an error if training is already in progress.
func (e *Engine) Train(ctx context.Context) error {
	if !e.trainMu.TryLock() {
		return fmt.Errorf("training already in progress")
	}
	defer e.trainMu.Unlock()

	e.scorerMu.RLock()
	trainers := append([]Trainer(nil), e.trainers...)
	e.scorerMu.RUnlock()

	start := time.Now()
	e.statusMu.Lock()
	e.trainStatus.IsTraining = true
	e.statusMu.Unlock()

	failures := make(map[string]string)
	for _, t := range trainers {
		trainStart := time.Now()
		err := t.Train(ctx)
		result := "success"
		if err != nil {
			result = "failure"
			failures[t.Name()] = err.Error()
			e.logger.Error().
				Err(err).
				Str("algorithm", t.Name()).
				Str("stage", "train").
				Msg("Model training failed")
		}
		metrics.RecordTraining(t.Name(), result, time.Since(trainStart))
	}

	e.statusMu.Lock()
	e.trainStatus.IsTraining = false
	e.trainStatus.LastTrainedAt = time.Now()
	e.trainStatus.LastDurationMS = time.Since(start).Milliseconds()
	e.trainStatus.Runs++
	e.trainStatus.Errors = failures
	e.statusMu.Unlock()

	e.logger.Info().
		Int("models", len(trainers)).
		Int("failed", len(failures)).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("Model training complete")

	if len(failures) == len(trainers) && len(trainers) > 0 {
		return fmt.Errorf("all %d models failed to train", len(trainers))
	}
	return nil
}

// Refresh rebuilds stale or empty cache slots and then retrains models.
func (e *Engine) Refresh(ctx context.Context) error {
	refreshErr := e.corpus.Manager().RefreshAll(ctx)
	if refreshErr != nil {
		e.logger.Warn().Err(refreshErr).Str("stage", "refresh").Msg("Some cache slots failed to refresh")
	}
	if err := e.Train(ctx); err != nil {
		return err
	}
	return refreshErr
}

// Status returns an operational snapshot.
func (e *Engine) Status() EngineStatus {
	e.scorerMu.RLock()
	scorers := make([]ScorerStatus, 0, len(e.scorers))
	trains := make(map[string]bool, len(e.trainers))
	for _, t := range e.trainers {
		trains[t.Name()] = true
	}
	for _, s := range e.scorers {
		st := ScorerStatus{Name: s.Name(), Trains: trains[s.Name()]}
		if b, ok := e.breakers[s.Name()]; ok {
			st.Breaker = b.State()
		}
		scorers = append(scorers, st)
	}
	e.scorerMu.RUnlock()

	e.statusMu.RLock()
	training := e.trainStatus
	e.statusMu.RUnlock()

	return EngineStatus{
		Scorers:   scorers,
		Training:  training,
		Cache:     e.corpus.Manager().Status(),
		Requests:  e.requestCount.Load(),
		Fallbacks: e.fallbackCount.Load(),
		Degraded:  e.degradedCount.Load(),
		Errors:    e.errorCount.Load(),
	}
}
