// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package optimizer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/metrics"
)

// DefaultAttributionWindow bounds how long after an impression an
// interaction is still credited to the served algorithm.
const DefaultAttributionWindow = 7 * 24 * time.Hour

// storeAttempts is how often a failed write is tried before the event is dropped.
const storeAttempts = 3

// SinkStats are runtime counters of a Sink.
type SinkStats struct {
	Received     int64     `json:"received"`
	Stored       int64     `json:"stored"`
	Unattributed int64     `json:"unattributed"`
	ParseErrors  int64     `json:"parse_errors"`
	StoreErrors  int64     `json:"store_errors"`
	LastMessage  time.Time `json:"last_message,omitempty"`
}

// Sink consumes outcome events and writes recommendation_logs rows.
type Sink struct {
	subscriber  message.Subscriber
	topic       string
	store       LogStore
	attribution time.Duration
	retryDelay  time.Duration
	logger      zerolog.Logger

	ready     chan struct{}
	readyOnce sync.Once

	received     atomic.Int64
	stored       atomic.Int64
	unattributed atomic.Int64
	parseErrors  atomic.Int64
	storeErrors  atomic.Int64
	lastMessage  atomic.Value // stores time.Time
}

// NewSink creates a sink. attribution <= 0 uses DefaultAttributionWindow.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSink(subscriber message.Subscriber, topic string, store LogStore, attribution time.Duration, logger zerolog.Logger) *Sink {
	if topic == "" {
		topic = DefaultTopic
	}
	if attribution <= 0 {
		attribution = DefaultAttributionWindow
	}
	return &Sink{
		subscriber:  subscriber,
		topic:       topic,
		store:       store,
		attribution: attribution,
		retryDelay:  100 * time.Millisecond,
		logger:      logger.With().Str("component", "outcome_sink").Logger(),
		ready:       make(chan struct{}),
	}
}

// Ready is closed once the sink has subscribed.
func (s *Sink) Ready() <-chan struct{} {
	return s.ready
}

// Run subscribes and processes messages until ctx is cancelled or the
// subscription closes.
func (s *Sink) Run(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx, s.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.topic, err)
	}
	s.readyOnce.Do(func() { close(s.ready) })
	s.logger.Info().Str("topic", s.topic).Msg("Outcome sink started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Outcome sink stopped")
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			s.process(ctx, msg)
		}
	}
}

// process handles one message. Malformed payloads and events that cannot be
// stored after retries are acked so they do not block the topic.
func (s *Sink) process(ctx context.Context, msg *message.Message) {
	s.received.Add(1)
	s.lastMessage.Store(time.Now())

	var ev OutcomeEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		s.parseErrors.Add(1)
		s.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Failed to parse outcome event")
		msg.Ack()
		return
	}

	var err error
	switch ev.Kind {
	case KindServed:
		err = s.handleServed(ctx, &ev)
	case KindInteraction:
		err = s.handleInteraction(ctx, &ev)
	default:
		s.parseErrors.Add(1)
		s.logger.Warn().Str("kind", ev.Kind).Str("message_uuid", msg.UUID).Msg("Unknown outcome event kind")
	}
	if err != nil {
		s.storeErrors.Add(1)
		s.logger.Error().
			Err(err).
			Str("kind", ev.Kind).
			Int("user_id", ev.UserID).
			Str("stage", "store").
			Msg("Failed to store outcome event")
	}
	msg.Ack()
}

func (s *Sink) handleServed(ctx context.Context, ev *OutcomeEvent) error {
	entries := make([]LogEntry, 0, len(ev.Items))
	for _, item := range ev.Items {
		entries = append(entries, LogEntry{
			ID:        uuid.NewString(),
			RequestID: ev.RequestID,
			UserID:    ev.UserID,
			ProductID: item.ProductID,
			Algorithm: item.Algorithm,
			Strategy:  ev.Strategy,
			Action:    ActionServed,
			Position:  item.Position,
			Score:     item.Score,
			CreatedAt: ev.At,
		})
	}
	if err := s.insert(ctx, entries); err != nil {
		metrics.RecordOutcomeEvent("impression", "failed")
		return err
	}
	s.stored.Add(int64(len(entries)))
	metrics.RecordOutcomeEvent("impression", "stored")
	return nil
}

func (s *Sink) handleInteraction(ctx context.Context, ev *OutcomeEvent) error {
	if !ValidInteraction(ev.Action) {
		return fmt.Errorf("unknown interaction action %q", ev.Action)
	}
	impression, err := s.store.LastImpression(ctx, ev.UserID, ev.ProductID, ev.At.Add(-s.attribution), ev.At)
	if err != nil {
		return fmt.Errorf("find impression: %w", err)
	}
	if impression == nil {
		s.unattributed.Add(1)
		metrics.RecordOutcomeEvent(ev.Action, "unattributed")
		s.logger.Debug().
			Int("user_id", ev.UserID).
			Int("product_id", ev.ProductID).
			Str("action", ev.Action).
			Msg("Interaction on a product that was not recently served, dropped")
		return nil
	}

	entry := LogEntry{
		ID:        uuid.NewString(),
		RequestID: impression.RequestID,
		UserID:    ev.UserID,
		ProductID: ev.ProductID,
		Algorithm: impression.Algorithm,
		Strategy:  impression.Strategy,
		Action:    ev.Action,
		Position:  impression.Position,
		Score:     impression.Score,
		CreatedAt: ev.At,
	}
	if err := s.insert(ctx, []LogEntry{entry}); err != nil {
		metrics.RecordOutcomeEvent(ev.Action, "failed")
		return err
	}
	s.stored.Add(1)
	metrics.RecordOutcomeEvent(ev.Action, "stored")
	return nil
}

func (s *Sink) insert(ctx context.Context, entries []LogEntry) error {
	var err error
	for attempt := 1; attempt <= storeAttempts; attempt++ {
		if err = s.store.InsertRecommendationLogs(ctx, entries); err == nil {
			return nil
		}
		if attempt == storeAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryDelay * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("insert recommendation logs after %d attempts: %w", storeAttempts, err)
}

// Stats returns runtime counters.
func (s *Sink) Stats() SinkStats {
	var last time.Time
	if t, ok := s.lastMessage.Load().(time.Time); ok {
		last = t
	}
	return SinkStats{
		Received:     s.received.Load(),
		Stored:       s.stored.Load(),
		Unattributed: s.unattributed.Load(),
		ParseErrors:  s.parseErrors.Load(),
		StoreErrors:  s.storeErrors.Load(),
		LastMessage:  last,
	}
}
