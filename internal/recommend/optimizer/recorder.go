// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package optimizer

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/metrics"
	"github.com/tomtom215/vitrine/internal/recommend"
)

// DefaultTopic is the Watermill topic outcome events travel on.
const DefaultTopic = "recommendation.outcomes"

// Outcome event kinds.
const (
	KindServed      = "served"
	KindInteraction = "interaction"
)

// ServedItem is one position of a served list.
type ServedItem struct {
	ProductID int     `json:"product_id"`
	Algorithm string  `json:"algorithm"`
	Position  int     `json:"position"`
	Score     float64 `json:"score"`
}

// OutcomeEvent is the payload of an outcome message.
type OutcomeEvent struct {
	Kind      string       `json:"kind"`
	RequestID string       `json:"request_id,omitempty"`
	UserID    int          `json:"user_id"`
	Strategy  string       `json:"strategy,omitempty"`
	Items     []ServedItem `json:"items,omitempty"`
	ProductID int          `json:"product_id,omitempty"`
	Action    string       `json:"action,omitempty"`
	At        time.Time    `json:"at"`
}

// Recorder publishes outcome events. It implements recommend.OutcomeRecorder.
type Recorder struct {
	publisher message.Publisher
	topic     string
	now       func() time.Time
	logger    zerolog.Logger
}

// NewRecorder creates a recorder publishing to topic (DefaultTopic when empty).
// now may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRecorder(publisher message.Publisher, topic string, now func() time.Time, logger zerolog.Logger) *Recorder {
	if topic == "" {
		topic = DefaultTopic
	}
	if now == nil {
		now = time.Now
	}
	return &Recorder{
		publisher: publisher,
		topic:     topic,
		now:       now,
		logger:    logger.With().Str("component", "outcome_recorder").Logger(),
	}
}

// RecordServed publishes the served list. Empty lists are not logged.
func (r *Recorder) RecordServed(ctx context.Context, req *recommend.Request, resp *recommend.Response) error {
	if resp == nil || len(resp.Items) == 0 {
		return nil
	}
	at := resp.Metadata.GeneratedAt
	if at.IsZero() {
		at = r.now()
	}

	ev := OutcomeEvent{
		Kind:      KindServed,
		RequestID: req.RequestID,
		UserID:    req.UserID,
		Strategy:  resp.Strategy,
		Items:     make([]ServedItem, 0, len(resp.Items)),
		At:        at.UTC(),
	}
	for i := range resp.Items {
		ev.Items = append(ev.Items, ServedItem{
			ProductID: resp.Items[i].ProductID,
			Algorithm: resp.Items[i].Algorithm,
			Position:  i,
			Score:     resp.Items[i].Score,
		})
	}

	if err := r.publish(ctx, &ev); err != nil {
		metrics.RecordOutcomeEvent("impression", "failed")
		return err
	}
	metrics.RecordOutcomeEvent("impression", "published")
	return nil
}

// RecordInteraction publishes a follow-up interaction with a product.
func (r *Recorder) RecordInteraction(ctx context.Context, userID, productID int, action string) error {
	if !ValidInteraction(action) {
		return fmt.Errorf("unknown interaction action %q", action)
	}
	ev := OutcomeEvent{
		Kind:      KindInteraction,
		UserID:    userID,
		ProductID: productID,
		Action:    action,
		At:        r.now().UTC(),
	}
	if err := r.publish(ctx, &ev); err != nil {
		metrics.RecordOutcomeEvent(action, "failed")
		return err
	}
	metrics.RecordOutcomeEvent(action, "published")
	return nil
}

func (r *Recorder) publish(ctx context.Context, ev *OutcomeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal outcome event: %w", err)
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("kind", ev.Kind)

	if err := r.publisher.Publish(r.topic, msg); err != nil {
		r.logger.Error().
			Err(err).
			Str("kind", ev.Kind).
			Int("user_id", ev.UserID).
			Str("stage", "publish").
			Msg("Failed to publish outcome event")
		return fmt.Errorf("publish outcome event: %w", err)
	}
	return nil
}

var _ recommend.OutcomeRecorder = (*Recorder)(nil)
