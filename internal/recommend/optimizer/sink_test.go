// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package optimizer

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/recommend"
)

// pipeline wires a Recorder to a running Sink over an in-process pub/sub.
type pipeline struct {
	pubsub   *gochannel.GoChannel
	recorder *Recorder
	sink     *Sink
	store    *memStore
	clock    *time.Time
}

func startPipeline(t *testing.T, store *memStore) *pipeline {
	t.Helper()

	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NopLogger{})
	now := testNow
	p := &pipeline{pubsub: pubsub, store: store, clock: &now}
	p.recorder = NewRecorder(pubsub, "", func() time.Time { return *p.clock }, zerolog.Nop())
	p.sink = NewSink(pubsub, "", store, time.Hour, zerolog.Nop())
	p.sink.retryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.sink.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Sink.Run() error = %v", err)
		}
		_ = pubsub.Close() //nolint:errcheck // test cleanup
	})

	select {
	case <-p.sink.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("sink did not subscribe")
	}
	return p
}

func servedResponse(at time.Time) (*recommend.Request, *recommend.Response) {
	req := &recommend.Request{UserID: 42, Limit: 3, RequestID: "req-1"}
	resp := &recommend.Response{
		Strategy: recommend.StrategyHybrid,
		Items: []recommend.ScoredProduct{
			{ProductID: 100, Score: 0.9, Algorithm: recommend.AlgorithmCollaborative},
			{ProductID: 200, Score: 0.7, Algorithm: recommend.AlgorithmContent},
			{ProductID: 300, Score: 0.4, Algorithm: recommend.AlgorithmPopular},
		},
		Metadata: recommend.ResponseMetadata{RequestID: "req-1", UserID: 42, GeneratedAt: at},
	}
	return req, resp
}

func TestRecorderSink_ServedAndAttributed(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	p := startPipeline(t, store)
	ctx := context.Background()

	req, resp := servedResponse(testNow)
	if err := p.recorder.RecordServed(ctx, req, resp); err != nil {
		t.Fatalf("RecordServed() error = %v", err)
	}
	waitFor(t, "served rows", func() bool { return store.logCount() == 3 })

	served := store.logsWithAction(ActionServed)
	for i, e := range served {
		if e.UserID != 42 || e.RequestID != "req-1" {
			t.Errorf("served[%d] = %+v, want user 42 request req-1", i, e)
		}
		if e.Position != i {
			t.Errorf("served[%d].Position = %d, want %d", i, e.Position, i)
		}
		if e.Algorithm != resp.Items[i].Algorithm {
			t.Errorf("served[%d].Algorithm = %q, want %q", i, e.Algorithm, resp.Items[i].Algorithm)
		}
		if !e.CreatedAt.Equal(testNow) {
			t.Errorf("served[%d].CreatedAt = %v, want %v", i, e.CreatedAt, testNow)
		}
	}

	// A cart on the second item ten minutes later is credited to content.
	*p.clock = testNow.Add(10 * time.Minute)
	if err := p.recorder.RecordInteraction(ctx, 42, 200, ActionCart); err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}
	waitFor(t, "cart row", func() bool { return len(store.logsWithAction(ActionCart)) == 1 })

	cart := store.logsWithAction(ActionCart)[0]
	if cart.Algorithm != recommend.AlgorithmContent {
		t.Errorf("cart.Algorithm = %q, want content", cart.Algorithm)
	}
	if cart.Position != 1 || cart.RequestID != "req-1" {
		t.Errorf("cart = %+v, want position 1 request req-1", cart)
	}

	waitFor(t, "sink counters", func() bool { return p.sink.Stats().Stored == 4 })
	if stats := p.sink.Stats(); stats.Received != 2 {
		t.Errorf("Stats().Received = %d, want 2", stats.Received)
	}
}

func TestRecorderSink_UnattributedInteraction(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	p := startPipeline(t, store)
	ctx := context.Background()

	req, resp := servedResponse(testNow)
	if err := p.recorder.RecordServed(ctx, req, resp); err != nil {
		t.Fatalf("RecordServed() error = %v", err)
	}
	waitFor(t, "served rows", func() bool { return store.logCount() == 3 })

	// Never served to this user.
	if err := p.recorder.RecordInteraction(ctx, 42, 999, ActionView); err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}
	// Served, but outside the one hour attribution window.
	*p.clock = testNow.Add(2 * time.Hour)
	if err := p.recorder.RecordInteraction(ctx, 42, 100, ActionPurchase); err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}

	waitFor(t, "unattributed events", func() bool { return p.sink.Stats().Unattributed == 2 })
	if n := store.logCount(); n != 3 {
		t.Errorf("logCount() = %d, want 3", n)
	}
}

func TestRecorder_SkipsEmptyResponse(t *testing.T) {
	t.Parallel()

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubsub.Close() }) //nolint:errcheck // test cleanup

	r := NewRecorder(pubsub, "", nil, zerolog.Nop())
	req := &recommend.Request{UserID: 1}
	if err := r.RecordServed(context.Background(), req, &recommend.Response{}); err != nil {
		t.Errorf("RecordServed(empty) error = %v", err)
	}
	if err := r.RecordServed(context.Background(), req, nil); err != nil {
		t.Errorf("RecordServed(nil) error = %v", err)
	}
}

func TestRecorder_RejectsUnknownAction(t *testing.T) {
	t.Parallel()

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubsub.Close() }) //nolint:errcheck // test cleanup

	r := NewRecorder(pubsub, "", nil, zerolog.Nop())
	if err := r.RecordInteraction(context.Background(), 1, 2, "wishlist"); err == nil {
		t.Error("RecordInteraction(wishlist) should fail")
	}
}

func TestSink_MalformedPayloadIsAcked(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	p := startPipeline(t, store)

	if err := p.pubsub.Publish(DefaultTopic, message.NewMessage(watermill.NewUUID(), []byte("{not json"))); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	waitFor(t, "parse error", func() bool { return p.sink.Stats().ParseErrors == 1 })

	// The topic keeps flowing after the bad message.
	req, resp := servedResponse(testNow)
	if err := p.recorder.RecordServed(context.Background(), req, resp); err != nil {
		t.Fatalf("RecordServed() error = %v", err)
	}
	waitFor(t, "served rows", func() bool { return store.logCount() == 3 })
}

func TestSink_RetriesStoreFailures(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.insertFailures = 2
	p := startPipeline(t, store)

	req, resp := servedResponse(testNow)
	if err := p.recorder.RecordServed(context.Background(), req, resp); err != nil {
		t.Fatalf("RecordServed() error = %v", err)
	}
	waitFor(t, "served rows", func() bool { return store.logCount() == 3 })

	if s := p.sink.Stats(); s.StoreErrors != 0 {
		t.Errorf("StoreErrors = %d, want 0 after a successful retry", s.StoreErrors)
	}
}

func TestSink_DropsAfterRetries(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.insertFailures = storeAttempts
	p := startPipeline(t, store)

	req, resp := servedResponse(testNow)
	if err := p.recorder.RecordServed(context.Background(), req, resp); err != nil {
		t.Fatalf("RecordServed() error = %v", err)
	}
	waitFor(t, "store error", func() bool { return p.sink.Stats().StoreErrors == 1 })
	if n := store.logCount(); n != 0 {
		t.Errorf("logCount() = %d, want 0", n)
	}
}
