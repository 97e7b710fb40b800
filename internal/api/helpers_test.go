// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/recommend"
	"github.com/tomtom215/vitrine/internal/recommend/optimizer"
)

type mockEngine struct {
	mu      sync.Mutex
	lastReq recommend.Request
	resp    *recommend.Response
	err     error
	weights recommend.AlgorithmWeights
	status  recommend.EngineStatus
}

func (m *mockEngine) Recommend(ctx context.Context, req recommend.Request) (*recommend.Response, error) {
	m.mu.Lock()
	m.lastReq = req
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.resp != nil {
		return m.resp, nil
	}
	return &recommend.Response{
		Items:    []recommend.ScoredProduct{{ProductID: 7, Score: 0.9, Algorithm: recommend.AlgorithmContent}},
		Strategy: recommend.StrategyHybrid,
	}, nil
}

func (m *mockEngine) Weights(ctx context.Context) recommend.AlgorithmWeights {
	return m.weights
}

func (m *mockEngine) Status() recommend.EngineStatus {
	return m.status
}

func (m *mockEngine) request() recommend.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReq
}

type mockContent struct {
	items []recommend.ScoredProduct
	err   error
}

func (m *mockContent) FindSimilarProducts(ctx context.Context, productID, k int, filters recommend.Filters) ([]recommend.ScoredProduct, error) {
	if len(m.items) > k {
		return m.items[:k], m.err
	}
	return m.items, m.err
}

type mockCollaborative struct {
	items []recommend.ScoredProduct
}

func (m *mockCollaborative) FindSimilarItems(ctx context.Context, productID, k int) ([]recommend.ScoredProduct, error) {
	return m.items, nil
}

type recordedInteraction struct {
	userID, productID int
	action            string
}

type mockRecorder struct {
	mu    sync.Mutex
	calls []recordedInteraction
	err   error
}

func (m *mockRecorder) RecordInteraction(ctx context.Context, userID, productID int, action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, recordedInteraction{userID, productID, action})
	return m.err
}

type mockOptimizer struct {
	mu      sync.Mutex
	periods []optimizer.Period
	result  *optimizer.Result
	report  *optimizer.ABReport
	err     error
}

func (m *mockOptimizer) Run(ctx context.Context, period optimizer.Period) (*optimizer.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.periods = append(m.periods, period)
	if m.err != nil {
		return nil, m.err
	}
	return &optimizer.Result{Period: period, Applied: false, Reason: "insufficient data"}, nil
}

func (m *mockOptimizer) ABReport(ctx context.Context, period optimizer.Period) (*optimizer.ABReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.periods = append(m.periods, period)
	if m.err != nil {
		return nil, m.err
	}
	if m.report != nil {
		return m.report, nil
	}
	return &optimizer.ABReport{Period: period}, nil
}

func (m *mockOptimizer) LastResult() *optimizer.Result {
	return m.result
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

// testResponse mirrors APIResponse with a raw payload for typed decoding.
type testResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

// newTestServer builds the full router over deps with rate limiting off.
func newTestServer(t *testing.T, deps Dependencies) http.Handler {
	t.Helper()
	if deps.Engine == nil {
		deps.Engine = &mockEngine{}
	}
	mc := DefaultChiMiddlewareConfig()
	mc.RateLimitDisabled = true
	mc.CORSAllowedOrigins = []string{"https://shop.example.com"}
	h := NewHandler(deps, DefaultHandlerConfig(), zerolog.Nop())
	return NewRouter(h, NewChiMiddleware(mc)).SetupChi()
}

func doRequest(t *testing.T, handler http.Handler, method, target, body string) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp testResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, resp
}

func decodeData(t *testing.T, resp testResponse, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(resp.Data, v); err != nil {
		t.Fatalf("decode data: %v\n%s", err, resp.Data)
	}
}
