// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const defaultShutdownGrace = 10 * time.Second

// HTTPServer is the lifecycle subset of *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs the recommendation API under supervision. When the
// supervisor cancels it, in-flight requests get grace to finish before the
// listener is torn down.
//
//	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
type HTTPServerService struct {
	srv   HTTPServer
	grace time.Duration
}

// NewHTTPServerService wraps srv. A non-positive grace means 10s.
func NewHTTPServerService(srv HTTPServer, grace time.Duration) *HTTPServerService {
	if grace <= 0 {
		grace = defaultShutdownGrace
	}
	return &HTTPServerService{srv: srv, grace: grace}
}

// Serve implements suture.Service.
func (s *HTTPServerService) Serve(ctx context.Context) error {
	listenErr := make(chan error, 1)
	go func() { listenErr <- s.srv.ListenAndServe() }()

	select {
	case err := <-listenErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: listen: %w", err)
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.grace)
	defer cancel()
	if err := s.srv.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("api server: drain: %w", err)
	}
	<-listenErr
	return ctx.Err()
}

func (s *HTTPServerService) String() string { return "api-server" }
