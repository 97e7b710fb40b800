// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

// Package logging wraps zerolog for Vitrine.
//
// main calls Init once with the logging section of the service config; the
// result is available through Logger and the Debug/Info/Warn/Error/Fatal
// shortcuts. Components are handed a zerolog.Logger and tag it themselves:
//
//	logger := base.With().Str("component", "optimizer").Logger()
//
// New builds a logger without touching the global one, which is what tests
// and short-lived tools use.
//
// # Request Context
//
// The HTTP middleware stores the request ID and a correlation ID in the
// request context, and recommendation handlers add the user ID. Ctx returns
// a logger carrying whichever of the three are present:
//
//	logging.Ctx(ctx).Info().Int("returned", n).Msg("Recommendations served")
//	// {"level":"info","service":"vitrine","request_id":"…","user_id":7,...}
//
// # Adapters
//
// Suture reports through slog and Watermill through its own LoggerAdapter.
// NewSlogLogger and NewWatermillLogger route both into zerolog so every line
// shares one format:
//
//	tree, _ := supervisor.NewSupervisorTree(logging.NewSlogLogger(), cfg)
//	bus := gochannel.NewGoChannel(cfg, logging.NewWatermillLogger(logger))
//
// Console format (LOG_FORMAT=console) is meant for local development only.
package logging
