// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

/*
Package supervisor provides process supervision for Vitrine using suture v4.

Long-running work is organized into three layers so that a failure in one
restarts only that layer:

	RootSupervisor ("vitrine")
	├── ModelSupervisor ("model-layer")
	│   └── RecommendService (cache refresh, periodic training)
	├── OutcomeSupervisor ("outcome-layer")
	│   ├── OutcomeSinkService (Watermill subscriber writing the outcome log)
	│   └── OptimizerService (weight optimization, behavior summaries)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Training or optimizer panics never take the API down: requests keep being
served from the cached structures and, at worst, the popularity fallback.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddModelService(services.NewRecommendService(engine, cfg, logger))
	tree.AddOutcomeService(services.NewOutcomeSinkService(sink))
	tree.AddOutcomeService(services.NewOptimizerService(opt, optCfg, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, 15*time.Second))

	errCh := tree.ServeBackground(ctx)

# Configuration

TreeConfig controls restart behavior. Zero fields take suture's defaults:
5 failures, 30 second decay, 15 second backoff and a 10 second shutdown
timeout.

Supervisor events (restarts, panics, backoff) are logged through sutureslog
into the zerolog pipeline via logging.NewSlogLogger.
*/
package supervisor
