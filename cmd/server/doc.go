// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

/*
Package main is the entry point for the Vitrine server application.

Vitrine serves personalized product recommendations for an e-commerce
catalog. Several independent scorers (neural or rule-based category
preference, item-based collaborative filtering, content similarity, latent
factors and popularity) are blended with rank fusion, contextual multipliers
and weights that a background optimizer tunes from logged outcomes.

# Application Architecture

The server runs under Suture v4 process supervision:

	RootSupervisor ("vitrine")
	├── ModelSupervisor ("model-layer")
	│   └── Recommend service (cache refresh, model training)
	├── OutcomeSupervisor ("outcome-layer")
	│   ├── Outcome sink (gochannel subscriber writing recommendation_logs)
	│   └── Optimizer service (weights, behavior summaries)
	└── APISupervisor ("api-layer")
	    └── HTTP Server

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Database: DuckDB catalog, interaction tables and outcome log
 4. Model store: BadgerDB snapshots of trained models (optional)
 5. Engine: corpus caches, scorers behind circuit breakers, MMR reranker
 6. Outcomes: Watermill gochannel bus, recorder, sink and optimizer
 7. HTTP Server: Chi router with middleware stack
 8. Supervisor Tree: Suture v4 process supervision

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest priority wins):

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	HTTP_PORT=8080               # HTTP server port
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console
	DUCKDB_PATH=/data/vitrine.duckdb
	SEED_DEMO_DATA=false         # Fill an empty catalog with synthetic data
	MODEL_STORE_DIR=/data/models

Any setting can be overridden with a VITRINE_ prefixed variable, using a
double underscore between sections:

	VITRINE_RECOMMEND__WEIGHTS__CONTENT=1.2
	VITRINE_OPTIMIZER__PERIOD=daily
	VITRINE_RECOMMEND__RERANK__ENABLED=true

# Signal Handling

SIGINT and SIGTERM cancel the root context. The supervisor stops the HTTP
server first, letting in-flight requests finish within the shutdown timeout,
then the outcome sink and the model services. The model store and database
are closed last.

# Example Usage

Local development with synthetic data:

	export SEED_DEMO_DATA=true
	export DUCKDB_PATH=./vitrine.duckdb
	export MODEL_STORE_DIR=./models
	export LOG_FORMAT=console
	./vitrine

	curl 'http://localhost:8080/api/v1/recommendations/user/1?limit=10&include_reasons=true'
*/
package main
