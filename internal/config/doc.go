// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

/*
Package config provides layered configuration for Vitrine.

Configuration is assembled with Koanf v2 from three sources, later sources
overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: CONFIG_PATH, else config.yaml, config.yml,
    /etc/vitrine/config.yaml or /etc/vitrine/config.yml
 3. Environment variables

# Environment Variables

Every key can be set with the VITRINE_ prefix, using a double underscore
between sections:

	VITRINE_SERVER__PORT=9000
	VITRINE_RECOMMEND__WEIGHTS__CONTENT=1.2
	VITRINE_RECOMMEND__CACHE__LATENT_TTL=12h
	VITRINE_RECOMMEND__NEURAL__HIDDEN=64,32
	VITRINE_OPTIMIZER__PERIOD=daily

A few short aliases are accepted as well: HTTP_PORT, HTTP_HOST,
HTTP_TIMEOUT, ENVIRONMENT, CORS_ORIGINS, DUCKDB_PATH, DUCKDB_MAX_MEM,
SEED_DEMO_DATA, LOG_LEVEL, LOG_FORMAT, LOG_CALLER and MODEL_STORE_DIR.

# Sections

  - server: HTTP listener, CORS and rate limiting
  - database: DuckDB path, memory limit, demo data seeding
  - logging: zerolog level, format and caller info
  - recommend: the engine configuration (recommend.Config)
  - optimizer: weight optimizer schedule and outcome attribution
  - model_store: BadgerDB model snapshots

# Validation

Load returns an error when any section is out of range. Wildcard CORS
origins are refused when environment is production.
*/
package config
