// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared process-wide. Error field names are
// taken from the `query` tag, then the `json` tag, so a failure on
//
//	MaxPrice float64 `query:"max_price" validate:"omitempty,gtefield=MinPrice"`
//
// reads "max_price must be greater than or equal to min_price".
//
// Custom tags:
//
//	interaction_action  view, cart or purchase
//	period              daily, weekly or monthly (empty is weekly)
//
// Handlers convert failures with ToAPIError and write them into the API
// error envelope with status 400.
package validation
