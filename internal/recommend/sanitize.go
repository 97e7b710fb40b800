// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package recommend

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	maxBrandLength = 100
	maxPageLength  = 200
)

// SanitizeContext drops malformed context values. Every dropped value is
// reported as an error wrapping ErrInvalidContext; the returned context is
// always usable. catalog may be nil, which skips the category check.
func SanitizeContext(rc RequestContext, catalog *Catalog, maxQueryLength int) (RequestContext, []error) {
	var problems []error
	invalid := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf("%w: "+format, append([]any{ErrInvalidContext}, args...)...))
	}

	if rc.CategoryID < 0 {
		invalid("category_id %d is negative", rc.CategoryID)
		rc.CategoryID = 0
	} else if rc.CategoryID > 0 && catalog != nil && !catalog.HasCategory(rc.CategoryID) {
		invalid("category_id %d is unknown", rc.CategoryID)
		rc.CategoryID = 0
	}

	rc.Brand = strings.TrimSpace(rc.Brand)
	if len(rc.Brand) > maxBrandLength || !utf8.ValidString(rc.Brand) {
		invalid("brand is malformed")
		rc.Brand = ""
	}

	if pr := rc.PriceRange; pr != nil {
		switch {
		case !finite(pr.Min) || !finite(pr.Max):
			invalid("price range is not finite")
			rc.PriceRange = nil
		case pr.Min < 0 || pr.Max < 0:
			invalid("price range %.2f-%.2f has a negative bound", pr.Min, pr.Max)
			rc.PriceRange = nil
		case pr.Max > 0 && pr.Min > pr.Max:
			invalid("price range %.2f-%.2f is inverted", pr.Min, pr.Max)
			rc.PriceRange = nil
		case pr.Min == 0 && pr.Max == 0:
			rc.PriceRange = nil
		default:
			copied := *pr
			rc.PriceRange = &copied
		}
	}

	rc.SearchQuery = strings.TrimSpace(rc.SearchQuery)
	if maxQueryLength > 0 && len(rc.SearchQuery) > maxQueryLength || !utf8.ValidString(rc.SearchQuery) {
		invalid("search query is malformed or longer than %d bytes", maxQueryLength)
		rc.SearchQuery = ""
	}

	rc.CurrentPage = strings.TrimSpace(rc.CurrentPage)
	if len(rc.CurrentPage) > maxPageLength {
		invalid("current page is longer than %d bytes", maxPageLength)
		rc.CurrentPage = ""
	}

	return rc, problems
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
