// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// compressionLevel trades a little ratio for CPU; recommendation payloads
// are small and repetitive.
const compressionLevel = 5

var compress = chimw.Compress(compressionLevel, "application/json", "text/plain")

// Compression gzips or deflates JSON and text responses for clients that
// accept it. Other content types pass through untouched.
func Compression(next http.Handler) http.Handler {
	return compress(next)
}
