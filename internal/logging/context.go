// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey int

const (
	fieldsKey contextKey = iota
	loggerKey
)

// requestFields are the per-request values every contextual log line carries.
// They are stored as one immutable value and copied on write.
type requestFields struct {
	requestID     string
	correlationID string
	userID        int
}

func fieldsFrom(ctx context.Context) requestFields {
	f, _ := ctx.Value(fieldsKey).(requestFields) //nolint:errcheck // zero value when absent
	return f
}

func updateFields(ctx context.Context, update func(*requestFields)) context.Context {
	f := fieldsFrom(ctx)
	update(&f)
	return context.WithValue(ctx, fieldsKey, f)
}

// GenerateCorrelationID returns a short random ID that ties together the log
// lines of one request across components.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// ContextWithRequestID returns ctx carrying the HTTP request ID. The same
// ID is echoed to clients and stored on outcome log rows.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return updateFields(ctx, func(f *requestFields) { f.requestID = id })
}

// RequestIDFromContext returns the request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).requestID
}

// ContextWithCorrelationID returns ctx carrying the correlation ID.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return updateFields(ctx, func(f *requestFields) { f.correlationID = id })
}

// ContextWithNewCorrelationID returns ctx carrying a fresh correlation ID.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext returns the correlation ID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).correlationID
}

// ContextWithUserID returns ctx carrying the user a request is served for.
func ContextWithUserID(ctx context.Context, userID int) context.Context {
	return updateFields(ctx, func(f *requestFields) { f.userID = userID })
}

// UserIDFromContext returns the user ID, or 0.
func UserIDFromContext(ctx context.Context) int {
	return fieldsFrom(ctx).userID
}

// ContextWithLogger stores a base logger for Ctx to decorate.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext returns the stored logger, or the global one.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns the context's logger with request_id, correlation_id and
// user_id attached when present.
//
//	logging.Ctx(ctx).Info().Int("returned", n).Msg("Recommendations served")
//	// {"level":"info","request_id":"…","correlation_id":"ab12cd34","user_id":7,...}
func Ctx(ctx context.Context) *zerolog.Logger {
	f := fieldsFrom(ctx)
	base := LoggerFromContext(ctx)
	lc := base.With()
	if f.requestID != "" {
		lc = lc.Str("request_id", f.requestID)
	}
	if f.correlationID != "" {
		lc = lc.Str("correlation_id", f.correlationID)
	}
	if f.userID != 0 {
		lc = lc.Int("user_id", f.userID)
	}
	l := lc.Logger()
	return &l
}

// CtxErr starts an error message with the context fields and err.
func CtxErr(ctx context.Context, err error) *zerolog.Event {
	return Ctx(ctx).Error().Err(err)
}
