// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package logging

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// SlogHandler is a slog.Handler writing to a zerolog logger, so the
// supervisor's slog events land in the same stream as everything else.
//
// Groups become dotted key prefixes. Attributes bound with WithAttrs are
// flattened once, under the prefix in effect at the time.
type SlogHandler struct {
	logger zerolog.Logger
	prefix string
	bound  []slog.Attr
}

// NewSlogHandlerWithLogger returns a handler writing to logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSlogHandlerWithLogger(logger zerolog.Logger) *SlogHandler {
	return &SlogHandler{logger: logger}
}

// NewSlogLogger returns an slog.Logger over the current global logger.
//
//	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), cfg)
func NewSlogLogger() *slog.Logger {
	return slog.New(NewSlogHandlerWithLogger(Logger()))
}

// Enabled implements slog.Handler.
func (h *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	zl := slogToZerologLevel(level)
	return zl >= h.logger.GetLevel() && zl >= zerolog.GlobalLevel()
}

// Handle implements slog.Handler.
//
//nolint:gocritic // slog.Record is passed by value per slog.Handler interface
func (h *SlogHandler) Handle(_ context.Context, record slog.Record) error {
	event := h.logger.WithLevel(slogToZerologLevel(record.Level))
	for _, a := range h.bound {
		event = putAttr(event, a)
	}
	record.Attrs(func(a slog.Attr) bool {
		for _, flat := range flatten(nil, h.prefix, a) {
			event = putAttr(event, flat)
		}
		return true
	})
	event.Msg(record.Message)
	return nil
}

// WithAttrs implements slog.Handler.
func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	bound := make([]slog.Attr, len(h.bound), len(h.bound)+len(attrs))
	copy(bound, h.bound)
	for _, a := range attrs {
		bound = flatten(bound, h.prefix, a)
	}
	return &SlogHandler{logger: h.logger, prefix: h.prefix, bound: bound}
}

// WithGroup implements slog.Handler.
func (h *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SlogHandler{logger: h.logger, prefix: h.prefix + name + ".", bound: h.bound}
}

// flatten appends a to dst with its key qualified by prefix, expanding
// groups into one attribute per leaf.
func flatten(dst []slog.Attr, prefix string, a slog.Attr) []slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() != slog.KindGroup {
		return append(dst, slog.Attr{Key: prefix + a.Key, Value: a.Value})
	}
	inner := prefix
	if a.Key != "" {
		inner = prefix + a.Key + "."
	}
	for _, ga := range a.Value.Group() {
		dst = flatten(dst, inner, ga)
	}
	return dst
}

func putAttr(event *zerolog.Event, a slog.Attr) *zerolog.Event {
	v := a.Value
	switch v.Kind() {
	case slog.KindString:
		return event.Str(a.Key, v.String())
	case slog.KindInt64:
		return event.Int64(a.Key, v.Int64())
	case slog.KindUint64:
		return event.Uint64(a.Key, v.Uint64())
	case slog.KindFloat64:
		return event.Float64(a.Key, v.Float64())
	case slog.KindBool:
		return event.Bool(a.Key, v.Bool())
	case slog.KindDuration:
		return event.Dur(a.Key, v.Duration())
	case slog.KindTime:
		return event.Time(a.Key, v.Time())
	}
	if err, ok := v.Any().(error); ok {
		return event.AnErr(a.Key, err)
	}
	return event.Interface(a.Key, v.Any())
}

func slogToZerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level >= slog.LevelError:
		return zerolog.ErrorLevel
	case level >= slog.LevelWarn:
		return zerolog.WarnLevel
	case level >= slog.LevelInfo:
		return zerolog.InfoLevel
	case level >= slog.LevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}
