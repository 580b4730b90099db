// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shield

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger used by Handlers created afterwards.
// By default, shield produces no log output. Pass nil to restore the
// silent default.
//
// SetLogger is safe for concurrent use: it stores the new logger
// atomically. A Handler captures the logger at construction, so call
// SetLogger before New to see that Handler's diagnostics.
//
// Log levels used by shield:
//   - [slog.LevelDebug]: low-severity faults (fallback shader in use)
//   - [slog.LevelInfo]: lifecycle events and medium-severity faults
//   - [slog.LevelWarn]: high and critical faults, open circuit breakers
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger. Sub-packages receive it through
// their constructors rather than calling this directly.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
