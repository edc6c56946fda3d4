// Package logger wraps log/slog with a single process-wide, atomically-
// leveled logger and a choice of handler, so every package in this module
// logs through one configurable sink instead of calling the stdlib log
// package directly.
package logger

import (
	"context"
	"log/slog"
	"os"
)

var (
	level = new(slog.LevelVar)
	base  = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
)

// SetLevel adjusts the process-wide minimum log level.
func SetLevel(l slog.Level) { level.Set(l) }

// SetJSON switches the process-wide handler to JSON output, for
// environments that want structured log ingestion instead of text.
func SetJSON() {
	base = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// With returns a logger scoped with the given key/value attributes, for
// per-connection log correlation (e.g. With("conn", id)).
func With(args ...any) *slog.Logger { return base.With(args...) }

// Debug logs at debug level on the process-wide logger.
func Debug(msg string, args ...any) { base.Debug(msg, args...) }

// Info logs at info level on the process-wide logger.
func Info(msg string, args ...any) { base.Info(msg, args...) }

// Warn logs at warn level on the process-wide logger.
func Warn(msg string, args ...any) { base.Warn(msg, args...) }

// Error logs at error level on the process-wide logger.
func Error(msg string, args ...any) { base.Error(msg, args...) }

// DebugContext logs at debug level with a context, for handlers that want
// request-scoped attributes (trace IDs, etc.) propagated automatically.
func DebugContext(ctx context.Context, msg string, args ...any) {
	base.DebugContext(ctx, msg, args...)
}
