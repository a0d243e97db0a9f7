// Package logging configures the process-wide structured logger. dealintel
// uses the standard library's log/slog throughout, matching the rest of the
// ambient stack; this package only centralizes handler setup so every
// entrypoint (API server, worker pool, CLI tools) gets the same format.
package logging

import (
	"context"
	"log/slog"
	"os"
)

// Options configures the root logger.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string
	// JSON selects slog.NewJSONHandler over a human-readable text handler.
	// Production deployments always set this true; local dev leaves it false.
	JSON bool
}

// New builds a *slog.Logger per Options and installs it as slog's default,
// so library code that calls the package-level slog.Info/Warn/Error
// functions picks up the same configuration without a logger being
// threaded through every call.
func New(opts Options) *slog.Logger {
	level := parseLevel(opts.Level)
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(os.Stdout, handlerOpts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, handlerOpts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type traceIDKey struct{}

// WithTraceID attaches a trace id to ctx for later retrieval by FromContext,
// so handlers and workers can stamp every log line in a request/job with a
// correlating id without passing it as an explicit parameter everywhere.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// FromContext returns a logger enriched with the trace id stored in ctx, if
// any, falling back to slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if traceID, ok := ctx.Value(traceIDKey{}).(string); ok && traceID != "" {
		return logger.With("trace_id", traceID)
	}
	return logger
}
