package enumstore

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/enumstore/enumerator"
)

// Logger wraps slog.Logger with enumstore-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithPath adds the store path to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// WithID adds an ID field to the logger.
func (l *Logger) WithID(id enumerator.ID) *Logger {
	return &Logger{
		Logger: l.Logger.With("id", int32(id)),
	}
}

// LogOpen logs opening a store.
func (l *Logger) LogOpen(ctx context.Context, path string, st enumerator.Stats, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "store opened",
			"path", path,
			"records", st.Records,
			"largest_id", int32(st.LargestID),
			"read_only", st.ReadOnly,
		)
	}
}

// LogEnumerate logs an enumerate operation.
func (l *Logger) LogEnumerate(ctx context.Context, id enumerator.ID, inserted bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "enumerate failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "enumerate completed",
			"id", int32(id),
			"inserted", inserted,
		)
	}
}

// LogFlush logs a flush.
func (l *Logger) LogFlush(ctx context.Context, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "flush failed",
			"path", path,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "flush completed",
			"path", path,
		)
	}
}

// LogVerify logs the result of an index check.
func (l *Logger) LogVerify(ctx context.Context, path string, rep enumerator.Report, err error) {
	if err != nil {
		l.WarnContext(ctx, "verify found problems",
			"path", path,
			"report", rep.String(),
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "verify completed",
			"path", path,
			"records", rep.Records,
		)
	}
}
