// Package log provides structured logging for squatwatch.
//
// Subsystems take a Logger through functional options and fall back to the
// process-wide Default. The CLI configures that default once at startup
// with Setup: human-readable text on stderr and, when a log file is
// configured, JSON lines in the file.
//
// Verbosity levels:
//   - ERROR (--quiet): Errors only
//   - WARN (default): Warnings, including failed notification deliveries
//   - INFO (--verbose): Checks run, squats found, caches built
//   - DEBUG (--debug): Per-batch and per-job detail
package log

import (
	"log/slog"
	"sync/atomic"
)

// Logger is the structured logging interface. Methods take slog-style
// alternating key/value arguments.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With returns a Logger that adds args to every entry.
	With(args ...any) Logger
}

// slogLogger adapts *slog.Logger; only With needs its own signature.
type slogLogger struct {
	*slog.Logger
}

// New creates a Logger backed by slog with the given handler.
func New(h slog.Handler) Logger {
	return slogLogger{slog.New(h)}
}

func (s slogLogger) With(args ...any) Logger {
	return slogLogger{s.Logger.With(args...)}
}

type noopLogger struct{}

// NewNoop returns a logger that discards all output.
func NewNoop() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) With(...any) Logger   { return noopLogger{} }

// holder lets atomic.Value store loggers of different concrete types.
type holder struct{ Logger }

var defaultLogger atomic.Value

func init() {
	defaultLogger.Store(holder{noopLogger{}})
}

// Default returns the process-wide logger, a noop until SetDefault is
// called.
func Default() Logger {
	return defaultLogger.Load().(holder).Logger
}

// SetDefault replaces the process-wide logger. A nil l restores the noop
// logger.
func SetDefault(l Logger) {
	if l == nil {
		l = noopLogger{}
	}
	defaultLogger.Store(holder{l})
}
