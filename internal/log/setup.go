package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// Options configures Setup.
type Options struct {
	Level slog.Level

	// Stderr receives text output. Defaults to os.Stderr.
	Stderr io.Writer

	// File, when set, also receives every record as a JSON line. The file
	// is appended to and its directory created if needed.
	File string
}

// Setup builds the process logger. The returned close function releases
// the log file, if any.
func Setup(opts Options) (Logger, func() error, error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	text := slog.NewTextHandler(stderr, handlerOpts)

	if opts.File == "" {
		return New(text), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return NewFanout(text, slog.NewJSONHandler(f, handlerOpts)), f.Close, nil
}

// NewFanout returns a Logger that writes every record to all handlers.
func NewFanout(handlers ...slog.Handler) Logger {
	return New(slogmulti.Fanout(handlers...))
}

// ParseLevel maps a level name (debug, info, warn, error) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (want debug, info, warn, or error)", s)
	}
}
