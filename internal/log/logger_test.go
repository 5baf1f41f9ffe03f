package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONLogger(level slog.Level) (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level})), &buf
}

// entries decodes one JSON object per line.
func entries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestNew(t *testing.T) {
	logger, buf := newJSONLogger(slog.LevelDebug)

	logger.Info("Checking new package for potential typosquatting", "name", "serd")

	got := entries(t, buf)
	require.Len(t, got, 1)
	require.Equal(t, "INFO", got[0]["level"])
	require.Equal(t, "Checking new package for potential typosquatting", got[0]["msg"])
	require.Equal(t, "serd", got[0]["name"])
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  []string
	}{
		{slog.LevelDebug, []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{slog.LevelInfo, []string{"INFO", "WARN", "ERROR"}},
		{slog.LevelWarn, []string{"WARN", "ERROR"}},
		{slog.LevelError, []string{"ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			logger, buf := newJSONLogger(tt.level)
			logger.Debug("Imported batch")
			logger.Info("Built typosquat cache")
			logger.Warn("Clamped configuration value")
			logger.Error("Failed to send possible typosquat notification")

			var levels []string
			for _, e := range entries(t, buf) {
				levels = append(levels, e["level"].(string))
			}
			require.Equal(t, tt.want, levels)
		})
	}
}

func TestLoggerWith(t *testing.T) {
	logger, buf := newJSONLogger(slog.LevelInfo)

	jobLogger := logger.With("job", "check_typosquat").With("name", "serd")
	jobLogger.Error("Failed to send possible typosquat notification", "recipient", "security@example.com")
	logger.Info("Worker started")

	got := entries(t, buf)
	require.Len(t, got, 2)
	require.Equal(t, "check_typosquat", got[0]["job"])
	require.Equal(t, "serd", got[0]["name"])
	require.Equal(t, "security@example.com", got[0]["recipient"])

	// The parent logger is unaffected.
	require.NotContains(t, got[1], "job")
	require.NotContains(t, got[1], "name")
}

func TestNewNoop(t *testing.T) {
	logger := NewNoop()
	logger.Debug("x")
	logger.Info("x", "k", "v")
	logger.Warn("x")
	logger.Error("x")
	require.Equal(t, NewNoop(), logger.With("k", "v"))
}

func TestDefaultLogger(t *testing.T) {
	t.Cleanup(func() { SetDefault(nil) })

	require.Equal(t, NewNoop(), Default())

	logger, buf := newJSONLogger(slog.LevelInfo)
	SetDefault(logger)
	Default().Info("Import complete", "source", "crates.io")
	require.Contains(t, buf.String(), `"source":"crates.io"`)

	SetDefault(nil)
	require.Equal(t, NewNoop(), Default())
}

func TestDefaultLoggerConcurrency(t *testing.T) {
	t.Cleanup(func() { SetDefault(nil) })

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				SetDefault(NewNoop())
				return
			}
			assert.NotNil(t, Default())
			Default().Info("poll")
		}()
	}
	wg.Wait()
}
