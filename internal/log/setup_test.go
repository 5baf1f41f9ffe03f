package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetup_StderrOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := Setup(Options{Level: slog.LevelInfo, Stderr: &buf})
	require.NoError(t, err)
	defer closeFn()

	logger.Debug("hidden")
	logger.Info("Built typosquat cache", "packages", 3)

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "Built typosquat cache")
	require.Contains(t, out, "packages=3")
}

func TestSetup_FileFanout(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "squatwatch.log")

	logger, closeFn, err := Setup(Options{Level: slog.LevelWarn, Stderr: &buf, File: path})
	require.NoError(t, err)

	logger.Info("not written")
	logger.With("package", "serd").Warn("Failed to send possible typosquat notification", "recipient", "a@example.com")
	require.NoError(t, closeFn())

	require.Contains(t, buf.String(), "recipient=a@example.com")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	require.Equal(t, "WARN", rec["level"])
	require.Equal(t, "serd", rec["package"])
	require.Equal(t, "a@example.com", rec["recipient"])
}

func TestSetup_FileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "squatwatch.log")
	for i := 0; i < 2; i++ {
		logger, closeFn, err := Setup(Options{Level: slog.LevelInfo, Stderr: &bytes.Buffer{}, File: path})
		require.NoError(t, err)
		logger.Info("run")
		require.NoError(t, closeFn())
	}
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(string(data), `"msg":"run"`))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"":        slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	require.ErrorContains(t, err, "unknown log level")
}
