package main

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tsukumogami/squatwatch/internal/config"
	"github.com/tsukumogami/squatwatch/internal/notify"
	"github.com/tsukumogami/squatwatch/internal/secrets"
	"github.com/tsukumogami/squatwatch/internal/store"
)

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"On", true},
		{"0", false},
		{"false", false},
		{"no", false},
		{"", false},
		{"off", false},
		{"random", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := isTruthy(tt.input); got != tt.want {
				t.Errorf("isTruthy(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDetermineLogLevel(t *testing.T) {
	origQuiet, origVerbose, origDebug := quietFlag, verboseFlag, debugFlag
	defer func() {
		quietFlag, verboseFlag, debugFlag = origQuiet, origVerbose, origDebug
	}()

	tests := []struct {
		name       string
		quietF     bool
		verboseF   bool
		debugF     bool
		envQuiet   string
		envVerbose string
		envDebug   string
		want       slog.Level
	}{
		{name: "default is WARN", want: slog.LevelWarn},
		{name: "debug flag", debugF: true, want: slog.LevelDebug},
		{name: "verbose flag", verboseF: true, want: slog.LevelInfo},
		{name: "quiet flag", quietF: true, want: slog.LevelError},
		{name: "debug env var", envDebug: "1", want: slog.LevelDebug},
		{name: "verbose env var", envVerbose: "true", want: slog.LevelInfo},
		{name: "quiet env var", envQuiet: "yes", want: slog.LevelError},
		{name: "flag takes precedence over env var", quietF: true, envDebug: "1", want: slog.LevelError},
		{name: "debug flag overrides verbose flag", debugF: true, verboseF: true, want: slog.LevelDebug},
		{name: "verbose flag overrides quiet flag", verboseF: true, quietF: true, want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quietFlag = tt.quietF
			verboseFlag = tt.verboseF
			debugFlag = tt.debugF
			t.Setenv("SQUATWATCH_QUIET", tt.envQuiet)
			t.Setenv("SQUATWATCH_VERBOSE", tt.envVerbose)
			t.Setenv("SQUATWATCH_DEBUG", tt.envDebug)

			if got := determineLogLevel(); got != tt.want {
				t.Errorf("determineLogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExitCodeFor(t *testing.T) {
	notFound := &store.StoreError{Type: store.ErrTypeNotFound, Key: "serd", Message: "package not found"}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"squats", errSquatsFound, ExitSquatsFound},
		{"usage", usageError{errors.New("accepts 1 arg(s)")}, ExitUsage},
		{"config", configError{errors.New("bad key")}, ExitConfig},
		{"not found", fmt.Errorf("check: %w", notFound), ExitNotFound},
		{"network", fmt.Errorf("fetch: %w", &net.OpError{Op: "dial", Err: errors.New("refused")}), ExitNetwork},
		{"other", errors.New("boom"), ExitGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, exitCodeFor(tt.err))
		})
	}
}

type suggestedError struct{}

func (suggestedError) Error() string      { return "database is locked" }
func (suggestedError) Suggestion() string { return "stop the other worker" }

func TestFprintError(t *testing.T) {
	var buf bytes.Buffer
	fprintError(&buf, fmt.Errorf("enqueue: %w", suggestedError{}))
	require.Contains(t, buf.String(), "Error: enqueue: database is locked")
	require.Contains(t, buf.String(), "stop the other worker")

	buf.Reset()
	fprintError(&buf, &store.StoreError{Type: store.ErrTypeNotFound, Key: "serd", Message: "package not found"})
	require.Contains(t, buf.String(), "Possible causes:")
	require.Contains(t, buf.String(), "squatwatch seed")

	buf.Reset()
	fprintError(&buf, errors.New("plain"))
	require.Contains(t, buf.String(), "plain")
	require.NotContains(t, buf.String(), "  ")
}

func noEnv(string) string { return "" }

func TestStoreOptions(t *testing.T) {
	c := config.Default()
	require.Equal(t, store.DefaultOptions().MaxOpenConns, storeOptions(c).MaxOpenConns)

	c.Worker.Concurrency = 32
	opts := storeOptions(c)
	require.Equal(t, 34, opts.MaxOpenConns)
	require.Equal(t, store.DefaultOptions().BusyTimeout, opts.BusyTimeout)
}

func TestBuildMailer(t *testing.T) {
	t.Run("smtp needs a host", func(t *testing.T) {
		c := config.Default()
		c.Mail.Backend = config.MailSMTP
		_, err := buildMailer(c, noEnv)
		require.ErrorContains(t, err, "smtp.host")
	})

	t.Run("smtp", func(t *testing.T) {
		c := config.Default()
		c.Mail.Backend = config.MailSMTP
		c.SMTP.Host = "mail.example.com"
		m, err := buildMailer(c, noEnv)
		require.NoError(t, err)
		require.IsType(t, &notify.SMTPMailer{}, m)
	})

	t.Run("file", func(t *testing.T) {
		c := config.Default()
		c.Mail.Backend = config.MailFile
		c.Mail.Dir = t.TempDir()
		m, err := buildMailer(c, noEnv)
		require.NoError(t, err)
		require.IsType(t, &notify.FileMailer{}, m)
	})

	t.Run("memory", func(t *testing.T) {
		c := config.Default()
		c.Mail.Backend = config.MailMemory
		m, err := buildMailer(c, noEnv)
		require.NoError(t, err)
		require.IsType(t, &notify.MemoryMailer{}, m)
	})

	t.Run("unknown backend", func(t *testing.T) {
		c := config.Default()
		c.Mail.Backend = "pigeon"
		_, err := buildMailer(c, noEnv)
		require.ErrorContains(t, err, "pigeon")
	})

	t.Run("missing signing key", func(t *testing.T) {
		c := config.Default()
		c.Mail.Backend = config.MailMemory
		c.Signing.KeyFile = "/nonexistent/key.asc"
		_, err := buildMailer(c, noEnv)
		require.Error(t, err)
	})
}

func TestBuildReporter(t *testing.T) {
	c := config.Default()
	r, err := buildReporter(c, noEnv)
	require.NoError(t, err)
	require.Nil(t, r)

	c.GitHub.Owner = "example"
	c.GitHub.Repo = "triage"
	_, err = buildReporter(c, noEnv)
	require.ErrorContains(t, err, "github_token not configured")
	var notSet *secrets.NotSetError
	require.ErrorAs(t, err, &notSet)
	require.Contains(t, notSet.Suggestion(), "GITHUB_TOKEN")

	r, err = buildReporter(c, func(k string) string {
		if k == "GITHUB_TOKEN" {
			return "ghp_test"
		}
		return ""
	})
	require.NoError(t, err)
	require.NotNil(t, r)
}

func TestSecretsFor(t *testing.T) {
	c := config.Default()
	c.SMTP.Password = "from-file"
	c.GitHub.TokenEnv = "TRIAGE_TOKEN"
	c.Signing.PassphraseEnv = "KEY_PASS"

	vars := map[string]string{"TRIAGE_TOKEN": "ghp_triage", "GITHUB_TOKEN": "ghp_default", "KEY_PASS": "open sesame"}
	r := secretsFor(c, func(k string) string { return vars[k] })
	require.Equal(t, "ghp_triage", r.Lookup(secrets.GitHubToken))
	require.Equal(t, "open sesame", r.Lookup(secrets.SigningPassphrase))
	require.Equal(t, "from-file", r.Lookup(secrets.SMTPPassword))

	vars["SQUATWATCH_SMTP_PASSWORD"] = "from-env"
	require.Equal(t, "from-env", r.Lookup(secrets.SMTPPassword))
}
