package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tsukumogami/squatwatch/internal/config"
	"github.com/tsukumogami/squatwatch/internal/jobs"
	"github.com/tsukumogami/squatwatch/internal/log"
	"github.com/tsukumogami/squatwatch/internal/notify"
	"github.com/tsukumogami/squatwatch/internal/secrets"
	"github.com/tsukumogami/squatwatch/internal/store"
	"github.com/tsukumogami/squatwatch/internal/typosquat"
	"github.com/tsukumogami/squatwatch/internal/worker"
)

// app is everything a command needs to run detection.
type app struct {
	store    *store.Store
	provider *typosquat.Provider
	env      *jobs.Environment
	runner   *worker.Runner[*jobs.Environment]
}

// openStore opens the configured database.
func openStore(ctx context.Context, c *config.Config) (*store.Store, error) {
	s, err := store.Open(ctx, c.Database, storeOptions(c))
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", c.Database, err)
	}
	return s, nil
}

// storeOptions sizes the pool so every worker slot can hold a connection
// while the queue itself still gets one for claiming.
func storeOptions(c *config.Config) store.Options {
	opts := store.DefaultOptions()
	opts.MaxOpenConns = max(opts.MaxOpenConns, c.Worker.Concurrency+2)
	return opts
}

// openApp wires the store, cache, mail and job runner from c. A nil
// mailer means the configured backend.
func openApp(ctx context.Context, c *config.Config, mailer notify.Mailer, l log.Logger) (*app, error) {
	if mailer == nil {
		var err error
		if mailer, err = buildMailer(c, os.Getenv); err != nil {
			return nil, configError{err}
		}
	}
	reporter, err := buildReporter(c, os.Getenv)
	if err != nil {
		return nil, configError{err}
	}

	s, err := openStore(ctx, c)
	if err != nil {
		return nil, err
	}

	provider := typosquat.NewProvider(c.Typosquat.Emails, c.TyposquatOptions(),
		typosquat.WithTTL(c.Typosquat.CacheTTL.Duration),
		typosquat.WithLogger(l),
	)

	envOpts := []jobs.EnvOption{jobs.WithDomain(c.Domain), jobs.WithLogger(l)}
	if reporter != nil {
		envOpts = append(envOpts, jobs.WithIssueReporter(reporter))
	}
	env := jobs.NewEnvironment(s, mailer, provider, envOpts...)

	runner := worker.NewRunner(s, env,
		worker.WithConcurrency(c.Worker.Concurrency),
		worker.WithPollInterval(c.Worker.PollInterval.Duration),
		worker.WithMaxRetries(c.Worker.MaxRetries),
		worker.WithLogger(l),
	)
	jobs.Register(runner)

	return &app{store: s, provider: provider, env: env, runner: runner}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// buildMailer returns the configured mail backend, signing when a key is
// configured.
func buildMailer(c *config.Config, getenv func(string) string) (notify.Mailer, error) {
	from := c.SMTP.From
	if from == "" {
		from = "noreply@" + c.Domain
	}

	var mailer notify.Mailer
	switch c.Mail.Backend {
	case config.MailSMTP:
		if c.SMTP.Host == "" {
			return nil, fmt.Errorf("smtp.host is not set (set it, or use mail.backend = %q)", config.MailFile)
		}
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     c.SMTP.Host,
			Port:     c.SMTP.Port,
			Username: c.SMTP.Username,
			Password: secretsFor(c, getenv).Lookup(secrets.SMTPPassword),
			From:     from,
		})
	case config.MailFile:
		mailer = notify.NewFileMailer(c.Mail.Dir, from)
	case config.MailMemory:
		mailer = notify.NewMemoryMailer()
	default:
		return nil, fmt.Errorf("unknown mail backend %q", c.Mail.Backend)
	}

	if c.Signing.KeyFile == "" {
		return mailer, nil
	}
	passphrase := secretsFor(c, getenv).Lookup(secrets.SigningPassphrase)
	signer, err := notify.LoadSigner(c.Signing.KeyFile, []byte(passphrase))
	if err != nil {
		return nil, err
	}
	return notify.NewSigningMailer(mailer, signer), nil
}

// buildReporter returns the GitHub issue reporter, or nil when none is
// configured.
func buildReporter(c *config.Config, getenv func(string) string) (*notify.IssueReporter, error) {
	if c.GitHub.Owner == "" {
		return nil, nil
	}
	token, err := secretsFor(c, getenv).Get(secrets.GitHubToken)
	if err != nil {
		return nil, fmt.Errorf("github issue reporting is configured: %w", err)
	}
	return notify.NewIssueReporter(c.GitHub.Owner, c.GitHub.Repo, token, notify.WithLabels("typosquat"))
}

// secretsFor resolves credentials from the environment, then c.
func secretsFor(c *config.Config, getenv func(string) string) *secrets.Resolver {
	return secrets.NewResolver(getenv).
		PreferEnv(secrets.GitHubToken, c.GitHub.TokenEnv).
		PreferEnv(secrets.SigningPassphrase, c.Signing.PassphraseEnv).
		Fallback(secrets.SMTPPassword, c.SMTP.Password)
}
