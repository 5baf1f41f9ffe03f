// Package jobs holds the background jobs squatwatch runs and the
// environment they share.
package jobs

import (
	"context"
	"database/sql"
	"time"

	"github.com/tsukumogami/squatwatch/internal/log"
	"github.com/tsukumogami/squatwatch/internal/notify"
	"github.com/tsukumogami/squatwatch/internal/store"
	"github.com/tsukumogami/squatwatch/internal/typosquat"
	"github.com/tsukumogami/squatwatch/internal/worker"
)

// ConnPool hands out dedicated database connections.
type ConnPool interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

// IssueReporter files a notification in an issue tracker.
type IssueReporter interface {
	Report(ctx context.Context, email notify.Email) (string, error)
}

// DefaultSendTimeout bounds each notification delivery.
const DefaultSendTimeout = time.Minute

// Environment is what every job runs against. It is created once per
// process and shared by all worker goroutines.
type Environment struct {
	db       ConnPool
	mailer   notify.Mailer
	reporter IssueReporter
	cache    *typosquat.Provider
	domain   string
	logger   log.Logger

	sendTimeout time.Duration
}

// EnvOption configures an Environment.
type EnvOption func(*Environment)

// WithDomain sets the registry domain used in links.
func WithDomain(domain string) EnvOption {
	return func(e *Environment) { e.domain = domain }
}

// WithIssueReporter also files every typosquat notification as an issue.
func WithIssueReporter(r IssueReporter) EnvOption {
	return func(e *Environment) { e.reporter = r }
}

// WithSendTimeout bounds how long one recipient's delivery may take before
// the job moves on to the next.
func WithSendTimeout(d time.Duration) EnvOption {
	return func(e *Environment) {
		if d > 0 {
			e.sendTimeout = d
		}
	}
}

// WithLogger sets the logger jobs use.
func WithLogger(l log.Logger) EnvOption {
	return func(e *Environment) { e.logger = l }
}

// NewEnvironment creates an environment. cache is typically shared with
// anything else in the process that needs the reference set.
func NewEnvironment(db ConnPool, mailer notify.Mailer, cache *typosquat.Provider, opts ...EnvOption) *Environment {
	e := &Environment{
		db:     db,
		mailer: mailer,
		cache:  cache,
		domain: "localhost",
		logger: log.Default(),

		sendTimeout: DefaultSendTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Domain returns the registry domain used in links.
func (e *Environment) Domain() string {
	return e.domain
}

// TyposquatCache returns the process-wide cache, building it from conn on
// first use.
func (e *Environment) TyposquatCache(ctx context.Context, conn store.Querier) (*typosquat.Cache, error) {
	return e.cache.Get(ctx, store.NewPackages(conn))
}

// Register makes r able to run every job in this package.
func Register(r *worker.Runner[*Environment]) {
	worker.Register[CheckTyposquat](r)
}
