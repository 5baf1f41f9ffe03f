package typosquat

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tsukumogami/squatwatch/internal/log"
)

// Provider owns the process-wide cache snapshot. Reads are lock-free; a
// rebuild produces a new snapshot and swaps it in atomically, so a reader
// holding the old one keeps a consistent view.
type Provider struct {
	emails []string
	opts   Options
	ttl    time.Duration
	logger log.Logger
	now    func() time.Time

	mu      sync.Mutex // serializes builds
	current atomic.Pointer[Cache]
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithTTL makes Get rebuild snapshots older than ttl. Zero keeps a
// snapshot for the life of the process.
func WithTTL(ttl time.Duration) ProviderOption {
	return func(p *Provider) { p.ttl = ttl }
}

// WithLogger sets the logger used to report rebuilds.
func WithLogger(l log.Logger) ProviderOption {
	return func(p *Provider) { p.logger = l }
}

// NewProvider creates a provider with no resident snapshot.
func NewProvider(emails []string, opts Options, options ...ProviderOption) *Provider {
	p := &Provider{
		emails: emails,
		opts:   opts,
		logger: log.Default(),
		now:    time.Now,
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Get returns the resident snapshot, building it from src first if there
// is none or it has expired. Concurrent callers share a single build. If an
// expired snapshot cannot be rebuilt, Get keeps returning it.
func (p *Provider) Get(ctx context.Context, src Source) (*Cache, error) {
	if c := p.current.Load(); c != nil && !p.expired(c) {
		return c, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c := p.current.Load(); c != nil && !p.expired(c) {
		return c, nil
	}
	c, err := p.build(ctx, src)
	if err != nil {
		if stale := p.current.Load(); stale != nil {
			return stale, nil
		}
		return nil, err
	}
	return c, nil
}

// Rebuild builds a fresh snapshot from src and makes it resident. On
// failure the previous snapshot stays resident.
func (p *Provider) Rebuild(ctx context.Context, src Source) (*Cache, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.build(ctx, src)
}

// Current returns the resident snapshot without building, or nil.
func (p *Provider) Current() *Cache {
	return p.current.Load()
}

func (p *Provider) build(ctx context.Context, src Source) (*Cache, error) {
	c, err := NewCache(ctx, p.emails, src, p.opts)
	if err != nil {
		if stale := p.current.Load(); stale != nil {
			p.logger.Warn("Failed to rebuild typosquat cache, keeping previous snapshot",
				"age", p.now().Sub(stale.builtAt), "error", err)
		}
		return nil, err
	}
	c.builtAt = p.now()
	p.current.Store(c)

	refs := 0
	if h := c.Harness(); h != nil {
		refs = h.Len()
	}
	p.logger.Info("Built typosquat cache", "references", refs, "recipients", len(p.emails))
	return c, nil
}

func (p *Provider) expired(c *Cache) bool {
	return p.ttl > 0 && p.now().Sub(c.builtAt) >= p.ttl
}
