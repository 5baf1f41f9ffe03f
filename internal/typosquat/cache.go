package typosquat

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/tsukumogami/squatwatch/internal/similarity"
)

// DefaultTopPackages is the number of popular packages checked against.
// The reference set bounds the cost of every check, so it stays small
// compared to the whole registry.
const DefaultTopPackages = 3000

// Options configures how a Cache is built.
type Options struct {
	// TopPackages is the size of the reference set. Zero means
	// DefaultTopPackages.
	TopPackages int
	// Checks selects and tunes the similarity checks.
	Checks similarity.Options
}

func (o Options) topPackages() int {
	if o.TopPackages <= 0 {
		return DefaultTopPackages
	}
	return o.TopPackages
}

// BuildError reports that a cache could not be built. No partial cache is
// ever returned alongside it.
type BuildError struct {
	Err error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build typosquat cache: %v", e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Cache is an immutable snapshot of the reference set, the notification
// recipients, and the compiled harness.
type Cache struct {
	packages []Package
	emails   []string
	harness  *Harness
	builtAt  time.Time
}

// NewCache queries src for the most popular packages and compiles a
// harness over them. When the reference set is empty, or every check is
// disabled, the cache has no harness and detection becomes a no-op.
func NewCache(ctx context.Context, emails []string, src Source, opts Options) (*Cache, error) {
	checks, err := similarity.Build(opts.Checks)
	if err != nil {
		return nil, &BuildError{Err: err}
	}

	packages, err := src.TopPackages(ctx, opts.topPackages())
	if err != nil {
		return nil, &BuildError{Err: err}
	}

	c := &Cache{
		packages: packages,
		emails:   slices.Clone(emails),
		builtAt:  time.Now(),
	}
	if len(packages) > 0 && len(checks) > 0 {
		c.harness = NewHarness(checks, c.packages)
	}
	return c, nil
}

// Harness returns the compiled harness, or nil when there is nothing to
// check against. Callers treat nil as "nothing to do".
func (c *Cache) Harness() *Harness {
	return c.harness
}

// Emails iterates over the notification recipients. The sequence can be
// ranged over any number of times.
func (c *Cache) Emails() iter.Seq[string] {
	return slices.Values(c.emails)
}

// Packages returns a copy of the reference set, most popular first.
func (c *Cache) Packages() []Package {
	return slices.Clone(c.packages)
}

// BuiltAt reports when the snapshot was built.
func (c *Cache) BuiltAt() time.Time {
	return c.builtAt
}
