// Package typosquat compares newly published package names against a
// snapshot of the registry's most popular packages.
//
// The snapshot (Cache) is built once from a Source and then shared
// read-only by every detection job. A Provider holds the current snapshot
// and swaps in a new one on rebuild, so readers never see a half-built
// cache.
package typosquat

import (
	"context"
	"slices"
)

// Owner identifies a user or team that owns a package.
type Owner struct {
	Kind string // "user" or "team"
	ID   int64
}

// Package is the data the harness and the notification mail need about a
// package. Reference packages and candidates use the same shape.
type Package struct {
	Name          string
	Description   string
	Homepage      string
	Repository    string
	Downloads     int64
	NewestVersion string
	Owners        []Owner
}

// SharesOwner reports whether p and other have at least one owner in
// common. An owner publishing variants of their own package is not
// squatting on it.
func (p *Package) SharesOwner(other *Package) bool {
	if p == nil || other == nil {
		return false
	}
	for _, o := range p.Owners {
		if slices.Contains(other.Owners, o) {
			return true
		}
	}
	return false
}

// Source provides the reference set. Implementations return packages
// ordered by descending popularity.
type Source interface {
	TopPackages(ctx context.Context, limit int) ([]Package, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, limit int) ([]Package, error)

// TopPackages calls f.
func (f SourceFunc) TopPackages(ctx context.Context, limit int) ([]Package, error) {
	return f(ctx, limit)
}
