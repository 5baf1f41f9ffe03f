// Package seed imports package popularity data into the store from
// registry APIs, curated files, and registry database dumps.
package seed

import (
	"context"

	"github.com/tsukumogami/squatwatch/internal/store"
)

// Source fetches packages with their popularity from one origin.
type Source interface {
	Name() string
	// Fetch returns up to limit packages, most popular first. A limit of
	// zero or less means all of them.
	Fetch(ctx context.Context, limit int) ([]store.Record, error)
}
