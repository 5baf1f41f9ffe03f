package seed

import (
	"context"
	"fmt"

	"github.com/tsukumogami/squatwatch/internal/log"
	"github.com/tsukumogami/squatwatch/internal/store"
)

// importBatchSize bounds how many records are written per transaction.
const importBatchSize = 500

// Upserter writes package records.
type Upserter interface {
	UpsertPackages(ctx context.Context, records []store.Record) (int, error)
}

// Result summarizes an import.
type Result struct {
	Source   string
	Fetched  int
	Imported int
}

// Import fetches up to limit packages from src and writes them in batches.
// Batches written before a failure stay written.
func Import(ctx context.Context, src Source, dst Upserter, limit int, logger log.Logger) (Result, error) {
	if logger == nil {
		logger = log.Default()
	}
	res := Result{Source: src.Name()}

	logger.Info("Fetching packages", "source", src.Name(), "limit", limit)
	records, err := src.Fetch(ctx, limit)
	if err != nil {
		return res, fmt.Errorf("fetch from %s: %w", src.Name(), err)
	}
	res.Fetched = len(records)

	for start := 0; start < len(records); start += importBatchSize {
		end := min(start+importBatchSize, len(records))
		n, err := dst.UpsertPackages(ctx, records[start:end])
		res.Imported += n
		if err != nil {
			return res, fmt.Errorf("import from %s: %w", src.Name(), err)
		}
		logger.Debug("Imported batch", "source", src.Name(), "imported", res.Imported, "total", res.Fetched)
	}

	logger.Info("Import complete", "source", src.Name(), "imported", res.Imported)
	return res, nil
}
