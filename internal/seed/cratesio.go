package seed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tsukumogami/squatwatch/internal/store"
	"github.com/tsukumogami/squatwatch/internal/typosquat"
)

const (
	cratesIOURL     = "https://crates.io"
	cratesIOPerPage = 100
)

// CratesIOSource pages through the crates.io catalogue sorted by all-time
// downloads.
type CratesIOSource struct {
	Client     *http.Client
	BaseURL    string        // override for testing; defaults to https://crates.io
	PerPage    int           // page size; defaults to 100, the API maximum
	RetryDelay time.Duration // override for testing; defaults to 1s
}

func (s *CratesIOSource) Name() string { return "crates.io" }

type cratesPage struct {
	Crates []crateSummary `json:"crates"`
	Meta   struct {
		Total int `json:"total"`
	} `json:"meta"`
}

type crateSummary struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Homepage         string `json:"homepage"`
	Repository       string `json:"repository"`
	Downloads        int64  `json:"downloads"`
	MaxStableVersion string `json:"max_stable_version"`
	NewestVersion    string `json:"newest_version"`
}

// Fetch requires a limit; paging through the whole registry is what the
// database dump is for.
func (s *CratesIOSource) Fetch(ctx context.Context, limit int) ([]store.Record, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("crates.io source needs a positive limit")
	}
	base := s.BaseURL
	if base == "" {
		base = cratesIOURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid crates.io URL: %w", err)
	}
	perPage := s.PerPage
	if perPage <= 0 || perPage > cratesIOPerPage {
		perPage = cratesIOPerPage
	}

	f := fetcher{client: s.Client, delay: s.RetryDelay, what: "crates.io catalogue"}
	records := make([]store.Record, 0, limit)
	for page := 1; len(records) < limit; page++ {
		u := baseURL.JoinPath("api", "v1", "crates")
		q := u.Query()
		q.Set("sort", "downloads")
		q.Set("per_page", strconv.Itoa(perPage))
		q.Set("page", strconv.Itoa(page))
		u.RawQuery = q.Encode()

		var resp cratesPage
		if err := f.getJSON(ctx, u.String(), &resp); err != nil {
			return nil, err
		}
		for _, c := range resp.Crates {
			if len(records) == limit {
				break
			}
			records = append(records, crateRecord(c))
		}
		if len(resp.Crates) < perPage {
			break
		}
	}
	return records, nil
}

func crateRecord(c crateSummary) store.Record {
	rec := store.Record{Package: typosquat.Package{
		Name:        c.Name,
		Description: c.Description,
		Homepage:    c.Homepage,
		Repository:  c.Repository,
		Downloads:   c.Downloads,
	}}
	version := c.MaxStableVersion
	if version == "" {
		version = c.NewestVersion
	}
	if version != "" {
		rec.Versions = []store.Version{{Num: version}}
	}
	return rec
}
