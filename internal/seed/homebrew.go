package seed

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tsukumogami/squatwatch/internal/store"
	"github.com/tsukumogami/squatwatch/internal/typosquat"
)

const homebrewAnalyticsURL = "https://formulae.brew.sh/api/analytics/install-on-request/30d.json"

// HomebrewSource fetches formula popularity from Homebrew analytics. The
// 30-day install count stands in for downloads.
type HomebrewSource struct {
	Client       *http.Client
	AnalyticsURL string        // override for testing; defaults to homebrewAnalyticsURL
	RetryDelay   time.Duration // override for testing; defaults to 1s
}

func (s *HomebrewSource) Name() string { return "homebrew" }

type analyticsResponse struct {
	Items []analyticsItem `json:"items"`
}

type analyticsItem struct {
	Formula string `json:"formula"`
	Count   string `json:"count"`
}

func (s *HomebrewSource) Fetch(ctx context.Context, limit int) ([]store.Record, error) {
	analyticsURL := s.AnalyticsURL
	if analyticsURL == "" {
		analyticsURL = homebrewAnalyticsURL
	}

	var analytics analyticsResponse
	f := fetcher{client: s.Client, delay: s.RetryDelay, what: "homebrew analytics"}
	if err := f.getJSON(ctx, analyticsURL, &analytics); err != nil {
		return nil, err
	}

	items := analytics.Items
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	records := make([]store.Record, 0, len(items))
	for _, item := range items {
		if item.Formula == "" {
			continue
		}
		records = append(records, store.Record{Package: typosquat.Package{
			Name:      item.Formula,
			Homepage:  "https://formulae.brew.sh/formula/" + item.Formula,
			Downloads: parseCount(item.Count),
		}})
	}
	return records, nil
}

func parseCount(s string) int64 {
	s = strings.ReplaceAll(s, ",", "")
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
