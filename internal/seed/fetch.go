package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tsukumogami/squatwatch/internal/buildinfo"
	"github.com/tsukumogami/squatwatch/internal/httputil"
)

const (
	maxResponseBytes = 10 << 20 // 10 MB
	maxRetries       = 3
)

// userAgent identifies squatwatch to registry APIs. crates.io rejects
// requests without one, so sources given their own client must set it there.
func userAgent() string {
	return "squatwatch/" + buildinfo.Version() + " (https://github.com/tsukumogami/squatwatch)"
}

// newClient returns the hardened client used when a source has none.
func newClient() *http.Client {
	return httputil.NewSecureClient(httputil.ClientOptions{
		Timeout:      30 * time.Second,
		DialTimeout:  10 * time.Second,
		MaxRedirects: 5,
		UserAgent:    userAgent(),
	})
}

// fetcher GETs JSON documents, retrying rate limits and server errors with
// exponential backoff.
type fetcher struct {
	client *http.Client
	delay  time.Duration // first retry delay; doubles per attempt
	what   string        // used in error messages
}

func (f fetcher) getJSON(ctx context.Context, url string, v any) error {
	client := f.client
	if client == nil {
		client = newClient()
	}
	delay := f.delay
	if delay == 0 {
		delay = time.Second
	}

	var lastErr error
	for attempt := range maxRetries {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build %s request: %w", f.what, err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("fetch %s: %w", f.what, err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("%s returned HTTP %d (attempt %d/%d)", f.what, resp.StatusCode, attempt+1, maxRetries)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("%s returned HTTP %d", f.what, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "json") {
			resp.Body.Close()
			return fmt.Errorf("%s returned unexpected content-type %s", f.what, ct)
		}

		dec := json.NewDecoder(http.MaxBytesReader(nil, resp.Body, maxResponseBytes))
		err = dec.Decode(v)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode %s: %w", f.what, err)
		}
		return nil
	}

	return fmt.Errorf("%s failed after %d attempts: %w", f.what, maxRetries, lastErr)
}
