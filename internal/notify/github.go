package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// IssueReporter files a notification as an issue on a GitHub repository,
// for teams that triage in a tracker rather than a mailbox.
type IssueReporter struct {
	client *github.Client
	owner  string
	repo   string
	labels []string
}

// IssueOption configures an IssueReporter.
type IssueOption func(*IssueReporter) error

// WithLabels sets the labels applied to every issue.
func WithLabels(labels ...string) IssueOption {
	return func(r *IssueReporter) error {
		r.labels = labels
		return nil
	}
}

// WithAPIURL points the reporter at a different API endpoint, such as
// GitHub Enterprise or a test server.
func WithAPIURL(apiURL string) IssueOption {
	return func(r *IssueReporter) error {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		u, err := url.Parse(apiURL)
		if err != nil {
			return fmt.Errorf("invalid GitHub API URL: %w", err)
		}
		r.client.BaseURL = u
		return nil
	}
}

// NewIssueReporter creates a reporter for owner/repo. When token is empty
// requests are unauthenticated, which GitHub rejects for issue creation;
// this is only useful against a test server.
func NewIssueReporter(owner, repo, token string, opts ...IssueOption) (*IssueReporter, error) {
	if owner == "" || repo == "" {
		return nil, errors.New("issue reporter needs both owner and repo")
	}

	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	r := &IssueReporter{
		client: github.NewClient(httpClient),
		owner:  owner,
		repo:   repo,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Report opens an issue with the email's subject as title and its body as
// description, returning the issue's URL.
func (r *IssueReporter) Report(ctx context.Context, email Email) (string, error) {
	req := &github.IssueRequest{
		Title: github.String(email.Subject()),
		Body:  github.String(email.Body()),
	}
	if len(r.labels) > 0 {
		req.Labels = &r.labels
	}

	issue, _, err := r.client.Issues.Create(ctx, r.owner, r.repo, req)
	if err != nil {
		var rateLimitErr *github.RateLimitError
		if errors.As(err, &rateLimitErr) {
			return "", fmt.Errorf("GitHub rate limit exceeded, resets at %s: %w",
				rateLimitErr.Rate.Reset.Time.Format("15:04:05"), err)
		}
		return "", fmt.Errorf("failed to create issue on %s/%s: %w", r.owner, r.repo, err)
	}
	return issue.GetHTMLURL(), nil
}
