// Package errmsg formats errors for the terminal with likely causes and
// suggested next steps.
package errmsg

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/tsukumogami/squatwatch/internal/store"
)

// ErrorContext provides additional context for error formatting
type ErrorContext struct {
	Package string // The package being operated on (for suggestions)
}

// Format returns a formatted error message with possible causes and suggestions.
// The context parameter is optional - pass nil for generic formatting.
// Errors it does not recognize come back as err.Error().
func Format(err error, ctx *ErrorContext) string {
	if err == nil {
		return ""
	}

	errMsg := err.Error()

	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		return formatStoreError(errMsg, storeErr, ctx)
	}

	if isRateLimitError(errMsg) {
		return formatRateLimitError(errMsg)
	}

	if isSMTPAuthError(errMsg) {
		return formatSMTPAuthError(errMsg)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return formatNetworkError(errMsg, netErr.Timeout())
	}

	if isNetworkError(errMsg) {
		return formatNetworkError(errMsg, false)
	}

	if isPermissionError(errMsg) {
		return formatPermissionError(errMsg)
	}

	return errMsg
}

// section renders a titled bullet list.
func section(sb *strings.Builder, title string, items ...string) {
	fmt.Fprintf(sb, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(sb, "  - %s\n", item)
	}
}

func formatStoreError(errMsg string, err *store.StoreError, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	switch err.Type {
	case store.ErrTypeNotFound:
		section(&sb, "Possible causes",
			"The package has not been imported yet",
			"Typo in the package name")
		name := "<package>"
		if ctx != nil && ctx.Package != "" {
			name = ctx.Package
		}
		section(&sb, "Suggestions",
			"Check the spelling of the package name",
			"Import packages with 'squatwatch seed crates' or 'squatwatch seed dump <file>'",
			fmt.Sprintf("Queue the check instead with 'squatwatch enqueue %s'; it is retried until the package appears", name))

	case store.ErrTypeSchema:
		section(&sb, "Possible causes",
			"The database directory is not writable",
			"The database was created by an incompatible version")
		section(&sb, "Suggestions",
			"Check the database path with 'squatwatch config get database'",
			"Point SQUATWATCH_DATABASE at a fresh file")

	case store.ErrTypeQuery:
		section(&sb, "Possible causes",
			"Another squatwatch process holds a write lock",
			"The database file is damaged")
		section(&sb, "Suggestions",
			"Try again in a few seconds",
			"Lower worker.concurrency if workers keep colliding")

	default:
		if s := err.Suggestion(); s != "" {
			section(&sb, "Suggestions", s)
		}
	}

	return sb.String()
}

func formatRateLimitError(errMsg string) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	section(&sb, "Possible causes",
		"Too many requests to the registry or GitHub API",
		"Unauthenticated requests have lower limits")
	section(&sb, "Suggestions",
		"Wait a few minutes before retrying",
		"Seed from a database dump with 'squatwatch seed dump <file>' instead of the API",
		"Set GITHUB_TOKEN if issue filing is being limited")

	return sb.String()
}

func formatSMTPAuthError(errMsg string) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	section(&sb, "Possible causes",
		"Wrong SMTP username or password",
		"The relay requires TLS on a different port")
	section(&sb, "Suggestions",
		"Check smtp.username with 'squatwatch config get smtp.username'",
		"Set SQUATWATCH_SMTP_PASSWORD rather than storing the password in the config file")

	return sb.String()
}

func formatNetworkError(errMsg string, timeout bool) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	causes := []string{"Network connectivity issue", "DNS resolution failure"}
	if timeout {
		causes = []string{"Request timed out", "Slow or unstable network connection"}
	}
	section(&sb, "Possible causes", append(causes, "Firewall or proxy blocking the connection")...)

	suggestions := []string{"Check your internet connection", "Try again in a few minutes"}
	if timeout {
		suggestions = append(suggestions, "Check if you're behind a slow proxy")
	}
	section(&sb, "Suggestions", suggestions...)

	return sb.String()
}

func formatPermissionError(errMsg string) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	section(&sb, "Possible causes",
		"Insufficient permissions on the data directory",
		"File or directory owned by a different user")
	section(&sb, "Suggestions",
		"Check permissions on the database and mail directories",
		"Set SQUATWATCH_HOME to a directory you own")

	return sb.String()
}

// isRateLimitError checks if the error message indicates a rate limit
func isRateLimitError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "rate-limit") ||
		strings.Contains(lower, "too many requests") ||
		strings.Contains(lower, "http 429")
}

// isSMTPAuthError checks if the error message indicates rejected SMTP
// credentials
func isSMTPAuthError(msg string) bool {
	return strings.Contains(msg, "SMTP authentication failed")
}

// isNetworkError checks if the error message indicates a network issue
func isNetworkError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "network is unreachable") ||
		strings.Contains(lower, "dial tcp") ||
		strings.Contains(lower, "i/o timeout")
}

// isPermissionError checks if the error message indicates a permission issue
func isPermissionError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "access denied") ||
		strings.Contains(lower, "operation not permitted")
}
