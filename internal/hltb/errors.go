package hltb

import (
	"fmt"
	"time"
)

// ValidationError reports malformed input rejected before any I/O.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NetworkError wraps a transport or HTTP failure from the remote API.
// Status is zero when the failure happened below the HTTP layer.
type NetworkError struct {
	Op      string
	Status  int
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s: request timed out", e.Op)
	case e.Status != 0:
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RateLimitError signals a 429 from the remote API. RetryAfter is the
// window the caller must wait out before trying again.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// ScrapeError reports a transport, status or parse failure while
// scraping a search-results page.
type ScrapeError struct {
	URL    string
	Status int
	Detail string
	Err    error
}

func (e *ScrapeError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("scrape %s: status %d: %s", e.URL, e.Status, e.Detail)
	}
	return fmt.Sprintf("scrape %s: %s", e.URL, e.Detail)
}

func (e *ScrapeError) Unwrap() error { return e.Err }
