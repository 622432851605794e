// Package api talks to the HowLongToBeat search API. The client owns
// its rate-limit state: once a 429 arrives, further calls are rejected
// locally until the retry window elapses.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/playtime/internal/hltb"
	"github.com/fortuna/playtime/internal/normalize"
)

const (
	// DefaultBaseURL is the fixed remote endpoint root.
	DefaultBaseURL = "https://howlongtobeat.com"

	searchPath = "/api/search"
	userAgent  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// maxTitleLength bounds the sanitized search term.
	maxTitleLength = 200

	defaultRetryAfter = 60 * time.Second
)

// Transport performs a single HTTP round trip. http.Client satisfies
// it; tests inject their own so retry logic runs without a network.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options tunes the client. Zero values get sensible defaults.
type Options struct {
	BaseURL     string
	Transport   Transport
	MaxAttempts int
	BaseDelay   time.Duration
	Timeout     time.Duration
}

// Client is the HLTB API client with retry, backoff and rate-limit
// handling.
type Client struct {
	baseURL     string
	transport   Transport
	maxAttempts int
	baseDelay   time.Duration
	timeout     time.Duration
	log         *zap.Logger

	mu               sync.Mutex
	rateLimitedUntil time.Time
	etags            map[string]string
	revalidated      map[string]searchResponse
}

// NewClient builds a client; opts fields left zero fall back to
// defaults.
func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Transport == nil {
		opts.Transport = &http.Client{}
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		transport:   opts.Transport,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		timeout:     opts.Timeout,
		log:         logger.Named("hltb-api"),
		etags:       make(map[string]string),
		revalidated: make(map[string]searchResponse),
	}
}

// RateLimited reports whether the client is inside a rate-limit
// window, and how much of it remains.
func (c *Client) RateLimited() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	remaining := time.Until(c.rateLimitedUntil)
	return remaining, remaining > 0
}

// Search posts a structured search and returns every candidate.
func (c *Client) Search(ctx context.Context, title, appID, platform string) ([]hltb.Candidate, error) {
	term := sanitizeTitle(title)
	if term == "" {
		return nil, &hltb.ValidationError{Field: "title", Reason: "empty after sanitization"}
	}

	if remaining, limited := c.RateLimited(); limited {
		return nil, &hltb.RateLimitError{RetryAfter: remaining}
	}

	resp, err := c.searchWithRetry(ctx, term, platform)
	if err != nil {
		return nil, err
	}

	candidates := make([]hltb.Candidate, 0, len(resp.Data))
	for _, g := range resp.Data {
		candidates = append(candidates, hltb.Candidate{
			ID:   strconv.Itoa(g.GameID),
			Name: g.GameName,
			Times: hltb.CompletionTimes{
				MainStory:     hltb.SecondsToHours(g.CompMain),
				MainExtra:     hltb.SecondsToHours(g.CompPlus),
				Completionist: hltb.SecondsToHours(g.Comp100),
				AllStyles:     hltb.SecondsToHours(g.CompAll),
			},
		})
	}
	return candidates, nil
}

// SearchGame searches and picks one candidate: an exact-name match if
// present, else the first result. Nil means no results, not an error.
func (c *Client) SearchGame(ctx context.Context, title, appID, platform string) (*hltb.Candidate, error) {
	candidates, err := c.Search(ctx, title, appID, platform)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return PreferExact(title, candidates), nil
}

// PreferExact returns the candidate whose name matches the query at
// minimal normalization, else the first candidate.
func PreferExact(title string, candidates []hltb.Candidate) *hltb.Candidate {
	if len(candidates) == 0 {
		return nil
	}
	want := normalize.Minimal(title)
	for i := range candidates {
		if normalize.Minimal(candidates[i].Name) == want {
			return &candidates[i]
		}
	}
	return &candidates[0]
}

// searchWithRetry runs the request with exponential backoff plus
// jitter. Rate-limit errors never retry; they latch the client.
func (c *Client) searchWithRetry(ctx context.Context, term, platform string) (*searchResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.searchOnce(ctx, term, platform)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var rateErr *hltb.RateLimitError
		if errors.As(err, &rateErr) {
			c.mu.Lock()
			c.rateLimitedUntil = time.Now().Add(rateErr.RetryAfter)
			c.mu.Unlock()
			c.log.Warn("rate limited by remote", zap.Duration("retry_after", rateErr.RetryAfter))
			return nil, err
		}

		if attempt < c.maxAttempts {
			delay := c.backoff(attempt)
			c.log.Debug("search attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return nil, &hltb.NetworkError{Op: "search", Timeout: true, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}
	}
	return nil, lastErr
}

func (c *Client) searchOnce(ctx context.Context, term, platform string) (*searchResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(searchRequest{
		SearchType:  "games",
		SearchTerms: strings.Fields(term),
		SearchPage:  1,
		Size:        20,
		SearchOptions: searchOptions{
			Games: gameOptions{Platform: platform, SortCategory: "popular"},
		},
	})
	if err != nil {
		return nil, &hltb.NetworkError{Op: "search", Err: err}
	}

	url := c.baseURL + searchPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &hltb.NetworkError{Op: "search", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", c.baseURL)

	c.mu.Lock()
	if etag, ok := c.etags[term]; ok {
		req.Header.Set("If-None-Match", etag)
	}
	c.mu.Unlock()

	resp, err := c.transport.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &hltb.NetworkError{Op: "search", Timeout: true, Err: ctx.Err()}
		}
		return nil, &hltb.NetworkError{Op: "search", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &hltb.RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}

	case resp.StatusCode == http.StatusNotModified:
		// Conditional revalidation hit: reuse the previously parsed
		// payload for this term.
		c.mu.Lock()
		cached, ok := c.revalidated[term]
		c.mu.Unlock()
		if !ok {
			return nil, &hltb.NetworkError{Op: "search", Status: resp.StatusCode,
				Err: fmt.Errorf("304 without a cached payload")}
		}
		return &cached, nil

	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &hltb.NetworkError{Op: "search", Status: resp.StatusCode,
			Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &hltb.NetworkError{Op: "search", Err: err}
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &hltb.NetworkError{Op: "search", Err: fmt.Errorf("decode response: %w", err)}
	}

	if etag := resp.Header.Get("ETag"); etag != "" {
		c.mu.Lock()
		c.etags[term] = etag
		c.revalidated[term] = parsed
		c.mu.Unlock()
	}

	return &parsed, nil
}

// backoff returns baseDelay * 2^(attempt-1) plus up to 50% random
// jitter.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.baseDelay << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return delay + jitter
}

// sanitizeTitle strips trademark glyphs, collapses whitespace and
// bounds the length of the outgoing search term.
func sanitizeTitle(title string) string {
	s := strings.NewReplacer("™", "", "®", "", "©", "").Replace(title)
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxTitleLength {
		s = s[:maxTitleLength]
	}
	return s
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultRetryAfter
}
