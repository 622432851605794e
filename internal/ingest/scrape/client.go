// Package scrape extracts search results from HowLongToBeat's HTML
// search page, the middle tier between the JSON API and the bundled
// fallback dataset.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

const (
	// UserAgent for outgoing page fetches.
	UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	renderTimeout = 30 * time.Second
)

// Fetcher retrieves a search page and returns its HTML and status
// code.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (html string, status int, err error)
}

// HTTPFetcher fetches pages with a plain HTTP client.
type HTTPFetcher struct {
	Client *http.Client
}

// Fetch performs a GET and returns the body regardless of status; the
// caller decides what a non-2xx means.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, int, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(body), resp.StatusCode, nil
}

// RenderFetcher drives a headless browser for pages that only fill in
// their result cards after client-side rendering.
type RenderFetcher struct {
	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewRenderFetcher creates a headless Chrome allocator.
func NewRenderFetcher() *RenderFetcher {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(UserAgent),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &RenderFetcher{allocCtx: allocCtx, cancel: cancel}
}

// Close releases the browser allocator.
func (f *RenderFetcher) Close() {
	if f.cancel != nil {
		f.cancel()
	}
}

// Fetch renders the page and returns the final DOM. The browser
// context must chain from the allocator, so the caller's ctx is
// honored by propagating its deadline and cancellation onto it.
func (f *RenderFetcher) Fetch(ctx context.Context, url string) (string, int, error) {
	browserCtx, cancel := chromedp.NewContext(f.allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, renderWindow(ctx))
	defer cancel()
	defer context.AfterFunc(ctx, cancel)()

	var htmlContent string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(`body`, chromedp.ByQuery),
		chromedp.Sleep(1*time.Second), // allow result cards to render
		chromedp.OuterHTML(`html`, &htmlContent, chromedp.ByQuery),
	)
	if err != nil {
		return "", 0, fmt.Errorf("chromedp: %w", err)
	}
	if htmlContent == "" {
		return "", 0, fmt.Errorf("empty HTML content returned")
	}
	return htmlContent, http.StatusOK, nil
}

// renderWindow caps the render at renderTimeout or the caller's
// remaining deadline, whichever is shorter.
func renderWindow(ctx context.Context) time.Duration {
	timeout := renderTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	return timeout
}

// ParseHTML converts raw HTML into a goquery document.
func ParseHTML(htmlContent string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return doc, nil
}
