package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/fortuna/playtime/internal/hltb"
	"github.com/fortuna/playtime/internal/match"
	"github.com/fortuna/playtime/internal/normalize"
)

// Scraper fetches HLTB search pages and resolves the returned cards
// through the title matcher.
type Scraper struct {
	baseURL  string
	fetcher  Fetcher
	matcher  *match.Matcher
	maxCards int
	log      *zap.Logger
}

// NewScraper builds a scraper. fetcher may be an HTTPFetcher or a
// RenderFetcher; matcher handles disambiguation among cards.
func NewScraper(baseURL string, fetcher Fetcher, matcher *match.Matcher, logger *zap.Logger) *Scraper {
	if baseURL == "" {
		baseURL = "https://howlongtobeat.com"
	}
	if fetcher == nil {
		fetcher = &HTTPFetcher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		baseURL:  strings.TrimRight(baseURL, "/"),
		fetcher:  fetcher,
		matcher:  matcher,
		maxCards: DefaultMaxCards,
		log:      logger.Named("scraper"),
	}
}

// SearchCandidates fetches and parses the search page for a title.
func (s *Scraper) SearchCandidates(ctx context.Context, title string) ([]hltb.Candidate, error) {
	searchURL := fmt.Sprintf("%s/?q=%s", s.baseURL, url.QueryEscape(title))

	html, status, err := s.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return nil, &hltb.ScrapeError{URL: searchURL, Detail: "fetch failed", Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &hltb.ScrapeError{URL: searchURL, Status: status, Detail: "unexpected status"}
	}

	doc, err := ParseHTML(html)
	if err != nil {
		return nil, &hltb.ScrapeError{URL: searchURL, Detail: "parse failed", Err: err}
	}

	candidates := ParseSearchResults(doc, s.maxCards)
	s.log.Debug("search page parsed",
		zap.String("title", title),
		zap.Int("candidates", len(candidates)))
	return candidates, nil
}

// SearchGame resolves a title to a single candidate. In exact mode
// only a minimal-normalization name match is accepted; otherwise
// disambiguation is delegated to the matcher. A nil candidate with a
// nil error is "no match", which is expected, not exceptional.
func (s *Scraper) SearchGame(ctx context.Context, title string, exact bool) (*hltb.Candidate, *match.Result, error) {
	candidates, err := s.SearchCandidates(ctx, title)
	if err != nil {
		return nil, nil, err
	}
	if len(candidates) == 0 {
		return nil, nil, nil
	}

	if exact {
		want := normalize.Minimal(title)
		for i := range candidates {
			if normalize.Minimal(candidates[i].Name) == want {
				return &candidates[i], &match.Result{
					Candidate:  &candidates[i],
					Confidence: 1.0,
					Method:     match.MethodExact,
				}, nil
			}
		}
		return nil, nil, nil
	}

	result := s.matcher.FindBestMatch(title, candidates)
	if result == nil || result.Candidate == nil {
		return nil, result, nil
	}
	return result.Candidate, result, nil
}
