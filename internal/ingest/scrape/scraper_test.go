package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/playtime/internal/hltb"
	"github.com/fortuna/playtime/internal/match"
)

const searchPageFixture = `
<html><body>
<ul>
  <li class="back_darkish">
    <h3><a href="/game/10270">The Witcher 3: Wild Hunt</a></h3>
    <div>Main Story</div><div>51½ Hours</div>
    <div>Main + Extra</div><div>103 Hours</div>
    <div>Completionist</div><div>173 Hours</div>
  </li>
  <li class="back_darkish">
    <h3><a href="/game/7231">The Witcher 2: Assassins of Kings</a></h3>
    <div>Main Story</div><div>24 Hours</div>
  </li>
  <li class="back_darkish">
    <h3><a href="/game/7231">The Witcher 2: Assassins of Kings</a></h3>
    <div>Main Story</div><div>24 Hours</div>
  </li>
</ul>
</body></html>`

const fallbackMarkupFixture = `
<html><body>
<div>
  <a href="/game/42069">Hades</a>
  <span>Main Story</span><span>21½ Hours</span>
</div>
</body></html>`

type stubFetcher struct {
	html   string
	status int
	err    error
	url    string
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (string, int, error) {
	f.url = url
	if f.err != nil {
		return "", 0, f.err
	}
	return f.html, f.status, nil
}

func newTestScraper(f Fetcher) *Scraper {
	return NewScraper("https://example.test", f, match.NewMatcher(match.DefaultMappings(), nil), nil)
}

func TestParseSearchResults(t *testing.T) {
	doc, err := ParseHTML(searchPageFixture)
	require.NoError(t, err)

	candidates := ParseSearchResults(doc, 0)
	require.Len(t, candidates, 2, "duplicate card ids collapse")

	first := candidates[0]
	assert.Equal(t, "10270", first.ID)
	assert.Equal(t, "The Witcher 3: Wild Hunt", first.Name)
	require.NotNil(t, first.Times.MainStory)
	assert.Equal(t, 51.5, *first.Times.MainStory)
	require.NotNil(t, first.Times.MainExtra)
	assert.Equal(t, 103.0, *first.Times.MainExtra)
	require.NotNil(t, first.Times.Completionist)
	assert.Equal(t, 173.0, *first.Times.Completionist)
	assert.Nil(t, first.Times.AllStyles)
}

func TestParseSearchResultsFallbackStrategy(t *testing.T) {
	doc, err := ParseHTML(fallbackMarkupFixture)
	require.NoError(t, err)

	candidates := ParseSearchResults(doc, 0)
	require.Len(t, candidates, 1)
	assert.Equal(t, "42069", candidates[0].ID)
	assert.Equal(t, "Hades", candidates[0].Name)
	require.NotNil(t, candidates[0].Times.MainStory)
	assert.Equal(t, 21.5, *candidates[0].Times.MainStory)
}

func TestParseSearchResultsCapsCards(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body><ul>")
	for i := 0; i < 40; i++ {
		sb.WriteString(fmt.Sprintf(
			`<li class="back_darkish"><h3><a href="/game/%d">Game %d</a></h3></li>`, i+1, i+1))
	}
	sb.WriteString("</ul></body></html>")

	doc, err := ParseHTML(sb.String())
	require.NoError(t, err)

	candidates := ParseSearchResults(doc, 10)
	assert.Len(t, candidates, 10)
}

func TestSearchCandidates(t *testing.T) {
	fetcher := &stubFetcher{html: searchPageFixture, status: 200}
	s := newTestScraper(fetcher)

	candidates, err := s.SearchCandidates(context.Background(), "witcher")
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
	assert.Contains(t, fetcher.url, "q=witcher")
}

func TestSearchCandidatesFetchError(t *testing.T) {
	s := newTestScraper(&stubFetcher{err: errors.New("dial tcp: refused")})

	_, err := s.SearchCandidates(context.Background(), "witcher")
	var serr *hltb.ScrapeError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "fetch failed", serr.Detail)
}

func TestSearchCandidatesBadStatus(t *testing.T) {
	s := newTestScraper(&stubFetcher{html: "blocked", status: 403})

	_, err := s.SearchCandidates(context.Background(), "witcher")
	var serr *hltb.ScrapeError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 403, serr.Status)
}

func TestSearchGameExactMode(t *testing.T) {
	s := newTestScraper(&stubFetcher{html: searchPageFixture, status: 200})

	c, res, err := s.SearchGame(context.Background(), "The Witcher 3: Wild Hunt", true)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "10270", c.ID)
	assert.Equal(t, match.MethodExact, res.Method)

	// Near miss is rejected in exact mode.
	c, res, err = s.SearchGame(context.Background(), "Witcher 3", true)
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Nil(t, res)
}

func TestSearchGameDelegatesToMatcher(t *testing.T) {
	s := newTestScraper(&stubFetcher{html: searchPageFixture, status: 200})

	c, res, err := s.SearchGame(context.Background(), "Witcher 3 Wild Hunt", false)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "10270", c.ID)
	require.NotNil(t, res)
	assert.GreaterOrEqual(t, res.Confidence, match.FloorFuzzyAggressive)
}

func TestSearchGameNoCardsIsNilNil(t *testing.T) {
	s := newTestScraper(&stubFetcher{html: "<html><body></body></html>", status: 200})

	c, res, err := s.SearchGame(context.Background(), "anything", false)
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Nil(t, res)
}

func TestRenderWindowHonorsCallerDeadline(t *testing.T) {
	assert.Equal(t, renderTimeout, renderWindow(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	window := renderWindow(ctx)
	assert.LessOrEqual(t, window, 100*time.Millisecond)
	assert.Greater(t, window, time.Duration(0))
}
