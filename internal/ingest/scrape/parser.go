package scrape

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fortuna/playtime/internal/hltb"
)

// DefaultMaxCards bounds how many result cards a single page parse
// will process.
const DefaultMaxCards = 25

// gameLinkPattern extracts the remote id from a relative game link
// like "/game/10270".
var gameLinkPattern = regexp.MustCompile(`/game/(\d+)`)

// timeLabels maps card tidbit labels onto CompletionTimes fields.
var timeLabels = map[string]int{
	"main story":    0,
	"main + extra":  1,
	"main + sides":  1,
	"completionist": 2,
	"all styles":    3,
}

// ParseSearchResults extracts result cards from a search page. The
// page markup has shifted over time, so two selector strategies are
// tried in order, same as any scraper that has been burned once.
func ParseSearchResults(doc *goquery.Document, maxCards int) []hltb.Candidate {
	if maxCards <= 0 {
		maxCards = DefaultMaxCards
	}

	var candidates []hltb.Candidate

	// Strategy 1: current card list items with a game link heading.
	doc.Find("li[class*='GameCard'], ul li.back_darkish, div[class*='SearchResults'] li").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if c := parseCard(s); c != nil {
			candidates = append(candidates, *c)
		}
		return len(candidates) < maxCards
	})

	// Strategy 2: any element holding a /game/ link plus time tidbits.
	if len(candidates) == 0 {
		doc.Find("a[href*='/game/']").EachWithBreak(func(i int, s *goquery.Selection) bool {
			if c := parseCard(s.ParentsFiltered("li, div").First()); c != nil {
				candidates = append(candidates, *c)
			}
			return len(candidates) < maxCards
		})
	}

	return dedupeByID(candidates)
}

// parseCard extracts one candidate from a result card selection.
func parseCard(s *goquery.Selection) *hltb.Candidate {
	link := s.Find("a[href*='/game/']").First()
	href, _ := link.Attr("href")
	m := gameLinkPattern.FindStringSubmatch(href)
	if m == nil {
		return nil
	}

	name := strings.TrimSpace(link.Text())
	if name == "" {
		name = strings.TrimSpace(s.Find("h2, h3").First().Text())
	}
	if name == "" {
		return nil
	}

	c := &hltb.Candidate{ID: m[1], Name: name}

	// Time tidbits come in label/value pairs; walk them in order and
	// pick up the labels we know.
	var pendingField = -1
	s.Find("div, span").Each(func(_ int, tidbit *goquery.Selection) {
		if tidbit.Children().Length() > 0 {
			return
		}
		text := strings.TrimSpace(tidbit.Text())
		if text == "" {
			return
		}
		if field, ok := timeLabels[strings.ToLower(text)]; ok {
			pendingField = field
			return
		}
		if pendingField >= 0 {
			setTimeField(&c.Times, pendingField, hltb.ParseTimeString(text))
			pendingField = -1
		}
	})

	return c
}

func setTimeField(t *hltb.CompletionTimes, field int, value *float64) {
	switch field {
	case 0:
		t.MainStory = value
	case 1:
		t.MainExtra = value
	case 2:
		t.Completionist = value
	case 3:
		t.AllStyles = value
	}
}

func dedupeByID(in []hltb.Candidate) []hltb.Candidate {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, c := range in {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}
