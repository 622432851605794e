// Package match ranks search candidates against a noisy storefront
// title. Strategies run in a fixed priority order and the first one to
// clear its floor wins; no strategy clearing its floor is an explicit
// "no match", not an error.
package match

import (
	"go.uber.org/zap"

	"github.com/fortuna/playtime/internal/hltb"
	"github.com/fortuna/playtime/internal/normalize"
	"github.com/fortuna/playtime/internal/similarity"
)

// Method identifies the strategy that produced a match.
type Method string

const (
	MethodExact           Method = "exact"
	MethodManualMapping   Method = "manual_mapping"
	MethodYearSpecific    Method = "year_specific"
	MethodFuzzyStandard   Method = "fuzzy_standard"
	MethodFuzzyAggressive Method = "fuzzy_aggressive"
	MethodWordMatch       Method = "word_match"
	MethodSkip            Method = "skip"
)

// Acceptance floors per fuzzy strategy. The standard floor is the
// high-confidence default; later strategies accept progressively less.
const (
	FloorFuzzyStandard   = 0.80
	FloorFuzzyAggressive = 0.75
	FloorWordMatch       = 0.60
)

// Result is the outcome of a matching attempt.
type Result struct {
	Candidate  *hltb.Candidate
	Confidence float64
	Method     Method
	SkipReason string
}

// CandidateScores carries every raw score for one candidate, for the
// diagnostic variant.
type CandidateScores struct {
	Name     string
	Scores   map[similarity.Method]float64
	Combined float64
}

// Diagnostics is the debugging view of a matching attempt: all raw
// scores per candidate plus the three normalized forms of the query.
type Diagnostics struct {
	Query                string
	NormalizedMinimal    string
	NormalizedStandard   string
	NormalizedAggressive string
	Candidates           []CandidateScores
	Result               *Result
}

// Matcher ranks candidates supplied by the API client or the scraper.
// It never generates candidates itself.
type Matcher struct {
	mappings Mappings
	log      *zap.Logger
}

// NewMatcher builds a matcher around the given override tables.
func NewMatcher(mappings Mappings, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{
		mappings: mappings,
		log:      logger.Named("matcher"),
	}
}

// SkipReason reports whether the title is on the skip list, before any
// remote call is worth making.
func (m *Matcher) SkipReason(title string) (string, bool) {
	reason, ok := m.mappings.Skip[normalize.Standard(normalize.RemoveYear(title))]
	return reason, ok
}

// FindBestMatch runs the strategy ladder over candidates and returns
// the winning candidate, or nil when nothing clears its floor.
func (m *Matcher) FindBestMatch(title string, candidates []hltb.Candidate) *Result {
	// 1. Skip list: short-circuits regardless of candidate quality.
	if reason, ok := m.SkipReason(title); ok {
		m.log.Debug("title on skip list", zap.String("title", title), zap.String("reason", reason))
		return &Result{Method: MethodSkip, Confidence: 1.0, SkipReason: reason}
	}

	if len(candidates) == 0 {
		return nil
	}

	std := normalize.Standard(normalize.RemoveYear(title))

	// 2. Year-specific mapping for same-named re-releases.
	if year, ok := normalize.ExtractYear(title); ok {
		if canonical, ok := m.mappings.ByYear[YearKey{Title: std, Year: year}]; ok {
			if c := findByStandardName(canonical, candidates); c != nil {
				return &Result{Candidate: c, Confidence: 1.0, Method: MethodYearSpecific}
			}
		}
	}

	// 3. Generic manual mapping.
	if canonical, ok := m.mappings.Aliases[std]; ok {
		if c := findByStandardName(canonical, candidates); c != nil {
			return &Result{Candidate: c, Confidence: 1.0, Method: MethodManualMapping}
		}
	}

	// 4. Exact match at minimal normalization.
	minTitle := normalize.Minimal(title)
	for i := range candidates {
		if normalize.Minimal(candidates[i].Name) == minTitle {
			return &Result{Candidate: &candidates[i], Confidence: 1.0, Method: MethodExact}
		}
	}

	// 5. Fuzzy match at standard normalization.
	if c, score := bestCombined(std, candidates, normalize.LevelStandard); c != nil && score >= FloorFuzzyStandard {
		return &Result{Candidate: c, Confidence: score, Method: MethodFuzzyStandard}
	}

	// 6. Fuzzy match at aggressive normalization.
	agg := normalize.Aggressive(normalize.RemoveYear(title))
	if c, score := bestCombined(agg, candidates, normalize.LevelAggressive); c != nil && score >= FloorFuzzyAggressive {
		return &Result{Candidate: c, Confidence: score, Method: MethodFuzzyAggressive}
	}

	// 7. Word overlap as the last resort.
	if c, score := bestWordOverlap(title, candidates); c != nil && score >= FloorWordMatch {
		return &Result{Candidate: c, Confidence: score, Method: MethodWordMatch}
	}

	m.log.Debug("no strategy cleared its floor", zap.String("title", title), zap.Int("candidates", len(candidates)))
	return nil
}

// Explain returns every raw score per candidate together with the
// query's normalized forms. Debugging only; the pipeline never calls
// it.
func (m *Matcher) Explain(title string, candidates []hltb.Candidate) Diagnostics {
	std := normalize.Standard(normalize.RemoveYear(title))
	diag := Diagnostics{
		Query:                title,
		NormalizedMinimal:    normalize.Minimal(title),
		NormalizedStandard:   normalize.Standard(title),
		NormalizedAggressive: normalize.Aggressive(title),
		Result:               m.FindBestMatch(title, candidates),
	}
	for _, c := range candidates {
		candStd := normalize.Standard(c.Name)
		diag.Candidates = append(diag.Candidates, CandidateScores{
			Name:     c.Name,
			Scores:   similarity.AllScores(std, candStd),
			Combined: similarity.Combined(std, candStd),
		})
	}
	return diag
}

func findByStandardName(canonical string, candidates []hltb.Candidate) *hltb.Candidate {
	for i := range candidates {
		if normalize.Standard(candidates[i].Name) == canonical {
			return &candidates[i]
		}
	}
	return nil
}

func bestCombined(query string, candidates []hltb.Candidate, level normalize.Level) (*hltb.Candidate, float64) {
	if query == "" {
		return nil, 0
	}
	var best *hltb.Candidate
	bestScore := 0.0
	for i := range candidates {
		score := similarity.Combined(query, normalize.Normalize(candidates[i].Name, level))
		if score > bestScore {
			best = &candidates[i]
			bestScore = score
		}
	}
	return best, bestScore
}

func bestWordOverlap(title string, candidates []hltb.Candidate) (*hltb.Candidate, float64) {
	queryWords := normalize.CoreWords(title)
	if len(queryWords) == 0 {
		return nil, 0
	}
	var best *hltb.Candidate
	bestScore := 0.0
	for i := range candidates {
		score := overlap(queryWords, normalize.CoreWords(candidates[i].Name))
		if score > bestScore {
			best = &candidates[i]
			bestScore = score
		}
	}
	return best, bestScore
}

// overlap is Jaccard over pre-tokenized core-word lists.
func overlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, w := range a {
		set[w] = true
	}
	intersection := 0
	for _, w := range b {
		if set[w] {
			intersection++
		}
	}
	union := len(set) + len(b) - intersection
	return float64(intersection) / float64(union)
}
