package hltb

import "time"

// Source identifies which tier of the pipeline produced a result.
type Source string

const (
	SourceCache    Source = "cache"
	SourceAPI      Source = "api"
	SourceScraper  Source = "scraper"
	SourceFallback Source = "fallback"

	// SourceSkip labels requests rejected by the skip list before any
	// tier runs. It never appears on an IntegratedResult.
	SourceSkip Source = "skip"
)

// Confidence is a qualitative reliability tag attached to a result.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// CompletionTimes holds completion statistics in fractional hours.
// Each field is independently nullable; "no data" is all four nil,
// never zero.
type CompletionTimes struct {
	MainStory     *float64 `json:"main_story"`
	MainExtra     *float64 `json:"main_extra"`
	Completionist *float64 `json:"completionist"`
	AllStyles     *float64 `json:"all_styles"`
}

// HasData reports whether at least one time field is populated.
func (t CompletionTimes) HasData() bool {
	return t.MainStory != nil || t.MainExtra != nil || t.Completionist != nil || t.AllStyles != nil
}

// IsPartial reports whether some but not all time fields are populated.
func (t CompletionTimes) IsPartial() bool {
	populated := 0
	for _, f := range []*float64{t.MainStory, t.MainExtra, t.Completionist, t.AllStyles} {
		if f != nil {
			populated++
		}
	}
	return populated > 0 && populated < 4
}

// Hours is a convenience helper for building nullable time fields.
func Hours(v float64) *float64 {
	return &v
}

// Candidate is one search result returned by the API or the scraper.
type Candidate struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Times CompletionTimes `json:"times"`
}

// IntegratedResult is the single provenance-tagged outcome of a
// resolution request.
type IntegratedResult struct {
	Title      string          `json:"title"`
	Matched    string          `json:"matched,omitempty"`
	Times      CompletionTimes `json:"times"`
	Source     Source          `json:"source"`
	Confidence Confidence      `json:"confidence"`
	Latency    time.Duration   `json:"latency"`
}
