// Package fallback holds the bundled completion-time dataset used when
// both remote tiers are unavailable. Lookups are O(1) on normalized
// titles and aliases; a fuzzy sweep over all entries is the last
// resort.
package fallback

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/playtime/internal/hltb"
	"github.com/fortuna/playtime/internal/normalize"
	"github.com/fortuna/playtime/internal/similarity"
)

//go:embed dataset.json
var bundledDataset []byte

// FuzzyThreshold is the combined-similarity floor for the sweep.
const FuzzyThreshold = 0.75

// Entry is one game in the fallback dataset.
type Entry struct {
	Title      string               `json:"title"`
	Aliases    []string             `json:"aliases,omitempty"`
	Times      hltb.CompletionTimes `json:"times"`
	Confidence hltb.Confidence      `json:"confidence,omitempty"`
	UpdatedAt  *time.Time           `json:"updated_at,omitempty"`
}

// Stats summarizes dataset coverage.
type Stats struct {
	Games           int     `json:"games"`
	Aliases         int     `json:"aliases"`
	WithTimeData    int     `json:"with_time_data"`
	WithoutTimeData int     `json:"without_time_data"`
	CoveragePercent float64 `json:"coverage_percent"`
}

// Database is the in-memory fallback store. It owns its maps; no
// external writer mutates them directly.
type Database struct {
	mu        sync.RWMutex
	games     map[string]*Entry // normalized title -> entry
	aliases   map[string]string // normalized alias -> normalized title
	fuzzyMemo map[string]string // normalized query -> normalized title ("" = known miss)

	mergeOnce sync.Once
	log       *zap.Logger
}

// New seeds a database from the bundled dataset.
func New(logger *zap.Logger) (*Database, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db := &Database{
		games:     make(map[string]*Entry),
		aliases:   make(map[string]string),
		fuzzyMemo: make(map[string]string),
		log:       logger.Named("fallback"),
	}

	var entries []Entry
	if err := json.Unmarshal(bundledDataset, &entries); err != nil {
		return nil, fmt.Errorf("decode bundled dataset: %w", err)
	}
	for i := range entries {
		db.index(&entries[i])
	}

	db.log.Info("fallback database seeded",
		zap.Int("games", len(db.games)),
		zap.Int("aliases", len(db.aliases)))
	return db, nil
}

// SearchGame performs a case-insensitive direct lookup, then an alias
// lookup. Returns nil when neither map knows the title.
func (d *Database) SearchGame(title, appID string) *Entry {
	key := normalize.Standard(title)
	if key == "" {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if e, ok := d.games[key]; ok {
		return e.clone()
	}
	if canonical, ok := d.aliases[key]; ok {
		if e, ok := d.games[canonical]; ok {
			return e.clone()
		}
	}
	return nil
}

// FuzzySearch normalizes the title and sweeps every entry with the
// combined similarity measure, returning the best match at or above
// FuzzyThreshold. Repeat lookups are memoized.
func (d *Database) FuzzySearch(title string) (*Entry, float64) {
	query := normalize.Standard(title)
	if query == "" {
		return nil, 0
	}

	d.mu.RLock()
	if key, ok := d.fuzzyMemo[query]; ok {
		var e *Entry
		if stored, found := d.games[key]; key != "" && found {
			e = stored.clone()
		}
		d.mu.RUnlock()
		if e == nil {
			return nil, 0
		}
		return e, similarity.Combined(query, normalize.Standard(e.Title))
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	bestKey := ""
	bestScore := 0.0
	for key := range d.games {
		if score := similarity.Combined(query, key); score > bestScore {
			bestKey = key
			bestScore = score
		}
	}

	if bestScore < FuzzyThreshold {
		d.fuzzyMemo[query] = ""
		return nil, 0
	}
	d.fuzzyMemo[query] = bestKey
	return d.games[bestKey].clone(), bestScore
}

// MergeCommunity fetches a community-maintained dataset and merges
// validated entries into the in-memory maps. It runs at most once per
// database lifetime; any fetch or parse failure leaves existing
// entries untouched.
func (d *Database) MergeCommunity(ctx context.Context, url string, client *http.Client) {
	d.mergeOnce.Do(func() {
		if url == "" {
			return
		}
		if client == nil {
			client = http.DefaultClient
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			d.log.Warn("community dataset request build failed", zap.Error(err))
			return
		}
		resp, err := client.Do(req)
		if err != nil {
			d.log.Warn("community dataset fetch failed", zap.Error(err))
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			d.log.Warn("community dataset fetch failed", zap.Int("status", resp.StatusCode))
			return
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		if err != nil {
			d.log.Warn("community dataset read failed", zap.Error(err))
			return
		}
		var entries []Entry
		if err := json.Unmarshal(body, &entries); err != nil {
			d.log.Warn("community dataset parse failed", zap.Error(err))
			return
		}

		// Community entries must carry time data. A bare title would
		// shadow a bundled entry that has data, making the merge a
		// downgrade instead of an addition.
		valid := entries[:0]
		for _, e := range entries {
			if normalize.Standard(e.Title) == "" || !e.Times.HasData() {
				continue
			}
			valid = append(valid, e)
		}

		merged := d.Import(valid)
		d.log.Info("community dataset merged",
			zap.Int("entries", merged),
			zap.Int("rejected", len(entries)-len(valid)))
	})
}

// Add inserts or replaces an entry. Invalid entries (empty title) are
// rejected.
func (d *Database) Add(e Entry) error {
	if normalize.Standard(e.Title) == "" {
		return fmt.Errorf("fallback entry has empty title")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.index(&e)
	d.fuzzyMemo = make(map[string]string)
	return nil
}

// Update is Add for callers that care about the distinction.
func (d *Database) Update(e Entry) error { return d.Add(e) }

// Remove deletes an entry and its aliases by title.
func (d *Database) Remove(title string) bool {
	key := normalize.Standard(title)
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.games[key]
	if !ok {
		return false
	}
	delete(d.games, key)
	for _, alias := range e.Aliases {
		delete(d.aliases, normalize.Standard(alias))
	}
	d.fuzzyMemo = make(map[string]string)
	return true
}

// Import merges a batch of entries, skipping invalid ones, and returns
// how many were accepted.
func (d *Database) Import(entries []Entry) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	accepted := 0
	for i := range entries {
		if normalize.Standard(entries[i].Title) == "" {
			continue
		}
		d.index(&entries[i])
		accepted++
	}
	if accepted > 0 {
		d.fuzzyMemo = make(map[string]string)
	}
	return accepted
}

// Export returns a snapshot of every entry.
func (d *Database) Export() []Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Entry, 0, len(d.games))
	for _, e := range d.games {
		out = append(out, *e.clone())
	}
	return out
}

// Stats reports aggregate dataset coverage.
func (d *Database) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s := Stats{Games: len(d.games), Aliases: len(d.aliases)}
	for _, e := range d.games {
		if e.Times.HasData() {
			s.WithTimeData++
		} else {
			s.WithoutTimeData++
		}
	}
	if s.Games > 0 {
		s.CoveragePercent = 100 * float64(s.WithTimeData) / float64(s.Games)
	}
	return s
}

// index stores an entry under its normalized title and aliases. Caller
// holds the write lock (or is the constructor).
func (d *Database) index(e *Entry) {
	key := normalize.Standard(e.Title)
	if key == "" {
		return
	}
	if e.Confidence == "" {
		e.Confidence = hltb.ConfidenceLow
	}
	d.games[key] = e
	for _, alias := range e.Aliases {
		if a := normalize.Standard(alias); a != "" {
			d.aliases[a] = key
		}
	}
}

func (e *Entry) clone() *Entry {
	out := *e
	out.Aliases = append([]string(nil), e.Aliases...)
	return &out
}
