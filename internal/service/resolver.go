// Package service orchestrates the tiered retrieval pipeline: cache,
// queued API call, scraper, then the bundled fallback dataset. The
// first tier to produce a validated result wins; every tier failure is
// logged and advanced past, never surfaced.
package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/playtime/internal/cache"
	"github.com/fortuna/playtime/internal/fallback"
	"github.com/fortuna/playtime/internal/hltb"
	"github.com/fortuna/playtime/internal/ingest/api"
	"github.com/fortuna/playtime/internal/ingest/scrape"
	"github.com/fortuna/playtime/internal/match"
	"github.com/fortuna/playtime/internal/metrics"
	"github.com/fortuna/playtime/internal/queue"
)

// Options lets a caller skip tiers or bound the whole request.
type Options struct {
	SkipCache    bool
	SkipAPI      bool
	SkipScraper  bool
	SkipFallback bool
	Timeout      time.Duration
}

// Stats is the resolver's running accounting.
type Stats struct {
	TotalRequests  uint64        `json:"total_requests"`
	CacheHits      uint64        `json:"cache_hits"`
	APIAttempts    uint64        `json:"api_attempts"`
	APISuccesses   uint64        `json:"api_successes"`
	AverageLatency time.Duration `json:"average_latency"`
}

// EventSink receives each successful resolution, e.g. for the
// WebSocket broadcast.
type EventSink interface {
	ResolutionEvent(result hltb.IntegratedResult)
}

// Deps wires the resolver's collaborators. Metrics and Sink may be
// nil.
type Deps struct {
	Cache    *cache.Service
	API      *api.Client
	Scraper  *scrape.Scraper
	Fallback *fallback.Database
	Queue    *queue.Service
	Matcher  *match.Matcher
	Metrics  *metrics.Metrics
	Sink     EventSink
	Logger   *zap.Logger

	TierTimeout    time.Duration
	RequestTimeout time.Duration
}

// Resolver is the integrated service producing one provenance-tagged
// result per query.
type Resolver struct {
	deps Deps
	log  *zap.Logger

	mu           sync.Mutex
	requests     uint64
	cacheHits    uint64
	apiAttempts  uint64
	apiSuccesses uint64
	totalLatency time.Duration
	completed    uint64
}

// NewResolver builds the resolver.
func NewResolver(deps Deps) *Resolver {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.TierTimeout <= 0 {
		deps.TierTimeout = 15 * time.Second
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 45 * time.Second
	}
	return &Resolver{
		deps: deps,
		log:  deps.Logger.Named("resolver"),
	}
}

// GetGameData resolves a title through the tier ladder. A nil result
// with a nil error means every tier failed or returned nothing; only
// upfront validation produces an error.
func (r *Resolver) GetGameData(ctx context.Context, title, appID string, opts *Options) (*hltb.IntegratedResult, error) {
	if opts == nil {
		opts = &Options{}
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &hltb.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if appID != "" {
		if _, err := strconv.Atoi(appID); err != nil {
			return nil, &hltb.ValidationError{Field: "app_id", Reason: "must be numeric"}
		}
	}

	r.mu.Lock()
	r.requests++
	r.mu.Unlock()

	// Skip-list titles short-circuit before any tier runs; a
	// multiplayer-only game structurally cannot have these times.
	if reason, ok := r.deps.Matcher.SkipReason(title); ok {
		r.log.Info("title skipped", zap.String("title", title), zap.String("reason", reason))
		r.observe(hltb.SourceSkip, "skip", 0)
		return nil, nil
	}

	timeout := r.deps.RequestTimeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	key := cache.Key(title, appID)

	if result := r.tryCache(ctx, key, opts); result != nil {
		r.finish(result, start)
		return result, nil
	}

	if result := r.tryAPI(ctx, title, appID, opts); result != nil {
		r.writeBack(ctx, key, *result)
		r.finish(result, start)
		return result, nil
	}

	if result := r.tryScraper(ctx, title, opts); result != nil {
		r.writeBack(ctx, key, *result)
		r.finish(result, start)
		return result, nil
	}

	if result := r.tryFallback(title, opts); result != nil {
		// Fallback hits stay out of the cache; their confidence does
		// not warrant suppressing fresher tiers on the next request.
		r.finish(result, start)
		return result, nil
	}

	r.recordLatency(time.Since(start))
	r.log.Info("no tier produced a result", zap.String("title", title))
	return nil, nil
}

// Stats returns a copy of the running counters.
func (r *Resolver) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Stats{
		TotalRequests: r.requests,
		CacheHits:     r.cacheHits,
		APIAttempts:   r.apiAttempts,
		APISuccesses:  r.apiSuccesses,
	}
	if r.completed > 0 {
		s.AverageLatency = r.totalLatency / time.Duration(r.completed)
	}
	return s
}

func (r *Resolver) tryCache(ctx context.Context, key string, opts *Options) *hltb.IntegratedResult {
	if opts.SkipCache || r.deps.Cache == nil {
		return nil
	}

	tierStart := time.Now()
	cached := r.deps.Cache.Get(ctx, key)
	r.observeTier("cache", tierStart)

	if cached == nil {
		if m := r.deps.Metrics; m != nil {
			m.CacheMisses.Inc()
		}
		return nil
	}

	r.mu.Lock()
	r.cacheHits++
	r.mu.Unlock()
	if m := r.deps.Metrics; m != nil {
		m.CacheHits.Inc()
	}

	result := *cached
	result.Source = hltb.SourceCache
	return &result
}

func (r *Resolver) tryAPI(ctx context.Context, title, appID string, opts *Options) *hltb.IntegratedResult {
	if opts.SkipAPI || r.deps.API == nil || r.deps.Queue == nil {
		return nil
	}

	if m := r.deps.Metrics; m != nil {
		if _, limited := r.deps.API.RateLimited(); limited {
			m.RateLimited.Set(1)
		} else {
			m.RateLimited.Set(0)
		}
	}

	r.mu.Lock()
	r.apiAttempts++
	r.mu.Unlock()

	tierStart := time.Now()
	value, err := r.runTier(ctx, func(tctx context.Context) (any, error) {
		return r.deps.Queue.Do(tctx, func(qctx context.Context) (any, error) {
			return r.deps.API.SearchGame(qctx, title, appID, "")
		})
	})
	r.observeTier("api", tierStart)

	if err != nil {
		r.log.Warn("api tier failed", zap.String("title", title), zap.Error(err))
		return nil
	}
	candidate, _ := value.(*hltb.Candidate)
	if candidate == nil {
		return nil
	}

	r.mu.Lock()
	r.apiSuccesses++
	r.mu.Unlock()

	confidence := hltb.ConfidenceHigh
	if candidate.Times.IsPartial() {
		confidence = hltb.ConfidenceMedium
	}
	return &hltb.IntegratedResult{
		Title:      title,
		Matched:    candidate.Name,
		Times:      candidate.Times,
		Source:     hltb.SourceAPI,
		Confidence: confidence,
	}
}

func (r *Resolver) tryScraper(ctx context.Context, title string, opts *Options) *hltb.IntegratedResult {
	if opts.SkipScraper || r.deps.Scraper == nil {
		return nil
	}

	tierStart := time.Now()
	value, err := r.runTier(ctx, func(tctx context.Context) (any, error) {
		candidate, matchResult, err := r.deps.Scraper.SearchGame(tctx, title, false)
		if err != nil {
			return nil, err
		}
		return scrapeOutcome{candidate: candidate, match: matchResult}, nil
	})
	r.observeTier("scraper", tierStart)

	if err != nil {
		r.log.Warn("scraper tier failed", zap.String("title", title), zap.Error(err))
		return nil
	}
	outcome, _ := value.(scrapeOutcome)
	if outcome.candidate == nil {
		return nil
	}

	confidence := hltb.ConfidenceMedium
	if outcome.match != nil && outcome.match.Confidence >= 0.95 {
		confidence = hltb.ConfidenceHigh
	}
	if outcome.candidate.Times.IsPartial() && confidence == hltb.ConfidenceHigh {
		confidence = hltb.ConfidenceMedium
	}
	return &hltb.IntegratedResult{
		Title:      title,
		Matched:    outcome.candidate.Name,
		Times:      outcome.candidate.Times,
		Source:     hltb.SourceScraper,
		Confidence: confidence,
	}
}

func (r *Resolver) tryFallback(title string, opts *Options) *hltb.IntegratedResult {
	if opts.SkipFallback || r.deps.Fallback == nil {
		return nil
	}

	tierStart := time.Now()
	entry := r.deps.Fallback.SearchGame(title, "")
	if entry == nil {
		entry, _ = r.deps.Fallback.FuzzySearch(title)
	}
	r.observeTier("fallback", tierStart)

	if entry == nil || !entry.Times.HasData() {
		return nil
	}

	confidence := entry.Confidence
	if confidence == "" {
		confidence = hltb.ConfidenceLow
	}
	return &hltb.IntegratedResult{
		Title:      title,
		Matched:    entry.Title,
		Times:      entry.Times,
		Source:     hltb.SourceFallback,
		Confidence: confidence,
	}
}

type scrapeOutcome struct {
	candidate *hltb.Candidate
	match     *match.Result
}

// runTier races fn against the tier timeout. On expiry the in-flight
// call is abandoned and its eventual outcome discarded, so an
// abandoned attempt cannot write to the cache: write-back only happens
// on the main path after a tier returns in time.
func (r *Resolver) runTier(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	tctx, cancel := context.WithTimeout(ctx, r.deps.TierTimeout)
	defer cancel()

	type tierResult struct {
		value any
		err   error
	}
	done := make(chan tierResult, 1)
	go func() {
		value, err := fn(tctx)
		done <- tierResult{value: value, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-tctx.Done():
		return nil, tctx.Err()
	}
}

// writeBack caches a result when it actually carries data.
func (r *Resolver) writeBack(ctx context.Context, key string, result hltb.IntegratedResult) {
	if r.deps.Cache == nil || !result.Times.HasData() {
		return
	}
	r.deps.Cache.Set(context.WithoutCancel(ctx), key, result)
}

func (r *Resolver) finish(result *hltb.IntegratedResult, start time.Time) {
	result.Latency = time.Since(start)
	r.recordLatency(result.Latency)
	r.observe(result.Source, "hit", result.Latency)
	if r.deps.Sink != nil {
		r.deps.Sink.ResolutionEvent(*result)
	}
	r.log.Info("resolved",
		zap.String("title", result.Title),
		zap.String("matched", result.Matched),
		zap.String("source", string(result.Source)),
		zap.String("confidence", string(result.Confidence)),
		zap.Duration("latency", result.Latency))
}

func (r *Resolver) recordLatency(d time.Duration) {
	r.mu.Lock()
	r.totalLatency += d
	r.completed++
	r.mu.Unlock()
}

func (r *Resolver) observe(source hltb.Source, outcome string, _ time.Duration) {
	if m := r.deps.Metrics; m != nil {
		m.ResolutionsTotal.WithLabelValues(string(source), outcome).Inc()
	}
}

func (r *Resolver) observeTier(tier string, start time.Time) {
	if m := r.deps.Metrics; m != nil {
		m.TierLatency.WithLabelValues(tier).Observe(time.Since(start).Seconds())
	}
}
