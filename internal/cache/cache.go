// Package cache provides the retention-windowed result cache in front
// of the retrieval pipeline. An optional durable Store (Redis) sits
// behind the in-memory map; store errors are logged and treated as
// misses, never surfaced.
package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/playtime/internal/hltb"
	"github.com/fortuna/playtime/internal/normalize"
)

// Entry is one cached resolution with its bookkeeping.
type Entry struct {
	Result   hltb.IntegratedResult `json:"result"`
	StoredAt time.Time             `json:"stored_at"`
	Hits     int                   `json:"hits"`
}

// Store is the durable key-value layer behind the in-memory cache.
// Implementations must tolerate missing keys by returning (nil, nil).
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Stats reports hit/miss accounting.
type Stats struct {
	Entries int     `json:"entries"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Service is the in-memory cache. It owns its map exclusively.
type Service struct {
	mu      sync.Mutex
	entries map[string]*Entry

	retention  time.Duration
	maxEntries int

	hits   uint64
	misses uint64

	store Store
	log   *zap.Logger
}

// New builds a cache with the given retention window and size bound.
// store may be nil to run memory-only.
func New(retention time.Duration, maxEntries int, store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		entries:    make(map[string]*Entry),
		retention:  retention,
		maxEntries: maxEntries,
		store:      store,
		log:        logger.Named("cache"),
	}
}

// Key derives the cache key from a title and optional store id.
func Key(title, appID string) string {
	key := normalize.Standard(title)
	if appID != "" {
		key += "|" + appID
	}
	return key
}

// Get returns the cached result for key, or nil. Entries older than
// the retention window count as misses and are dropped.
func (s *Service) Get(ctx context.Context, key string) *hltb.IntegratedResult {
	s.mu.Lock()
	e, ok := s.entries[key]
	if ok && time.Since(e.StoredAt) > s.retention {
		delete(s.entries, key)
		ok = false
	}
	if ok {
		e.Hits++
		s.hits++
		result := e.Result
		s.mu.Unlock()
		return &result
	}
	s.mu.Unlock()

	// Fall through to the durable store, if any.
	if s.store != nil {
		stored, err := s.store.Get(ctx, key)
		if err != nil {
			s.log.Warn("cache store read failed", zap.String("key", key), zap.Error(err))
		} else if stored != nil && time.Since(stored.StoredAt) <= s.retention {
			s.mu.Lock()
			stored.Hits++
			s.entries[key] = stored
			s.hits++
			result := stored.Result
			s.mu.Unlock()
			return &result
		}
	}

	s.mu.Lock()
	s.misses++
	s.mu.Unlock()
	return nil
}

// Set stores a result under key, evicting if the size bound is hit,
// and writes through to the durable store when one is configured.
func (s *Service) Set(ctx context.Context, key string, result hltb.IntegratedResult) {
	entry := Entry{Result: result, StoredAt: time.Now()}

	s.mu.Lock()
	if _, exists := s.entries[key]; !exists && s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.evictLocked()
	}
	s.entries[key] = &entry
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Set(ctx, key, entry, s.retention); err != nil {
			s.log.Warn("cache store write failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// CleanupExpired drops entries past the retention window and returns
// how many were removed. Exposed for a host-triggered scheduler; the
// cache never schedules its own sweeps.
func (s *Service) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, e := range s.entries {
		if time.Since(e.StoredAt) > s.retention {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Stats returns current hit/miss accounting.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := Stats{Entries: len(s.entries), Hits: s.hits, Misses: s.misses}
	if total := s.hits + s.misses; total > 0 {
		stats.HitRate = float64(s.hits) / float64(total)
	}
	return stats
}

// evictLocked removes the least-used entry, breaking ties by age.
// Caller holds the lock.
func (s *Service) evictLocked() {
	var victim string
	var victimEntry *Entry
	for key, e := range s.entries {
		if victimEntry == nil ||
			e.Hits < victimEntry.Hits ||
			(e.Hits == victimEntry.Hits && e.StoredAt.Before(victimEntry.StoredAt)) {
			victim = key
			victimEntry = e
		}
	}
	if victim != "" {
		delete(s.entries, victim)
	}
}
