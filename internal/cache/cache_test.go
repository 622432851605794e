package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/playtime/internal/hltb"
)

func result(title string) hltb.IntegratedResult {
	return hltb.IntegratedResult{
		Title:      title,
		Matched:    title,
		Times:      hltb.CompletionTimes{MainStory: hltb.Hours(10)},
		Source:     hltb.SourceAPI,
		Confidence: hltb.ConfidenceHigh,
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "portal 2", Key("Portal 2", ""))
	assert.Equal(t, "portal 2|620", Key("Portal 2", "620"))
	assert.Equal(t, Key("The Witcher 3: Wild Hunt", ""), Key("the witcher 3 wild hunt", ""))
}

func TestGetSetRoundTrip(t *testing.T) {
	svc := New(time.Hour, 100, nil, nil)
	ctx := context.Background()

	assert.Nil(t, svc.Get(ctx, "portal 2"))

	svc.Set(ctx, "portal 2", result("Portal 2"))
	got := svc.Get(ctx, "portal 2")
	require.NotNil(t, got)
	assert.Equal(t, "Portal 2", got.Title)

	stats := svc.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate)
}

func TestExpiredEntryIsAMiss(t *testing.T) {
	svc := New(time.Millisecond, 100, nil, nil)
	ctx := context.Background()

	svc.Set(ctx, "celeste", result("Celeste"))
	time.Sleep(5 * time.Millisecond)

	assert.Nil(t, svc.Get(ctx, "celeste"))
	assert.Equal(t, 0, svc.Stats().Entries)
}

func TestCleanupExpired(t *testing.T) {
	svc := New(time.Millisecond, 100, nil, nil)
	ctx := context.Background()

	svc.Set(ctx, "a", result("A"))
	svc.Set(ctx, "b", result("B"))
	time.Sleep(5 * time.Millisecond)
	svc.Set(ctx, "c", result("C"))

	removed := svc.CleanupExpired()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, svc.Stats().Entries)
}

func TestEvictionPrefersLeastUsed(t *testing.T) {
	svc := New(time.Hour, 2, nil, nil)
	ctx := context.Background()

	svc.Set(ctx, "hot", result("Hot"))
	svc.Set(ctx, "cold", result("Cold"))
	require.NotNil(t, svc.Get(ctx, "hot"))

	// Third insert must push out the unread entry.
	svc.Set(ctx, "new", result("New"))
	assert.Nil(t, svc.Get(ctx, "cold"))
	assert.NotNil(t, svc.Get(ctx, "hot"))
	assert.NotNil(t, svc.Get(ctx, "new"))
}

type flakyStore struct {
	entries  map[string]Entry
	getErr   error
	setErr   error
	getCalls int
	setCalls int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{entries: make(map[string]Entry)}
}

func (f *flakyStore) Get(ctx context.Context, key string) (*Entry, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	e, ok := f.entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *flakyStore) Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error {
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[key] = entry
	return nil
}

func (f *flakyStore) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.entries, k)
	}
	return nil
}

func TestDurableStoreWriteThroughAndHydration(t *testing.T) {
	store := newFlakyStore()
	ctx := context.Background()

	svc := New(time.Hour, 100, store, nil)
	svc.Set(ctx, "hades", result("Hades"))
	assert.Equal(t, 1, store.setCalls)

	// A fresh service with the same store hydrates from it.
	svc2 := New(time.Hour, 100, store, nil)
	got := svc2.Get(ctx, "hades")
	require.NotNil(t, got)
	assert.Equal(t, "Hades", got.Title)

	// And the entry now lives in memory; no second store read.
	calls := store.getCalls
	require.NotNil(t, svc2.Get(ctx, "hades"))
	assert.Equal(t, calls, store.getCalls)
}

func TestDurableStoreErrorsAreMisses(t *testing.T) {
	store := newFlakyStore()
	store.getErr = errors.New("connection refused")
	store.setErr = errors.New("connection refused")
	ctx := context.Background()

	svc := New(time.Hour, 100, store, nil)

	assert.Nil(t, svc.Get(ctx, "portal"))

	// Writes still land in memory even when the store is down.
	svc.Set(ctx, "portal", result("Portal"))
	require.NotNil(t, svc.Get(ctx, "portal"))
}
