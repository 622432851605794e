package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/playtime/internal/hltb"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(Options{
		BaseURL:     srv.URL,
		Transport:   srv.Client(),
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Timeout:     2 * time.Second,
	}, nil)
	return client, srv
}

func writeSearchResponse(w http.ResponseWriter, games ...map[string]any) {
	json.NewEncoder(w).Encode(map[string]any{"count": len(games), "data": games})
}

func TestSearchDecodesCandidates(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/search", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "games", req["searchType"])

		writeSearchResponse(w, map[string]any{
			"game_id":   1234,
			"game_name": "Portal",
			"comp_main": 10800,
			"comp_plus": 19800,
			"comp_100":  34200,
			"comp_all":  14400,
		})
	})

	candidates, err := client.Search(context.Background(), "Portal", "", "")
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "1234", c.ID)
	assert.Equal(t, "Portal", c.Name)
	require.NotNil(t, c.Times.MainStory)
	assert.Equal(t, 3.0, *c.Times.MainStory)
	require.NotNil(t, c.Times.Completionist)
	assert.Equal(t, 9.5, *c.Times.Completionist)
}

func TestSearchZeroSecondsMeansNoData(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeSearchResponse(w, map[string]any{
			"game_id":   99,
			"game_name": "Counter-Strike: Global Offensive",
			"comp_main": 0,
		})
	})

	candidates, err := client.Search(context.Background(), "csgo", "", "")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.False(t, candidates[0].Times.HasData())
}

func TestSearchRejectsEmptyTitle(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.Search(context.Background(), "  ™  ", "", "")
	var verr *hltb.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSearchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeSearchResponse(w, map[string]any{"game_id": 1, "game_name": "Hades", "comp_main": 3600})
	})

	candidates, err := client.Search(context.Background(), "Hades", "", "")
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSearchGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Search(context.Background(), "Hades", "", "")
	var nerr *hltb.NetworkError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, http.StatusInternalServerError, nerr.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRateLimitLatches(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Search(context.Background(), "Hades", "", "")
	var rerr *hltb.RateLimitError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 30*time.Second, rerr.RetryAfter)
	assert.Equal(t, int32(1), calls.Load(), "429 never retries")

	remaining, limited := client.RateLimited()
	assert.True(t, limited)
	assert.Greater(t, remaining, 25*time.Second)

	// The next call is rejected locally, without touching the wire.
	_, err = client.Search(context.Background(), "Celeste", "", "")
	assert.ErrorAs(t, err, &rerr)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRateLimitWindowExpires(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeSearchResponse(w, map[string]any{"game_id": 2, "game_name": "Hades", "comp_main": 3600})
	})

	_, err := client.Search(context.Background(), "Hades", "", "")
	var rerr *hltb.RateLimitError
	require.ErrorAs(t, err, &rerr)

	time.Sleep(1100 * time.Millisecond)

	_, limited := client.RateLimited()
	assert.False(t, limited)

	candidates, err := client.Search(context.Background(), "Hades", "", "")
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
	assert.Equal(t, int32(2), calls.Load(), "transport reached again after the window")
}

func TestETagRevalidation(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		writeSearchResponse(w, map[string]any{"game_id": 7, "game_name": "Celeste", "comp_main": 28800})
	})

	first, err := client.Search(context.Background(), "Celeste", "", "")
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := client.Search(context.Background(), "Celeste", "", "")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Name, second[0].Name)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearchGamePrefersExact(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeSearchResponse(w,
			map[string]any{"game_id": 1, "game_name": "Portal 2", "comp_main": 30600},
			map[string]any{"game_id": 2, "game_name": "Portal", "comp_main": 10800},
		)
	})

	c, err := client.SearchGame(context.Background(), "Portal", "", "")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Portal", c.Name)
}

func TestSearchGameNoResultsIsNilNil(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeSearchResponse(w)
	})

	c, err := client.SearchGame(context.Background(), "Unknown Game", "", "")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestPreferExact(t *testing.T) {
	candidates := []hltb.Candidate{
		{ID: "1", Name: "DOOM Eternal"},
		{ID: "2", Name: "DOOM"},
	}
	assert.Equal(t, "DOOM", PreferExact("doom", candidates).Name)
	assert.Equal(t, "DOOM Eternal", PreferExact("doom 3", candidates).Name)
	assert.Nil(t, PreferExact("doom", nil))
}

func TestSanitizeTitle(t *testing.T) {
	assert.Equal(t, "DOOM Eternal", sanitizeTitle("  DOOM™   Eternal®  "))
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, sanitizeTitle(string(long)), maxTitleLength)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, defaultRetryAfter, parseRetryAfter(""))
	assert.Equal(t, 10*time.Second, parseRetryAfter("10"))
	assert.Equal(t, defaultRetryAfter, parseRetryAfter("Wed, 21 Oct 2026 07:28:00 GMT"))
}
