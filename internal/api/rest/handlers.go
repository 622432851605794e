package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/fortuna/playtime/internal/cache"
	"github.com/fortuna/playtime/internal/fallback"
	"github.com/fortuna/playtime/internal/hltb"
	"github.com/fortuna/playtime/internal/service"
	"github.com/fortuna/playtime/internal/store"
)

// Handler carries the dependencies the route handlers need. repo may
// be nil when no database is configured; fallback edits then live in
// memory only.
type Handler struct {
	resolver *service.Resolver
	cache    *cache.Service
	fallback *fallback.Database
	repo     *store.Repository
	log      *zap.Logger
}

// NewHandler creates a REST handler.
func NewHandler(resolver *service.Resolver, cacheSvc *cache.Service, db *fallback.Database, repo *store.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		resolver: resolver,
		cache:    cacheSvc,
		fallback: db,
		repo:     repo,
		log:      logger.Named("handlers"),
	}
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Resolve handles GET /api/v1/resolve?title=...&app_id=...
//
// Optional flags: refresh=true bypasses the cache; skip_api,
// skip_scraper and skip_fallback drop tiers; timeout bounds the whole
// request.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	title := q.Get("title")
	appID := q.Get("app_id")

	opts := &service.Options{}
	if v, err := strconv.ParseBool(q.Get("refresh")); err == nil && v {
		opts.SkipCache = true
	}
	if v, err := strconv.ParseBool(q.Get("skip_api")); err == nil && v {
		opts.SkipAPI = true
	}
	if v, err := strconv.ParseBool(q.Get("skip_scraper")); err == nil && v {
		opts.SkipScraper = true
	}
	if v, err := strconv.ParseBool(q.Get("skip_fallback")); err == nil && v {
		opts.SkipFallback = true
	}
	if raw := q.Get("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			respondError(w, http.StatusBadRequest, "timeout must be a positive duration")
			return
		}
		opts.Timeout = d
	}

	result, err := h.resolver.GetGameData(r.Context(), title, appID, opts)
	if err != nil {
		var verr *hltb.ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, verr.Error())
			return
		}
		h.log.Error("resolve failed", zap.String("title", title), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "resolution failed")
		return
	}
	if result == nil {
		respondError(w, http.StatusNotFound, "no completion data found")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// ResolverStats handles GET /api/v1/stats.
func (h *Handler) ResolverStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.resolver.Stats())
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.cache.Stats())
}

// CacheCleanup handles POST /api/v1/cache/cleanup.
func (h *Handler) CacheCleanup(w http.ResponseWriter, r *http.Request) {
	removed := h.cache.CleanupExpired()
	respondJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// FallbackStats handles GET /api/v1/fallback/stats.
func (h *Handler) FallbackStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.fallback.Stats())
}

// FallbackExport handles GET /api/v1/fallback/export.
func (h *Handler) FallbackExport(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.fallback.Export())
}

// FallbackUpsert handles POST /api/v1/fallback/entries.
func (h *Handler) FallbackUpsert(w http.ResponseWriter, r *http.Request) {
	var entry fallback.Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.fallback.Add(entry); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.repo != nil {
		if err := h.repo.Upsert(r.Context(), entry); err != nil {
			h.log.Error("fallback entry persist failed",
				zap.String("title", entry.Title), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "entry saved in memory but not persisted")
			return
		}
	}

	respondJSON(w, http.StatusCreated, entry)
}

// FallbackRemove handles DELETE /api/v1/fallback/entries/{title}.
func (h *Handler) FallbackRemove(w http.ResponseWriter, r *http.Request) {
	title := mux.Vars(r)["title"]

	removed := h.fallback.Remove(title)
	if h.repo != nil {
		if _, err := h.repo.Delete(r.Context(), title); err != nil {
			h.log.Error("fallback entry delete failed",
				zap.String("title", title), zap.Error(err))
		}
	}

	if !removed {
		respondError(w, http.StatusNotFound, "entry not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"removed": title})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
