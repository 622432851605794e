package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fortuna/playtime/internal/api/rest"
	"github.com/fortuna/playtime/internal/api/websocket"
	"github.com/fortuna/playtime/internal/cache"
	"github.com/fortuna/playtime/internal/config"
	"github.com/fortuna/playtime/internal/fallback"
	hltbapi "github.com/fortuna/playtime/internal/ingest/api"
	"github.com/fortuna/playtime/internal/ingest/scrape"
	"github.com/fortuna/playtime/internal/logging"
	"github.com/fortuna/playtime/internal/match"
	"github.com/fortuna/playtime/internal/metrics"
	"github.com/fortuna/playtime/internal/queue"
	"github.com/fortuna/playtime/internal/service"
	"github.com/fortuna/playtime/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST and WebSocket servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Durable cache backing is optional; the in-memory layer works alone.
	var durable cache.Store
	if cfg.RedisURL != "" {
		rs, err := cache.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Warn("redis unavailable, running memory-only cache", zap.Error(err))
		} else {
			defer rs.Close()
			durable = rs
			log.Info("redis cache store connected")
		}
	}
	cacheSvc := cache.New(cfg.CacheRetention, cfg.CacheMaxEntries, durable, log)

	fb, err := fallback.New(log)
	if err != nil {
		return err
	}

	// Persisted fallback entries override the bundled dataset on boot.
	// Postgres is optional; when it is down the service runs with the
	// embedded dataset only.
	var repo *store.Repository
	if cfg.PostgresDSN != "" {
		db, err := store.NewDatabase(cfg.PostgresDSN)
		if err != nil {
			log.Warn("postgres unavailable, fallback edits will not persist", zap.Error(err))
		} else {
			defer db.Close()
			if err := db.EnsureSchema(ctx); err != nil {
				return err
			}
			repo = store.NewRepository(db)

			entries, err := repo.List(ctx)
			if err != nil {
				return err
			}
			if n := fb.Import(entries); n > 0 {
				log.Info("loaded persisted fallback entries", zap.Int("count", n))
			}
		}
	}

	if cfg.CommunityDatasetURL != "" {
		go fb.MergeCommunity(ctx, cfg.CommunityDatasetURL, nil)
	}

	matcher := match.NewMatcher(match.DefaultMappings(), log)

	q := queue.New(cfg.QueueSpacing, cfg.QueueBuffer, log)
	defer q.Close()

	apiClient := hltbapi.NewClient(hltbapi.Options{
		BaseURL:     cfg.HLTBBaseURL,
		MaxAttempts: cfg.APIMaxAttempts,
		BaseDelay:   cfg.APIBaseDelay,
		Timeout:     cfg.APITimeout,
	}, log)

	var fetcher scrape.Fetcher
	if cfg.ScraperRender {
		rf := scrape.NewRenderFetcher()
		defer rf.Close()
		fetcher = rf
	}
	scraper := scrape.NewScraper(cfg.HLTBBaseURL, fetcher, matcher, log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	wsServer := websocket.NewServer(log)

	resolver := service.NewResolver(service.Deps{
		Cache:          cacheSvc,
		API:            apiClient,
		Scraper:        scraper,
		Fallback:       fb,
		Queue:          q,
		Matcher:        matcher,
		Metrics:        m,
		Sink:           wsServer,
		Logger:         log,
		TierTimeout:    cfg.TierTimeout,
		RequestTimeout: cfg.RequestTimeout,
	})

	handler := rest.NewHandler(resolver, cacheSvc, fb, repo, log)
	restServer := rest.NewServer(cfg.RESTPort, handler, registry, log)

	errCh := make(chan error, 2)
	go func() {
		if err := restServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := wsServer.Start(cfg.WSPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Expired cache entries also get swept in the background, not just
	// through the cleanup endpoint.
	go func() {
		ticker := time.NewTicker(cfg.CacheRetention / 4)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := cacheSvc.CleanupExpired(); n > 0 {
					log.Debug("cache sweep", zap.Int("removed", n))
				}
			}
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("rest shutdown", zap.Error(err))
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("websocket shutdown", zap.Error(err))
	}
	return nil
}
