package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fortuna/playtime/internal/cache"
	"github.com/fortuna/playtime/internal/config"
	"github.com/fortuna/playtime/internal/fallback"
	hltbapi "github.com/fortuna/playtime/internal/ingest/api"
	"github.com/fortuna/playtime/internal/ingest/scrape"
	"github.com/fortuna/playtime/internal/logging"
	"github.com/fortuna/playtime/internal/match"
	"github.com/fortuna/playtime/internal/queue"
	"github.com/fortuna/playtime/internal/service"
)

var (
	resolveAppID       string
	resolveSkipCache   bool
	resolveSkipAPI     bool
	resolveSkipScraper bool
	resolveTimeout     time.Duration
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <title>",
	Short: "Resolve one title and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runResolve(cmd.Context(), args[0])
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveAppID, "app-id", "", "Steam app ID hint")
	resolveCmd.Flags().BoolVar(&resolveSkipCache, "skip-cache", false, "bypass the cache tier")
	resolveCmd.Flags().BoolVar(&resolveSkipAPI, "skip-api", false, "bypass the API tier")
	resolveCmd.Flags().BoolVar(&resolveSkipScraper, "skip-scraper", false, "bypass the scraper tier")
	resolveCmd.Flags().DurationVar(&resolveTimeout, "timeout", 0, "overall request timeout (0 uses the configured default)")
}

func runResolve(ctx context.Context, title string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New("warn", cfg.LogFormat)
	if err != nil {
		return err
	}
	defer log.Sync()

	fb, err := fallback.New(log)
	if err != nil {
		return err
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
	scraper := scrape.NewScraper(cfg.HLTBBaseURL, nil, matcher, log)

	resolver := service.NewResolver(service.Deps{
		Cache:          cache.New(cfg.CacheRetention, cfg.CacheMaxEntries, nil, log),
		API:            apiClient,
		Scraper:        scraper,
		Fallback:       fb,
		Queue:          q,
		Matcher:        matcher,
		Logger:         log,
		TierTimeout:    cfg.TierTimeout,
		RequestTimeout: cfg.RequestTimeout,
	})

	opts := &service.Options{
		SkipCache:   resolveSkipCache,
		SkipAPI:     resolveSkipAPI,
		SkipScraper: resolveSkipScraper,
		Timeout:     resolveTimeout,
	}

	result, err := resolver.GetGameData(ctx, title, resolveAppID, opts)
	if err != nil {
		return err
	}
	if result == nil {
		fmt.Fprintln(os.Stderr, "no completion data found")
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
