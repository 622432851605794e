// Package config loads service configuration from defaults, an
// optional YAML file, and PLAYTIME_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable for the service.
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	RESTPort string `mapstructure:"rest_port"`
	WSPort   string `mapstructure:"ws_port"`

	HLTBBaseURL         string `mapstructure:"hltb_base_url"`
	ScraperRender       bool   `mapstructure:"scraper_render"`
	CommunityDatasetURL string `mapstructure:"community_dataset_url"`

	RedisURL    string `mapstructure:"redis_url"`
	PostgresDSN string `mapstructure:"postgres_dsn"`

	CacheRetention  time.Duration `mapstructure:"cache_retention"`
	CacheMaxEntries int           `mapstructure:"cache_max_entries"`

	QueueSpacing time.Duration `mapstructure:"queue_spacing"`
	QueueBuffer  int           `mapstructure:"queue_buffer"`

	APIMaxAttempts int           `mapstructure:"api_max_attempts"`
	APIBaseDelay   time.Duration `mapstructure:"api_base_delay"`
	APITimeout     time.Duration `mapstructure:"api_timeout"`

	TierTimeout    time.Duration `mapstructure:"tier_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Load reads configuration. path may name a YAML file; an empty path
// uses defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("rest_port", "8080")
	v.SetDefault("ws_port", "8081")
	v.SetDefault("hltb_base_url", "https://howlongtobeat.com")
	v.SetDefault("scraper_render", false)
	v.SetDefault("community_dataset_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("cache_retention", 24*time.Hour)
	v.SetDefault("cache_max_entries", 2048)
	v.SetDefault("queue_spacing", 1500*time.Millisecond)
	v.SetDefault("queue_buffer", 64)
	v.SetDefault("api_max_attempts", 3)
	v.SetDefault("api_base_delay", 500*time.Millisecond)
	v.SetDefault("api_timeout", 10*time.Second)
	v.SetDefault("tier_timeout", 15*time.Second)
	v.SetDefault("request_timeout", 45*time.Second)

	v.SetEnvPrefix("PLAYTIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.CacheRetention <= 0 {
		return fmt.Errorf("cache_retention must be positive")
	}
	if c.CacheMaxEntries <= 0 {
		return fmt.Errorf("cache_max_entries must be positive")
	}
	if c.APIMaxAttempts <= 0 {
		return fmt.Errorf("api_max_attempts must be positive")
	}
	if c.QueueSpacing < 0 {
		return fmt.Errorf("queue_spacing must not be negative")
	}
	return nil
}
