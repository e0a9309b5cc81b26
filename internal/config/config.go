// Package config handles configuration loading for MarketPulse.
// It supports YAML config files with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/seenimoa/marketpulse/pkg/models"
)

// Config represents the complete application configuration.
type Config struct {
	API        APIConfig        `mapstructure:"api"        yaml:"api"`
	DataSource DataSourceConfig `mapstructure:"datasource" yaml:"datasource"`
	Refresh    RefreshConfig    `mapstructure:"refresh"    yaml:"refresh"`
	Assistant  AssistantConfig  `mapstructure:"assistant"  yaml:"assistant"`
	Store      StoreConfig      `mapstructure:"store"      yaml:"store"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// FeedConfig is a single RSS news feed.
type FeedConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	URL  string `mapstructure:"url"  yaml:"url"`
}

// DataSourceConfig holds quote provider settings.
type DataSourceConfig struct {
	QuoteURL   string        `mapstructure:"quote_url"   yaml:"quote_url"`
	ChartURL   string        `mapstructure:"chart_url"   yaml:"chart_url"`
	Proxies    []string      `mapstructure:"proxies"     yaml:"proxies"` // ordered CORS proxy prefixes; empty = direct
	QuoteTTL   time.Duration `mapstructure:"quote_ttl"   yaml:"quote_ttl"`
	HistoryTTL time.Duration `mapstructure:"history_ttl" yaml:"history_ttl"`
	NewsTTL    time.Duration `mapstructure:"news_ttl"    yaml:"news_ttl"`
	Timeout    time.Duration `mapstructure:"timeout"     yaml:"timeout"`
	RateLimit  int           `mapstructure:"rate_limit"  yaml:"rate_limit"` // requests per second
	NewsFeeds  []FeedConfig  `mapstructure:"news_feeds"  yaml:"news_feeds"`
	NewsLimit  int           `mapstructure:"news_limit"  yaml:"news_limit"`
}

// RefreshConfig holds the polling intervals of the market data store.
type RefreshConfig struct {
	Quotes    time.Duration `mapstructure:"quotes"    yaml:"quotes"`
	News      time.Duration `mapstructure:"news"      yaml:"news"`
	Portfolio time.Duration `mapstructure:"portfolio" yaml:"portfolio"`
}

// AssistantConfig holds trading assistant settings.
type AssistantConfig struct {
	HistoryRange     string   `mapstructure:"history_range"      yaml:"history_range"`
	DefaultAmount    float64  `mapstructure:"default_amount"     yaml:"default_amount"`
	DefaultYears     float64  `mapstructure:"default_years"      yaml:"default_years"`
	FearIndexSymbol  string   `mapstructure:"fear_index_symbol"  yaml:"fear_index_symbol"`
	DefaultFearIndex float64  `mapstructure:"default_fear_index" yaml:"default_fear_index"`
	Tracked          []string `mapstructure:"tracked"            yaml:"tracked"`
	TablesFile       string   `mapstructure:"tables_file"        yaml:"tables_file"` // optional YAML override of themes and topics
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // "sqlite" or "memory"
	Path   string `mapstructure:"path"   yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"        yaml:"level"`  // "debug", "info", "warn", "error"
	Format     string `mapstructure:"format"       yaml:"format"` // "console" or "json"
	File       bool   `mapstructure:"file"         yaml:"file"`
	FilePath   string `mapstructure:"file_path"    yaml:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"  yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"  yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// DefaultTracked is the dashboard symbol list: indices, commodities, FX,
// crypto and a handful of large caps.
var DefaultTracked = []string{
	"SPX", "NDX", "DJI", "VIX", "DAX", "FTSE", "N225",
	"GOLD", "SILVER", "OIL", "EURUSD", "GBPUSD", "USDJPY", "BTC", "ETH",
	"AAPL", "MSFT", "NVDA", "GOOGL", "AMZN", "META", "TSLA",
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.marketpulse/config.yaml (home directory)
//  3. /etc/marketpulse/config.yaml (system)
//
// Environment variables override config file values.
// Format: MARKETPULSE_<SECTION>_<KEY>, e.g., MARKETPULSE_API_PORT
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".marketpulse"))
	v.AddConfigPath("/etc/marketpulse")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("MARKETPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Logging.FilePath = expandHome(cfg.Logging.FilePath)
	cfg.Assistant.TablesFile = expandHome(cfg.Assistant.TablesFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Data source defaults
	v.SetDefault("datasource.quote_url", "https://query1.finance.yahoo.com/v7/finance/quote")
	v.SetDefault("datasource.chart_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("datasource.proxies", []string{})
	v.SetDefault("datasource.quote_ttl", "10s")
	v.SetDefault("datasource.history_ttl", "5m")
	v.SetDefault("datasource.news_ttl", "2m")
	v.SetDefault("datasource.timeout", "15s")
	v.SetDefault("datasource.rate_limit", 5)
	v.SetDefault("datasource.news_limit", 30)
	v.SetDefault("datasource.news_feeds", []map[string]any{
		{"name": "Yahoo Finance", "url": "https://finance.yahoo.com/news/rssindex"},
		{"name": "CNBC Markets", "url": "https://www.cnbc.com/id/10000664/device/rss/rss.html"},
		{"name": "MarketWatch", "url": "https://feeds.content.dowjones.io/public/rss/mw_topstories"},
	})

	// Refresh defaults
	v.SetDefault("refresh.quotes", "15s")
	v.SetDefault("refresh.news", "120s")
	v.SetDefault("refresh.portfolio", "15s")

	// Assistant defaults
	v.SetDefault("assistant.history_range", "1M")
	v.SetDefault("assistant.default_amount", 10)
	v.SetDefault("assistant.default_years", 5)
	v.SetDefault("assistant.fear_index_symbol", "VIX")
	v.SetDefault("assistant.default_fear_index", 20)
	v.SetDefault("assistant.tracked", DefaultTracked)
	v.SetDefault("assistant.tables_file", "")

	// Store defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "~/.marketpulse/marketpulse.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.file_path", "~/.marketpulse/logs/marketpulse.log")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 14)
}

// Validate checks the configuration for values the application cannot run with.
func (c *Config) Validate() error {
	var errs []error

	durations := map[string]time.Duration{
		"datasource.quote_ttl":   c.DataSource.QuoteTTL,
		"datasource.history_ttl": c.DataSource.HistoryTTL,
		"datasource.news_ttl":    c.DataSource.NewsTTL,
		"datasource.timeout":     c.DataSource.Timeout,
		"refresh.quotes":         c.Refresh.Quotes,
		"refresh.news":           c.Refresh.News,
		"refresh.portfolio":      c.Refresh.Portfolio,
	}
	for _, key := range []string{
		"datasource.quote_ttl", "datasource.history_ttl", "datasource.news_ttl", "datasource.timeout",
		"refresh.quotes", "refresh.news", "refresh.portfolio",
	} {
		if durations[key] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", key))
		}
	}

	if _, err := models.ParseRange(c.Assistant.HistoryRange); err != nil {
		errs = append(errs, fmt.Errorf("assistant.history_range: %w", err))
	}
	if c.Assistant.DefaultAmount <= 0 {
		errs = append(errs, fmt.Errorf("assistant.default_amount must be positive"))
	}
	if c.Assistant.DefaultYears <= 0 {
		errs = append(errs, fmt.Errorf("assistant.default_years must be positive"))
	}

	switch c.Store.Driver {
	case "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Addr returns the host:port the API server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
