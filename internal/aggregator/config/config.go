package config

import (
	"fmt"
	"strings"
	"time"

	"golang-market-aggregator/internal/entity"
	"golang-market-aggregator/pkg/config"
)

// Aggregator holds the cycle and mode controller settings.
type Aggregator struct {
	DefaultSymbols    []string      `mapstructure:"default_symbols"`
	DefaultTimeframes []string      `mapstructure:"default_timeframes"`
	RefreshInterval   time.Duration `mapstructure:"refresh_interval" default:"60s"`
	BatchTimeout      time.Duration `mapstructure:"batch_timeout" default:"15s"`
	SingleTimeout     time.Duration `mapstructure:"single_timeout" default:"10s"`
	NewsLimit         int           `mapstructure:"news_limit" default:"20"`
	MaxSymbols        int           `mapstructure:"max_symbols" default:"50"`
	// RefreshDispatcher is "local" or "redis".
	RefreshDispatcher string `mapstructure:"refresh_dispatcher" default:"local"`
	// StartLive turns live mode on at startup.
	StartLive bool `mapstructure:"start_live"`

	RedisStreamRefreshTimeout         time.Duration `mapstructure:"redis_stream_refresh_timeout" default:"2m"`
	RedisStreamRefreshRetryInterval   time.Duration `mapstructure:"redis_stream_refresh_retry_interval" default:"30s"`
	RedisStreamRefreshMaxIdleDuration time.Duration `mapstructure:"redis_stream_refresh_max_idle_duration" default:"3m"`
	RedisStreamRefreshMaxRetry        int           `mapstructure:"redis_stream_refresh_max_retry" default:"3"`
}

// Budget is the upstream call budget shared by every adapter block.
type Budget struct {
	MaxConcurrent int           `mapstructure:"max_concurrent" default:"1"`
	MinSpacing    time.Duration `mapstructure:"min_spacing"`
}

// YahooFinance holds the configuration for the Yahoo Finance quote endpoint.
type YahooFinance struct {
	BaseURL   string `mapstructure:"base_url" default:"https://query1.finance.yahoo.com"`
	ChunkSize int    `mapstructure:"chunk_size" default:"20"`
	Budget    Budget `mapstructure:"budget"`
}

// AlphaVantage holds the configuration for the Alpha Vantage news feed.
type AlphaVantage struct {
	BaseURL string `mapstructure:"base_url" default:"https://www.alphavantage.co"`
	APIKey  string `mapstructure:"api_key"`
	Limit   int    `mapstructure:"limit" default:"50"`
	Budget  Budget `mapstructure:"budget"`
}

// RSS holds the configuration for the RSS headline feeds.
// FeedURL is a format string receiving the symbol.
type RSS struct {
	FeedURL  string        `mapstructure:"feed_url" default:"https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" default:"5m"`
	MaxItems int           `mapstructure:"max_items" default:"10"`
	Budget   Budget        `mapstructure:"budget"`
}

// News selects the news provider.
type News struct {
	// Provider is "alphavantage" or "rss".
	Provider string `mapstructure:"provider" default:"rss"`
}

// Sentiment holds the configuration for the per-symbol sentiment endpoint.
type Sentiment struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Budget  Budget `mapstructure:"budget"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model" default:"gemini-2.0-flash"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute" default:"15"`
	Budget              Budget `mapstructure:"budget"`
}

// Config holds the full configuration for the aggregator service.
type Config struct {
	App          config.App      `mapstructure:"app"`
	Logger       config.Logger   `mapstructure:"logger"`
	Database     config.Database `mapstructure:"database"`
	Redis        config.Redis    `mapstructure:"redis"`
	API          config.API      `mapstructure:"api"`
	Metrics      config.Metrics  `mapstructure:"metrics"`
	Aggregator   Aggregator      `mapstructure:"aggregator"`
	YahooFinance YahooFinance    `mapstructure:"yahoo_finance"`
	AlphaVantage AlphaVantage    `mapstructure:"alpha_vantage"`
	RSS          RSS             `mapstructure:"rss"`
	News         News            `mapstructure:"news"`
	Sentiment    Sentiment       `mapstructure:"sentiment"`
	Gemini       Gemini          `mapstructure:"gemini"`
}

// Load loads the aggregator configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills the settings the struct tags cannot express.
func (c *Config) applyDefaults() {
	if len(c.Aggregator.DefaultSymbols) == 0 {
		c.Aggregator.DefaultSymbols = []string{"AAPL", "MSFT", "GOOGL"}
	}
	for i, s := range c.Aggregator.DefaultSymbols {
		c.Aggregator.DefaultSymbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	if len(c.Aggregator.DefaultTimeframes) == 0 {
		c.Aggregator.DefaultTimeframes = []string{string(entity.Timeframe1D)}
	}
	if c.Sentiment.Budget.MinSpacing == 0 {
		c.Sentiment.Budget.MinSpacing = time.Second
	}
	if c.Gemini.Budget.MinSpacing == 0 && c.Gemini.MaxRequestPerMinute > 0 {
		c.Gemini.Budget.MinSpacing = time.Minute / time.Duration(c.Gemini.MaxRequestPerMinute)
	}
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Aggregator.RefreshInterval < time.Second {
		return fmt.Errorf("aggregator.refresh_interval must be at least 1s, got %s", c.Aggregator.RefreshInterval)
	}
	for _, tf := range c.Aggregator.DefaultTimeframes {
		if _, err := entity.ParseTimeframe(tf); err != nil {
			return fmt.Errorf("aggregator.default_timeframes: %w", err)
		}
	}
	switch c.Aggregator.RefreshDispatcher {
	case "local", "redis":
	default:
		return fmt.Errorf("aggregator.refresh_dispatcher must be local or redis, got %q", c.Aggregator.RefreshDispatcher)
	}
	if c.Aggregator.RefreshDispatcher == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("aggregator.refresh_dispatcher redis requires redis.enabled")
	}
	switch c.News.Provider {
	case "alphavantage", "rss":
	default:
		return fmt.Errorf("news.provider must be alphavantage or rss, got %q", c.News.Provider)
	}
	// Per-symbol upstreams are called one at a time.
	if c.Sentiment.Budget.MaxConcurrent > 1 {
		return fmt.Errorf("sentiment.budget.max_concurrent must be 1, got %d", c.Sentiment.Budget.MaxConcurrent)
	}
	if c.Gemini.Budget.MaxConcurrent > 1 {
		return fmt.Errorf("gemini.budget.max_concurrent must be 1, got %d", c.Gemini.Budget.MaxConcurrent)
	}
	return nil
}

// Timeframes returns the parsed default timeframes.
func (a Aggregator) Timeframes() []entity.Timeframe {
	tfs := make([]entity.Timeframe, 0, len(a.DefaultTimeframes))
	for _, s := range a.DefaultTimeframes {
		if tf, err := entity.ParseTimeframe(s); err == nil {
			tfs = append(tfs, tf)
		}
	}
	return tfs
}
