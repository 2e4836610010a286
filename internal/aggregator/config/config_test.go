package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang-market-aggregator/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Name)
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOGL"}, cfg.Aggregator.DefaultSymbols)
	assert.Equal(t, []entity.Timeframe{entity.Timeframe1D}, cfg.Aggregator.Timeframes())
	assert.Equal(t, 60*time.Second, cfg.Aggregator.RefreshInterval)
	assert.Equal(t, 15*time.Second, cfg.Aggregator.BatchTimeout)
	assert.Equal(t, 10*time.Second, cfg.Aggregator.SingleTimeout)
	assert.Equal(t, "local", cfg.Aggregator.RefreshDispatcher)
	assert.Equal(t, "rss", cfg.News.Provider)
	assert.Equal(t, 20, cfg.YahooFinance.ChunkSize)
	assert.Equal(t, 1, cfg.YahooFinance.Budget.MaxConcurrent)
	assert.Equal(t, time.Second, cfg.Sentiment.Budget.MinSpacing)
	assert.Equal(t, 4*time.Second, cfg.Gemini.Budget.MinSpacing)
	assert.Equal(t, 8080, cfg.API.Port)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
aggregator:
  default_symbols: [" tsla ", nvda]
  default_timeframes: [1W, 1h]
  refresh_interval: 5s
news:
  provider: alphavantage
gemini:
  max_request_per_minute: 30
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"TSLA", "NVDA"}, cfg.Aggregator.DefaultSymbols)
	assert.Equal(t, []entity.Timeframe{entity.Timeframe1W, entity.Timeframe1H}, cfg.Aggregator.Timeframes())
	assert.Equal(t, 5*time.Second, cfg.Aggregator.RefreshInterval)
	assert.Equal(t, "alphavantage", cfg.News.Provider)
	assert.Equal(t, 2*time.Second, cfg.Gemini.Budget.MinSpacing)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"interval below one second", "aggregator:\n  refresh_interval: 500ms\n"},
		{"unknown timeframe", "aggregator:\n  default_timeframes: [5y]\n"},
		{"unknown dispatcher", "aggregator:\n  refresh_dispatcher: kafka\n"},
		{"redis dispatcher without redis", "aggregator:\n  refresh_dispatcher: redis\n"},
		{"unknown news provider", "news:\n  provider: twitter\n"},
		{"concurrent sentiment calls", "sentiment:\n  budget:\n    max_concurrent: 2\n"},
		{"concurrent prediction calls", "gemini:\n  budget:\n    max_concurrent: 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_SampleConfigCallsPerSymbolUpstreamsSequentially(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "..", "configs", "config-aggregator.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Sentiment.Budget.MaxConcurrent)
	assert.Equal(t, 1, cfg.Gemini.Budget.MaxConcurrent)
	assert.Equal(t, time.Second, cfg.Sentiment.Budget.MinSpacing)
}
