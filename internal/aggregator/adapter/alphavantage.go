package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang-market-aggregator/internal/aggregator/config"
	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/internal/entity"
	"golang-market-aggregator/pkg/logger"
	"golang-market-aggregator/pkg/utils"
)

// AlphaVantageNewsAdapter reads news and per-article sentiment from the
// Alpha Vantage NEWS_SENTIMENT function. The tickers filter matches articles
// mentioning every listed ticker, so each symbol is queried on its own.
type AlphaVantageNewsAdapter struct {
	cfg     config.AlphaVantage
	client  *http.Client
	symbols *Gate
	logger  *logger.Logger
}

// NewAlphaVantageNewsAdapter creates an AlphaVantageNewsAdapter.
func NewAlphaVantageNewsAdapter(cfg config.AlphaVantage, log *logger.Logger) *AlphaVantageNewsAdapter {
	return &AlphaVantageNewsAdapter{
		cfg:     cfg,
		client:  newHTTPClient(),
		symbols: NewGate(Budget{MaxConcurrent: cfg.Budget.MaxConcurrent, MinSpacing: cfg.Budget.MinSpacing}),
		logger:  log,
	}
}

func (a *AlphaVantageNewsAdapter) Name() string {
	return "alpha_vantage"
}

func (a *AlphaVantageNewsAdapter) Budget() Budget {
	return Budget{MaxConcurrent: 1}
}

// FetchNews queries every symbol and merges the feeds.
func (a *AlphaVantageNewsAdapter) FetchNews(ctx context.Context, symbols []string) (NewsBatch, error) {
	if a.cfg.APIKey == "" {
		return NewsBatch{}, fmt.Errorf("%w: alpha vantage api key is not configured", ErrAdapterUnavailable)
	}

	results, err := RunEach(ctx, a.symbols, symbols, a.fetchSymbol)
	if err != nil {
		return NewsBatch{}, err
	}

	collector := newNewsCollector()
	failures := make(map[string]*dto.FacetError)
	for _, symbol := range symbols {
		res := results[symbol]
		if !res.OK() {
			failures[symbol] = res.Err
			continue
		}
		for _, item := range res.Value {
			collector.add(item, symbol)
		}
	}
	return collector.batch(failures), nil
}

func (a *AlphaVantageNewsAdapter) fetchSymbol(ctx context.Context, symbol string) ([]entity.NewsItem, error) {
	query := url.Values{}
	query.Set("function", "NEWS_SENTIMENT")
	query.Set("tickers", symbol)
	query.Set("sort", "LATEST")
	query.Set("limit", strconv.Itoa(a.cfg.Limit))
	query.Set("apikey", a.cfg.APIKey)
	endpoint := fmt.Sprintf("%s/query?%s", strings.TrimRight(a.cfg.BaseURL, "/"), query.Encode())

	var resp dto.AlphaVantageNewsResponse
	if err := getJSON(ctx, a.client, endpoint, nil, &resp); err != nil {
		a.logger.Warn("Failed to fetch alpha vantage news", logger.ErrorField(err), logger.StringField("symbol", symbol))
		return nil, err
	}

	// Throttled keys get a 200 with a Note or Information message instead of a feed.
	if resp.Note != "" || (resp.Information != "" && resp.Feed == nil) {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, firstNonEmpty(resp.Note, resp.Information))
	}
	if resp.ErrorMsg != "" {
		return nil, &UpstreamError{Status: http.StatusBadRequest, Message: resp.ErrorMsg}
	}

	now := utils.TimeNowUTC()
	items := make([]entity.NewsItem, 0, len(resp.Feed))
	for _, article := range resp.Feed {
		if article.URL == "" || article.Title == "" {
			continue
		}
		publishedAt, ok := utils.ParseCompactTime(article.TimePublished)
		if !ok {
			publishedAt = now
		}
		item := entity.NewsItem{
			HashIdentifier: entity.NewsHash(article.URL, publishedAt),
			Headline:       article.Title,
			Summary:        article.Summary,
			Source:         article.Source,
			URL:            article.URL,
			PublishedAt:    publishedAt,
			SentimentScore: utils.ToPointer(clamp(article.OverallSentimentScore, -1, 1)),
			FetchedAt:      now,
		}
		for _, ts := range article.TickerSentiment {
			ticker := strings.ToUpper(strings.TrimSpace(ts.Ticker))
			if ticker == "" {
				continue
			}
			item.Symbols = append(item.Symbols, entity.NewsSymbol{Symbol: ticker})
			if ticker == symbol {
				if relevance, err := strconv.ParseFloat(ts.RelevanceScore, 64); err == nil {
					item.Relevance = utils.ToPointer(clamp(relevance, 0, 1))
				}
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
