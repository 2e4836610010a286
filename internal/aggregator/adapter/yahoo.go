package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang-market-aggregator/internal/aggregator/config"
	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/internal/entity"
	"golang-market-aggregator/pkg/logger"
	"golang-market-aggregator/pkg/utils"
)

// YahooQuoteAdapter reads quotes from the Yahoo Finance v7 batch endpoint.
type YahooQuoteAdapter struct {
	cfg    config.YahooFinance
	client *http.Client
	chunks *Gate
	logger *logger.Logger
}

// NewYahooQuoteAdapter creates a YahooQuoteAdapter. Chunks of one batch are
// issued under the configured budget.
func NewYahooQuoteAdapter(cfg config.YahooFinance, log *logger.Logger) *YahooQuoteAdapter {
	return &YahooQuoteAdapter{
		cfg:    cfg,
		client: newHTTPClient(),
		chunks: NewGate(Budget{MaxConcurrent: cfg.Budget.MaxConcurrent, MinSpacing: cfg.Budget.MinSpacing}),
		logger: log,
	}
}

func (a *YahooQuoteAdapter) Name() string {
	return "yahoo_finance"
}

// Budget is the budget of the whole batch call.
func (a *YahooQuoteAdapter) Budget() Budget {
	return Budget{MaxConcurrent: 1}
}

// FetchQuotes returns one result per symbol. A failed chunk fails every symbol
// in it; symbols missing from a successful response fail with status 404.
func (a *YahooQuoteAdapter) FetchQuotes(ctx context.Context, symbols []string) (PerSymbolResult[entity.Quote], error) {
	chunks := utils.Chunk(symbols, a.cfg.ChunkSize)
	keys := make([]int, len(chunks))
	for i := range chunks {
		keys[i] = i
	}

	chunkResults, err := RunEach(ctx, a.chunks, keys, func(ctx context.Context, i int) (map[string]entity.Quote, error) {
		return a.fetchChunk(ctx, chunks[i])
	})
	if err != nil {
		return nil, err
	}

	results := make(PerSymbolResult[entity.Quote], len(symbols))
	for i, chunk := range chunks {
		res := chunkResults[i]
		for _, symbol := range chunk {
			if !res.OK() {
				results[symbol] = Result[entity.Quote]{Err: res.Err.Clone()}
				continue
			}
			quote, ok := res.Value[symbol]
			if !ok {
				results[symbol] = Failed[entity.Quote](&UpstreamError{Status: http.StatusNotFound, Message: fmt.Sprintf("no quote returned for %s", symbol)})
				continue
			}
			results[symbol] = Result[entity.Quote]{Value: quote}
		}
	}
	return results, nil
}

func (a *YahooQuoteAdapter) fetchChunk(ctx context.Context, symbols []string) (map[string]entity.Quote, error) {
	endpoint := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", strings.TrimRight(a.cfg.BaseURL, "/"), url.QueryEscape(strings.Join(symbols, ",")))

	var resp dto.YahooQuoteResponse
	if err := getJSON(ctx, a.client, endpoint, nil, &resp); err != nil {
		a.logger.Warn("Failed to fetch quotes", logger.ErrorField(err), logger.StringsField("symbols", symbols))
		return nil, err
	}
	if resp.QuoteResponse.Error != nil {
		return nil, &UpstreamError{Message: fmt.Sprintf("%s: %s", resp.QuoteResponse.Error.Code, resp.QuoteResponse.Error.Description)}
	}

	quotes := make(map[string]entity.Quote, len(resp.QuoteResponse.Result))
	for _, q := range resp.QuoteResponse.Result {
		if q.RegularMarketPrice == nil {
			continue
		}
		symbol := strings.ToUpper(q.Symbol)
		quote := entity.Quote{
			Symbol:        symbol,
			Price:         *q.RegularMarketPrice,
			Change:        q.RegularMarketChange,
			ChangePercent: q.RegularMarketChangePercent,
			Volume:        q.RegularMarketVolume,
			MarketCap:     q.MarketCap,
			DayHigh:       q.RegularMarketDayHigh,
			DayLow:        q.RegularMarketDayLow,
			DayOpen:       q.RegularMarketOpen,
			PreviousClose: q.RegularMarketPreviousClose,
		}
		if q.RegularMarketTime > 0 {
			quote.MarketTime = utils.ToPointer(time.Unix(q.RegularMarketTime, 0).UTC())
		}
		quotes[symbol] = quote
	}
	return quotes, nil
}
