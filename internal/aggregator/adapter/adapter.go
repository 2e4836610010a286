package adapter

import (
	"context"
	"time"

	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/internal/entity"
)

// Result is the value-or-failure outcome of one upstream call.
type Result[T any] struct {
	Value T
	Err   *dto.FacetError
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Failed builds a failed result from any error.
func Failed[T any](err error) Result[T] {
	return Result[T]{Err: Classify(err)}
}

// PerSymbolResult maps each requested symbol to its outcome.
type PerSymbolResult[T any] map[string]Result[T]

// Budget is the call budget an upstream tolerates.
// MaxConcurrent <= 1 means strictly sequential calls.
type Budget struct {
	MaxConcurrent int
	MinSpacing    time.Duration
	Timeout       time.Duration
}

// QuoteSource fetches quotes for a batch of symbols in one logical call.
type QuoteSource interface {
	Name() string
	Budget() Budget
	FetchQuotes(ctx context.Context, symbols []string) (PerSymbolResult[entity.Quote], error)
}

// NewsBatch is the outcome of a news fetch. Items are deduplicated by hash and
// carry the union of the symbols they were found for. Failures lists the
// symbols whose lookup failed.
type NewsBatch struct {
	Items    []entity.NewsItem
	Failures map[string]*dto.FacetError
}

// NewsSource fetches news for a batch of symbols.
type NewsSource interface {
	Name() string
	Budget() Budget
	FetchNews(ctx context.Context, symbols []string) (NewsBatch, error)
}

// SentimentSource fetches the sentiment of a single symbol.
type SentimentSource interface {
	Name() string
	Budget() Budget
	FetchSentiment(ctx context.Context, symbol string) (entity.Sentiment, error)
}

// PredictionRequest asks for one (symbol, timeframe) forecast. Quote is the
// quote captured in the same cycle, nil when it failed.
type PredictionRequest struct {
	Symbol    string
	Timeframe entity.Timeframe
	Quote     *entity.Quote
}

// PredictionSource fetches one forecast per call.
type PredictionSource interface {
	Name() string
	Budget() Budget
	FetchPrediction(ctx context.Context, req PredictionRequest) (entity.Prediction, error)
}
