package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"golang-market-aggregator/internal/aggregator/adapter"
	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/internal/entity"
	"golang-market-aggregator/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOrchestratorConfig = OrchestratorConfig{
	BatchTimeout:  time.Second,
	SingleTimeout: 100 * time.Millisecond,
}

func healthySources() (Sources, *fakePredictions) {
	preds := &fakePredictions{}
	return Sources{
		Quotes: &fakeQuotes{prices: map[string]float64{"AAPL": 190, "MSFT": 410}},
		News: &fakeNews{items: []entity.NewsItem{
			newsItem("h1", mergeAt, "AAPL"),
			newsItem("h2", mergeAt.Add(-time.Minute), "AAPL", "MSFT"),
		}},
		Sentiment: &fakeSentiment{scores: map[string]entity.Sentiment{
			"AAPL": {Overall: 0.3, Social: 0.2, News: 0.4, Analyst: 0.3},
			"MSFT": {Overall: 0.1, Social: 0.0, News: 0.2, Analyst: 0.1},
		}},
		Predictions: preds,
	}, preds
}

func TestOrchestrator_AggregateAllFacets(t *testing.T) {
	sources, preds := healthySources()
	o := NewOrchestrator(testOrchestratorConfig, sources, nil, logger.NewNop())

	got := o.Aggregate(context.Background(), []string{"AAPL", "MSFT"}, []entity.Timeframe{entity.Timeframe1D, entity.Timeframe1W})

	require.Len(t, got, 2)
	aapl := got["AAPL"]
	assert.Empty(t, aapl.PerFacetErrors)
	require.NotNil(t, aapl.Quote)
	assert.Equal(t, 190.0, aapl.Quote.Price)
	assert.Equal(t, "AAPL", aapl.Quote.Symbol)
	assert.Len(t, aapl.News, 2)
	require.Len(t, aapl.Predictions, 2)
	assert.Equal(t, "AAPL", aapl.Predictions[0].Symbol)
	assert.Equal(t, aapl.CapturedAt, aapl.Predictions[0].CapturedAt)
	assert.Equal(t, aapl.CapturedAt, aapl.Quote.CapturedAt)

	msft := got["MSFT"]
	assert.Len(t, msft.News, 1)
	assert.Equal(t, "h2", msft.News[0].HashIdentifier)

	price, ok := preds.quoteFor("MSFT")
	require.True(t, ok)
	require.NotNil(t, price)
	assert.Equal(t, 410.0, *price)
}

func TestOrchestrator_SlowSentimentOnlyAffectsItsSymbol(t *testing.T) {
	sources, _ := healthySources()
	sources.Sentiment = &fakeSentiment{
		scores: map[string]entity.Sentiment{"AAPL": {Overall: 0.3, Social: 0.2, News: 0.4, Analyst: 0.3}},
		hang:   map[string]bool{"MSFT": true},
	}
	o := NewOrchestrator(testOrchestratorConfig, sources, nil, logger.NewNop())

	sentiment := sources.Sentiment.(*fakeSentiment)

	// MSFT goes first so AAPL has to wait behind the slow call.
	start := time.Now()
	got := o.Aggregate(context.Background(), []string{"MSFT", "AAPL"}, []entity.Timeframe{entity.Timeframe1D})
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&sentiment.peak))

	aapl := got["AAPL"]
	assert.Empty(t, aapl.PerFacetErrors)
	require.NotNil(t, aapl.Sentiment)

	msft := got["MSFT"]
	require.Contains(t, msft.PerFacetErrors, dto.FacetSentiment)
	assert.Equal(t, dto.KindUpstreamTimeout, msft.PerFacetErrors[dto.FacetSentiment].Kind)
	assert.Nil(t, msft.Sentiment)
	require.NotNil(t, msft.Quote)
	assert.Equal(t, 410.0, msft.Quote.Price)
	assert.Len(t, msft.Predictions, 1)
}

func TestOrchestrator_EveryAdapterFailingStillReturnsEverySymbol(t *testing.T) {
	boom := errors.New("connection refused")
	sources := Sources{
		Quotes:      &fakeQuotes{err: &adapter.UpstreamError{Status: 503, Message: "unavailable"}},
		News:        &fakeNews{err: adapter.ErrRateLimited},
		Sentiment:   &fakeSentiment{err: boom},
		Predictions: &fakePredictions{fail: map[entity.Timeframe]error{entity.Timeframe1D: boom}},
	}
	o := NewOrchestrator(testOrchestratorConfig, sources, nil, logger.NewNop())

	symbols := []string{"AAPL", "MSFT", "GOOGL"}
	got := o.Aggregate(context.Background(), symbols, []entity.Timeframe{entity.Timeframe1D})

	require.Len(t, got, len(symbols))
	for _, s := range symbols {
		snap, ok := got[s]
		require.True(t, ok, s)
		assert.Equal(t, s, snap.Symbol)
		assert.Equal(t, dto.SourceLive, snap.Source)
		assert.Equal(t, dto.KindUpstreamError, snap.PerFacetErrors[dto.FacetQuote].Kind)
		assert.Equal(t, 503, snap.PerFacetErrors[dto.FacetQuote].Status)
		assert.Equal(t, dto.KindUpstreamRateLimited, snap.PerFacetErrors[dto.FacetNews].Kind)
		assert.Equal(t, dto.KindUpstreamError, snap.PerFacetErrors[dto.FacetSentiment].Kind)
		assert.Equal(t, dto.KindUpstreamError, snap.PerFacetErrors[dto.FacetPrediction].Kind)
		assert.Empty(t, snap.News)
		assert.Empty(t, snap.Predictions)
	}
}

func TestOrchestrator_MissingSourcesAreUnavailable(t *testing.T) {
	o := NewOrchestrator(testOrchestratorConfig, Sources{}, nil, logger.NewNop())

	got := o.Aggregate(context.Background(), []string{"AAPL"}, []entity.Timeframe{entity.Timeframe1D})

	snap := got["AAPL"]
	for _, facet := range dto.Facets() {
		require.Contains(t, snap.PerFacetErrors, facet)
		assert.Equal(t, dto.KindAdapterUnavailable, snap.PerFacetErrors[facet].Kind, facet)
	}
}

func TestOrchestrator_SymbolMissingFromQuoteBatch(t *testing.T) {
	sources, preds := healthySources()
	o := NewOrchestrator(testOrchestratorConfig, sources, nil, logger.NewNop())

	got := o.Aggregate(context.Background(), []string{"AAPL", "ZZZZ"}, []entity.Timeframe{entity.Timeframe1D})

	zzzz := got["ZZZZ"]
	require.Contains(t, zzzz.PerFacetErrors, dto.FacetQuote)
	assert.Equal(t, 404, zzzz.PerFacetErrors[dto.FacetQuote].Status)
	assert.NotNil(t, got["AAPL"].Quote)

	price, ok := preds.quoteFor("ZZZZ")
	require.True(t, ok)
	assert.Nil(t, price)
}

func TestOrchestrator_CanceledContext(t *testing.T) {
	sources, _ := healthySources()
	o := NewOrchestrator(testOrchestratorConfig, sources, nil, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := o.Aggregate(ctx, []string{"AAPL", "MSFT"}, []entity.Timeframe{entity.Timeframe1D})

	require.Len(t, got, 2)
	for _, snap := range got {
		assert.Nil(t, snap.Quote)
		assert.Equal(t, dto.KindUpstreamTimeout, snap.PerFacetErrors[dto.FacetQuote].Kind)
		assert.Equal(t, dto.KindUpstreamTimeout, snap.PerFacetErrors[dto.FacetSentiment].Kind)
	}
}
