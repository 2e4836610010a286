package service

import (
	"context"
	"sync"
	"time"

	"golang-market-aggregator/internal/aggregator/adapter"
	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/internal/aggregator/metrics"
	"golang-market-aggregator/internal/entity"
	"golang-market-aggregator/pkg/logger"
	"golang-market-aggregator/pkg/utils"
)

// Sources groups the upstream adapters. A nil source makes its facet
// unavailable for every symbol.
type Sources struct {
	Quotes      adapter.QuoteSource
	News        adapter.NewsSource
	Sentiment   adapter.SentimentSource
	Predictions adapter.PredictionSource
}

// OrchestratorConfig holds the cycle timeouts.
type OrchestratorConfig struct {
	// BatchTimeout bounds each batched quote and news call.
	BatchTimeout time.Duration
	// SingleTimeout bounds each per-symbol sentiment and prediction call.
	SingleTimeout time.Duration
}

// Aggregator runs aggregation cycles.
type Aggregator interface {
	Aggregate(ctx context.Context, symbols []string, timeframes []entity.Timeframe) map[string]dto.SymbolSnapshot
}

// Orchestrator fans adapter calls out under their budgets and merges the results.
// Gates are shared by every cycle so concurrent cycles stay within one budget.
type Orchestrator struct {
	sources        Sources
	quoteGate      *adapter.Gate
	newsGate       *adapter.Gate
	sentimentGate  *adapter.Gate
	predictionGate *adapter.Gate
	metrics        *metrics.Recorder
	logger         *logger.Logger
	now            func() time.Time
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(cfg OrchestratorConfig, sources Sources, rec *metrics.Recorder, log *logger.Logger) *Orchestrator {
	o := &Orchestrator{
		sources: sources,
		metrics: rec,
		logger:  log,
		now:     utils.TimeNowUTC,
	}
	if sources.Quotes != nil {
		o.quoteGate = gateFor(sources.Quotes.Budget(), cfg.BatchTimeout)
	}
	if sources.News != nil {
		o.newsGate = gateFor(sources.News.Budget(), cfg.BatchTimeout)
	}
	if sources.Sentiment != nil {
		o.sentimentGate = gateFor(sources.Sentiment.Budget(), cfg.SingleTimeout)
	}
	if sources.Predictions != nil {
		o.predictionGate = gateFor(sources.Predictions.Budget(), cfg.SingleTimeout)
	}
	return o
}

func gateFor(b adapter.Budget, timeout time.Duration) *adapter.Gate {
	b.Timeout = timeout
	return adapter.NewGate(b)
}

type predictionKey struct {
	Symbol    string
	Timeframe entity.Timeframe
}

// cycle is the state of one Aggregate call. Nothing in it outlives the call.
type cycle struct {
	symbols    []string
	timeframes []entity.Timeframe
	capturedAt time.Time

	quotes     adapter.PerSymbolResult[entity.Quote]
	quoteErr   *dto.FacetError
	news       adapter.NewsBatch
	newsErr    *dto.FacetError
	sentiments map[string]adapter.Result[entity.Sentiment]
	sentErr    *dto.FacetError
	preds      map[predictionKey]adapter.Result[entity.Prediction]
	predErr    *dto.FacetError
}

// Aggregate runs one cycle for symbols and returns a snapshot for every one of
// them, however many facets failed.
func (o *Orchestrator) Aggregate(ctx context.Context, symbols []string, timeframes []entity.Timeframe) map[string]dto.SymbolSnapshot {
	c := &cycle{
		symbols:    symbols,
		timeframes: timeframes,
		capturedAt: o.now(),
	}

	var wg sync.WaitGroup
	wg.Add(2)
	utils.GoSafe(func() {
		defer wg.Done()
		c.quotes, c.quoteErr = o.fetchQuotes(ctx, symbols)
	})
	utils.GoSafe(func() {
		defer wg.Done()
		c.news, c.newsErr = o.fetchNews(ctx, symbols)
	})
	wg.Wait()

	wg.Add(2)
	utils.GoSafe(func() {
		defer wg.Done()
		c.sentiments, c.sentErr = o.fetchSentiments(ctx, symbols)
	})
	utils.GoSafe(func() {
		defer wg.Done()
		c.preds, c.predErr = o.fetchPredictions(ctx, symbols, timeframes, c.quotes)
	})
	wg.Wait()

	snapshots := make(map[string]dto.SymbolSnapshot, len(symbols))
	for _, symbol := range symbols {
		snap := Merge(c.mergeInput(symbol))
		o.observe(ctx, snap)
		snapshots[symbol] = snap
	}
	return snapshots
}

func (o *Orchestrator) fetchQuotes(ctx context.Context, symbols []string) (adapter.PerSymbolResult[entity.Quote], *dto.FacetError) {
	if o.sources.Quotes == nil {
		return nil, dto.NewFacetError(dto.KindAdapterUnavailable, "no quote source configured")
	}
	start := time.Now()
	res, err := adapter.Call(ctx, o.quoteGate, func(ctx context.Context) (adapter.PerSymbolResult[entity.Quote], error) {
		return o.sources.Quotes.FetchQuotes(ctx, symbols)
	})
	o.recordCall(dto.FacetQuote, o.sources.Quotes.Name(), err, time.Since(start))
	if err != nil {
		return nil, adapter.Classify(err)
	}
	return res, nil
}

func (o *Orchestrator) fetchNews(ctx context.Context, symbols []string) (adapter.NewsBatch, *dto.FacetError) {
	if o.sources.News == nil {
		return adapter.NewsBatch{}, dto.NewFacetError(dto.KindAdapterUnavailable, "no news source configured")
	}
	start := time.Now()
	batch, err := adapter.Call(ctx, o.newsGate, func(ctx context.Context) (adapter.NewsBatch, error) {
		return o.sources.News.FetchNews(ctx, symbols)
	})
	o.recordCall(dto.FacetNews, o.sources.News.Name(), err, time.Since(start))
	if err != nil {
		return adapter.NewsBatch{}, adapter.Classify(err)
	}
	return batch, nil
}

func (o *Orchestrator) fetchSentiments(ctx context.Context, symbols []string) (map[string]adapter.Result[entity.Sentiment], *dto.FacetError) {
	if o.sources.Sentiment == nil {
		return nil, dto.NewFacetError(dto.KindAdapterUnavailable, "no sentiment source configured")
	}
	name := o.sources.Sentiment.Name()
	results, err := adapter.RunEach(ctx, o.sentimentGate, symbols, func(ctx context.Context, symbol string) (entity.Sentiment, error) {
		start := time.Now()
		s, err := o.sources.Sentiment.FetchSentiment(ctx, symbol)
		o.recordCall(dto.FacetSentiment, name, err, time.Since(start))
		return s, err
	})
	if err != nil {
		return nil, adapter.Classify(err)
	}
	return results, nil
}

func (o *Orchestrator) fetchPredictions(ctx context.Context, symbols []string, timeframes []entity.Timeframe, quotes adapter.PerSymbolResult[entity.Quote]) (map[predictionKey]adapter.Result[entity.Prediction], *dto.FacetError) {
	if len(timeframes) == 0 {
		return nil, nil
	}
	if o.sources.Predictions == nil {
		return nil, dto.NewFacetError(dto.KindAdapterUnavailable, "no prediction source configured")
	}

	keys := make([]predictionKey, 0, len(symbols)*len(timeframes))
	for _, symbol := range symbols {
		for _, tf := range timeframes {
			keys = append(keys, predictionKey{Symbol: symbol, Timeframe: tf})
		}
	}

	name := o.sources.Predictions.Name()
	results, err := adapter.RunEach(ctx, o.predictionGate, keys, func(ctx context.Context, key predictionKey) (entity.Prediction, error) {
		req := adapter.PredictionRequest{Symbol: key.Symbol, Timeframe: key.Timeframe}
		if q, ok := quotes[key.Symbol]; ok && q.OK() {
			quote := q.Value
			req.Quote = &quote
		}
		start := time.Now()
		p, err := o.sources.Predictions.FetchPrediction(ctx, req)
		o.recordCall(dto.FacetPrediction, name, err, time.Since(start))
		return p, err
	})
	if err != nil {
		return nil, adapter.Classify(err)
	}
	return results, nil
}

// mergeInput gathers everything the cycle learned about symbol and stamps the
// cycle's capture instant on every record.
func (c *cycle) mergeInput(symbol string) MergeInput {
	in := MergeInput{
		Symbol:           symbol,
		Source:           dto.SourceLive,
		CapturedAt:       c.capturedAt,
		Timeframes:       c.timeframes,
		News:             c.news.Items,
		Errors:           make(map[dto.Facet]*dto.FacetError),
		PredictionErrors: make(map[entity.Timeframe]*dto.FacetError),
		AbsentKind:       dto.KindMissing,
	}

	switch {
	case c.quoteErr != nil:
		in.Errors[dto.FacetQuote] = c.quoteErr
	default:
		if res, ok := c.quotes[symbol]; ok {
			if res.OK() {
				q := res.Value
				q.Symbol = symbol
				q.CapturedAt = c.capturedAt
				in.Quote = &q
			} else {
				in.Errors[dto.FacetQuote] = res.Err
			}
		}
	}

	switch {
	case c.newsErr != nil:
		in.Errors[dto.FacetNews] = c.newsErr
	case c.news.Failures[symbol] != nil:
		in.Errors[dto.FacetNews] = c.news.Failures[symbol]
	}

	switch {
	case c.sentErr != nil:
		in.Errors[dto.FacetSentiment] = c.sentErr
	default:
		if res, ok := c.sentiments[symbol]; ok {
			if res.OK() {
				s := res.Value
				s.Symbol = symbol
				s.CapturedAt = c.capturedAt
				in.Sentiment = &s
			} else {
				in.Errors[dto.FacetSentiment] = res.Err
			}
		}
	}

	if c.predErr != nil {
		in.Errors[dto.FacetPrediction] = c.predErr
		return in
	}
	for _, tf := range c.timeframes {
		res, ok := c.preds[predictionKey{Symbol: symbol, Timeframe: tf}]
		if !ok {
			continue
		}
		if !res.OK() {
			in.PredictionErrors[tf] = res.Err
			continue
		}
		p := res.Value
		p.Symbol = symbol
		p.Timeframe = tf
		p.CapturedAt = c.capturedAt
		in.Predictions = append(in.Predictions, p)
	}
	return in
}

func (o *Orchestrator) recordCall(facet dto.Facet, name string, err error, d time.Duration) {
	outcome := "ok"
	if fe := adapter.Classify(err); fe != nil {
		outcome = string(fe.Kind)
	}
	o.metrics.RecordAdapterCall(string(facet), name, outcome, d)
}

func (o *Orchestrator) observe(ctx context.Context, snap dto.SymbolSnapshot) {
	for _, facet := range dto.Facets() {
		fe, ok := snap.PerFacetErrors[facet]
		if !ok {
			continue
		}
		o.metrics.RecordFacetFailure(string(facet), string(fe.Kind))
		o.logger.WarnContext(ctx, "Facet unavailable",
			logger.StringField("symbol", snap.Symbol),
			logger.StringField("facet", string(facet)),
			logger.StringField("kind", string(fe.Kind)),
			logger.IntField("status", fe.Status),
			logger.StringField("message", fe.Message),
		)
	}
	for _, anomaly := range snap.Anomalies {
		o.metrics.RecordAnomaly(anomaly)
		o.logger.WarnContext(ctx, "Snapshot anomaly", logger.StringField("symbol", snap.Symbol), logger.StringField("anomaly", anomaly))
	}
}
