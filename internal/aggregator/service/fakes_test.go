package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang-market-aggregator/internal/aggregator/adapter"
	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/internal/aggregator/repository"
	"golang-market-aggregator/internal/entity"
)

type fakeQuotes struct {
	prices map[string]float64
	err    error
}

func (f *fakeQuotes) Name() string           { return "fake_quotes" }
func (f *fakeQuotes) Budget() adapter.Budget { return adapter.Budget{MaxConcurrent: 1} }

func (f *fakeQuotes) FetchQuotes(ctx context.Context, symbols []string) (adapter.PerSymbolResult[entity.Quote], error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(adapter.PerSymbolResult[entity.Quote], len(symbols))
	for _, s := range symbols {
		price, ok := f.prices[s]
		if !ok {
			out[s] = adapter.Failed[entity.Quote](&adapter.UpstreamError{Status: 404, Message: "symbol not found"})
			continue
		}
		out[s] = adapter.Result[entity.Quote]{Value: entity.Quote{Symbol: s, Price: price, PreviousClose: price - 1}}
	}
	return out, nil
}

type fakeNews struct {
	items []entity.NewsItem
	err   error
}

func (f *fakeNews) Name() string           { return "fake_news" }
func (f *fakeNews) Budget() adapter.Budget { return adapter.Budget{MaxConcurrent: 1} }

func (f *fakeNews) FetchNews(ctx context.Context, symbols []string) (adapter.NewsBatch, error) {
	if f.err != nil {
		return adapter.NewsBatch{}, f.err
	}
	return adapter.NewsBatch{Items: f.items}, nil
}

// fakeSentiment blocks until the call deadline for every symbol in hang.
// It uses the production budget shape: one call at a time with spacing.
type fakeSentiment struct {
	scores map[string]entity.Sentiment
	hang   map[string]bool
	err    error

	inFlight int32
	peak     int32
}

func (f *fakeSentiment) Name() string { return "fake_sentiment" }
func (f *fakeSentiment) Budget() adapter.Budget {
	return adapter.Budget{MaxConcurrent: 1, MinSpacing: 10 * time.Millisecond}
}

func (f *fakeSentiment) FetchSentiment(ctx context.Context, symbol string) (entity.Sentiment, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}

	if f.hang[symbol] {
		<-ctx.Done()
		return entity.Sentiment{}, ctx.Err()
	}
	if f.err != nil {
		return entity.Sentiment{}, f.err
	}
	s, ok := f.scores[symbol]
	if !ok {
		return entity.Sentiment{}, &adapter.UpstreamError{Status: 502, Message: "no score"}
	}
	return s, nil
}

type fakePredictions struct {
	mu     sync.Mutex
	quotes map[string]*float64
	fail   map[entity.Timeframe]error
}

func (f *fakePredictions) Name() string           { return "fake_predictions" }
func (f *fakePredictions) Budget() adapter.Budget { return adapter.Budget{MaxConcurrent: 1} }

func (f *fakePredictions) FetchPrediction(ctx context.Context, req adapter.PredictionRequest) (entity.Prediction, error) {
	f.mu.Lock()
	if f.quotes == nil {
		f.quotes = make(map[string]*float64)
	}
	if req.Quote != nil {
		price := req.Quote.Price
		f.quotes[req.Symbol] = &price
	} else {
		f.quotes[req.Symbol] = nil
	}
	f.mu.Unlock()

	if err := f.fail[req.Timeframe]; err != nil {
		return entity.Prediction{}, err
	}
	return entity.Prediction{
		PredictedPrice:    100,
		Confidence:        60,
		SupportingFactors: []string{"momentum"},
		RiskFactors:       []string{"macro"},
	}, nil
}

func (f *fakePredictions) quoteFor(symbol string) (*float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotes[symbol]
	return q, ok
}

// countingAggregator returns a minimal live snapshot per symbol and counts calls.
// It also records the deadline of the last cycle context.
type countingAggregator struct {
	mu       sync.Mutex
	calls    int
	seen     [][]string
	deadline time.Time
	bounded  bool
}

func (a *countingAggregator) Aggregate(ctx context.Context, symbols []string, timeframes []entity.Timeframe) map[string]dto.SymbolSnapshot {
	a.mu.Lock()
	a.calls++
	a.seen = append(a.seen, append([]string(nil), symbols...))
	a.deadline, a.bounded = ctx.Deadline()
	a.mu.Unlock()

	out := make(map[string]dto.SymbolSnapshot, len(symbols))
	for _, s := range symbols {
		out[s] = Merge(MergeInput{
			Symbol:     s,
			Source:     dto.SourceLive,
			CapturedAt: time.Now().UTC(),
			Timeframes: timeframes,
			Quote:      &entity.Quote{Symbol: s, Price: 10, CapturedAt: time.Now().UTC()},
		})
	}
	return out
}

func (a *countingAggregator) lastDeadline() (time.Time, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deadline, a.bounded
}

func (a *countingAggregator) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// flakyStore fails the first failures Save calls, or every call when failures < 0.
type flakyStore struct {
	mu        sync.Mutex
	failures  int
	saves     map[string]int
	latestErr error
}

var errWriteFailed = errors.New("write failed")

func (s *flakyStore) Save(ctx context.Context, snap dto.SymbolSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saves == nil {
		s.saves = make(map[string]int)
	}
	s.saves[snap.Symbol]++
	if s.failures < 0 {
		return errWriteFailed
	}
	if s.failures > 0 {
		s.failures--
		return errWriteFailed
	}
	return nil
}

func (s *flakyStore) Latest(ctx context.Context, symbol string, timeframes []entity.Timeframe, newsLimit int) (repository.LatestRecords, error) {
	if s.latestErr != nil {
		return repository.LatestRecords{}, s.latestErr
	}
	return repository.LatestRecords{}, nil
}

func (s *flakyStore) Ping(ctx context.Context) error { return s.latestErr }

func (s *flakyStore) saveCount(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves[symbol]
}

type recordingPublisher struct {
	mu    sync.Mutex
	count int
}

func (p *recordingPublisher) Publish(snapshots map[string]dto.SymbolSnapshot) {
	p.mu.Lock()
	p.count++
	p.mu.Unlock()
}

func (p *recordingPublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}
