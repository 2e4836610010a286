package service

import (
	"sort"
	"strings"
	"time"

	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/internal/entity"
)

// SentimentTolerance widens the sub-score range the overall score is expected in.
const SentimentTolerance = 0.15

// MergeInput carries one symbol's facet values and failures for one cycle.
// A facet with no value and no recorded error is marked with AbsentKind.
type MergeInput struct {
	Symbol      string
	Source      dto.SnapshotSource
	CapturedAt  time.Time
	Timeframes  []entity.Timeframe
	Quote       *entity.Quote
	News        []entity.NewsItem
	Sentiment   *entity.Sentiment
	Predictions []entity.Prediction

	Errors           map[dto.Facet]*dto.FacetError
	PredictionErrors map[entity.Timeframe]*dto.FacetError
	AbsentKind       dto.FacetErrorKind
}

// Merge builds the snapshot of one symbol. It does no I/O, never mutates its
// input and returns structurally equal snapshots for equal inputs.
func Merge(in MergeInput) dto.SymbolSnapshot {
	absent := in.AbsentKind
	if absent == "" {
		absent = dto.KindMissing
	}

	snap := dto.SymbolSnapshot{
		Symbol:         in.Symbol,
		Source:         in.Source,
		CapturedAt:     in.CapturedAt,
		News:           []entity.NewsItem{},
		Predictions:    []entity.Prediction{},
		PerFacetErrors: make(map[dto.Facet]*dto.FacetError),
	}

	markAbsent := func(facet dto.Facet) {
		if err := in.Errors[facet]; err != nil {
			snap.PerFacetErrors[facet] = err.Clone()
			return
		}
		snap.PerFacetErrors[facet] = &dto.FacetError{Kind: absent}
	}

	if in.Quote != nil {
		q := copyQuote(*in.Quote)
		snap.Quote = &q
	} else {
		markAbsent(dto.FacetQuote)
	}

	for _, item := range in.News {
		if item.Mentions(in.Symbol) {
			snap.News = append(snap.News, copyNewsItem(item))
		}
	}
	sort.SliceStable(snap.News, func(i, j int) bool {
		if !snap.News[i].PublishedAt.Equal(snap.News[j].PublishedAt) {
			return snap.News[i].PublishedAt.After(snap.News[j].PublishedAt)
		}
		return snap.News[i].HashIdentifier < snap.News[j].HashIdentifier
	})
	if err := in.Errors[dto.FacetNews]; err != nil {
		snap.PerFacetErrors[dto.FacetNews] = err.Clone()
	}

	if in.Sentiment != nil {
		s := *in.Sentiment
		snap.Sentiment = &s
		if !SentimentConsistent(s, SentimentTolerance) {
			snap.Anomalies = append(snap.Anomalies, dto.AnomalySentimentOutOfRange)
		}
	} else {
		markAbsent(dto.FacetSentiment)
	}

	mergePredictions(&snap, in, absent)

	return snap
}

// mergePredictions keeps one prediction per requested timeframe in canonical
// order. Missing timeframes are listed on the prediction facet error.
func mergePredictions(snap *dto.SymbolSnapshot, in MergeInput, absent dto.FacetErrorKind) {
	requested := canonicalTimeframes(in.Timeframes)
	if len(requested) == 0 {
		return
	}

	byTimeframe := make(map[entity.Timeframe]entity.Prediction, len(in.Predictions))
	for _, p := range in.Predictions {
		if _, dup := byTimeframe[p.Timeframe]; !dup {
			byTimeframe[p.Timeframe] = p
		}
	}

	var (
		missing  []string
		firstErr *dto.FacetError
	)
	for _, tf := range requested {
		if p, ok := byTimeframe[tf]; ok {
			snap.Predictions = append(snap.Predictions, copyPrediction(p))
			continue
		}
		missing = append(missing, string(tf))
		if firstErr != nil {
			continue
		}
		switch {
		case in.PredictionErrors[tf] != nil:
			firstErr = in.PredictionErrors[tf].Clone()
		case in.Errors[dto.FacetPrediction] != nil:
			firstErr = in.Errors[dto.FacetPrediction].Clone()
		default:
			firstErr = &dto.FacetError{Kind: absent}
		}
	}

	if firstErr == nil {
		return
	}
	if len(missing) < len(requested) {
		firstErr.Timeframe = strings.Join(missing, ",")
	}
	snap.PerFacetErrors[dto.FacetPrediction] = firstErr
}

// SentimentConsistent reports whether overall lies within the range of the
// sub-scores widened by tol. The rule only flags; it never rejects a record.
func SentimentConsistent(s entity.Sentiment, tol float64) bool {
	lo := min(s.Social, s.News, s.Analyst) - tol
	hi := max(s.Social, s.News, s.Analyst) + tol
	return s.Overall >= lo && s.Overall <= hi
}

func canonicalTimeframes(tfs []entity.Timeframe) []entity.Timeframe {
	out := make([]entity.Timeframe, 0, len(tfs))
	for _, known := range entity.Timeframes() {
		for _, tf := range tfs {
			if tf == known {
				out = append(out, known)
				break
			}
		}
	}
	return out
}

func copyQuote(q entity.Quote) entity.Quote {
	if q.MarketTime != nil {
		t := *q.MarketTime
		q.MarketTime = &t
	}
	return q
}

func copyNewsItem(n entity.NewsItem) entity.NewsItem {
	if n.SentimentScore != nil {
		v := *n.SentimentScore
		n.SentimentScore = &v
	}
	if n.Relevance != nil {
		v := *n.Relevance
		n.Relevance = &v
	}
	n.Symbols = append([]entity.NewsSymbol(nil), n.Symbols...)
	return n
}

func copyPrediction(p entity.Prediction) entity.Prediction {
	p.SupportingFactors = append([]string{}, p.SupportingFactors...)
	p.RiskFactors = append([]string{}, p.RiskFactors...)
	return p
}
