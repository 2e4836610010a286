package adapter

import (
	"sort"

	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/internal/entity"
)

// newsCollector dedupes articles by hash and unions the symbols each was found for.
type newsCollector struct {
	order []string
	items map[string]*entity.NewsItem
}

func newNewsCollector() *newsCollector {
	return &newsCollector{items: make(map[string]*entity.NewsItem)}
}

func (c *newsCollector) add(item entity.NewsItem, symbols ...string) {
	existing, ok := c.items[item.HashIdentifier]
	if !ok {
		copied := item
		copied.Symbols = nil
		existing = &copied
		c.items[item.HashIdentifier] = existing
		c.order = append(c.order, item.HashIdentifier)
	} else {
		existing.Relevance = maxScore(existing.Relevance, item.Relevance)
		if existing.SentimentScore == nil {
			existing.SentimentScore = item.SentimentScore
		}
	}
	for _, s := range append(item.SymbolList(), symbols...) {
		if !existing.Mentions(s) {
			existing.Symbols = append(existing.Symbols, entity.NewsSymbol{Symbol: s})
		}
	}
}

// batch returns the collected items newest first.
func (c *newsCollector) batch(failures map[string]*dto.FacetError) NewsBatch {
	items := make([]entity.NewsItem, 0, len(c.order))
	for _, hash := range c.order {
		items = append(items, *c.items[hash])
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	if failures == nil {
		failures = make(map[string]*dto.FacetError)
	}
	return NewsBatch{Items: items, Failures: failures}
}

func maxScore(a, b *float64) *float64 {
	if a == nil {
		return b
	}
	if b == nil || *a >= *b {
		return a
	}
	return b
}
