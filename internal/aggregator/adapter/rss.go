package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang-market-aggregator/internal/aggregator/config"
	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/internal/entity"
	"golang-market-aggregator/pkg/logger"
	"golang-market-aggregator/pkg/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/patrickmn/go-cache"
)

// RSSNewsAdapter reads per-symbol headline feeds. Feeds carry no sentiment or
// relevance, so both stay empty on the items it returns.
type RSSNewsAdapter struct {
	cfg     config.RSS
	parser  *gofeed.Parser
	cache   *cache.Cache
	symbols *Gate
	logger  *logger.Logger
}

// NewRSSNewsAdapter creates an RSSNewsAdapter.
func NewRSSNewsAdapter(cfg config.RSS, log *logger.Logger) *RSSNewsAdapter {
	parser := gofeed.NewParser()
	parser.UserAgent = defaultUserAgent
	return &RSSNewsAdapter{
		cfg:     cfg,
		parser:  parser,
		cache:   cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		symbols: NewGate(Budget{MaxConcurrent: cfg.Budget.MaxConcurrent, MinSpacing: cfg.Budget.MinSpacing}),
		logger:  log,
	}
}

func (a *RSSNewsAdapter) Name() string {
	return "rss"
}

func (a *RSSNewsAdapter) Budget() Budget {
	return Budget{MaxConcurrent: 1}
}

// FetchNews reads the feed of every symbol, serving recent feeds from cache.
func (a *RSSNewsAdapter) FetchNews(ctx context.Context, symbols []string) (NewsBatch, error) {
	if a.cfg.FeedURL == "" {
		return NewsBatch{}, fmt.Errorf("%w: rss feed url is not configured", ErrAdapterUnavailable)
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

func (a *RSSNewsAdapter) fetchSymbol(ctx context.Context, symbol string) ([]entity.NewsItem, error) {
	if cached, ok := a.cache.Get(symbol); ok {
		return cached.([]entity.NewsItem), nil
	}

	feedURL := fmt.Sprintf(a.cfg.FeedURL, url.QueryEscape(symbol))
	feed, err := a.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		a.logger.Warn("Failed to parse RSS feed", logger.ErrorField(err), logger.StringField("url", feedURL))
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return nil, &UpstreamError{Status: httpErr.StatusCode, Message: httpErr.Status}
		}
		return nil, err
	}

	sort.SliceStable(feed.Items, func(i, j int) bool {
		if feed.Items[i].PublishedParsed == nil || feed.Items[j].PublishedParsed == nil {
			return false
		}
		return feed.Items[i].PublishedParsed.After(*feed.Items[j].PublishedParsed)
	})

	now := utils.TimeNowUTC()
	items := make([]entity.NewsItem, 0, len(feed.Items))
	for _, fi := range feed.Items {
		if a.cfg.MaxItems > 0 && len(items) >= a.cfg.MaxItems {
			break
		}
		if fi.Link == "" || fi.Title == "" {
			continue
		}
		publishedAt := now
		if fi.PublishedParsed != nil {
			publishedAt = fi.PublishedParsed.UTC().Truncate(time.Second)
		}
		source := feed.Title
		if fi.Author != nil && fi.Author.Name != "" {
			source = fi.Author.Name
		}
		items = append(items, entity.NewsItem{
			HashIdentifier: entity.NewsHash(fi.Link, publishedAt),
			Headline:       plainText(fi.Title),
			Summary:        plainText(fi.Description),
			Source:         source,
			URL:            fi.Link,
			PublishedAt:    publishedAt,
			FetchedAt:      now,
			Symbols:        []entity.NewsSymbol{{Symbol: symbol}},
		})
	}

	a.cache.SetDefault(symbol, items)
	return items, nil
}

// plainText strips markup from feed fields.
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
