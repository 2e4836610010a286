package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang-market-aggregator/internal/aggregator/config"
	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/internal/entity"
	"golang-market-aggregator/pkg/logger"
)

// RESTSentimentAdapter reads aggregated sentiment scores from a per-symbol
// REST endpoint: GET {base_url}/sentiment/{symbol}.
type RESTSentimentAdapter struct {
	cfg    config.Sentiment
	client *http.Client
	logger *logger.Logger
}

// NewRESTSentimentAdapter creates a RESTSentimentAdapter.
func NewRESTSentimentAdapter(cfg config.Sentiment, log *logger.Logger) *RESTSentimentAdapter {
	return &RESTSentimentAdapter{cfg: cfg, client: newHTTPClient(), logger: log}
}

func (a *RESTSentimentAdapter) Name() string {
	return "sentiment_api"
}

func (a *RESTSentimentAdapter) Budget() Budget {
	return Budget{MaxConcurrent: a.cfg.Budget.MaxConcurrent, MinSpacing: a.cfg.Budget.MinSpacing}
}

func (a *RESTSentimentAdapter) FetchSentiment(ctx context.Context, symbol string) (entity.Sentiment, error) {
	if a.cfg.BaseURL == "" || a.cfg.APIKey == "" {
		return entity.Sentiment{}, fmt.Errorf("%w: sentiment endpoint or api key is not configured", ErrAdapterUnavailable)
	}

	endpoint := fmt.Sprintf("%s/sentiment/%s", strings.TrimRight(a.cfg.BaseURL, "/"), url.PathEscape(symbol))
	headers := map[string]string{"X-API-Key": a.cfg.APIKey}

	var resp dto.SentimentAPIResponse
	if err := getJSON(ctx, a.client, endpoint, headers, &resp); err != nil {
		a.logger.Warn("Failed to fetch sentiment", logger.ErrorField(err), logger.StringField("symbol", symbol))
		return entity.Sentiment{}, err
	}
	if resp.Overall == nil {
		return entity.Sentiment{}, &UpstreamError{Status: http.StatusBadGateway, Message: "response has no overall score"}
	}

	return entity.Sentiment{
		Symbol:  symbol,
		Overall: *resp.Overall,
		Social:  resp.Social,
		News:    resp.News,
		Analyst: resp.Analyst,
	}, nil
}
