package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang-market-aggregator/internal/aggregator/config"
	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRESTSentimentAdapter_FetchSentiment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("X-API-Key"))
		switch r.URL.Path {
		case "/sentiment/AAPL":
			_, _ = w.Write([]byte(`{"symbol":"AAPL","overall":0.4,"social":0.3,"news":0.5,"analyst":0.45}`))
		case "/sentiment/EMPTY":
			_, _ = w.Write([]byte(`{"symbol":"EMPTY"}`))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
	t.Cleanup(srv.Close)

	a := NewRESTSentimentAdapter(config.Sentiment{BaseURL: srv.URL, APIKey: "key"}, logger.NewNop())

	s, err := a.FetchSentiment(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", s.Symbol)
	assert.Equal(t, 0.4, s.Overall)
	assert.Equal(t, 0.45, s.Analyst)

	_, err = a.FetchSentiment(context.Background(), "EMPTY")
	require.Error(t, err)
	assert.Equal(t, dto.KindUpstreamError, Classify(err).Kind)

	_, err = a.FetchSentiment(context.Background(), "MSFT")
	require.Error(t, err)
	assert.Equal(t, dto.KindUpstreamRateLimited, Classify(err).Kind)
}

func TestRESTSentimentAdapter_Unconfigured(t *testing.T) {
	a := NewRESTSentimentAdapter(config.Sentiment{}, logger.NewNop())

	_, err := a.FetchSentiment(context.Background(), "AAPL")

	assert.ErrorIs(t, err, ErrAdapterUnavailable)
}
