package http

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/internal/aggregator/metrics"
	"golang-market-aggregator/internal/entity"
	"golang-market-aggregator/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotsFor(symbols ...string) map[string]dto.SymbolSnapshot {
	out := make(map[string]dto.SymbolSnapshot, len(symbols))
	for _, s := range symbols {
		out[s] = dto.SymbolSnapshot{Symbol: s, Source: dto.SourceLive, Quote: &entity.Quote{Symbol: s, Price: 1}}
	}
	return out
}

func dialStream(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/snapshots/stream" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHub_StreamDeliversFilteredFrames(t *testing.T) {
	hub := NewHub(nil, logger.NewNop())
	srv := httptest.NewServer(newTestRouter(&fakeSnapshotService{}, &fakeDispatcher{}, hub))
	t.Cleanup(srv.Close)
	t.Cleanup(hub.Close)

	all := dialStream(t, srv, "")
	msftOnly := dialStream(t, srv, "?symbols=msft")
	require.Eventually(t, func() bool { return hub.Subscribers() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(snapshotsFor("AAPL", "MSFT"))

	var everything StreamMessage
	require.NoError(t, all.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, all.ReadJSON(&everything))
	assert.Len(t, everything.Snapshots, 2)

	var filtered StreamMessage
	require.NoError(t, msftOnly.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, msftOnly.ReadJSON(&filtered))
	require.Len(t, filtered.Snapshots, 1)
	assert.Contains(t, filtered.Snapshots, "MSFT")
	assert.NotContains(t, filtered.Snapshots, "AAPL")
}

func TestHub_RemovesSubscriberOnDisconnect(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	hub := NewHub(rec, logger.NewNop())
	srv := httptest.NewServer(newTestRouter(&fakeSnapshotService{}, &fakeDispatcher{}, hub))
	t.Cleanup(srv.Close)

	conn := dialStream(t, srv, "")
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0.0, gaugeValue(t, reg, "aggregator_feed_subscribers"))
}

func TestHub_PublishDropsForFullBuffer(t *testing.T) {
	hub := NewHub(nil, logger.NewNop())
	sub := &subscriber{send: make(chan []byte, 1)}
	hub.add(sub)

	hub.Publish(snapshotsFor("AAPL"))
	hub.Publish(snapshotsFor("MSFT"))

	require.Len(t, sub.send, 1)
	var msg StreamMessage
	require.NoError(t, json.Unmarshal(<-sub.send, &msg))
	assert.Contains(t, msg.Snapshots, "AAPL")

	hub.remove(sub)
	_, open := <-sub.send
	assert.False(t, open)
}

func TestHub_RejectsMalformedFilter(t *testing.T) {
	hub := NewHub(nil, logger.NewNop())
	e := newTestRouter(&fakeSnapshotService{}, &fakeDispatcher{}, hub)

	rec := doRequest(e, "GET", "/api/v1/snapshots/stream?symbols=bad%20symbol", "")

	assert.Equal(t, 400, rec.Code)
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}
