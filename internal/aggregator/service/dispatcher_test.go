package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/pkg/common"
	"golang-market-aggregator/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refresherFunc func(ctx context.Context, req SnapshotRequest, trigger string) error

func (f refresherFunc) RefreshRequest(ctx context.Context, req SnapshotRequest, trigger string) error {
	return f(ctx, req, trigger)
}

func TestLocalDispatcher_RunsRefreshAfterRequestEnds(t *testing.T) {
	type call struct {
		req      SnapshotRequest
		trigger  string
		deadline bool
	}
	calls := make(chan call, 1)
	d := NewLocalDispatcher(refresherFunc(func(ctx context.Context, req SnapshotRequest, trigger string) error {
		_, hasDeadline := ctx.Deadline()
		calls <- call{req: req, trigger: trigger, deadline: hasDeadline && ctx.Err() == nil}
		return nil
	}), time.Minute, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Dispatch(ctx, dto.RefreshRequest{Symbols: []string{"AAPL"}, Timeframes: []string{"1d"}}))
	cancel()

	select {
	case c := <-calls:
		assert.Equal(t, []string{"AAPL"}, c.req.Symbols)
		assert.Equal(t, []string{"1d"}, c.req.Timeframes)
		assert.Equal(t, "dispatch", c.trigger)
		assert.True(t, c.deadline)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh was not dispatched")
	}
}

func TestRedisDispatcher_EnqueuesPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	d := NewRedisDispatcher(client, 100, logger.NewNop())
	ctx := context.Background()
	require.NoError(t, d.Dispatch(ctx, dto.RefreshRequest{Symbols: []string{"AAPL", "MSFT"}}))

	msgs, err := client.XRange(ctx, common.RedisStreamSnapshotRefresh, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	raw, ok := msgs[0].Values["payload"].(string)
	require.True(t, ok)
	var got dto.RefreshRequest
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, []string{"AAPL", "MSFT"}, got.Symbols)
	assert.Nil(t, got.Timeframes)
}

func TestRedisDispatcher_ReportsEnqueueFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	d := NewRedisDispatcher(client, 100, logger.NewNop())
	err := d.Dispatch(context.Background(), dto.RefreshRequest{Symbols: []string{"AAPL"}})
	assert.Error(t, err)
}
