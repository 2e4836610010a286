package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/internal/aggregator/metrics"
	"golang-market-aggregator/pkg/common"
	"golang-market-aggregator/pkg/logger"
	"golang-market-aggregator/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RefreshDispatcher hands an accepted refresh request off for asynchronous execution.
type RefreshDispatcher interface {
	Dispatch(ctx context.Context, req dto.RefreshRequest) error
}

// Refresher runs a refresh request to completion.
type Refresher interface {
	RefreshRequest(ctx context.Context, req SnapshotRequest, trigger string) error
}

type localDispatcher struct {
	refresher Refresher
	timeout   time.Duration
	logger    *logger.Logger
}

// NewLocalDispatcher runs each refresh on its own goroutine inside this process.
func NewLocalDispatcher(refresher Refresher, timeout time.Duration, log *logger.Logger) RefreshDispatcher {
	return &localDispatcher{refresher: refresher, timeout: timeout, logger: log}
}

func (d *localDispatcher) Dispatch(ctx context.Context, req dto.RefreshRequest) error {
	utils.GoSafe(func() {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		if err := d.refresher.RefreshRequest(runCtx, ToSnapshotRequest(req), metrics.TriggerDispatch); err != nil {
			d.logger.ErrorContext(ctx, "Dispatched refresh failed", logger.ErrorField(err))
		}
	})
	return nil
}

type redisDispatcher struct {
	client *redis.Client
	maxLen int64
	logger *logger.Logger
}

// NewRedisDispatcher enqueues refresh requests on the refresh stream for any
// aggregator instance to consume.
func NewRedisDispatcher(client *redis.Client, maxLen int64, log *logger.Logger) RefreshDispatcher {
	return &redisDispatcher{client: client, maxLen: maxLen, logger: log}
}

func (d *redisDispatcher) Dispatch(ctx context.Context, req dto.RefreshRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal refresh request: %w", err)
	}

	if err := d.client.XAdd(ctx, &redis.XAddArgs{
		Stream: common.RedisStreamSnapshotRefresh,
		Values: map[string]interface{}{"payload": payload},
		MaxLen: d.maxLen,
	}).Err(); err != nil {
		d.logger.ErrorContext(ctx, "Failed to enqueue refresh request", logger.ErrorField(err))
		return fmt.Errorf("failed to enqueue refresh request: %w", err)
	}
	return nil
}

// ToSnapshotRequest converts a refresh body.
func ToSnapshotRequest(req dto.RefreshRequest) SnapshotRequest {
	return SnapshotRequest{Symbols: req.Symbols, Timeframes: req.Timeframes}
}
