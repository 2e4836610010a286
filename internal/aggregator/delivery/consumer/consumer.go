package consumer

import (
	"context"
	"sync"
	"time"

	"golang-market-aggregator/internal/aggregator/config"
	"golang-market-aggregator/pkg/common"
	"golang-market-aggregator/pkg/logger"
	"golang-market-aggregator/pkg/utils"
)

// RedisConsumer runs the stream and retry loops of the refresh stream.
type RedisConsumer struct {
	cfg      *config.Config
	worker   *RefreshWorker
	logger   *logger.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRedisConsumer creates a new RedisConsumer.
func NewRedisConsumer(cfg *config.Config, worker *RefreshWorker, log *logger.Logger) *RedisConsumer {
	return &RedisConsumer{
		cfg:      cfg,
		worker:   worker,
		logger:   log,
		stopChan: make(chan struct{}),
	}
}

// Start begins the consumer's task processing loops.
func (c *RedisConsumer) Start(ctx context.Context) {
	c.logger.Info("Redis consumer started")
	c.RegisterStreamHandler(ctx, c.worker.ProcessTask, common.RedisStreamSnapshotRefresh, c.cfg.Aggregator.RedisStreamRefreshTimeout)

	//handle retry
	c.RegisterTickerHandler(ctx, c.worker.ProcessRetries, c.cfg.Aggregator.RedisStreamRefreshRetryInterval, c.cfg.Aggregator.RedisStreamRefreshTimeout, common.RedisStreamSnapshotRefresh+"-retry")
}

// RegisterStreamHandler calls fn in a loop until ctx is done or Stop is called.
// fn is expected to block for a bounded time when the stream is idle.
func (c *RedisConsumer) RegisterStreamHandler(ctx context.Context, fn func(ctx context.Context), streamName string, timeout time.Duration) {
	c.logger.Info("Registering stream handler", logger.Field("stream", streamName))
	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Redis consumer stopping due to context cancellation")
				return
			case <-c.stopChan:
				c.logger.Info("Redis consumer stopping")
				return
			default:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			}
		}
	})
}

// RegisterTickerHandler calls fn every interval until ctx is done or Stop is called.
func (c *RedisConsumer) RegisterTickerHandler(ctx context.Context, fn func(ctx context.Context), interval time.Duration, timeout time.Duration, name string) {
	c.logger.Info("Registering ticker handler",
		logger.Field("name", name),
		logger.Field("interval", interval),
		logger.Field("timeout", timeout))
	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			case <-ctx.Done():
				c.logger.Info("Ticker handler stopping due to context cancellation", logger.Field("name", name))
				return
			case <-c.stopChan:
				c.logger.Info("Ticker handler stopping", logger.Field("name", name))
				return
			}
		}
	})
}

// Stop gracefully shuts down the consumer, waiting for in-flight work.
func (c *RedisConsumer) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	c.wg.Wait()
	c.logger.Info("Redis consumer stopped")
}
