package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/internal/aggregator/metrics"
	"golang-market-aggregator/internal/aggregator/service"
	"golang-market-aggregator/pkg/common"
	"golang-market-aggregator/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RefreshWorkerConfig holds the stream retry settings.
type RefreshWorkerConfig struct {
	MaxIdleDuration time.Duration
	MaxRetry        int
	Block           time.Duration
}

// RefreshWorker consumes refresh requests from the refresh stream. A message
// is acknowledged and deleted once its cycle has been persisted; failed
// messages stay pending and are reclaimed by ProcessRetries.
type RefreshWorker struct {
	cfg         RefreshWorkerConfig
	redisClient *redis.Client
	refresher   service.Refresher
	log         *logger.Logger
}

// NewRefreshWorker creates a RefreshWorker.
func NewRefreshWorker(cfg RefreshWorkerConfig, redisClient *redis.Client, refresher service.Refresher, log *logger.Logger) *RefreshWorker {
	if cfg.Block <= 0 {
		cfg.Block = 2 * time.Second
	}
	return &RefreshWorker{cfg: cfg, redisClient: redisClient, refresher: refresher, log: log}
}

// ProcessTask reads and runs at most one new refresh request.
func (w *RefreshWorker) ProcessTask(ctx context.Context) {
	streams, err := w.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer,
		Streams:  []string{common.RedisStreamSnapshotRefresh, ">"},
		Count:    1,
		Block:    w.cfg.Block,
	}).Result()
	if err != nil {
		// Idle periods and shutdown are expected.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
			return
		}
		w.log.Error("Failed to read from stream", logger.ErrorField(err))
		return
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return
	}

	message := streams[0].Messages[0]
	req, ok := w.decode(ctx, message)
	if !ok {
		return
	}

	if err := w.run(ctx, message.ID, req); err != nil {
		return
	}
	w.log.DebugContext(ctx, "Refresh task processed", logger.StringField("message_id", message.ID))
}

// ProcessRetries reclaims one message left pending longer than MaxIdleDuration
// and runs it again, dropping it once it has been delivered MaxRetry times.
func (w *RefreshWorker) ProcessRetries(ctx context.Context) {
	msgs, _, err := w.redisClient.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   common.RedisStreamSnapshotRefresh,
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer + "-retry",
		MinIdle:  w.cfg.MaxIdleDuration,
		Start:    "0",
		Count:    1,
	}).Result()
	if err != nil {
		w.log.Error("Failed to claim refresh task on retry", logger.ErrorField(err))
		return
	}

	if len(msgs) == 0 {
		w.log.Debug("Retry No pending messages found", logger.StringField("stream", common.RedisStreamSnapshotRefresh))
		return
	}

	msg := msgs[0]
	pendingInfo, err := w.redisClient.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: common.RedisStreamSnapshotRefresh,
		Group:  common.RedisStreamGroup,
		Start:  msg.ID,
		End:    msg.ID,
		Count:  1,
	}).Result()
	if err != nil {
		w.log.Error("Failed to get pending info", logger.ErrorField(err))
		return
	}

	if len(pendingInfo) == 0 {
		w.log.Warn("pending msg not found, but exist on xautoclaim",
			logger.StringField("stream", common.RedisStreamSnapshotRefresh),
			logger.StringField("message_id", msg.ID))
		return
	}

	if pendingInfo[0].RetryCount >= int64(w.cfg.MaxRetry) {
		w.log.Error("pending msg retry count exceeded",
			logger.StringField("stream", common.RedisStreamSnapshotRefresh),
			logger.StringField("message_id", msg.ID),
			logger.IntField("retry_count", int(pendingInfo[0].RetryCount)),
			logger.IntField("max_retry", w.cfg.MaxRetry),
		)
		_ = w.AckNDel(ctx, common.RedisStreamSnapshotRefresh, msg.ID)
		return
	}

	req, ok := w.decode(ctx, msg)
	if !ok {
		return
	}
	if err := w.run(ctx, msg.ID, req); err != nil {
		return
	}
	w.log.Info("Retry refresh task processed successfully", logger.StringField("message_id", msg.ID))
}

// decode parses the payload. Undecodable messages are dropped since no retry
// can fix them.
func (w *RefreshWorker) decode(ctx context.Context, message redis.XMessage) (dto.RefreshRequest, bool) {
	var req dto.RefreshRequest
	payload, ok := message.Values["payload"].(string)
	if !ok {
		w.log.Error("field 'payload' not found or not a string in stream message", logger.Field("message_id", message.ID))
		_ = w.AckNDel(ctx, common.RedisStreamSnapshotRefresh, message.ID)
		return req, false
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		w.log.Error("Failed to unmarshal refresh request", logger.ErrorField(err), logger.Field("message_id", message.ID))
		_ = w.AckNDel(ctx, common.RedisStreamSnapshotRefresh, message.ID)
		return req, false
	}
	return req, true
}

func (w *RefreshWorker) run(ctx context.Context, messageID string, req dto.RefreshRequest) error {
	err := w.refresher.RefreshRequest(ctx, service.ToSnapshotRequest(req), metrics.TriggerDispatch)
	switch {
	case err == nil:
	case errors.Is(err, dto.ErrInvalidRequest):
		w.log.Error("Dropping invalid refresh request", logger.ErrorField(err), logger.Field("message_id", messageID))
	default:
		w.log.Error("Failed to refresh snapshots", logger.ErrorField(err), logger.Field("message_id", messageID), logger.StringsField("symbols", req.Symbols))
		return err
	}
	return w.AckNDel(ctx, common.RedisStreamSnapshotRefresh, messageID)
}

// AckNDel acknowledges and deletes a message from the stream.
func (w *RefreshWorker) AckNDel(ctx context.Context, streamName string, messageID string) error {
	if err := w.redisClient.XAck(ctx, streamName, common.RedisStreamGroup, messageID).Err(); err != nil {
		w.log.Error("Failed to acknowledge refresh task", logger.ErrorField(err), logger.Field("message_id", messageID))
		return err
	}
	if err := w.redisClient.XDel(ctx, streamName, messageID).Err(); err != nil {
		w.log.Error("Failed to delete refresh task", logger.ErrorField(err), logger.Field("message_id", messageID))
		return err
	}
	return nil
}
