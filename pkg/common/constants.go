package common

const (
	RedisStreamSnapshotRefresh = "market.snapshot.refresh"

	RedisStreamGroup    = "aggregator-group"
	RedisStreamConsumer = "aggregator-consumer"
)
