package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cbasnet001/order-matching-system/internal/engine"
)

// RedisPublisher publishes book deltas and trades to Redis Pub/Sub channels,
// the broker alanyoungcy-polymarketbot brings into this pack.
type RedisPublisher struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisPublisher(client *redis.Client, logger *zap.Logger) *RedisPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{client: client, logger: logger}
}

func bookChannel(symbol string) string   { return "book." + symbol }
func tradesChannel(symbol string) string { return "trades." + symbol }

// Publish fans out every event in the batch to its symbol's book/trades
// channel. A failed event is logged and skipped, the rest of the batch is
// still published, and the first error is returned; the engine only logs
// that error, since per spec §5 the commit to the durability sink — not the
// broadcast — is what gates the caller's acknowledgement.
func (p *RedisPublisher) Publish(ctx context.Context, symbol string, events []engine.Event) error {
	var firstErr error
	for _, ev := range events {
		var channel string
		switch ev.Kind {
		case engine.EventTrade:
			channel = tradesChannel(symbol)
		default:
			channel = bookChannel(symbol)
		}

		payload, err := json.Marshal(ev)
		if err != nil {
			p.logger.Warn("marshal event for publish failed", zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("marshal event: %w", err)
			}
			continue
		}
		if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
			p.logger.Warn("publish to redis failed", zap.String("channel", channel), zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("publish to %s: %w", channel, err)
			}
		}
	}
	return firstErr
}
