package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erp/backoffice/internal/domain/realtime"
)

// RedisNotifier publishes notifications on a Redis Pub/Sub channel so that
// every instance can relay them to its own room subscribers.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisNotifier creates a notifier. The caller owns the client.
func NewRedisNotifier(client *redis.Client, channel string, logger *zap.Logger) *RedisNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisNotifier{client: client, channel: channel, logger: logger}
}

// Emit publishes n
func (p *RedisNotifier) Emit(ctx context.Context, n realtime.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	receivers, err := p.client.Publish(ctx, p.channel, data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	p.logger.Debug("Notification published",
		zap.String("channel", p.channel),
		zap.String("room", n.Room),
		zap.String("event", n.Event),
		zap.Int64("receivers", receivers),
	)
	return nil
}

// Relay forwards notifications from a Redis channel to a local notifier
type Relay struct {
	client  *redis.Client
	channel string
	target  realtime.Notifier
	logger  *zap.Logger
}

// NewRelay creates a relay
func NewRelay(client *redis.Client, channel string, target realtime.Notifier, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{client: client, channel: channel, target: target, logger: logger}
}

// Run subscribes and forwards until ctx is cancelled. The ready channel,
// when not nil, is closed once the subscription is confirmed.
func (r *Relay) Run(ctx context.Context, ready chan<- struct{}) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	if ready != nil {
		close(ready)
	}
	r.logger.Info("Notification relay subscribed", zap.String("channel", r.channel))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var n realtime.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				r.logger.Warn("Ignoring undecodable notification", zap.Error(err))
				continue
			}
			if err := r.target.Emit(ctx, n); err != nil {
				r.logger.Warn("Failed to relay notification", zap.String("room", n.Room), zap.Error(err))
			}
		}
	}
}

// Ensure RedisNotifier implements realtime.Notifier
var _ realtime.Notifier = (*RedisNotifier)(nil)
