package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erp/backoffice/internal/domain/setting"
)

// RedisSettingCache implements setting.Cache using Redis
type RedisSettingCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// RedisSettingCacheOption is a functional option for configuring the cache
type RedisSettingCacheOption func(*RedisSettingCache)

// WithRedisLogger sets the logger for the cache
func WithRedisLogger(logger *zap.Logger) RedisSettingCacheOption {
	return func(c *RedisSettingCache) {
		c.logger = logger
	}
}

// NewRedisSettingCache creates a cache over an existing Redis client.
// The caller retains ownership of the client. A non-positive ttl stores
// entries without expiry.
func NewRedisSettingCache(client *redis.Client, ttl time.Duration, opts ...RedisSettingCacheOption) *RedisSettingCache {
	c := &RedisSettingCache{
		client: client,
		ttl:    max(ttl, 0),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached settings, or nil on a miss
func (c *RedisSettingCache) Get(ctx context.Context, businessID uuid.UUID) ([]setting.Setting, error) {
	key := SettingsKey(businessID)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("Cache miss for configurations", zap.String("key", key))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get configurations from cache: %w", err)
	}

	settings, err := decodeSettings(data)
	if err != nil {
		// A corrupt entry behaves as a miss and is dropped
		c.logger.Warn("Discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, key).Err()
		return nil, nil
	}
	return settings, nil
}

// Set stores the settings of a business
func (c *RedisSettingCache) Set(ctx context.Context, businessID uuid.UUID, settings []setting.Setting) error {
	data, err := encodeSettings(settings)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, SettingsKey(businessID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set configurations in cache: %w", err)
	}
	return nil
}

// Delete removes the cached settings of a business
func (c *RedisSettingCache) Delete(ctx context.Context, businessID uuid.UUID) error {
	if err := c.client.Del(ctx, SettingsKey(businessID)).Err(); err != nil {
		return fmt.Errorf("failed to delete configurations from cache: %w", err)
	}
	return nil
}

// Close is a no-op; the Redis client belongs to the caller
func (c *RedisSettingCache) Close() error {
	return nil
}

// Ensure RedisSettingCache implements setting.Cache
var _ setting.Cache = (*RedisSettingCache)(nil)
