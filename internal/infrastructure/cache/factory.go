package cache

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/erp/backoffice/internal/infrastructure/config"
)

// SettingCache is a setting.Cache that holds resources until closed
type SettingCache interface {
	setting.Cache
	Close() error
}

// ErrRedisRequired is returned when Redis is unavailable and fallback is disabled
var ErrRedisRequired = errors.New("redis required for configuration cache but unavailable")

// SettingCacheFactory creates configuration caches based on configuration
type SettingCacheFactory struct {
	cfg                   config.CacheConfig
	client                *redis.Client
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// SettingCacheFactoryOption is a functional option for configuring the factory
type SettingCacheFactoryOption func(*SettingCacheFactory)

// WithRedisClient sets the Redis client; a nil client selects the in-memory cache
func WithRedisClient(client *redis.Client) SettingCacheFactoryOption {
	return func(f *SettingCacheFactory) {
		f.client = client
	}
}

// WithLogger sets the logger for the factory and the caches it creates
func WithLogger(logger *zap.Logger) SettingCacheFactoryOption {
	return func(f *SettingCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache
// when no Redis client is available. Default is true.
func WithInMemoryFallback(allow bool) SettingCacheFactoryOption {
	return func(f *SettingCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSettingCacheFactory creates a new factory
func NewSettingCacheFactory(cfg config.CacheConfig, opts ...SettingCacheFactoryOption) *SettingCacheFactory {
	f := &SettingCacheFactory{
		cfg:                   cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateCache returns a Redis cache when a client is configured and
// otherwise an in-memory cache, if fallback is allowed.
func (f *SettingCacheFactory) CreateCache() (SettingCache, error) {
	if f.client != nil {
		f.logger.Info("using Redis configuration cache", zap.Duration("ttl", f.cfg.TTL))
		return NewRedisSettingCache(f.client, f.cfg.TTL, WithRedisLogger(f.logger)), nil
	}
	if !f.allowInMemoryFallback {
		return nil, ErrRedisRequired
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory configuration cache. " +
		"Instances will not share invalidations in distributed deployments.")
	return NewMemorySettingCache(f.cfg.TTL, f.cfg.Capacity), nil
}
