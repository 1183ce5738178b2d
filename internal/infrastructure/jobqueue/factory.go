package jobqueue

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erp/backoffice/internal/domain/job"
	"github.com/erp/backoffice/internal/infrastructure/config"
)

// Backend is a job queue with a worker lifecycle
type Backend interface {
	job.Queue
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// New returns a Redis backed queue when client is non-nil and an in-process
// pool otherwise.
func New(cfg config.QueueConfig, client *redis.Client, executors []job.Executor, logger *zap.Logger) Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client != nil {
		logger.Info("using Redis job queue", zap.String("queue", cfg.Name))
		return NewRedisQueue(client, RedisQueueConfig{
			Name:        cfg.Name,
			Workers:     cfg.Workers,
			JobTimeout:  cfg.JobTimeout,
			RetryDelay:  cfg.RetryDelay,
			PollTimeout: cfg.PollTimeout,
		}, executors, logger)
	}

	logger.Warn("Redis unavailable, running jobs on an in-process pool. Pending jobs are lost on restart.")
	pool := DefaultPoolConfig()
	pool.Workers = cfg.Workers
	pool.BufferSize = cfg.BufferSize
	pool.JobTimeout = cfg.JobTimeout
	pool.RetryDelay = cfg.RetryDelay
	return NewPool(pool, executors, logger)
}
