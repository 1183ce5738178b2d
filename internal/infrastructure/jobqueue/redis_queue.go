package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erp/backoffice/internal/domain/job"
)

const (
	promoteBatch   = 100
	requeueTimeout = 5 * time.Second
)

// RedisQueueConfig holds Redis queue configuration
type RedisQueueConfig struct {
	Name        string
	Workers     int
	JobTimeout  time.Duration
	RetryDelay  time.Duration
	PollTimeout time.Duration
	// Retain is how many finished jobs are kept per list when removal is disabled
	Retain int64
}

// Keys are the Redis keys used by one queue
type Keys struct {
	Wait      string
	Delayed   string
	Completed string
	Failed    string
}

// QueueKeys returns the keys of the named queue
func QueueKeys(name string) Keys {
	prefix := "jobs:" + name
	return Keys{
		Wait:      prefix + ":wait",
		Delayed:   prefix + ":delayed",
		Completed: prefix + ":completed",
		Failed:    prefix + ":failed",
	}
}

// RedisQueue stores jobs in Redis lists. Producers LPUSH onto the wait list
// and workers BRPOP from it; retries wait in a sorted set scored by due time.
type RedisQueue struct {
	client *redis.Client
	config RedisQueueConfig
	keys   Keys
	runner *runner
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewRedisQueue creates a Redis queue. Executors are only needed by
// processes that call Start.
func NewRedisQueue(client *redis.Client, config RedisQueueConfig, executors []job.Executor, logger *zap.Logger) *RedisQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Name == "" {
		config.Name = "default"
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = 5 * time.Second
	}
	if config.Retain <= 0 {
		config.Retain = 1000
	}
	return &RedisQueue{
		client: client,
		config: config,
		keys:   QueueKeys(config.Name),
		runner: newRunner(executors, config.JobTimeout, logger),
		logger: logger.With(zap.String("queue", config.Name)),
	}
}

// Keys returns the Redis keys of this queue
func (q *RedisQueue) Keys() Keys {
	return q.keys
}

// Enqueue pushes a job onto the wait list
func (q *RedisQueue) Enqueue(ctx context.Context, j job.Job, opts job.Options) error {
	data, err := newEnvelope(j, opts).marshal()
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.keys.Wait, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", j.Code, err)
	}
	q.logger.Debug("Job enqueued",
		zap.String("job_id", j.ID.String()),
		zap.String("job_code", j.Code),
	)
	return nil
}

// Start launches the workers
func (q *RedisQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.isRunning {
		return nil
	}
	q.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	workers := max(q.config.Workers, 1)
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}

	q.logger.Info("Redis job queue started", zap.Int("workers", workers))
	return nil
}

// Stop cancels the workers and waits for them until ctx expires.
// A job interrupted mid-run goes back onto the wait list.
func (q *RedisQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return nil
	}
	q.isRunning = false
	q.cancel()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("Redis job queue stopped gracefully")
		return nil
	case <-ctx.Done():
		q.logger.Warn("Redis job queue stop timed out")
		return ctx.Err()
	}
}

func (q *RedisQueue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	for ctx.Err() == nil {
		if err := q.promoteDue(ctx); err != nil && ctx.Err() == nil {
			q.logger.Warn("Failed to promote delayed jobs", zap.Int("worker_id", workerID), zap.Error(err))
		}

		if _, err := q.ProcessNext(ctx); err != nil && ctx.Err() == nil {
			q.logger.Error("Job queue poll failed", zap.Int("worker_id", workerID), zap.Error(err))
			sleep(ctx, time.Second)
		}
	}
}

// ProcessNext waits up to the poll timeout for one job and runs it.
// It reports whether a job was taken.
func (q *RedisQueue) ProcessNext(ctx context.Context) (bool, error) {
	res, err := q.client.BRPop(ctx, q.config.PollTimeout, q.keys.Wait).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to pop job: %w", err)
	}

	env, err := unmarshalEnvelope([]byte(res[1]))
	if err != nil {
		q.logger.Error("Dropping undecodable job", zap.Error(err))
		return true, nil
	}

	outcome, _ := q.runner.run(ctx, env)
	return true, q.settle(ctx, env, outcome)
}

// settle records the outcome of a job that was already taken off the wait
// list. It runs even when ctx is cancelled so shutdown does not lose the job.
func (q *RedisQueue) settle(ctx context.Context, env *Envelope, outcome Outcome) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requeueTimeout)
	defer cancel()

	switch outcome {
	case OutcomeCompleted:
		if env.Options.RemoveOnComplete {
			return nil
		}
		return q.record(ctx, q.keys.Completed, env)
	case OutcomeFailed:
		if env.Options.RemoveOnFail {
			return nil
		}
		return q.record(ctx, q.keys.Failed, env)
	case OutcomeRetry:
		data, err := env.marshal()
		if err != nil {
			return err
		}
		due := time.Now().Add(q.runner.retryDelay(env, q.config.RetryDelay))
		return q.client.ZAdd(ctx, q.keys.Delayed, redis.Z{Score: float64(due.UnixMilli()), Member: data}).Err()
	case OutcomeInterrupted:
		data, err := env.marshal()
		if err != nil {
			return err
		}
		return q.client.RPush(ctx, q.keys.Wait, data).Err()
	}
	return nil
}

func (q *RedisQueue) record(ctx context.Context, key string, env *Envelope) error {
	data, err := env.marshal()
	if err != nil {
		return err
	}
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, q.config.Retain-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record job %s: %w", env.Job.ID, err)
	}
	return nil
}

// promoteDue moves retries whose delay elapsed back onto the wait list.
// ZREM decides which worker wins a member.
func (q *RedisQueue) promoteDue(ctx context.Context) error {
	members, err := q.client.ZRangeByScore(ctx, q.keys.Delayed, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(time.Now().UnixMilli(), 10),
		Count: promoteBatch,
	}).Result()
	if err != nil {
		return err
	}
	for _, m := range members {
		removed, err := q.client.ZRem(ctx, q.keys.Delayed, m).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.keys.Wait, m).Err(); err != nil {
			return err
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Ensure RedisQueue implements job.Queue
var _ job.Queue = (*RedisQueue)(nil)
