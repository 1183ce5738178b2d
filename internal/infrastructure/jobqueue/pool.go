package jobqueue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erp/backoffice/internal/domain/job"
)

// PoolConfig holds in-process worker pool configuration
type PoolConfig struct {
	Workers    int
	BufferSize int
	JobTimeout time.Duration
	RetryDelay time.Duration
	// Retain is how many finished jobs are kept when removal is disabled
	Retain int
}

// DefaultPoolConfig returns default pool configuration
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:    2,
		BufferSize: 100,
		JobTimeout: 5 * time.Minute,
		RetryDelay: 10 * time.Second,
		Retain:     100,
	}
}

// Pool runs jobs on in-process workers. Jobs are lost on restart.
type Pool struct {
	config PoolConfig
	runner *runner
	logger *zap.Logger

	jobs      chan *Envelope
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	retries   map[*time.Timer]struct{}

	completed []Envelope
	failed    []Envelope
}

// NewPool creates a new worker pool
func NewPool(config PoolConfig, executors []job.Executor, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultPoolConfig().BufferSize
	}
	return &Pool{
		config:  config,
		runner:  newRunner(executors, config.JobTimeout, logger),
		logger:  logger,
		jobs:    make(chan *Envelope, config.BufferSize),
		retries: make(map[*time.Timer]struct{}),
	}
}

// Start starts the pool
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isRunning {
		return nil
	}
	if p.jobs == nil {
		p.jobs = make(chan *Envelope, p.config.BufferSize)
	}
	p.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	p.logger.Info("Job pool started",
		zap.Int("workers", p.config.Workers),
		zap.Duration("job_timeout", p.config.JobTimeout),
	)
	return nil
}

// Stop stops accepting jobs and waits for running ones until ctx expires.
// Queued jobs that have not started are dropped.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	for t := range p.retries {
		t.Stop()
	}
	clear(p.retries)
	close(p.jobs)
	p.jobs = nil
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("Job pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.cancel()
		p.logger.Warn("Job pool stop timed out")
		return ctx.Err()
	}
}

// Enqueue submits a job
func (p *Pool) Enqueue(_ context.Context, j job.Job, opts job.Options) error {
	return p.submit(newEnvelope(j, opts))
}

func (p *Pool) submit(env *Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isRunning {
		return job.ErrQueueClosed
	}

	select {
	case p.jobs <- env:
		p.logger.Debug("Job submitted",
			zap.String("job_id", env.Job.ID.String()),
			zap.String("job_code", env.Job.Code),
		)
		return nil
	default:
		return job.ErrQueueFull
	}
}

func (p *Pool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()

	p.mu.Lock()
	jobs := p.jobs
	p.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-jobs:
			if !ok {
				p.logger.Debug("Job channel closed", zap.Int("worker_id", workerID))
				return
			}
			p.process(ctx, env)
		}
	}
}

func (p *Pool) process(ctx context.Context, env *Envelope) {
	outcome, _ := p.runner.run(ctx, env)
	switch outcome {
	case OutcomeCompleted:
		if !env.Options.RemoveOnComplete {
			p.retain(&p.completed, env)
		}
	case OutcomeFailed:
		if !env.Options.RemoveOnFail {
			p.retain(&p.failed, env)
		}
	case OutcomeRetry:
		p.scheduleRetry(env)
	}
}

func (p *Pool) scheduleRetry(env *Envelope) {
	delay := p.runner.retryDelay(env, p.config.RetryDelay)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isRunning {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		p.mu.Lock()
		delete(p.retries, t)
		p.mu.Unlock()
		if err := p.submit(env); err != nil {
			p.logger.Warn("Failed to re-queue job for retry",
				zap.String("job_id", env.Job.ID.String()),
				zap.Error(err),
			)
		}
	})
	p.retries[t] = struct{}{}
}

func (p *Pool) retain(list *[]Envelope, env *Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	*list = append(*list, *env)
	if limit := p.config.Retain; limit > 0 && len(*list) > limit {
		*list = (*list)[len(*list)-limit:]
	}
}

// Completed returns the retained completed jobs, oldest first
func (p *Pool) Completed() []Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Envelope(nil), p.completed...)
}

// Failed returns the retained failed jobs, oldest first
func (p *Pool) Failed() []Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Envelope(nil), p.failed...)
}

// Ensure Pool implements job.Queue
var _ job.Queue = (*Pool)(nil)
