// Package jobqueue delivers follow-up jobs to their executors, through Redis
// lists or an in-process worker pool.
package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/erp/backoffice/internal/domain/job"
)

// Envelope is a job together with its delivery state
type Envelope struct {
	Job        job.Job     `json:"job"`
	Options    job.Options `json:"options"`
	Attempt    int         `json:"attempt"`
	EnqueuedAt time.Time   `json:"enqueued_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	LastError  string      `json:"last_error,omitempty"`
}

func newEnvelope(j job.Job, opts job.Options) *Envelope {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	return &Envelope{Job: j, Options: opts, EnqueuedAt: time.Now().UTC()}
}

// CanRetry reports whether another attempt is allowed after a failure
func (e *Envelope) CanRetry() bool {
	return e.Attempt < e.Options.Attempts
}

func (e *Envelope) finish(err error) {
	now := time.Now().UTC()
	e.FinishedAt = &now
	if err != nil {
		e.LastError = err.Error()
	}
}

func (e *Envelope) marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job %s: %w", e.Job.ID, err)
	}
	return data, nil
}

func unmarshalEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return &e, nil
}

// Outcome is the result of one delivery attempt
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeRetry     Outcome = "retry"
	OutcomeFailed    Outcome = "failed"

	// OutcomeInterrupted means the worker stopped mid-run; the attempt is not counted
	OutcomeInterrupted Outcome = "interrupted"
)

// runner executes envelopes against registered executors
type runner struct {
	executors map[string]job.Executor
	timeout   time.Duration
	logger    *zap.Logger
}

func newRunner(executors []job.Executor, timeout time.Duration, logger *zap.Logger) *runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &runner{
		executors: make(map[string]job.Executor, len(executors)),
		timeout:   timeout,
		logger:    logger,
	}
	for _, ex := range executors {
		r.executors[ex.Code()] = ex
	}
	return r
}

// run performs one attempt and decides what happens to the envelope next
func (r *runner) run(ctx context.Context, env *Envelope) (Outcome, error) {
	env.Attempt++
	fields := []zap.Field{
		zap.String("job_id", env.Job.ID.String()),
		zap.String("job_code", env.Job.Code),
		zap.Int("attempt", env.Attempt),
		zap.Int("max_attempts", env.Options.Attempts),
	}

	ex, ok := r.executors[env.Job.Code]
	if !ok {
		err := fmt.Errorf("%w: %s", job.ErrUnknownJobCode, env.Job.Code)
		r.logger.Error("Job has no executor", append(fields, zap.Error(err))...)
		env.finish(err)
		return OutcomeFailed, err
	}

	jobCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.logger.Info("Processing job", fields...)
	err := r.execute(jobCtx, ex, env.Job)
	if err == nil {
		env.finish(nil)
		r.logger.Info("Job completed successfully", fields...)
		return OutcomeCompleted, nil
	}

	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		env.Attempt--
		r.logger.Warn("Job interrupted by shutdown", fields...)
		return OutcomeInterrupted, err
	}

	env.LastError = err.Error()
	if env.CanRetry() {
		r.logger.Warn("Job failed, scheduling retry", append(fields, zap.Error(err))...)
		return OutcomeRetry, err
	}
	env.finish(err)
	r.logger.Error("Job failed", append(fields, zap.Error(err))...)
	return OutcomeFailed, err
}

func (r *runner) execute(ctx context.Context, ex job.Executor, j job.Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked: %v", p)
		}
	}()
	return ex.Execute(ctx, j)
}

func (r *runner) retryDelay(env *Envelope, fallback time.Duration) time.Duration {
	if env.Options.Backoff > 0 {
		return env.Options.Backoff
	}
	return fallback
}
