// Package job defines the asynchronous follow-up jobs enqueued by the back office.
package job

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Job codes
const (
	// CodeOnlineShopStockRecheck re-checks online shop stock after the backing area changes
	CodeOnlineShopStockRecheck = "ONLINE_SHOP_STOCK_RECHECK"
)

// Parameter names of CodeOnlineShopStockRecheck
const (
	ParamBusinessID     = "business_id"
	ParamAreaID         = "area_id"
	ParamPreviousAreaID = "previous_area_id"
)

// Errors returned by queues
var (
	ErrQueueClosed    = errors.New("job queue is closed")
	ErrQueueFull      = errors.New("job queue is full")
	ErrUnknownJobCode = errors.New("no executor registered for job code")
)

// Job is a unit of asynchronous work
type Job struct {
	ID     uuid.UUID      `json:"id"`
	Code   string         `json:"code"`
	Params map[string]any `json:"params"`
}

// Options controls delivery of a job
type Options struct {
	// Attempts is the total number of executions allowed, including the first
	Attempts int `json:"attempts"`
	// Backoff is the delay between attempts
	Backoff time.Duration `json:"backoff"`
	// RemoveOnComplete drops the job record once it succeeds
	RemoveOnComplete bool `json:"removeOnComplete"`
	// RemoveOnFail drops the job record once it runs out of attempts
	RemoveOnFail bool `json:"removeOnFail"`
}

// DefaultOptions are used for follow-up jobs of configuration changes
func DefaultOptions() Options {
	return Options{Attempts: 2, RemoveOnComplete: true, RemoveOnFail: true}
}

// New creates a job with a generated id
func New(code string, params map[string]any) Job {
	return Job{ID: uuid.New(), Code: code, Params: params}
}

// Queue accepts jobs for asynchronous execution
type Queue interface {
	Enqueue(ctx context.Context, j Job, opts Options) error
}

// Executor runs jobs of one code
type Executor interface {
	Code() string
	Execute(ctx context.Context, j Job) error
}

// ExecutorFunc adapts a function into an Executor
type ExecutorFunc struct {
	JobCode string
	Fn      func(ctx context.Context, j Job) error
}

// Code returns the job code handled
func (e ExecutorFunc) Code() string { return e.JobCode }

// Execute runs the job
func (e ExecutorFunc) Execute(ctx context.Context, j Job) error { return e.Fn(ctx, j) }
