package jobqueue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erp/backoffice/internal/domain/job"
)

const testCode = "TEST_JOB"

func countingExecutor(calls *int32, failures int32) job.Executor {
	return job.ExecutorFunc{
		JobCode: testCode,
		Fn: func(context.Context, job.Job) error {
			n := atomic.AddInt32(calls, 1)
			if n <= failures {
				return errors.New("transient")
			}
			return nil
		},
	}
}

func startPool(t *testing.T, executors ...job.Executor) *Pool {
	t.Helper()
	cfg := DefaultPoolConfig()
	cfg.RetryDelay = 10 * time.Millisecond
	p := NewPool(cfg, executors, zap.NewNop())
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Stop(ctx)
	})
	return p
}

func TestPool_CompletesAndRetains(t *testing.T) {
	var calls int32
	p := startPool(t, countingExecutor(&calls, 0))
	ctx := context.Background()

	require.NoError(t, p.Enqueue(ctx, job.New(testCode, nil), job.Options{Attempts: 1}))
	require.NoError(t, p.Enqueue(ctx, job.New(testCode, nil), job.Options{Attempts: 1, RemoveOnComplete: true}))

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return len(p.Completed()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, p.Failed())
}

func TestPool_RetriesUpToAttempts(t *testing.T) {
	t.Run("succeeds on second attempt", func(t *testing.T) {
		var calls int32
		p := startPool(t, countingExecutor(&calls, 1))

		require.NoError(t, p.Enqueue(context.Background(), job.New(testCode, nil), job.Options{Attempts: 2}))

		assert.Eventually(t, func() bool { return len(p.Completed()) == 1 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
		assert.Equal(t, 2, p.Completed()[0].Attempt)
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		var calls int32
		p := startPool(t, countingExecutor(&calls, 100))

		require.NoError(t, p.Enqueue(context.Background(), job.New(testCode, nil), job.Options{Attempts: 2}))

		assert.Eventually(t, func() bool { return len(p.Failed()) == 1 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
		assert.Equal(t, "transient", p.Failed()[0].LastError)
	})

	t.Run("remove on fail drops the record", func(t *testing.T) {
		var calls int32
		p := startPool(t, countingExecutor(&calls, 100))

		require.NoError(t, p.Enqueue(context.Background(), job.New(testCode, nil), job.DefaultOptions()))

		assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, time.Second, 5*time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		assert.Empty(t, p.Failed())
	})
}

func TestPool_UnknownCodeFailsWithoutRetry(t *testing.T) {
	p := startPool(t)

	require.NoError(t, p.Enqueue(context.Background(), job.New("NOPE", nil), job.Options{Attempts: 3}))

	assert.Eventually(t, func() bool { return len(p.Failed()) == 1 }, time.Second, 5*time.Millisecond)
	failed := p.Failed()[0]
	assert.Equal(t, 1, failed.Attempt)
	assert.Contains(t, failed.LastError, job.ErrUnknownJobCode.Error())
}

func TestPool_EnqueueRejections(t *testing.T) {
	t.Run("closed", func(t *testing.T) {
		p := NewPool(DefaultPoolConfig(), nil, nil)
		err := p.Enqueue(context.Background(), job.New(testCode, nil), job.DefaultOptions())
		assert.ErrorIs(t, err, job.ErrQueueClosed)
	})

	t.Run("full", func(t *testing.T) {
		started := make(chan struct{}, 1)
		release := make(chan struct{})
		blocking := job.ExecutorFunc{JobCode: testCode, Fn: func(context.Context, job.Job) error {
			started <- struct{}{}
			<-release
			return nil
		}}

		cfg := DefaultPoolConfig()
		cfg.Workers, cfg.BufferSize = 1, 1
		p := NewPool(cfg, []job.Executor{blocking}, nil)
		require.NoError(t, p.Start(context.Background()))
		defer func() {
			close(release)
			_ = p.Stop(context.Background())
		}()

		ctx := context.Background()
		require.NoError(t, p.Enqueue(ctx, job.New(testCode, nil), job.DefaultOptions()))
		<-started
		require.NoError(t, p.Enqueue(ctx, job.New(testCode, nil), job.DefaultOptions()))
		assert.ErrorIs(t, p.Enqueue(ctx, job.New(testCode, nil), job.DefaultOptions()), job.ErrQueueFull)
	})
}

func TestPool_StopIsIdempotentAndRestartable(t *testing.T) {
	var calls int32
	p := NewPool(DefaultPoolConfig(), []job.Executor{countingExecutor(&calls, 0)}, nil)
	ctx := context.Background()

	require.NoError(t, p.Start(ctx))
	require.NoError(t, p.Stop(ctx))
	require.NoError(t, p.Stop(ctx))

	require.NoError(t, p.Start(ctx))
	require.NoError(t, p.Enqueue(ctx, job.New(testCode, nil), job.DefaultOptions()))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, p.Stop(ctx))
}
