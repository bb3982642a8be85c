package rip

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronov/ripstream/internal/client"
)

// TestDownloadQueueRunsAllTasks tests that every enqueued task reaches its
// completion handler exactly once.
func TestDownloadQueueRunsAllTasks(t *testing.T) {
	t.Parallel()

	const totalTasks = 20

	queue := newDownloadQueue(4)
	wait := queue.Start(t.Context())

	var ran, done atomic.Int64

	for range totalTasks {
		queue.Enqueue(&trackTask{
			title: "task",
			run: func(_ context.Context, _ bool) error {
				ran.Add(1)

				return nil
			},
			onDone: func(_ context.Context, err error) {
				require.NoError(t, err)
				done.Add(1)
			},
		})
	}

	wait()

	assert.Equal(t, int64(totalTasks), ran.Load())
	assert.Equal(t, int64(totalTasks), done.Load())
}

// TestDownloadQueueTerminalErrorsAreNotRetried tests that per-item terminal
// conditions settle after a single attempt.
func TestDownloadQueueTerminalErrorsAreNotRetried(t *testing.T) {
	t.Parallel()

	queue := newDownloadQueue(1)
	wait := queue.Start(t.Context())

	var attempts atomic.Int64

	terminal := client.ErrNotStreamable

	queue.Enqueue(&trackTask{
		title: "unstreamable",
		run: func(_ context.Context, _ bool) error {
			attempts.Add(1)

			return terminal
		},
		onDone: func(_ context.Context, err error) {
			assert.ErrorIs(t, err, terminal)
		},
	})

	wait()

	assert.Equal(t, int64(1), attempts.Load())
}

// TestDownloadQueueRetriesTransientErrors tests linear-backoff requeueing:
// the second attempt must see isRetry and the task settles after success.
func TestDownloadQueueRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	queue := newDownloadQueue(2)
	queue.backoffStep = time.Millisecond
	wait := queue.Start(t.Context())

	var (
		attempts  atomic.Int64
		sawRetry  atomic.Bool
		doneCalls atomic.Int64
	)

	queue.Enqueue(&trackTask{
		title: "flaky",
		run: func(_ context.Context, isRetry bool) error {
			if isRetry {
				sawRetry.Store(true)
			}

			if attempts.Add(1) == 1 {
				return client.ErrUnexpectedHTTPStatus
			}

			return nil
		},
		onDone: func(_ context.Context, err error) {
			require.NoError(t, err)
			doneCalls.Add(1)
		},
	})

	wait()

	assert.Equal(t, int64(2), attempts.Load())
	assert.True(t, sawRetry.Load())
	assert.Equal(t, int64(1), doneCalls.Load())
}

// TestDownloadQueueAttemptCeiling tests that transient failures stop after
// the attempt budget and surface the last error.
func TestDownloadQueueAttemptCeiling(t *testing.T) {
	t.Parallel()

	queue := newDownloadQueue(1)
	queue.backoffStep = time.Millisecond
	wait := queue.Start(t.Context())

	var attempts atomic.Int64

	transient := errors.New("connection reset")

	queue.Enqueue(&trackTask{
		title: "always failing",
		run: func(_ context.Context, _ bool) error {
			attempts.Add(1)

			return transient
		},
		onDone: func(_ context.Context, err error) {
			assert.ErrorIs(t, err, transient)
		},
	})

	wait()

	assert.Equal(t, int64(maxDownloadAttempts), attempts.Load())
}

// TestDownloadQueueCancelledContext tests that cancellation settles tasks
// without retry sleeps.
func TestDownloadQueueCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())

	queue := newDownloadQueue(1)
	wait := queue.Start(ctx)

	var attempts atomic.Int64

	queue.Enqueue(&trackTask{
		title: "cancelled",
		run: func(taskCtx context.Context, _ bool) error {
			attempts.Add(1)
			cancel()

			return taskCtx.Err()
		},
		onDone: func(_ context.Context, err error) {
			assert.Error(t, err)
		},
	})

	wait()

	assert.Equal(t, int64(1), attempts.Load())
}
