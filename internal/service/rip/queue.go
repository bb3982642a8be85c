package rip

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/avoronov/ripstream/internal/logger"
)

const (
	// maxDownloadAttempts bounds transient-failure retries per track.
	maxDownloadAttempts = 3
	// retryBackoffStep scales linearly with the attempt number:
	// 2s after the first failure, 4s after the second.
	retryBackoffStep = 2 * time.Second
)

// trackTask is one unit of work for the download pool.
type trackTask struct {
	// item identifies the track for logging and the ledger.
	item ShortDownloadItem
	// title is the human-readable track title.
	title string
	// attempt counts completed attempts, starting at 0.
	attempt int
	// run performs one download attempt. isRetry is true on re-attempts so
	// providers can refresh expiring stream URLs.
	run func(ctx context.Context, isRetry bool) error
	// onDone receives the terminal outcome, nil on success. Called exactly once.
	onDone func(ctx context.Context, err error)
}

// downloadQueue is a fixed-size worker pool that requeues transient failures
// with linear backoff. Tasks may be enqueued while workers are draining.
type downloadQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []*trackTask
	closed  bool

	// inFlight counts logical tasks (requeues do not add).
	inFlight sync.WaitGroup

	workers int64
	// backoffStep scales the retry delay; shortened in tests.
	backoffStep time.Duration
}

func newDownloadQueue(workers int64) *downloadQueue {
	if workers < 1 {
		workers = 1
	}

	q := &downloadQueue{workers: workers, backoffStep: retryBackoffStep}
	q.cond = sync.NewCond(&q.mu)

	return q
}

// Enqueue adds a new task. Safe to call concurrently with running workers.
func (q *downloadQueue) Enqueue(task *trackTask) {
	q.inFlight.Add(1)
	q.push(task)
}

// requeue puts a failed task back without changing the logical task count.
func (q *downloadQueue) requeue(task *trackTask) {
	q.push(task)
}

func (q *downloadQueue) push(task *trackTask) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append(q.pending, task)
	q.cond.Signal()
}

// pop blocks until a task is available or the queue is closed and drained.
func (q *downloadQueue) pop() (*trackTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.pending) == 0 && !q.closed {
		q.cond.Wait()
	}

	if len(q.pending) == 0 {
		return nil, false
	}

	task := q.pending[0]
	q.pending = q.pending[1:]

	return task, true
}

func (q *downloadQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Start launches the worker pool and returns a function that waits for all
// enqueued tasks to reach a terminal state and the workers to exit.
func (q *downloadQueue) Start(ctx context.Context) func() {
	group, groupCtx := errgroup.WithContext(ctx)

	for range q.workers {
		group.Go(func() error {
			q.worker(groupCtx)

			return nil
		})
	}

	return func() {
		q.inFlight.Wait()
		q.close()

		// Workers never return errors; failures are per-task.
		_ = group.Wait()
	}
}

func (q *downloadQueue) worker(ctx context.Context) {
	for {
		task, ok := q.pop()
		if !ok {
			return
		}

		q.process(ctx, task)
	}
}

func (q *downloadQueue) process(ctx context.Context, task *trackTask) {
	err := task.run(ctx, task.attempt > 0)
	task.attempt++

	if err == nil {
		task.onDone(ctx, nil)
		q.inFlight.Done()

		return
	}

	if !q.shouldRetry(ctx, task, err) {
		task.onDone(ctx, err)
		q.inFlight.Done()

		return
	}

	backoff := time.Duration(task.attempt) * q.backoffStep

	logger.Warnf(ctx, "Attempt %d for %q failed, retrying in %s: %v",
		task.attempt, task.title, backoff, err)

	select {
	case <-ctx.Done():
		task.onDone(ctx, ctx.Err())
		q.inFlight.Done()
	case <-time.After(backoff):
		q.requeue(task)
	}
}

func (q *downloadQueue) shouldRetry(ctx context.Context, task *trackTask, err error) bool {
	if task.attempt >= maxDownloadAttempts {
		return false
	}

	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return !isTerminalItemError(err) && !isFatalError(err)
}
