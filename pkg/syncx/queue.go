package syncx

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrQueueCleared is the failure handed to operations that were still
// queued when Clear or Dispose was called.
var ErrQueueCleared = errors.New("syncx: queue cleared before operation started")

// ErrQueueDisposed is returned by Enqueue after the queue has been
// disposed.
var ErrQueueDisposed = errors.New("syncx: queue disposed")

// Operation is a unit of deferred work executed by a Queue.
type Operation func(context.Context) error

// Task tracks the eventual outcome of an enqueued operation.
type Task struct {
	done chan struct{}
	err  error
	once sync.Once
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

func (t *Task) finish(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}

// Wait blocks until the operation has completed (including retries) or the
// context is done, and returns the operation's final error.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done reports whether the operation has completed.
func (t *Task) Done() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

type queueItem struct {
	op   Operation
	task *Task
}

// Queue executes operations strictly one at a time in FIFO order. A failed
// operation is retried up to the configured number of attempts before its
// Task is resolved with the last error. Operations already mid-execution
// are unaffected by Clear and Dispose.
type Queue struct {
	mu          sync.Mutex
	items       []queueItem
	maxAttempts int
	running     bool
	disposed    bool
	wake        chan struct{}
}

// NewQueue creates a sequential auto-retry queue. maxAttempts is the total
// number of times an operation is run before giving up; values below one
// are treated as one.
func NewQueue(maxAttempts int) *Queue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Queue{
		maxAttempts: maxAttempts,
		wake:        make(chan struct{}, 1),
	}
}

// Enqueue appends an operation and returns the Task tracking its outcome.
// The queue starts its runner lazily on first use.
func (q *Queue) Enqueue(op Operation) (*Task, error) {
	if op == nil {
		return nil, fmt.Errorf("syncx: nil operation")
	}

	q.mu.Lock()
	if q.disposed {
		q.mu.Unlock()
		return nil, ErrQueueDisposed
	}
	task := newTask()
	q.items = append(q.items, queueItem{op: op, task: task})
	if !q.running {
		q.running = true
		go q.run()
	}
	q.mu.Unlock()

	q.signal()
	return task, nil
}

// Len returns the number of operations that have not started yet.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty reports whether no operations are waiting to start.
func (q *Queue) Empty() bool {
	return q.Len() == 0
}

// Clear fails every not-yet-started operation with ErrQueueCleared. An
// operation currently executing keeps running to completion.
func (q *Queue) Clear() {
	q.mu.Lock()
	pending := q.items
	q.items = nil
	q.mu.Unlock()

	for _, it := range pending {
		it.task.finish(ErrQueueCleared)
	}
}

// Dispose clears all pending operations and rejects further Enqueue calls.
func (q *Queue) Dispose() {
	q.mu.Lock()
	q.disposed = true
	q.mu.Unlock()
	q.Clear()
	q.signal()
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) run() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			if q.disposed {
				q.running = false
				q.mu.Unlock()
				return
			}
			q.mu.Unlock()
			<-q.wake
			continue
		}
		item := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		var err error
		for attempt := 0; attempt < q.maxAttempts; attempt++ {
			if err = item.op(context.Background()); err == nil {
				break
			}
		}
		item.task.finish(err)
	}
}
