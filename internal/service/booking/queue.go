package booking

import (
	"context"
	"sync"

	"terminwatch/internal/domain"
)

// TaskQueue is the FIFO between the scheduler and the worker pool. Put
// never blocks. Get blocks until a task arrives or the context is
// canceled, which is what keeps shutdown responsive. Every task returned
// by Get must be acknowledged with exactly one Done call, success or not.
type TaskQueue struct {
	mu    sync.Mutex
	items []domain.BookingTask
	wake  chan struct{}

	inflight sync.WaitGroup
}

func NewTaskQueue() *TaskQueue {
	return &TaskQueue{wake: make(chan struct{}, 1)}
}

func (q *TaskQueue) Put(task domain.BookingTask) {
	q.inflight.Add(1)
	q.mu.Lock()
	q.items = append(q.items, task)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *TaskQueue) Get(ctx context.Context) (domain.BookingTask, bool) {
	for {
		// Cancellation wins over backlog: a stopped worker must not keep
		// draining queued tasks. Whatever is left stays queued for the
		// next Start, or is dropped by Clear.
		if ctx.Err() != nil {
			return domain.BookingTask{}, false
		}

		q.mu.Lock()
		if len(q.items) > 0 {
			task := q.items[0]
			q.items = q.items[1:]
			if len(q.items) > 0 {
				// More work queued: wake another waiter, since one Put
				// leaves at most one token in the channel.
				select {
				case q.wake <- struct{}{}:
				default:
				}
			}
			q.mu.Unlock()
			return task, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return domain.BookingTask{}, false
		case <-q.wake:
		}
	}
}

// Done acknowledges one task previously returned by Get.
func (q *TaskQueue) Done() {
	q.inflight.Done()
}

// Clear drops tasks that were queued but never dequeued and acknowledges
// them, so Join cannot wait on work no worker will ever pick up. Returns
// the number of dropped tasks.
func (q *TaskQueue) Clear() int {
	q.mu.Lock()
	dropped := len(q.items)
	q.items = nil
	q.mu.Unlock()

	for i := 0; i < dropped; i++ {
		q.inflight.Done()
	}
	return dropped
}

// Join blocks until every queued task has been acknowledged. Only
// meaningful while workers are draining the queue, or after Clear.
func (q *TaskQueue) Join() {
	q.inflight.Wait()
}

func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
