package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"terminwatch/internal/domain"
)

func TestTaskQueue_FIFOSingleConsumer(t *testing.T) {
	q := NewTaskQueue()
	for _, date := range []string{"2026-09-01", "2026-09-02", "2026-09-03"} {
		q.Put(domain.BookingTask{Slot: domain.Slot{Date: date}})
	}

	ctx := context.Background()
	for _, want := range []string{"2026-09-01", "2026-09-02", "2026-09-03"} {
		task, ok := q.Get(ctx)
		if !ok {
			t.Fatalf("Get returned !ok with items queued")
		}
		if task.Slot.Date != want {
			t.Fatalf("dequeued %q, want %q", task.Slot.Date, want)
		}
		q.Done()
	}
	if q.Len() != 0 {
		t.Fatalf("Len = %d, want 0", q.Len())
	}
}

func TestTaskQueue_GetUnblocksOnPut(t *testing.T) {
	q := NewTaskQueue()

	got := make(chan domain.BookingTask, 1)
	go func() {
		task, ok := q.Get(context.Background())
		if ok {
			got <- task
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Put(domain.BookingTask{UserID: "u1"})

	select {
	case task := <-got:
		if task.UserID != "u1" {
			t.Fatalf("task.UserID = %q, want u1", task.UserID)
		}
		q.Done()
	case <-time.After(2 * time.Second):
		t.Fatalf("Get did not observe Put")
	}
}

func TestTaskQueue_GetUnblocksOnCancel(t *testing.T) {
	q := NewTaskQueue()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Get(ctx)
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Fatalf("Get returned ok after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Get did not observe cancellation")
	}
}

func TestTaskQueue_CanceledContextWinsOverBacklog(t *testing.T) {
	q := NewTaskQueue()
	q.Put(domain.BookingTask{UserID: "u1"})
	q.Put(domain.BookingTask{UserID: "u2"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := q.Get(ctx); ok {
		t.Fatalf("Get returned a task on a canceled context")
	}
	// The backlog stays queued for a later Start, or for Clear.
	if q.Len() != 2 {
		t.Fatalf("Len = %d, want 2", q.Len())
	}
}

func TestTaskQueue_EachTaskProcessedExactlyOnce(t *testing.T) {
	const numTasks = 200
	const numWorkers = 8

	q := NewTaskQueue()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	seen := make(map[string]int, numTasks)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				task, ok := q.Get(ctx)
				if !ok {
					return
				}
				mu.Lock()
				seen[task.Slot.Date]++
				mu.Unlock()
				q.Done()
			}
		}()
	}

	for i := 0; i < numTasks; i++ {
		q.Put(domain.BookingTask{Slot: domain.Slot{Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i).Format(domain.DateLayout)}})
	}

	q.Join()
	cancel()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != numTasks {
		t.Fatalf("processed %d distinct tasks, want %d", len(seen), numTasks)
	}
	for date, count := range seen {
		if count != 1 {
			t.Fatalf("task %s processed %d times, want 1", date, count)
		}
	}
}

func TestTaskQueue_ClearAcknowledgesQueuedTasks(t *testing.T) {
	q := NewTaskQueue()
	q.Put(domain.BookingTask{UserID: "u1"})
	q.Put(domain.BookingTask{UserID: "u2"})

	if dropped := q.Clear(); dropped != 2 {
		t.Fatalf("Clear dropped %d, want 2", dropped)
	}
	if q.Len() != 0 {
		t.Fatalf("Len = %d, want 0", q.Len())
	}

	// Join must return: Clear acknowledged the never-dequeued tasks.
	joined := make(chan struct{})
	go func() {
		q.Join()
		close(joined)
	}()
	select {
	case <-joined:
	case <-time.After(2 * time.Second):
		t.Fatalf("Join did not return after Clear")
	}
}
