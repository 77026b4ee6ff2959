package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrQueueFull is returned by Enqueue when the in-process buffer has no room.
var ErrQueueFull = errors.New("queue full")

// Memory is an in-process queue: one buffered channel per task type drained by
// concurrency goroutines per Worker call. Tasks are lost when the process exits.
type Memory struct {
	log         *slog.Logger
	buffer      int
	concurrency int

	mu    sync.Mutex
	lanes map[TaskType]chan Task
}

// NewMemory builds an in-process queue.
func NewMemory(log *slog.Logger, buffer, concurrency int) *Memory {
	if buffer <= 0 {
		buffer = 1
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Memory{
		log:         log,
		buffer:      buffer,
		concurrency: concurrency,
		lanes:       make(map[TaskType]chan Task),
	}
}

func (q *Memory) lane(taskType TaskType) chan Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch, ok := q.lanes[taskType]
	if !ok {
		ch = make(chan Task, q.buffer)
		q.lanes[taskType] = ch
	}
	return ch
}

// Enqueue never blocks; it fails with ErrQueueFull when the buffer is exhausted.
func (q *Memory) Enqueue(ctx context.Context, task Task) error {
	if task.Type == "" {
		return errors.New("task type required")
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.lane(task.Type) <- task:
		return nil
	default:
		return fmt.Errorf("%s: %w", task.Type, ErrQueueFull)
	}
}

func (q *Memory) Worker(ctx context.Context, taskType TaskType, handler Handler) error {
	ch := q.lane(taskType)
	var wg sync.WaitGroup
	for i := 0; i < q.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case task := <-ch:
					q.handle(ctx, task, handler)
				}
			}
		}()
	}
	q.log.Info("queue worker started", "type", taskType, "concurrency", q.concurrency)
	wg.Wait()
	return nil
}

func (q *Memory) handle(ctx context.Context, task Task, handler Handler) {
	if !waitUntil(ctx, task.NotBefore) {
		return
	}
	err := handler(ctx, task)
	if err == nil {
		return
	}
	next, again := nextAttempt(task)
	if !again {
		q.log.Error("task permanently failed", "id", task.ID, "type", task.Type, "attempts", next.Attempts, "original_err", err)
		return
	}
	time.AfterFunc(time.Until(next.NotBefore), func() {
		if enqErr := q.Enqueue(ctx, next); enqErr != nil {
			q.log.Error("failed to re-enqueue task after failure", "id", task.ID, "type", task.Type, "original_err", err, "enqueue_err", enqErr)
		}
	})
}
