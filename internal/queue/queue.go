package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskType enumerates supported task categories.
type TaskType string

const (
	TaskTypeSummarize TaskType = "summarize"
)

// defaultMaxAttempts applies when a task leaves MaxAttempts unset.
const defaultMaxAttempts = 5

// retryBase is the first redelivery delay after a failed attempt.
var retryBase = time.Second

// Task is one unit of background work.
type Task struct {
	ID          uuid.UUID       `json:"id"`
	Type        TaskType        `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	NotBefore   time.Time       `json:"not_before"`
}

// NewTask marshals payload into a task of the given type.
func NewTask(taskType TaskType, payload any, maxAttempts int) (Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Task{}, fmt.Errorf("encode %s payload: %w", taskType, err)
	}
	return Task{
		ID:          uuid.New(),
		Type:        taskType,
		Payload:     body,
		MaxAttempts: maxAttempts,
	}, nil
}

type Handler func(context.Context, Task) error

// Queue exposes a minimal contract to enqueue and consume tasks.
// Worker blocks until ctx is done.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Worker(ctx context.Context, taskType TaskType, handler Handler) error
}

// EnqueueWithRetry attempts to enqueue with retries and exponential backoff.
func EnqueueWithRetry(ctx context.Context, q Queue, task Task, attempts int, base time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = q.Enqueue(ctx, task); err == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ExponentialBackoff(attempt, base)):
		}
	}
	return fmt.Errorf("enqueue %s task after %d attempts: %w", task.Type, attempts, err)
}

// nextAttempt records a failed attempt and reports whether the task should run again.
func nextAttempt(task Task) (Task, bool) {
	task.Attempts++
	if task.MaxAttempts == 0 {
		task.MaxAttempts = defaultMaxAttempts
	}
	if task.Attempts >= task.MaxAttempts {
		return task, false
	}
	task.NotBefore = time.Now().Add(ExponentialBackoff(task.Attempts-1, retryBase))
	return task, true
}

// waitUntil sleeps until t or until ctx is done. It reports false when ctx ended first.
func waitUntil(ctx context.Context, t time.Time) bool {
	d := time.Until(t)
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
