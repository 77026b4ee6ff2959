package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// NewNATS constructs a thin NATS-based queue. Each Worker opens concurrency
// subscriptions in one queue group so tasks are processed in parallel.
func NewNATS(log *slog.Logger, nc *nats.Conn, concurrency int) Queue {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &natsQueue{log: log, nc: nc, concurrency: concurrency}
}

type natsQueue struct {
	log         *slog.Logger
	nc          *nats.Conn
	concurrency int
}

func subject(taskType TaskType) string { return "tasks." + string(taskType) }

func (q *natsQueue) Enqueue(_ context.Context, task Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Type == "" {
		return errors.New("task type required")
	}
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.nc.Publish(subject(task.Type), body)
}

func (q *natsQueue) Worker(ctx context.Context, taskType TaskType, handler Handler) error {
	group := "workers-" + string(taskType)
	subs := make([]*nats.Subscription, 0, q.concurrency)
	defer func() {
		for _, sub := range subs {
			if err := sub.Unsubscribe(); err != nil {
				q.log.Warn("failed to unsubscribe", "subject", sub.Subject, "err", err)
			}
		}
	}()
	for i := 0; i < q.concurrency; i++ {
		sub, err := q.nc.QueueSubscribe(subject(taskType), group, func(msg *nats.Msg) {
			q.handleMessage(ctx, msg, handler)
		})
		if err != nil {
			return err
		}
		subs = append(subs, sub)
	}
	q.log.Info("queue worker subscribed", "subject", subject(taskType), "group", group, "subscriptions", len(subs))
	<-ctx.Done()
	return nil
}

func (q *natsQueue) handleMessage(ctx context.Context, msg *nats.Msg, handler Handler) {
	var task Task
	if err := json.Unmarshal(msg.Data, &task); err != nil {
		q.log.Error("failed to decode task", "err", err)
		return
	}
	if !waitUntil(ctx, task.NotBefore) {
		return
	}
	if err := handler(ctx, task); err != nil {
		q.retryTask(ctx, task, err)
	}
}

func (q *natsQueue) retryTask(ctx context.Context, task Task, handlerErr error) {
	next, again := nextAttempt(task)
	if !again {
		q.log.Error("task permanently failed", "id", task.ID, "type", task.Type, "attempts", next.Attempts, "original_err", handlerErr)
		return
	}
	if err := q.Enqueue(ctx, next); err != nil {
		q.log.Error("failed to re-enqueue task after failure", "id", task.ID, "type", task.Type, "original_err", handlerErr, "enqueue_err", err)
	}
}
