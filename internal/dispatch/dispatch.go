// Package dispatch routes chat commands to handlers, acknowledges them at once
// and delivers the summarization outcome later through the callback target.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"slack-summarizer/internal/artifact"
	"slack-summarizer/internal/deliver"
	"slack-summarizer/internal/pipeline"
	"slack-summarizer/internal/queue"
	"slack-summarizer/internal/slackevent"
	"slack-summarizer/internal/summary"
)

const (
	enqueueAttempts = 3
	enqueueBackoff  = 50 * time.Millisecond
)

// Ack is the immediate reply to a command.
type Ack struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

func ephemeral(text string) Ack {
	return Ack{ResponseType: deliver.ResponseEphemeral, Text: text}
}

// Handler acknowledges one command. It must not block on background work.
type Handler func(ctx context.Context, cmd slackevent.Command) Ack

// Deps are the collaborators a Dispatcher needs. Sink and Poster may be nil.
type Deps struct {
	Log       *slog.Logger
	Queue     queue.Queue
	Runner    pipeline.Runner
	Deliverer deliver.Deliverer
	Sink      artifact.Sink
	Poster    deliver.Poster
}

// Dispatcher holds the command registry and runs summarize tasks.
type Dispatcher struct {
	deps Deps

	mu       sync.RWMutex
	handlers map[string]Handler
}

// New builds a Dispatcher with an empty registry.
func New(deps Deps) *Dispatcher {
	if deps.Sink == nil {
		deps.Sink = artifact.NewNoOpSink()
	}
	return &Dispatcher{deps: deps, handlers: make(map[string]Handler)}
}

// Register binds a command name such as "/summarize" to h.
func (d *Dispatcher) Register(name string, h Handler) error {
	name = strings.TrimSpace(name)
	if !strings.HasPrefix(name, "/") || len(name) < 2 {
		return fmt.Errorf("invalid command name %q", name)
	}
	if h == nil {
		return fmt.Errorf("nil handler for %s", name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.handlers[name]; ok {
		return fmt.Errorf("command %s already registered", name)
	}
	d.handlers[name] = h
	return nil
}

// RegisterSummarize binds every name to the summarize handler.
func (d *Dispatcher) RegisterSummarize(names ...string) error {
	for _, name := range names {
		if err := d.Register(name, d.summarizeCommand); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the handler registered for name.
func (d *Dispatcher) Lookup(name string) (Handler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handlers[strings.TrimSpace(name)]
	return h, ok
}

// OnCommand acknowledges cmd. It reports false when no handler is registered for the command.
func (d *Dispatcher) OnCommand(ctx context.Context, cmd slackevent.Command) (Ack, bool) {
	h, ok := d.Lookup(cmd.Name)
	if !ok {
		return Ack{}, false
	}
	return h(ctx, cmd), true
}

// summarizeTask is the queue payload for one summarize command.
type summarizeTask struct {
	RequestID      uuid.UUID `json:"request_id"`
	URL            string    `json:"url"`
	RawText        string    `json:"raw_text"`
	CallbackTarget string    `json:"callback_target"`
}

func (d *Dispatcher) summarizeCommand(ctx context.Context, cmd slackevent.Command) Ack {
	req, err := summary.NewRequest(CleanURL(cmd.Text), cmd.Text, cmd.ResponseURL)
	if err != nil {
		d.deps.Log.Info("rejected command", "command", cmd.Name, "user_id", cmd.UserID, "err", err)
		return ephemeral(MsgInvalidURL)
	}

	task, err := queue.NewTask(queue.TaskTypeSummarize, summarizeTask{
		RequestID:      req.ID,
		URL:            req.URL,
		RawText:        req.RawText,
		CallbackTarget: req.CallbackTarget,
	}, 1)
	if err != nil {
		d.deps.Log.Error("failed to build summarize task", "request_id", req.ID, "err", err)
		return ephemeral(MsgNotScheduled)
	}
	if err := queue.EnqueueWithRetry(ctx, d.deps.Queue, task, enqueueAttempts, enqueueBackoff); err != nil {
		d.deps.Log.Error("failed to enqueue summarize task", "request_id", req.ID, "err", err)
		return ephemeral(MsgNotScheduled)
	}
	d.deps.Log.Info("summarize task scheduled", "request_id", req.ID, "task_id", task.ID, "url", req.URL, "user_id", cmd.UserID)
	return ephemeral(MsgProcessing)
}

// HandleTask runs one summarize task and delivers its outcome. Delivery
// failures are logged and not returned, so the task is never retried.
func (d *Dispatcher) HandleTask(ctx context.Context, task queue.Task) error {
	var payload summarizeTask
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return fmt.Errorf("decode summarize task %s: %w", task.ID, err)
	}
	req := summary.Request{
		ID:             payload.RequestID,
		URL:            payload.URL,
		RawText:        payload.RawText,
		CallbackTarget: payload.CallbackTarget,
	}
	log := d.deps.Log.With("request_id", req.ID, "task_id", task.ID)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("summarize task panicked", "panic", rec)
			d.deliver(ctx, log, req.CallbackTarget, MsgUnknownFailed)
		}
	}()

	res, runErr := d.deps.Runner.Run(ctx, req)
	if runErr != nil {
		log.Warn("summarization failed", "kind", summary.KindOf(runErr), "err", runErr)
		d.deliver(ctx, log, req.CallbackTarget, FailureMessage(runErr))
		return nil
	}

	d.deliver(ctx, log, req.CallbackTarget, FormatResult(res))
	if err := d.deps.Sink.Save(ctx, res); err != nil {
		log.Warn("failed to save summary artifact", "err", err)
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, log *slog.Logger, target, text string) {
	if err := d.deps.Deliverer.Deliver(ctx, deliver.Message{Target: target, Text: text}); err != nil {
		log.Error("delivery failed", "kind", summary.KindOf(err), "err", err)
		return
	}
	log.Info("summary delivered")
}

// OnMention posts the usage hint when a mention asks about /summarize.
// It reports whether a hint was posted.
func (d *Dispatcher) OnMention(ctx context.Context, m slackevent.Mention) bool {
	if d.deps.Poster == nil || !strings.Contains(m.Text, "/summarize") {
		return false
	}
	if err := d.deps.Poster.Post(ctx, m.Channel, MsgMentionHint); err != nil {
		d.deps.Log.Warn("failed to post mention hint", "channel", m.Channel, "err", err)
		return false
	}
	return true
}

// Summarize runs the pipeline inline for rawURL. It backs the synchronous HTTP endpoint and the CLI.
func (d *Dispatcher) Summarize(ctx context.Context, rawURL string) (summary.Result, error) {
	req, err := summary.NewRequest(rawURL, rawURL, "")
	if err != nil {
		return summary.Result{}, err
	}
	res, err := d.deps.Runner.Run(ctx, req)
	if err != nil {
		return summary.Result{}, err
	}
	if err := d.deps.Sink.Save(ctx, res); err != nil {
		d.deps.Log.Warn("failed to save summary artifact", "request_id", req.ID, "err", err)
	}
	return res, nil
}
