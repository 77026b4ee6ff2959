package socket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"slack-summarizer/internal/deliver"
	"slack-summarizer/internal/dispatch"
	"slack-summarizer/internal/logger"
	"slack-summarizer/internal/queue"
)

type ackCall struct {
	envelopeID string
	payload    []interface{}
}

type recordingAcker struct {
	mu    sync.Mutex
	calls []ackCall
}

func (a *recordingAcker) Ack(req socketmode.Request, payload ...interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, ackCall{envelopeID: req.EnvelopeID, payload: payload})
}

func (a *recordingAcker) acks() []ackCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ackCall(nil), a.calls...)
}

// runEvents feeds events through the client's event channel and waits for the loop to drain it.
func runEvents(t *testing.T, d Dispatcher, events ...socketmode.Event) *recordingAcker {
	t.Helper()
	client := socketmode.New(slack.New("xoxb-test", slack.OptionAppLevelToken("xapp-test")))
	l := &Listener{log: logger.Discard(), client: client, dispatcher: d}

	ack := &recordingAcker{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.consume(context.Background(), client.Events, ack)
	}()
	for _, evt := range events {
		client.Events <- evt
	}
	close(client.Events)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event loop did not stop")
	}
	return ack
}

func newDispatcher(t *testing.T, q queue.Queue, poster deliver.Poster) *dispatch.Dispatcher {
	t.Helper()
	d := dispatch.New(dispatch.Deps{Log: logger.Discard(), Queue: q, Poster: poster})
	require.NoError(t, d.RegisterSummarize("/summarize"))
	return d
}

func slashCommand(envelope, name, text string) socketmode.Event {
	return socketmode.Event{
		Type: socketmode.EventTypeSlashCommand,
		Data: slack.SlashCommand{
			Command:     name,
			Text:        text,
			ResponseURL: "https://hooks.slack.com/commands/T1/1/secret",
			UserID:      "U1",
			ChannelID:   "C1",
		},
		Request: &socketmode.Request{EnvelopeID: envelope},
	}
}

func TestSlashCommandIsAcknowledgedWithDispatcherReply(t *testing.T) {
	q := new(queue.MockQueue)
	q.On("Enqueue", mock.Anything, mock.Anything).Return(nil).Once()
	d := newDispatcher(t, q, nil)

	ack := runEvents(t, d,
		slashCommand("env-1", "/summarize", "<https://go.dev/doc|go.dev>"),
		slashCommand("env-2", "/summarize", "not a url"),
		slashCommand("env-3", "/weather", "tomorrow"),
	)

	calls := ack.acks()
	require.Len(t, calls, 3)

	assert.Equal(t, "env-1", calls[0].envelopeID)
	require.Len(t, calls[0].payload, 1)
	assert.Equal(t, dispatch.Ack{ResponseType: deliver.ResponseEphemeral, Text: dispatch.MsgProcessing}, calls[0].payload[0])

	assert.Equal(t, "env-2", calls[1].envelopeID)
	require.Len(t, calls[1].payload, 1)
	assert.Equal(t, dispatch.MsgInvalidURL, calls[1].payload[0].(dispatch.Ack).Text)

	assert.Equal(t, "env-3", calls[2].envelopeID)
	assert.Empty(t, calls[2].payload)

	tasks := q.Enqueued()
	require.Len(t, tasks, 1)
	assert.Contains(t, string(tasks[0].Payload), `"url":"https://go.dev/doc"`)
}

func TestAppMentionPostsHint(t *testing.T) {
	posted := make(chan string, 1)
	poster := new(deliver.MockPoster)
	poster.On("Post", mock.Anything, "C9", dispatch.MsgMentionHint).Run(func(args mock.Arguments) {
		posted <- args.String(1)
	}).Return(nil).Once()
	d := newDispatcher(t, new(queue.MockQueue), poster)

	mention := socketmode.Event{
		Type: socketmode.EventTypeEventsAPI,
		Data: slackevents.EventsAPIEvent{
			Type: slackevents.CallbackEvent,
			InnerEvent: slackevents.EventsAPIInnerEvent{
				Type: string(slackevents.AppMention),
				Data: &slackevents.AppMentionEvent{Channel: "C9", User: "U1", Text: "<@B1> how do I use /summarize?"},
			},
		},
		Request: &socketmode.Request{EnvelopeID: "env-mention"},
	}
	ack := runEvents(t, d, mention)

	calls := ack.acks()
	require.Len(t, calls, 1)
	assert.Equal(t, "env-mention", calls[0].envelopeID)
	assert.Empty(t, calls[0].payload)

	select {
	case channel := <-posted:
		assert.Equal(t, "C9", channel)
	case <-time.After(5 * time.Second):
		t.Fatal("mention hint was not posted")
	}
	poster.AssertExpectations(t)
}

func TestOtherEventsAreAckedAndIgnored(t *testing.T) {
	d := newDispatcher(t, new(queue.MockQueue), new(deliver.MockPoster))

	ack := runEvents(t, d,
		socketmode.Event{Type: socketmode.EventTypeConnecting},
		socketmode.Event{Type: socketmode.EventTypeConnected},
		socketmode.Event{
			Type: socketmode.EventTypeEventsAPI,
			Data: slackevents.EventsAPIEvent{
				Type: slackevents.CallbackEvent,
				InnerEvent: slackevents.EventsAPIInnerEvent{
					Type: string(slackevents.Message),
					Data: &slackevents.MessageEvent{Channel: "C1", Text: "hello"},
				},
			},
			Request: &socketmode.Request{EnvelopeID: "env-msg"},
		},
		socketmode.Event{Type: socketmode.EventTypeSlashCommand, Data: "garbage"},
	)

	calls := ack.acks()
	require.Len(t, calls, 1)
	assert.Equal(t, "env-msg", calls[0].envelopeID)
}

func TestConsumeStopsOnCancel(t *testing.T) {
	l := &Listener{log: logger.Discard(), dispatcher: newDispatcher(t, new(queue.MockQueue), nil)}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.consume(ctx, make(chan socketmode.Event), &recordingAcker{})
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consume did not return after cancel")
	}
}
