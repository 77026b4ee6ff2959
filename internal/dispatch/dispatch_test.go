package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"slack-summarizer/internal/artifact"
	"slack-summarizer/internal/deliver"
	"slack-summarizer/internal/extract"
	"slack-summarizer/internal/llm"
	"slack-summarizer/internal/logger"
	"slack-summarizer/internal/pipeline"
	"slack-summarizer/internal/queue"
	"slack-summarizer/internal/slackevent"
	"slack-summarizer/internal/summary"
)

const hookURL = "https://hooks.slack.com/commands/T1/1/secret"

// recorder collects delivered messages and lets tests wait for them.
type recorder struct {
	mu   sync.Mutex
	msgs []deliver.Message
	ch   chan deliver.Message
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan deliver.Message, 64)}
}

func (r *recorder) Deliver(_ context.Context, msg deliver.Message) error {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
	r.ch <- msg
	return nil
}

func (r *recorder) wait(t *testing.T) deliver.Message {
	t.Helper()
	select {
	case msg := <-r.ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return deliver.Message{}
	}
}

func command(text string) slackevent.Command {
	return slackevent.Command{Name: "/summarize", Text: text, ResponseURL: hookURL, UserID: "U1", ChannelID: "C1"}
}

// startWorker runs the summarize worker on a memory queue until the test ends.
func startWorker(t *testing.T, q *queue.Memory, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.Worker(ctx, queue.TaskTypeSummarize, d.HandleTask)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestCleanURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://go.dev/doc", "https://go.dev/doc"},
		{"  http://example.com  ", "http://example.com"},
		{"<https://go.dev/blog|go.dev/blog>", "https://go.dev/blog"},
		{"<https://go.dev/blog>", "https://go.dev/blog"},
		{"please summarize <https://example.com/a?b=1|this> thanks", "https://example.com/a?b=1"},
		{"see https://example.com/post.", "https://example.com/post"},
		{"ftp://example.com/file https://example.com", "https://example.com"},
		{"<https://example.com/search?q=go&amp;page=2>", "https://example.com/search?q=go&page=2"},
		{"<https://example.com/?a=1&amp;b=2|example.com>", "https://example.com/?a=1&b=2"},
		{"https://example.com/x?y=1&amp;z=2", "https://example.com/x?y=1&z=2"},
		{"<mailto:a@example.com|a@example.com>", ""},
		{"example.com", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanURL(tt.in))
		})
	}
}

func TestRegistry(t *testing.T) {
	d := New(Deps{Log: logger.Discard()})
	require.NoError(t, d.RegisterSummarize("/summarizeurl", "/summarize"))

	_, ok := d.Lookup("/summarize")
	assert.True(t, ok)
	_, ok = d.Lookup("/summarizeurl")
	assert.True(t, ok)
	_, ok = d.Lookup("/other")
	assert.False(t, ok)

	assert.Error(t, d.RegisterSummarize("/summarize"), "duplicate")
	assert.Error(t, d.Register("summarize", func(context.Context, slackevent.Command) Ack { return Ack{} }))
	assert.Error(t, d.Register("/x", nil))

	_, handled := d.OnCommand(context.Background(), slackevent.Command{Name: "/weather", Text: "https://go.dev"})
	assert.False(t, handled)
}

func TestOnCommandAcks(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		setup    func(*queue.MockQueue)
		wantText string
		enqueued bool
	}{
		{
			name: "valid url is scheduled",
			text: "<https://go.dev|go.dev>",
			setup: func(q *queue.MockQueue) {
				q.On("Enqueue", mock.Anything, mock.MatchedBy(func(task queue.Task) bool {
					return task.Type == queue.TaskTypeSummarize && task.MaxAttempts == 1
				})).Return(nil).Once()
			},
			wantText: MsgProcessing,
			enqueued: true,
		},
		{name: "empty text", text: "  ", wantText: MsgInvalidURL},
		{name: "no scheme", text: "go.dev", wantText: MsgInvalidURL},
		{name: "non http link", text: "<mailto:a@b.co|a@b.co>", wantText: MsgInvalidURL},
		{
			name: "queue unavailable",
			text: "https://go.dev",
			setup: func(q *queue.MockQueue) {
				q.On("Enqueue", mock.Anything, mock.Anything).Return(queue.ErrQueueFull).Times(enqueueAttempts)
			},
			wantText: MsgNotScheduled,
			enqueued: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := new(queue.MockQueue)
			if tt.setup != nil {
				tt.setup(q)
			}
			d := New(Deps{Log: logger.Discard(), Queue: q})
			require.NoError(t, d.RegisterSummarize("/summarize"))

			ack, handled := d.OnCommand(context.Background(), command(tt.text))
			require.True(t, handled)
			assert.Equal(t, Ack{ResponseType: "ephemeral", Text: tt.wantText}, ack)

			q.AssertExpectations(t)
			if !tt.enqueued {
				q.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestHandleTask(t *testing.T) {
	res := summary.NewResult("Go is a language.", []string{"go", "language"})

	tests := []struct {
		name     string
		runErr   error
		wantText string
		saved    bool
	}{
		{"success", nil, "*Summary:*\nGo is a language.\n\n*Keywords:*\ngo, language", true},
		{"extraction failed", summary.Fail(summary.ExtractionFailed, "status 404"), FailureMessage(summary.Fail(summary.ExtractionFailed, "")), false},
		{"content too short", summary.Fail(summary.ContentTooShort, "12 chars"), FailureMessage(summary.Fail(summary.ContentTooShort, "")), false},
		{"model failed", summary.Wrap(summary.ModelCallFailed, "model call", errors.New("secret upstream trace")), FailureMessage(summary.Fail(summary.ModelCallFailed, "")), false},
		{"parse failed", &summary.Error{Kind: summary.ParseFailed, Raw: "garbage"}, FailureMessage(summary.Fail(summary.ParseFailed, "")), false},
		{"untyped error", errors.New("boom"), MsgUnknownFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(pipeline.MockRunner)
			if tt.runErr != nil {
				runner.On("Run", mock.Anything, mock.Anything).Return(summary.Result{}, tt.runErr).Once()
			} else {
				runner.On("Run", mock.Anything, mock.MatchedBy(func(r summary.Request) bool {
					return r.URL == "https://go.dev" && r.CallbackTarget == hookURL
				})).Return(res, nil).Once()
			}
			del := new(deliver.MockDeliverer)
			del.On("Deliver", mock.Anything, deliver.Message{Target: hookURL, Text: tt.wantText}).Return(nil).Once()
			sink := new(artifact.MockSink)
			if tt.saved {
				sink.On("Save", mock.Anything, res).Return(nil).Once()
			}

			q := new(queue.MockQueue)
			q.On("Enqueue", mock.Anything, mock.Anything).Return(nil).Once()

			d := New(Deps{Log: logger.Discard(), Queue: q, Runner: runner, Deliverer: del, Sink: sink})
			require.NoError(t, d.RegisterSummarize("/summarize"))
			_, _ = d.OnCommand(context.Background(), command("https://go.dev"))

			tasks := q.Enqueued()
			require.Len(t, tasks, 1)
			require.NoError(t, d.HandleTask(context.Background(), tasks[0]))
			runner.AssertExpectations(t)
			del.AssertExpectations(t)
			sink.AssertExpectations(t)
			assert.NotContains(t, tt.wantText, "secret upstream trace")
		})
	}
}

func TestHandleTaskDeliveryFailureIsNotRetried(t *testing.T) {
	runner := new(pipeline.MockRunner)
	runner.On("Run", mock.Anything, mock.Anything).Return(summary.NewResult("s", nil), nil).Once()
	del := new(deliver.MockDeliverer)
	del.On("Deliver", mock.Anything, mock.Anything).Return(summary.Fail(summary.DeliveryFailed, "status 500")).Once()

	d := New(Deps{Log: logger.Discard(), Runner: runner, Deliverer: del})
	task, err := queue.NewTask(queue.TaskTypeSummarize, summarizeTask{URL: "https://go.dev", CallbackTarget: hookURL}, 1)
	require.NoError(t, err)

	require.NoError(t, d.HandleTask(context.Background(), task))
	del.AssertNumberOfCalls(t, "Deliver", 1)
}

func TestHandleTaskBadPayload(t *testing.T) {
	d := New(Deps{Log: logger.Discard()})
	err := d.HandleTask(context.Background(), queue.Task{Type: queue.TaskTypeSummarize, Payload: []byte("{")})
	require.Error(t, err)
}

func TestHandleTaskRecoversPanic(t *testing.T) {
	runner := new(pipeline.MockRunner)
	runner.On("Run", mock.Anything, mock.Anything).Run(func(mock.Arguments) { panic("extractor bug") }).Once()
	rec := newRecorder()

	d := New(Deps{Log: logger.Discard(), Runner: runner, Deliverer: rec})
	task, err := queue.NewTask(queue.TaskTypeSummarize, summarizeTask{URL: "https://go.dev", CallbackTarget: hookURL}, 1)
	require.NoError(t, err)

	require.NotPanics(t, func() { _ = d.HandleTask(context.Background(), task) })
	assert.Equal(t, deliver.Message{Target: hookURL, Text: MsgUnknownFailed}, rec.wait(t))
}

func TestAckPrecedesPipeline(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	runner := new(pipeline.MockRunner)
	runner.On("Run", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(summary.NewResult("late summary", []string{"k"}), nil).Once()

	rec := newRecorder()
	q := queue.NewMemory(logger.Discard(), 8, 1)
	d := New(Deps{Log: logger.Discard(), Queue: q, Runner: runner, Deliverer: rec})
	require.NoError(t, d.RegisterSummarize("/summarize"))
	startWorker(t, q, d)

	ack, handled := d.OnCommand(context.Background(), command("https://go.dev"))
	require.True(t, handled)
	assert.Equal(t, MsgProcessing, ack.Text)

	<-started
	select {
	case msg := <-rec.ch:
		t.Fatalf("delivered before the pipeline finished: %+v", msg)
	default:
	}
	close(release)

	msg := rec.wait(t)
	assert.Equal(t, hookURL, msg.Target)
	assert.Contains(t, msg.Text, "late summary")
}

func TestEndToEndMinimumContent(t *testing.T) {
	lorem := "Lorem ipsum dolor sit amet, consectetur adipiscing"
	require.Len(t, []rune(lorem), 50)

	ex := new(extract.MockExtractor)
	ex.On("Extract", mock.Anything, "https://example.com/lorem").Return(summary.Content{Text: lorem, OriginalLength: 50}, nil)
	model := new(llm.MockClient)
	model.On("Complete", mock.Anything, mock.Anything).Return(`{"Summary":"demo summary","keywords":"x, y, z"}`, nil)

	rec := newRecorder()
	sink := new(artifact.MockSink)
	sink.On("Save", mock.Anything, summary.Result{Summary: "demo summary", Keywords: []string{"x", "y", "z"}}).Return(nil)

	q := queue.NewMemory(logger.Discard(), 8, 2)
	d := New(Deps{
		Log:       logger.Discard(),
		Queue:     q,
		Runner:    pipeline.New(ex, model, logger.Discard(), pipeline.DefaultMinChars),
		Deliverer: rec,
		Sink:      sink,
	})
	require.NoError(t, d.RegisterSummarize("/summarizeurl", "/summarize"))
	startWorker(t, q, d)

	ack, handled := d.OnCommand(context.Background(), command("<https://example.com/lorem|example.com/lorem>"))
	require.True(t, handled)
	assert.Equal(t, MsgProcessing, ack.Text)

	msg := rec.wait(t)
	assert.Equal(t, hookURL, msg.Target)
	assert.Equal(t, "*Summary:*\ndemo summary\n\n*Keywords:*\nx, y, z", msg.Text)

	res, err := d.Summarize(context.Background(), "https://example.com/lorem")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, res.Keywords)
	model.AssertNumberOfCalls(t, "Complete", 2)
}

func TestConcurrentCommandsStayIsolated(t *testing.T) {
	const n = 20

	runner := new(pipeline.MockRunner)
	runner.On("Run", mock.Anything, mock.Anything).Return(func(_ context.Context, req summary.Request) summary.Result {
		return summary.NewResult("summary of "+req.URL, []string{req.URL})
	}, nil)

	rec := newRecorder()
	q := queue.NewMemory(logger.Discard(), n, 4)
	d := New(Deps{Log: logger.Discard(), Queue: q, Runner: runner, Deliverer: rec})
	require.NoError(t, d.RegisterSummarize("/summarize"))
	startWorker(t, q, d)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cmd := command(fmt.Sprintf("https://example.com/page/%d", i))
			cmd.ResponseURL = fmt.Sprintf("https://hooks.example/%d", i)
			ack, handled := d.OnCommand(context.Background(), cmd)
			assert.True(t, handled)
			assert.Equal(t, MsgProcessing, ack.Text)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		rec.wait(t)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.msgs, n)
	for _, msg := range rec.msgs {
		var i int
		_, err := fmt.Sscanf(msg.Target, "https://hooks.example/%d", &i)
		require.NoError(t, err)
		assert.Contains(t, msg.Text, fmt.Sprintf("summary of https://example.com/page/%d\n", i))
	}
}

func TestOnMention(t *testing.T) {
	poster := new(deliver.MockPoster)
	poster.On("Post", mock.Anything, "C1", MsgMentionHint).Return(nil).Once()

	d := New(Deps{Log: logger.Discard(), Poster: poster})
	assert.True(t, d.OnMention(context.Background(), slackevent.Mention{Channel: "C1", Text: "<@B1> how does /summarize work?"}))
	assert.False(t, d.OnMention(context.Background(), slackevent.Mention{Channel: "C1", Text: "<@B1> hello"}))
	poster.AssertExpectations(t)

	noPoster := New(Deps{Log: logger.Discard()})
	assert.False(t, noPoster.OnMention(context.Background(), slackevent.Mention{Channel: "C1", Text: "/summarize?"}))
}

func TestSummarize(t *testing.T) {
	runner := new(pipeline.MockRunner)
	runner.On("Run", mock.Anything, mock.Anything).Return(summary.Result{}, summary.Fail(summary.ContentTooShort, "short")).Once()
	d := New(Deps{Log: logger.Discard(), Runner: runner})

	_, err := d.Summarize(context.Background(), "not a url")
	assert.Equal(t, summary.InvalidInput, summary.KindOf(err))

	_, err = d.Summarize(context.Background(), "https://go.dev")
	assert.Equal(t, summary.ContentTooShort, summary.KindOf(err))
	runner.AssertExpectations(t)
}
