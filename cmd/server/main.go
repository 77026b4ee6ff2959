package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"slack-summarizer/internal/app"
	"slack-summarizer/internal/httputil"
	"slack-summarizer/internal/queue"
	"slack-summarizer/internal/slackevent"
	"slack-summarizer/internal/summary"
)

const (
	mentionTimeout = 10 * time.Second
	maxRequestBody = 1 << 16
)

type summarizeRequest struct {
	URL string `json:"url"`
}

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			deps.Log.Warn("failed to release dependencies", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	// In-process queue: the worker lives next to the HTTP server
	if _, ok := deps.Queue.(*queue.Memory); ok {
		g.Go(func() error {
			return deps.Queue.Worker(ctx, queue.TaskTypeSummarize, deps.Dispatcher.HandleTask)
		})
	}

	g.Go(func() error {
		return httputil.Serve(ctx, deps.Log, fmt.Sprintf(":%d", deps.Config.Port), routes(deps))
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("server stopped", "err", err)
	}
}

func routes(deps app.Deps) *chi.Mux {
	r := httputil.NewRouter(deps.Log)
	r.Get("/", httputil.TextHandler(deps.Log, "Slack Summarizer is running"))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	r.Post("/summarize", summarizeHandler(deps))
	r.Post("/slack/events", slackEventsHandler(deps))
	return r
}

// summarizeHandler runs the pipeline inline and answers with the result.
func summarizeHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body summarizeRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&body); err != nil {
			httputil.FailJSON(deps.Log, w, "Invalid url", err, http.StatusBadRequest)
			return
		}

		res, err := deps.Dispatcher.Summarize(r.Context(), body.URL)
		if err != nil {
			message, status := summarizeFailure(err)
			httputil.FailJSON(deps.Log, w, message, err, status)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, res)
	}
}

func summarizeFailure(err error) (string, int) {
	switch summary.KindOf(err) {
	case summary.InvalidInput:
		return "Invalid url", http.StatusBadRequest
	case summary.ContentTooShort:
		return "Content too short to summarize", http.StatusBadRequest
	case summary.ExtractionFailed:
		return "Could not extract content from url", http.StatusBadGateway
	case summary.ModelCallFailed:
		return "Summarization service unavailable", http.StatusBadGateway
	case summary.ParseFailed:
		return "Summarization service returned an unreadable response", http.StatusBadGateway
	default:
		return "Internal error", http.StatusInternalServerError
	}
}

// slackEventsHandler answers challenges, acknowledges registered commands and ignores the rest.
func slackEventsHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := slackevent.Decode(r)
		if errors.Is(err, slackevent.ErrUnsupportedMediaType) {
			httputil.Fail(deps.Log, w, "Unsupported Media Type", err, http.StatusUnsupportedMediaType)
			return
		}
		if err != nil {
			httputil.FailJSON(deps.Log, w, "Invalid payload", err, http.StatusBadRequest)
			return
		}

		switch payload.Kind {
		case slackevent.KindChallenge:
			httputil.WriteJSON(w, http.StatusOK, map[string]string{"challenge": payload.Challenge})
			return
		case slackevent.KindCommand:
			if ack, ok := deps.Dispatcher.OnCommand(r.Context(), payload.Command); ok {
				httputil.WriteJSON(w, http.StatusOK, ack)
				return
			}
		case slackevent.KindMention:
			ctx := context.WithoutCancel(r.Context())
			go func() {
				ctx, cancel := context.WithTimeout(ctx, mentionTimeout)
				defer cancel()
				deps.Dispatcher.OnMention(ctx, payload.Mention)
			}()
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	}
}
