package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"slack-summarizer/internal/app"
	"slack-summarizer/internal/httputil"
	"slack-summarizer/internal/queue"
	"slack-summarizer/internal/socket"
)

func main() {
	deps, err := app.BuildSocket()
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

	// In-process queue: the worker lives next to the listener
	if _, ok := deps.Queue.(*queue.Memory); ok {
		g.Go(func() error {
			return deps.Queue.Worker(ctx, queue.TaskTypeSummarize, deps.Dispatcher.HandleTask)
		})
	}

	listener := socket.New(deps.Log, deps.Config.SlackBotToken, deps.Config.SlackAppToken, deps.Dispatcher)
	g.Go(func() error {
		return listener.Run(ctx)
	})

	g.Go(func() error {
		return httputil.ServeHealth(ctx, deps.Log, deps.Config.Port, "socket")
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		deps.Log.Error("socket listener stopped", "err", err)
	}
}
