package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"slack-summarizer/internal/app"
	"slack-summarizer/internal/httputil"
	"slack-summarizer/internal/queue"
)

func main() {
	deps, err := app.BuildWorker()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			deps.Log.Warn("failed to release dependencies", "err", err)
		}
	}()
	deps.Log.Info("summarize worker starting", "concurrency", deps.Config.WorkerConcurrency)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	// Run queue worker
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeSummarize, deps.Dispatcher.HandleTask)
	})

	// Run health check server
	g.Go(func() error {
		return httputil.ServeHealth(ctx, deps.Log, deps.Config.Port, "worker")
	})

	// Wait for either to fail
	if err := g.Wait(); err != nil {
		deps.Log.Error("worker stopped", "err", err)
	}
}
