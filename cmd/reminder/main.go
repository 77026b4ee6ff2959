package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"slack-summarizer/internal/app"
	"slack-summarizer/internal/reminder"
)

func main() {
	deps, err := app.BuildReminder()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	user, err := deps.Poster.AuthTest(ctx)
	if err != nil {
		deps.Log.Error("slack authentication failed", "err", err)
		os.Exit(1)
	}
	deps.Log.Info("slack authentication succeeded", "user", user)

	s := reminder.New(deps.Poster, deps.Config.SlackChannel, deps.Config.ReminderText, deps.Log)
	if err := s.Run(ctx, deps.Config.ReminderSchedule); err != nil {
		deps.Log.Error("reminder stopped", "err", err)
		os.Exit(1)
	}
}
