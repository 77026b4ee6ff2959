package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"slack-summarizer/internal/deliver"
)

const sendTimeout = 15 * time.Second

// Scheduler posts a fixed reminder to one channel on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	poster  deliver.Poster
	channel string
	text    string
	log     *slog.Logger
}

// New builds a Scheduler. Schedules run in UTC.
func New(poster deliver.Poster, channel, text string, log *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		poster:  poster,
		channel: channel,
		text:    text,
		log:     log,
	}
}

// Run registers the reminder on schedule, starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context, schedule string) error {
	if _, err := s.cron.AddFunc(schedule, func() { s.Send(ctx) }); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	s.log.Info("reminder scheduled", "schedule", schedule, "channel", s.channel)

	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

// Send posts the reminder once. Failures are logged.
func (s *Scheduler) Send(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := s.poster.Post(sendCtx, s.channel, s.text); err != nil {
		s.log.Error("failed to send reminder", "channel", s.channel, "err", err)
		return false
	}
	s.log.Info("reminder sent", "channel", s.channel)
	return true
}
