// Package socket receives slash commands and app mentions over a Slack Socket Mode
// connection and hands them to the dispatcher, so no public HTTP endpoint is needed.
package socket

import (
	"context"
	"log/slog"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"golang.org/x/sync/errgroup"

	"slack-summarizer/internal/dispatch"
	"slack-summarizer/internal/slackevent"
)

const mentionTimeout = 10 * time.Second

// Dispatcher is what the listener drives. *dispatch.Dispatcher implements it.
type Dispatcher interface {
	OnCommand(ctx context.Context, cmd slackevent.Command) (dispatch.Ack, bool)
	OnMention(ctx context.Context, m slackevent.Mention) bool
}

type acker interface {
	Ack(req socketmode.Request, payload ...interface{})
}

// Listener owns one Socket Mode connection.
type Listener struct {
	log        *slog.Logger
	client     *socketmode.Client
	dispatcher Dispatcher
}

// New builds a listener. appToken is the xapp- app-level token.
func New(log *slog.Logger, botToken, appToken string, d Dispatcher) *Listener {
	api := slack.New(botToken, slack.OptionAppLevelToken(appToken))
	return &Listener{
		log:        log,
		client:     socketmode.New(api),
		dispatcher: d,
	}
}

// Run connects and consumes events until ctx is done.
func (l *Listener) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return l.client.RunContext(ctx)
	})
	g.Go(func() error {
		l.consume(ctx, l.client.Events, l.client)
		return nil
	})
	return g.Wait()
}

func (l *Listener) consume(ctx context.Context, events <-chan socketmode.Event, ack acker) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			l.handle(ctx, evt, ack)
		}
	}
}

func (l *Listener) handle(ctx context.Context, evt socketmode.Event, ack acker) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		l.log.Info("connecting to Slack in Socket Mode")
	case socketmode.EventTypeConnected:
		l.log.Info("connected to Slack in Socket Mode")
	case socketmode.EventTypeConnectionError:
		l.log.Warn("socket mode connection failed, retrying", "data", evt.Data)
	case socketmode.EventTypeSlashCommand:
		l.onSlashCommand(ctx, evt, ack)
	case socketmode.EventTypeEventsAPI:
		l.onEventsAPI(ctx, evt, ack)
	}
}

func (l *Listener) onSlashCommand(ctx context.Context, evt socketmode.Event, ack acker) {
	cmd, ok := evt.Data.(slack.SlashCommand)
	if !ok || evt.Request == nil {
		l.log.Warn("unexpected slash command event", "data", evt.Data)
		return
	}
	reply, handled := l.dispatcher.OnCommand(ctx, slackevent.CommandFrom(cmd))
	if !handled {
		l.log.Info("ignored unregistered command", "command", cmd.Command)
		ack.Ack(*evt.Request)
		return
	}
	ack.Ack(*evt.Request, reply)
}

func (l *Listener) onEventsAPI(ctx context.Context, evt socketmode.Event, ack acker) {
	ev, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok {
		l.log.Warn("unexpected events api event", "data", evt.Data)
		return
	}
	if evt.Request != nil {
		ack.Ack(*evt.Request)
	}
	mention, ok := ev.InnerEvent.Data.(*slackevents.AppMentionEvent)
	if !ok {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(ctx, mentionTimeout)
		defer cancel()
		l.dispatcher.OnMention(ctx, slackevent.MentionFrom(mention))
	}()
}
