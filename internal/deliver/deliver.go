package deliver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/slack-go/slack"

	"slack-summarizer/internal/summary"
)

// ResponseEphemeral shows a reply only to the user who issued the command.
const ResponseEphemeral = "ephemeral"

// Message is one reply for a chat callback target.
type Message struct {
	Target string
	Text   string
}

// Deliverer sends a message to a callback target.
type Deliverer interface {
	Deliver(ctx context.Context, msg Message) error
}

// Webhook posts ephemeral replies to Slack response URLs.
type Webhook struct {
	client *http.Client
}

// NewWebhook builds a Webhook whose requests time out after timeout.
func NewWebhook(timeout time.Duration) *Webhook {
	return &Webhook{client: &http.Client{Timeout: timeout}}
}

// Deliver posts {"response_type":"ephemeral","text":...} to msg.Target. The body
// also carries replace_original and delete_original as false, so Slack adds a new message.
// Failures are DeliveryFailed errors and are not retried.
func (w *Webhook) Deliver(ctx context.Context, msg Message) error {
	if msg.Target == "" {
		return summary.Fail(summary.DeliveryFailed, "no callback target")
	}
	err := slack.PostWebhookCustomHTTPContext(ctx, msg.Target, w.client, &slack.WebhookMessage{
		ResponseType: ResponseEphemeral,
		Text:         msg.Text,
	})
	if err != nil {
		return summary.Wrap(summary.DeliveryFailed, fmt.Sprintf("post to %s", redact(msg.Target)), err)
	}
	return nil
}

// redact keeps the host of a response URL so logs never carry its secret path.
func redact(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return "callback"
	}
	return u.Scheme + "://" + u.Host
}
