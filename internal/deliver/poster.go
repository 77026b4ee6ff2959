package deliver

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// Poster posts a message to a channel with a bot token.
type Poster interface {
	Post(ctx context.Context, channel, text string) error
}

// SlackPoster wraps the Slack Web API client.
type SlackPoster struct {
	api *slack.Client
}

// NewSlackPoster builds a poster for token; apiURL overrides the Slack API base when set.
func NewSlackPoster(token, apiURL string) *SlackPoster {
	opts := []slack.Option{}
	if apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}
	return &SlackPoster{api: slack.New(token, opts...)}
}

// AuthTest verifies the token and returns the bot user name.
func (p *SlackPoster) AuthTest(ctx context.Context) (string, error) {
	resp, err := p.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack auth test: %w", err)
	}
	return resp.User, nil
}

func (p *SlackPoster) Post(ctx context.Context, channel, text string) error {
	if channel == "" {
		return fmt.Errorf("channel required")
	}
	if _, _, err := p.api.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("post to %s: %w", channel, err)
	}
	return nil
}
