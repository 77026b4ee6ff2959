// Package slackevent decodes the bodies Slack posts to the events endpoint:
// URL verification challenges, slash commands and Events API callbacks.
package slackevent

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// maxBody bounds the request body read from Slack.
const maxBody = 1 << 20

// ErrUnsupportedMediaType is returned for bodies that are neither JSON nor form encoded.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

// Kind says what a payload asks for.
type Kind int

const (
	KindIgnored Kind = iota
	KindChallenge
	KindCommand
	KindMention
)

// Command is a slash command invocation.
type Command struct {
	Name        string
	Text        string
	ResponseURL string
	UserID      string
	ChannelID   string
}

// Mention is an app_mention event.
type Mention struct {
	Channel string
	User    string
	Text    string
}

// Payload is one decoded request.
type Payload struct {
	Kind      Kind
	Challenge string
	Command   Command
	Mention   Mention
}

// Decode reads r according to its Content-Type.
func Decode(r *http.Request) (Payload, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %q", ErrUnsupportedMediaType, r.Header.Get("Content-Type"))
	}
	r.Body = http.MaxBytesReader(nil, r.Body, maxBody)

	switch mediaType {
	case "application/json":
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return Payload{}, fmt.Errorf("read body: %w", err)
		}
		return decodeJSON(body)
	case "application/x-www-form-urlencoded":
		return decodeForm(r)
	default:
		return Payload{}, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mediaType)
	}
}

// envelope holds the top-level fields checked before any typed parsing.
type envelope struct {
	Type        string `json:"type"`
	Challenge   string `json:"challenge"`
	Command     string `json:"command"`
	Text        string `json:"text"`
	ResponseURL string `json:"response_url"`
	UserID      string `json:"user_id"`
	ChannelID   string `json:"channel_id"`
}

func decodeJSON(body []byte) (Payload, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Payload{}, fmt.Errorf("decode json body: %w", err)
	}
	switch {
	case env.Challenge != "":
		return Payload{Kind: KindChallenge, Challenge: env.Challenge}, nil
	case env.Command != "":
		return Payload{Kind: KindCommand, Command: Command{
			Name:        env.Command,
			Text:        env.Text,
			ResponseURL: env.ResponseURL,
			UserID:      env.UserID,
			ChannelID:   env.ChannelID,
		}}, nil
	case env.Type == slackevents.CallbackEvent:
		return decodeCallback(body)
	}
	return Payload{Kind: KindIgnored}, nil
}

func decodeCallback(body []byte) (Payload, error) {
	ev, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		return Payload{}, fmt.Errorf("decode event callback: %w", err)
	}
	if mention, ok := ev.InnerEvent.Data.(*slackevents.AppMentionEvent); ok {
		return Payload{Kind: KindMention, Mention: MentionFrom(mention)}, nil
	}
	return Payload{Kind: KindIgnored}, nil
}

func decodeForm(r *http.Request) (Payload, error) {
	if err := r.ParseForm(); err != nil {
		return Payload{}, fmt.Errorf("decode form body: %w", err)
	}
	if challenge := r.PostForm.Get("challenge"); challenge != "" {
		return Payload{Kind: KindChallenge, Challenge: challenge}, nil
	}
	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		return Payload{}, fmt.Errorf("decode slash command: %w", err)
	}
	if strings.TrimSpace(cmd.Command) == "" {
		return Payload{Kind: KindIgnored}, nil
	}
	return Payload{Kind: KindCommand, Command: CommandFrom(cmd)}, nil
}

// CommandFrom converts a parsed slash command, from a form body or a Socket Mode envelope.
func CommandFrom(cmd slack.SlashCommand) Command {
	return Command{
		Name:        cmd.Command,
		Text:        cmd.Text,
		ResponseURL: cmd.ResponseURL,
		UserID:      cmd.UserID,
		ChannelID:   cmd.ChannelID,
	}
}

// MentionFrom converts an app_mention inner event.
func MentionFrom(ev *slackevents.AppMentionEvent) Mention {
	return Mention{Channel: ev.Channel, User: ev.User, Text: ev.Text}
}
