package llm

import (
	"context"

	"slack-summarizer/internal/prompt"
)

// Client sends one prompt to a chat model and returns the raw reply text.
// Implementations make exactly one network call per Complete.
type Client interface {
	Complete(ctx context.Context, req prompt.Request) (string, error)
}
