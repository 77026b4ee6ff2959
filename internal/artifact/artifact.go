package artifact

import (
	"context"

	"slack-summarizer/internal/summary"
)

// Sink stores the most recent summary result. Each Save overwrites the previous one.
type Sink interface {
	Save(ctx context.Context, res summary.Result) error

	// Close releases the sink's connection, if any.
	Close() error
}

// NoOpSink drops every result. Used when ARTIFACT_PROVIDER=none.
type NoOpSink struct{}

// NewNoOpSink creates a new no-op sink instance
func NewNoOpSink() *NoOpSink {
	return &NoOpSink{}
}

func (NoOpSink) Save(context.Context, summary.Result) error { return nil }

func (NoOpSink) Close() error { return nil }
