package artifact

import (
	"context"

	"github.com/stretchr/testify/mock"

	"slack-summarizer/internal/summary"
)

// MockSink is a mock implementation of the Sink interface for testing
type MockSink struct {
	mock.Mock
}

func (m *MockSink) Save(ctx context.Context, res summary.Result) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}

func (m *MockSink) Close() error {
	args := m.Called()
	return args.Error(0)
}
