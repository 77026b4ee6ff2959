package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"slack-summarizer/internal/summary"
)

// MockRunner is a mock implementation of Runner using testify/mock.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, req summary.Request) (summary.Result, error) {
	args := m.Called(ctx, req)
	if fn, ok := args.Get(0).(func(context.Context, summary.Request) summary.Result); ok {
		return fn(ctx, req), args.Error(1)
	}
	return args.Get(0).(summary.Result), args.Error(1)
}
