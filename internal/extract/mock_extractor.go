package extract

import (
	"context"

	"github.com/stretchr/testify/mock"

	"slack-summarizer/internal/summary"
)

// MockExtractor is a mock implementation of Extractor using testify/mock.
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, rawURL string) (summary.Content, error) {
	args := m.Called(ctx, rawURL)
	return args.Get(0).(summary.Content), args.Error(1)
}
