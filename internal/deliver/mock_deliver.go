package deliver

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockDeliverer is a mock implementation of Deliverer using testify/mock.
type MockDeliverer struct {
	mock.Mock
}

func (m *MockDeliverer) Deliver(ctx context.Context, msg Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockPoster is a mock implementation of Poster using testify/mock.
type MockPoster struct {
	mock.Mock
}

func (m *MockPoster) Post(ctx context.Context, channel, text string) error {
	args := m.Called(ctx, channel, text)
	return args.Error(0)
}
