package queue

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockQueue records Enqueue and Worker calls. Tests that scheduled work read it back
// with Enqueued and hand it to the handler under test themselves.
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, task Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockQueue) Worker(ctx context.Context, taskType TaskType, handler Handler) error {
	args := m.Called(ctx, taskType, handler)
	return args.Error(0)
}

// Enqueued returns the tasks passed to Enqueue, oldest first.
func (m *MockQueue) Enqueued() []Task {
	var tasks []Task
	for _, call := range m.Calls {
		if call.Method != "Enqueue" {
			continue
		}
		if task, ok := call.Arguments.Get(1).(Task); ok {
			tasks = append(tasks, task)
		}
	}
	return tasks
}
