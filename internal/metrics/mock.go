package metrics

import (
	"context"

	"github.com/ja2ui0/highball/internal/domain"
)

// MockPusher is a mock implementation of Pusher for testing.
type MockPusher struct {
	PushFunc     func(ctx context.Context, record *domain.ExecutionRecord) error
	ValidateFunc func(ctx context.Context) error

	// PushedRecords stores all records that have been pushed.
	PushedRecords []*domain.ExecutionRecord
}

// Push calls the mock PushFunc and stores the record.
func (m *MockPusher) Push(ctx context.Context, record *domain.ExecutionRecord) error {
	m.PushedRecords = append(m.PushedRecords, record)
	if m.PushFunc != nil {
		return m.PushFunc(ctx, record)
	}
	return nil
}

// Validate calls the mock ValidateFunc.
func (m *MockPusher) Validate(ctx context.Context) error {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx)
	}
	return nil
}

// Ensure MockPusher implements Pusher.
var _ Pusher = (*MockPusher)(nil)
