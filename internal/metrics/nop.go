package metrics

import (
	"context"

	"github.com/ja2ui0/highball/internal/domain"
)

// NopPusher is a no-op pusher used when metrics are disabled.
type NopPusher struct{}

var _ Pusher = (*NopPusher)(nil)

// Push does nothing.
func (*NopPusher) Push(context.Context, *domain.ExecutionRecord) error { return nil }

// Validate always succeeds.
func (*NopPusher) Validate(context.Context) error { return nil }
