package notify

import (
	"context"

	"github.com/ja2ui0/highball/internal/domain"
)

// FilterNotifier forwards only notifications whose level passes the
// configured predicate.
type FilterNotifier struct {
	next domain.Notifier
	pass func(domain.NotificationLevel) bool
}

var _ domain.Notifier = (*FilterNotifier)(nil)

// NewFilterNotifier wraps next so that only notifications accepted by
// pass are forwarded.
func NewFilterNotifier(next domain.Notifier, pass func(domain.NotificationLevel) bool) *FilterNotifier {
	return &FilterNotifier{next: next, pass: pass}
}

// Notify forwards the notification if it passes the filter.
func (f *FilterNotifier) Notify(ctx context.Context, notification *domain.Notification) error {
	if notification == nil || !f.pass(notification.Level) {
		return nil
	}
	return f.next.Notify(ctx, notification)
}

// Validate delegates to the wrapped notifier.
func (f *FilterNotifier) Validate(ctx context.Context) error {
	return f.next.Validate(ctx)
}
