package review

import (
	"context"
	"time"

	"recruitflow/internal/model"
)

// Notification is the payload handed to the Notifier after a review commits.
type Notification struct {
	ProgressID    int64
	ApplicationID int64
	CallID        int64
	MilestoneID   int64
	MilestoneName string
	Decision      model.Decision
	ReviewerID    int64
	ReviewNotes   string
	UnlockedNext  string
	CascadedRows  int64
	ReviewedAt    time.Time
}

// Notifier delivers review outcomes to the applicant. Implementations must
// not affect the review itself: a failed notification is logged, never
// propagated.
type Notifier interface {
	NotifyApproved(ctx context.Context, n *Notification) error
	NotifyRejected(ctx context.Context, n *Notification) error
	NotifyNeedsChanges(ctx context.Context, n *Notification) error
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) NotifyApproved(context.Context, *Notification) error     { return nil }
func (NopNotifier) NotifyRejected(context.Context, *Notification) error     { return nil }
func (NopNotifier) NotifyNeedsChanges(context.Context, *Notification) error { return nil }
