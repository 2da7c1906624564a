// Package notify bridges the review engine to the notification pipeline.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	contracts "recruitflow/contracts/mq"
	"recruitflow/internal/model"
	"recruitflow/internal/repository"
	"recruitflow/internal/service/review"
	"recruitflow/pkg/metrics"
	"recruitflow/pkg/outbox"
	"recruitflow/pkg/trace"
)

// OutboxNotifier implements review.Notifier by writing an outbox event in a
// short transaction of its own. The dispatcher then publishes it to MQ, so
// broker downtime delays delivery instead of losing it.
type OutboxNotifier struct {
	db        *pgxpool.Pool
	repo      *outbox.Repository
	directory repository.Directory
	staff     repository.StaffStore
	logger    *zap.Logger
}

func NewOutboxNotifier(
	db *pgxpool.Pool,
	repo *outbox.Repository,
	directory repository.Directory,
	staff repository.StaffStore,
	logger *zap.Logger,
) *OutboxNotifier {
	return &OutboxNotifier{
		db:        db,
		repo:      repo,
		directory: directory,
		staff:     staff,
		logger:    logger,
	}
}

func (o *OutboxNotifier) NotifyApproved(ctx context.Context, n *review.Notification) error {
	return o.enqueue(ctx, contracts.RoutingKeyMilestoneApproved, n)
}

func (o *OutboxNotifier) NotifyRejected(ctx context.Context, n *review.Notification) error {
	return o.enqueue(ctx, contracts.RoutingKeyMilestoneRejected, n)
}

func (o *OutboxNotifier) NotifyNeedsChanges(ctx context.Context, n *review.Notification) error {
	return o.enqueue(ctx, contracts.RoutingKeyMilestoneNeedsChanges, n)
}

func (o *OutboxNotifier) enqueue(ctx context.Context, routingKey string, n *review.Notification) error {
	contact, err := o.directory.ResolveContact(ctx, n.ApplicationID)
	if err != nil {
		return fmt.Errorf("failed to resolve contact: %w", err)
	}

	reviewerName := ""
	if n.ReviewerID != 0 {
		if staffUser, err := o.staff.GetByID(ctx, n.ReviewerID); err == nil {
			reviewerName = staffUser.Name
		} else if !errors.Is(err, model.ErrNotFound) {
			o.logger.Warn("Failed to resolve reviewer name",
				zap.Int64("reviewer_id", n.ReviewerID),
				zap.Error(err),
			)
		}
	}

	payload := contracts.ReviewOutcomePayload{
		ProgressID:     n.ProgressID,
		ApplicationID:  n.ApplicationID,
		CallID:         n.CallID,
		MilestoneID:    n.MilestoneID,
		MilestoneName:  n.MilestoneName,
		CallTitle:      contact.CallTitle,
		Decision:       string(n.Decision),
		ReviewerName:   reviewerName,
		ReviewNotes:    n.ReviewNotes,
		ApplicantEmail: contact.Email,
		ApplicantName:  contact.ApplicantName,
		UnlockedNext:   n.UnlockedNext,
		CascadedRows:   n.CascadedRows,
		ReviewedAt:     n.ReviewedAt,
		TraceID:        trace.FromContext(ctx),
	}

	tx, err := o.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin outbox transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = outbox.InsertEventInTx(ctx, tx, o.repo, "application_progress", &n.ProgressID, routingKey, payload)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit outbox transaction: %w", err)
	}

	metrics.IncrementNotification(routingKey, "queued")

	return nil
}
