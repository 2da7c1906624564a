package review

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"recruitflow/internal/model"
	"recruitflow/internal/repository"
	"recruitflow/pkg/metrics"
	"recruitflow/pkg/trace"
)

// CascadeNote is written onto rows closed by a rejection cascade that carry
// no reviewer note of their own.
const CascadeNote = "blocked by rejection of an earlier milestone"

// Outcome reports what one review decision changed.
type Outcome struct {
	Row          *model.ApplicationProgress `json:"row"`
	UnlockedNext *string                    `json:"unlocked_next,omitempty"`
	CascadedRows int64                      `json:"cascaded_rows"`
}

// Engine applies review decisions to the progress ledger.
//
// Every decision runs in one database transaction: the reviewed row, any
// unlocked successor and any cascade commit or roll back together.
// Notifications happen after the commit and never fail the review.
type Engine struct {
	store    repository.ProgressStore
	notifier Notifier
	logger   *zap.Logger
}

func NewEngine(store repository.ProgressStore, notifier Notifier, logger *zap.Logger) *Engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Engine{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// ReviewMilestone applies one reviewer decision to a ledger row.
//
// APPROVED completes the row and unlocks the next milestone in order.
// REJECTED closes the row and cascades over every later non-terminal row.
// NEEDS_CHANGES parks the row so the applicant can resubmit.
// Rows already COMPLETED or REJECTED cannot be reviewed again.
func (e *Engine) ReviewMilestone(ctx context.Context, rowID int64, decisionStr string, notes *string, reviewerID int64) (*Outcome, error) {
	decision, err := model.ParseDecision(decisionStr)
	if err != nil {
		return nil, err
	}

	var (
		detail  *model.ProgressDetail
		outcome Outcome
	)

	err = e.store.WithTx(ctx, func(ctx context.Context, tx repository.ProgressTx) error {
		detail, err = tx.RowForReview(ctx, rowID)
		if err != nil {
			return err
		}

		if detail.Status.Terminal() {
			return fmt.Errorf("%w: row %d is %s", model.ErrInvalidTransition, rowID, detail.Status)
		}

		switch decision {
		case model.DecisionApproved:
			row, err := tx.ApplyDecision(ctx, rowID, model.ReviewUpdate{
				Status:       model.StatusCompleted,
				ReviewStatus: model.ReviewApproved,
				Notes:        notes,
				ReviewedBy:   reviewerID,
				SetCompleted: true,
			})
			if err != nil {
				return err
			}
			outcome.Row = row

			name, unlocked, err := tx.UnlockNext(ctx, detail.ApplicationID, detail.CallID, detail.OrderIndex+1)
			if err != nil {
				return err
			}
			if unlocked {
				outcome.UnlockedNext = &name
			}

		case model.DecisionRejected:
			row, err := tx.ApplyDecision(ctx, rowID, model.ReviewUpdate{
				Status:       model.StatusRejected,
				ReviewStatus: model.ReviewRejected,
				Notes:        notes,
				ReviewedBy:   reviewerID,
			})
			if err != nil {
				return err
			}
			outcome.Row = row

			cascaded, err := tx.CascadeReject(ctx, detail.ApplicationID, detail.CallID, detail.OrderIndex, CascadeNote)
			if err != nil {
				return err
			}
			outcome.CascadedRows = cascaded

		case model.DecisionNeedsChanges:
			row, err := tx.ApplyDecision(ctx, rowID, model.ReviewUpdate{
				Status:       model.StatusNeedsChanges,
				ReviewStatus: model.ReviewNeedsChanges,
				Notes:        notes,
				ReviewedBy:   reviewerID,
			})
			if err != nil {
				return err
			}
			outcome.Row = row
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncrementReview(string(decision))
	if outcome.CascadedRows > 0 {
		metrics.AddCascadedRows(outcome.CascadedRows)
	}

	e.logger.Info("Milestone reviewed",
		zap.Int64("progress_id", rowID),
		zap.Int64("application_id", detail.ApplicationID),
		zap.String("decision", string(decision)),
		zap.Int64("cascaded_rows", outcome.CascadedRows),
	)

	e.notifyAsync(ctx, decision, detail, notes, reviewerID, &outcome)

	return &outcome, nil
}

// CompleteWithoutReview marks a row COMPLETED outside the review flow, e.g.
// when an applicant finishes a self-service step. It unlocks the next
// milestone but writes no review fields and sends no notification. Completing
// an already completed row is a no-op; a rejected row cannot be completed.
func (e *Engine) CompleteWithoutReview(ctx context.Context, rowID int64) (*Outcome, error) {
	var outcome Outcome

	err := e.store.WithTx(ctx, func(ctx context.Context, tx repository.ProgressTx) error {
		detail, err := tx.RowForReview(ctx, rowID)
		if err != nil {
			return err
		}

		if detail.Status == model.StatusRejected {
			return fmt.Errorf("%w: row %d is REJECTED", model.ErrInvalidTransition, rowID)
		}
		if detail.Status == model.StatusCompleted {
			outcome.Row = &detail.ApplicationProgress
			return nil
		}

		row, err := tx.MarkCompleted(ctx, rowID)
		if err != nil {
			return err
		}
		outcome.Row = row

		name, unlocked, err := tx.UnlockNext(ctx, detail.ApplicationID, detail.CallID, detail.OrderIndex+1)
		if err != nil {
			return err
		}
		if unlocked {
			outcome.UnlockedNext = &name
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &outcome, nil
}

// notifyAsync dispatches the notification off the request path. The request
// context may end before delivery, so a fresh context carries the trace id
// forward.
func (e *Engine) notifyAsync(ctx context.Context, decision model.Decision, detail *model.ProgressDetail, notes *string, reviewerID int64, outcome *Outcome) {
	n := &Notification{
		ProgressID:    detail.ID,
		ApplicationID: detail.ApplicationID,
		CallID:        detail.CallID,
		MilestoneID:   detail.MilestoneID,
		MilestoneName: detail.MilestoneName,
		Decision:      decision,
		ReviewerID:    reviewerID,
		CascadedRows:  outcome.CascadedRows,
		ReviewedAt:    time.Now(),
	}
	if notes != nil {
		n.ReviewNotes = *notes
	}
	if outcome.UnlockedNext != nil {
		n.UnlockedNext = *outcome.UnlockedNext
	}

	bgCtx := trace.WithContext(context.Background(), trace.FromContext(ctx))

	go func() {
		var err error
		switch decision {
		case model.DecisionApproved:
			err = e.notifier.NotifyApproved(bgCtx, n)
		case model.DecisionRejected:
			err = e.notifier.NotifyRejected(bgCtx, n)
		case model.DecisionNeedsChanges:
			err = e.notifier.NotifyNeedsChanges(bgCtx, n)
		}
		if err != nil {
			e.logger.Warn("Failed to dispatch review notification",
				zap.Int64("progress_id", n.ProgressID),
				zap.String("decision", string(decision)),
				zap.Error(err),
			)
		}
	}()
}
