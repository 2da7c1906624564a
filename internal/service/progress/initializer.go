package progress

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"recruitflow/internal/model"
	"recruitflow/internal/repository"
	"recruitflow/pkg/metrics"
)

// Initializer creates the ledger rows an application needs to track its
// call's milestones. All entry points are idempotent: existing rows are
// never modified, only missing ones are created.
type Initializer struct {
	store      repository.ProgressStore
	milestones repository.MilestoneStore
	directory  repository.Directory
	logger     *zap.Logger
}

func NewInitializer(
	store repository.ProgressStore,
	milestones repository.MilestoneStore,
	directory repository.Directory,
	logger *zap.Logger,
) *Initializer {
	return &Initializer{
		store:      store,
		milestones: milestones,
		directory:  directory,
		logger:     logger,
	}
}

// InitializeForApplication creates the missing ledger rows for one
// application. The first milestone in order starts IN_PROGRESS unless the
// application already has an active or completed row; every other new row
// starts PENDING. Returns the number of rows created.
func (i *Initializer) InitializeForApplication(ctx context.Context, applicationID int64) (int64, error) {
	app, err := i.directory.GetApplication(ctx, applicationID)
	if err != nil {
		return 0, err
	}

	defs, err := i.milestones.ListByCall(ctx, app.CallID)
	if err != nil {
		return 0, err
	}
	if len(defs) == 0 {
		return 0, nil
	}

	created, err := i.seedApplication(ctx, applicationID, defs)
	if err != nil {
		return 0, err
	}

	if created > 0 {
		metrics.AddProgressRowsCreated("init", created)
		i.logger.Info("Initialized application progress",
			zap.Int64("application_id", applicationID),
			zap.Int64("rows_created", created),
		)
	}

	return created, nil
}

// SyncForCall backfills ledger rows for every active application of a call.
// Rows created by the sweep always start PENDING regardless of position; the
// sweep never infers an application's current milestone. Returns the total
// number of rows created.
func (i *Initializer) SyncForCall(ctx context.Context, callID int64) (int64, error) {
	defs, err := i.milestones.ListByCall(ctx, callID)
	if err != nil {
		return 0, err
	}
	if len(defs) == 0 {
		return 0, nil
	}

	appIDs, err := i.directory.ListApplicationIDsByCall(ctx, callID)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, appID := range appIDs {
		err := i.store.WithTx(ctx, func(ctx context.Context, tx repository.ProgressTx) error {
			for _, def := range defs {
				inserted, err := tx.InsertIfAbsent(ctx, appID, def.ID, model.StatusPending)
				if err != nil {
					return err
				}
				if inserted {
					total++
				}
			}
			return nil
		})
		if err != nil {
			return total, fmt.Errorf("failed to sync application %d: %w", appID, err)
		}
	}

	if total > 0 {
		metrics.AddProgressRowsCreated("sync", total)
	}

	i.logger.Info("Synced call progress",
		zap.Int64("call_id", callID),
		zap.Int("applications", len(appIDs)),
		zap.Int64("rows_created", total),
	)

	return total, nil
}

// AutoInitializeOnMilestoneCreate backfills the ledger after a new milestone
// definition is appended to a call. A PENDING row for the new definition is
// created for every existing application of the call; all other rows stay
// untouched.
func (i *Initializer) AutoInitializeOnMilestoneCreate(ctx context.Context, callID int64, milestoneID int64) (int64, error) {
	appIDs, err := i.directory.ListApplicationIDsByCall(ctx, callID)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, appID := range appIDs {
		err := i.store.WithTx(ctx, func(ctx context.Context, tx repository.ProgressTx) error {
			inserted, err := tx.InsertIfAbsent(ctx, appID, milestoneID, model.StatusPending)
			if err != nil {
				return err
			}
			if inserted {
				total++
			}
			return nil
		})
		if err != nil {
			return total, fmt.Errorf("failed to backfill application %d: %w", appID, err)
		}
	}

	if total > 0 {
		metrics.AddProgressRowsCreated("milestone_create", total)
	}

	return total, nil
}

// seedApplication creates the missing rows for one application in one
// transaction. defs must be sorted by order index.
func (i *Initializer) seedApplication(ctx context.Context, applicationID int64, defs []model.MilestoneDefinition) (int64, error) {
	var created int64

	err := i.store.WithTx(ctx, func(ctx context.Context, tx repository.ProgressTx) error {
		states, err := tx.ExistingStates(ctx, applicationID)
		if err != nil {
			return err
		}

		// The lowest-order missing milestone starts active, but only when
		// the application has nothing active or completed yet.
		hasActive := false
		for _, s := range states {
			if s == model.StatusInProgress || s == model.StatusCompleted {
				hasActive = true
				break
			}
		}

		seededActive := false
		for _, def := range defs {
			if _, ok := states[def.ID]; ok {
				continue
			}

			status := model.StatusPending
			if !hasActive && !seededActive {
				status = model.StatusInProgress
				seededActive = true
			}

			inserted, err := tx.InsertIfAbsent(ctx, applicationID, def.ID, status)
			if err != nil {
				return err
			}
			if inserted {
				created++
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return created, nil
}
