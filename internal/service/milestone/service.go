package milestone

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"recruitflow/internal/model"
	"recruitflow/internal/repository"
)

// Backfiller creates ledger rows for a freshly defined milestone.
type Backfiller interface {
	AutoInitializeOnMilestoneCreate(ctx context.Context, callID int64, milestoneID int64) (int64, error)
}

// Service manages the ordered milestone definitions of recruitment calls.
type Service struct {
	milestones repository.MilestoneStore
	backfiller Backfiller
	logger     *zap.Logger
}

func NewService(milestones repository.MilestoneStore, backfiller Backfiller, logger *zap.Logger) *Service {
	return &Service{
		milestones: milestones,
		backfiller: backfiller,
		logger:     logger,
	}
}

// CreateInput describes a new milestone definition.
type CreateInput struct {
	CallID     int64
	Name       string
	OrderIndex int
	Required   bool
	WhoCanFill []string
	Status     model.MilestoneStatus
	FormID     *int64
}

// Create appends a milestone definition to a call and backfills a PENDING
// ledger row for every existing application.
//
// Order indexes are kept contiguous per call: the new definition must sit at
// exactly max(order_index) + 1, otherwise the approve-unlocks-next rule would
// skip over the gap and strand applications.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.MilestoneDefinition, error) {
	if in.Status == "" {
		in.Status = model.MilestoneActive
	}
	if !in.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidStatus, in.Status)
	}

	exists, err := s.milestones.CallExists(ctx, in.CallID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: call %d", model.ErrNotFound, in.CallID)
	}

	maxIndex, err := s.milestones.MaxOrderIndex(ctx, in.CallID)
	if err != nil {
		return nil, err
	}
	if in.OrderIndex != maxIndex+1 {
		return nil, fmt.Errorf("%w: expected %d, got %d", model.ErrInvalidOrderIndex, maxIndex+1, in.OrderIndex)
	}

	def := &model.MilestoneDefinition{
		CallID:     in.CallID,
		Name:       in.Name,
		OrderIndex: in.OrderIndex,
		Required:   in.Required,
		WhoCanFill: in.WhoCanFill,
		Status:     in.Status,
		FormID:     in.FormID,
	}

	if err := s.milestones.Insert(ctx, def); err != nil {
		if err == model.ErrDuplicate {
			// A concurrent creator claimed the same index.
			return nil, fmt.Errorf("%w: order index %d already taken", model.ErrConflict, in.OrderIndex)
		}
		return nil, err
	}

	created, err := s.backfiller.AutoInitializeOnMilestoneCreate(ctx, in.CallID, def.ID)
	if err != nil {
		// The definition itself is committed; report the partial backfill
		// rather than failing the creation.
		s.logger.Error("Milestone created but backfill failed",
			zap.Int64("milestone_id", def.ID),
			zap.Int64("call_id", in.CallID),
			zap.Error(err),
		)
		return def, nil
	}

	s.logger.Info("Milestone created",
		zap.Int64("milestone_id", def.ID),
		zap.Int64("call_id", in.CallID),
		zap.Int("order_index", def.OrderIndex),
		zap.Int64("rows_backfilled", created),
	)

	return def, nil
}

// ListByCall returns a call's definitions in pipeline order.
func (s *Service) ListByCall(ctx context.Context, callID int64) ([]model.MilestoneDefinition, error) {
	exists, err := s.milestones.CallExists(ctx, callID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: call %d", model.ErrNotFound, callID)
	}

	return s.milestones.ListByCall(ctx, callID)
}
