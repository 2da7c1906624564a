package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"recruitflow/internal/model"
)

// MilestoneStore persists the ordered milestone definitions of a call.
type MilestoneStore interface {
	Insert(ctx context.Context, def *model.MilestoneDefinition) error
	ListByCall(ctx context.Context, callID int64) ([]model.MilestoneDefinition, error)
	GetByID(ctx context.Context, id int64) (*model.MilestoneDefinition, error)
	MaxOrderIndex(ctx context.Context, callID int64) (int, error)
	CallExists(ctx context.Context, callID int64) (bool, error)
}

type MilestoneRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewMilestoneRepository(db *pgxpool.Pool, logger *zap.Logger) *MilestoneRepository {
	return &MilestoneRepository{db: db, logger: logger}
}

func (r *MilestoneRepository) Insert(ctx context.Context, def *model.MilestoneDefinition) error {
	query := `
		INSERT INTO milestone_definitions (call_id, name, order_index, required, who_can_fill, status, form_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		def.CallID, def.Name, def.OrderIndex, def.Required, def.WhoCanFill, def.Status, def.FormID,
	).Scan(&def.ID, &def.CreatedAt)

	if err != nil {
		if translated := translateError(err); errors.Is(translated, model.ErrDuplicate) {
			return model.ErrDuplicate
		}
		return fmt.Errorf("failed to insert milestone: %w", err)
	}

	return nil
}

func (r *MilestoneRepository) ListByCall(ctx context.Context, callID int64) ([]model.MilestoneDefinition, error) {
	query := `
		SELECT id, call_id, name, order_index, required, who_can_fill, status, form_id, created_at
		FROM milestone_definitions
		WHERE call_id = $1
		ORDER BY order_index ASC
	`

	rows, err := r.db.Query(ctx, query, callID)
	if err != nil {
		return nil, fmt.Errorf("failed to query milestones: %w", err)
	}
	defer rows.Close()

	var defs []model.MilestoneDefinition
	for rows.Next() {
		var d model.MilestoneDefinition
		err := rows.Scan(&d.ID, &d.CallID, &d.Name, &d.OrderIndex, &d.Required, &d.WhoCanFill, &d.Status, &d.FormID, &d.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan milestone: %w", err)
		}
		defs = append(defs, d)
	}

	return defs, rows.Err()
}

func (r *MilestoneRepository) GetByID(ctx context.Context, id int64) (*model.MilestoneDefinition, error) {
	query := `
		SELECT id, call_id, name, order_index, required, who_can_fill, status, form_id, created_at
		FROM milestone_definitions
		WHERE id = $1
	`

	var d model.MilestoneDefinition
	err := r.db.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.CallID, &d.Name, &d.OrderIndex, &d.Required, &d.WhoCanFill, &d.Status, &d.FormID, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get milestone: %w", err)
	}

	return &d, nil
}

func (r *MilestoneRepository) MaxOrderIndex(ctx context.Context, callID int64) (int, error) {
	query := `
		SELECT COALESCE(MAX(order_index), 0)
		FROM milestone_definitions
		WHERE call_id = $1
	`

	var max int
	if err := r.db.QueryRow(ctx, query, callID).Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to get max order index: %w", err)
	}

	return max, nil
}

func (r *MilestoneRepository) CallExists(ctx context.Context, callID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM calls WHERE id = $1)`, callID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check call: %w", err)
	}
	return exists, nil
}
