package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"recruitflow/internal/model"
)

// ProgressTx exposes the ledger operations that must share one transaction.
type ProgressTx interface {
	// RowForReview loads a ledger row joined with its milestone definition
	// and locks it against concurrent reviews.
	RowForReview(ctx context.Context, rowID int64) (*model.ProgressDetail, error)
	// ApplyDecision writes the review fields onto the locked row.
	ApplyDecision(ctx context.Context, rowID int64, u model.ReviewUpdate) (*model.ApplicationProgress, error)
	// MarkCompleted completes a row without touching its review fields.
	MarkCompleted(ctx context.Context, rowID int64) (*model.ApplicationProgress, error)
	// UnlockNext moves the pending row at the given order index to
	// IN_PROGRESS and returns its milestone name.
	UnlockNext(ctx context.Context, applicationID, callID int64, orderIndex int) (string, bool, error)
	// CascadeReject closes every later non-terminal row for the application.
	CascadeReject(ctx context.Context, applicationID, callID int64, orderIndex int, note string) (int64, error)
	// ExistingStates returns the status of every ledger row keyed by
	// milestone id.
	ExistingStates(ctx context.Context, applicationID int64) (map[int64]model.Status, error)
	// InsertIfAbsent creates a ledger row unless one already exists.
	InsertIfAbsent(ctx context.Context, applicationID, milestoneID int64, status model.Status) (bool, error)
}

// ProgressStore is the ledger's persistence boundary.
type ProgressStore interface {
	// WithTx runs fn inside one database transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx ProgressTx) error) error
	// ListByApplication returns the full ledger of one application ordered
	// by milestone order.
	ListByApplication(ctx context.Context, applicationID int64) ([]model.ProgressDetail, error)
}

// ProgressRepository implements ProgressStore on PostgreSQL.
type ProgressRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProgressRepository(db *pgxpool.Pool, logger *zap.Logger) *ProgressRepository {
	return &ProgressRepository{db: db, logger: logger}
}

// WithTx runs fn in a transaction, translating database conflicts into
// model.ErrConflict.
func (r *ProgressRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx ProgressTx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &progressTx{tx: tx}); err != nil {
		return translateError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return translateError(fmt.Errorf("failed to commit transaction: %w", err))
	}

	return nil
}

const progressDetailColumns = `
	ap.id, ap.application_id, ap.milestone_id, ap.status,
	ap.review_status, ap.review_notes, ap.reviewed_by, ap.reviewed_at,
	ap.completed_at, ap.created_at, ap.updated_at,
	md.call_id, md.name, md.order_index, md.required, md.who_can_fill,
	su.name
`

// ListByApplication returns the ledger rows with milestone details, ordered
// by the pipeline order.
func (r *ProgressRepository) ListByApplication(ctx context.Context, applicationID int64) ([]model.ProgressDetail, error) {
	query := `
		SELECT ` + progressDetailColumns + `
		FROM application_progress ap
		JOIN milestone_definitions md ON md.id = ap.milestone_id
		LEFT JOIN staff_users su ON su.id = ap.reviewed_by
		WHERE ap.application_id = $1
		ORDER BY md.order_index ASC
	`

	rows, err := r.db.Query(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	var details []model.ProgressDetail
	for rows.Next() {
		d, err := scanProgressDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}

	return details, rows.Err()
}

type progressTx struct {
	tx pgx.Tx
}

func (t *progressTx) RowForReview(ctx context.Context, rowID int64) (*model.ProgressDetail, error) {
	query := `
		SELECT ` + progressDetailColumns + `
		FROM application_progress ap
		JOIN milestone_definitions md ON md.id = ap.milestone_id
		LEFT JOIN staff_users su ON su.id = ap.reviewed_by
		WHERE ap.id = $1
		FOR UPDATE OF ap
	`

	row := t.tx.QueryRow(ctx, query, rowID)
	d, err := scanProgressDetailRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load progress row: %w", err)
	}

	return d, nil
}

func (t *progressTx) ApplyDecision(ctx context.Context, rowID int64, u model.ReviewUpdate) (*model.ApplicationProgress, error) {
	query := `
		UPDATE application_progress
		SET status = $1,
		    review_status = $2,
		    review_notes = $3,
		    reviewed_by = $4,
		    reviewed_at = NOW(),
		    completed_at = CASE WHEN $5 AND completed_at IS NULL THEN NOW() ELSE completed_at END,
		    updated_at = NOW()
		WHERE id = $6
		RETURNING id, application_id, milestone_id, status, review_status,
		          review_notes, reviewed_by, reviewed_at, completed_at,
		          created_at, updated_at
	`

	row := t.tx.QueryRow(ctx, query,
		u.Status, u.ReviewStatus, u.Notes, u.ReviewedBy, u.SetCompleted, rowID,
	)

	p, err := scanProgress(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to apply decision: %w", err)
	}

	return p, nil
}

func (t *progressTx) MarkCompleted(ctx context.Context, rowID int64) (*model.ApplicationProgress, error) {
	query := `
		UPDATE application_progress
		SET status = 'COMPLETED',
		    completed_at = CASE WHEN completed_at IS NULL THEN NOW() ELSE completed_at END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, application_id, milestone_id, status, review_status,
		          review_notes, reviewed_by, reviewed_at, completed_at,
		          created_at, updated_at
	`

	row := t.tx.QueryRow(ctx, query, rowID)
	p, err := scanProgress(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to mark completed: %w", err)
	}

	return p, nil
}

func (t *progressTx) UnlockNext(ctx context.Context, applicationID, callID int64, orderIndex int) (string, bool, error) {
	query := `
		UPDATE application_progress ap
		SET status = 'IN_PROGRESS', updated_at = NOW()
		FROM milestone_definitions md
		WHERE md.id = ap.milestone_id
		  AND ap.application_id = $1
		  AND md.call_id = $2
		  AND md.order_index = $3
		  AND ap.status = 'PENDING'
		RETURNING md.name
	`

	var name string
	err := t.tx.QueryRow(ctx, query, applicationID, callID, orderIndex).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to unlock next milestone: %w", err)
	}

	return name, true, nil
}

func (t *progressTx) CascadeReject(ctx context.Context, applicationID, callID int64, orderIndex int, note string) (int64, error) {
	query := `
		UPDATE application_progress ap
		SET status = 'REJECTED',
		    review_status = 'REJECTED',
		    review_notes = COALESCE(ap.review_notes, $4),
		    updated_at = NOW()
		FROM milestone_definitions md
		WHERE md.id = ap.milestone_id
		  AND ap.application_id = $1
		  AND md.call_id = $2
		  AND md.order_index > $3
		  AND ap.status NOT IN ('COMPLETED', 'REJECTED')
	`

	tag, err := t.tx.Exec(ctx, query, applicationID, callID, orderIndex, note)
	if err != nil {
		return 0, fmt.Errorf("failed to cascade rejection: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (t *progressTx) ExistingStates(ctx context.Context, applicationID int64) (map[int64]model.Status, error) {
	query := `
		SELECT milestone_id, status
		FROM application_progress
		WHERE application_id = $1
	`

	rows, err := t.tx.Query(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing states: %w", err)
	}
	defer rows.Close()

	states := make(map[int64]model.Status)
	for rows.Next() {
		var milestoneID int64
		var status model.Status
		if err := rows.Scan(&milestoneID, &status); err != nil {
			return nil, fmt.Errorf("failed to scan state: %w", err)
		}
		states[milestoneID] = status
	}

	return states, rows.Err()
}

func (t *progressTx) InsertIfAbsent(ctx context.Context, applicationID, milestoneID int64, status model.Status) (bool, error) {
	query := `
		INSERT INTO application_progress (application_id, milestone_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (application_id, milestone_id) DO NOTHING
	`

	tag, err := t.tx.Exec(ctx, query, applicationID, milestoneID, status)
	if err != nil {
		return false, fmt.Errorf("failed to insert progress row: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgress(row rowScanner) (*model.ApplicationProgress, error) {
	var p model.ApplicationProgress
	err := row.Scan(
		&p.ID, &p.ApplicationID, &p.MilestoneID, &p.Status,
		&p.ReviewStatus, &p.ReviewNotes, &p.ReviewedBy, &p.ReviewedAt,
		&p.CompletedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProgressDetailRow(row rowScanner) (*model.ProgressDetail, error) {
	var d model.ProgressDetail
	err := row.Scan(
		&d.ID, &d.ApplicationID, &d.MilestoneID, &d.Status,
		&d.ReviewStatus, &d.ReviewNotes, &d.ReviewedBy, &d.ReviewedAt,
		&d.CompletedAt, &d.CreatedAt, &d.UpdatedAt,
		&d.CallID, &d.MilestoneName, &d.OrderIndex, &d.Required, &d.WhoCanFill,
		&d.ReviewerName,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanProgressDetail(rows pgx.Rows) (*model.ProgressDetail, error) {
	d, err := scanProgressDetailRow(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan progress detail: %w", err)
	}
	return d, nil
}

// translateError maps database failures onto the model's error taxonomy.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return model.ErrDuplicate
		case "40001", "40P01":
			return model.ErrConflict
		}
	}

	return err
}
