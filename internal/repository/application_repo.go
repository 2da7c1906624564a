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

// Directory resolves applications and their notification contacts.
type Directory interface {
	GetApplication(ctx context.Context, applicationID int64) (*model.Application, error)
	ListApplicationIDsByCall(ctx context.Context, callID int64) ([]int64, error)
	ResolveContact(ctx context.Context, applicationID int64) (*model.Contact, error)
}

type ApplicationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewApplicationRepository(db *pgxpool.Pool, logger *zap.Logger) *ApplicationRepository {
	return &ApplicationRepository{db: db, logger: logger}
}

func (r *ApplicationRepository) GetApplication(ctx context.Context, applicationID int64) (*model.Application, error) {
	query := `
		SELECT id, call_id, applicant_id, status, created_at
		FROM applications
		WHERE id = $1
	`

	var a model.Application
	err := r.db.QueryRow(ctx, query, applicationID).Scan(
		&a.ID, &a.CallID, &a.ApplicantID, &a.Status, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	return &a, nil
}

func (r *ApplicationRepository) ListApplicationIDsByCall(ctx context.Context, callID int64) ([]int64, error) {
	query := `
		SELECT id
		FROM applications
		WHERE call_id = $1 AND status = 'active'
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, callID)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan application id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *ApplicationRepository) ResolveContact(ctx context.Context, applicationID int64) (*model.Contact, error) {
	query := `
		SELECT a.id, ap.name, ap.email, c.title
		FROM applications a
		JOIN applicants ap ON ap.id = a.applicant_id
		JOIN calls c ON c.id = a.call_id
		WHERE a.id = $1
	`

	var c model.Contact
	err := r.db.QueryRow(ctx, query, applicationID).Scan(
		&c.ApplicationID, &c.ApplicantName, &c.Email, &c.CallTitle,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve contact: %w", err)
	}

	return &c, nil
}
