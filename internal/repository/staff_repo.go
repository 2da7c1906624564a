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

// StaffStore persists the internal staff accounts.
type StaffStore interface {
	Insert(ctx context.Context, user *model.StaffUser) error
	GetByEmail(ctx context.Context, email string) (*model.StaffUser, error)
	GetByID(ctx context.Context, id int64) (*model.StaffUser, error)
}

type StaffRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewStaffRepository(db *pgxpool.Pool, logger *zap.Logger) *StaffRepository {
	return &StaffRepository{db: db, logger: logger}
}

func (r *StaffRepository) Insert(ctx context.Context, user *model.StaffUser) error {
	query := `
		INSERT INTO staff_users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		user.Name, user.Email, user.PasswordHash, user.Role,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if translated := translateError(err); errors.Is(translated, model.ErrDuplicate) {
			return model.ErrDuplicate
		}
		return fmt.Errorf("failed to insert staff user: %w", err)
	}

	return nil
}

func (r *StaffRepository) GetByEmail(ctx context.Context, email string) (*model.StaffUser, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at
		FROM staff_users
		WHERE email = $1
	`

	var u model.StaffUser
	err := r.db.QueryRow(ctx, query, email).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get staff user: %w", err)
	}

	return &u, nil
}

func (r *StaffRepository) GetByID(ctx context.Context, id int64) (*model.StaffUser, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at
		FROM staff_users
		WHERE id = $1
	`

	var u model.StaffUser
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get staff user: %w", err)
	}

	return &u, nil
}
