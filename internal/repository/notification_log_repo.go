package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"recruitflow/internal/model"
)

// NotificationLogStore records delivery attempts made by the worker.
type NotificationLogStore interface {
	Insert(ctx context.Context, log *model.NotificationLog) error
	ListByProgress(ctx context.Context, progressID int64) ([]model.NotificationLog, error)
}

type NotificationLogRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewNotificationLogRepository(db *pgxpool.Pool, logger *zap.Logger) *NotificationLogRepository {
	return &NotificationLogRepository{db: db, logger: logger}
}

func (r *NotificationLogRepository) Insert(ctx context.Context, log *model.NotificationLog) error {
	query := `
		INSERT INTO notification_log (progress_id, event, recipient, status, detail)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		log.ProgressID, log.Event, log.Recipient, log.Status, log.Detail,
	).Scan(&log.ID, &log.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert notification log: %w", err)
	}

	return nil
}

func (r *NotificationLogRepository) ListByProgress(ctx context.Context, progressID int64) ([]model.NotificationLog, error) {
	query := `
		SELECT id, progress_id, event, recipient, status, detail, created_at
		FROM notification_log
		WHERE progress_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, progressID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notification log: %w", err)
	}
	defer rows.Close()

	var logs []model.NotificationLog
	for rows.Next() {
		var l model.NotificationLog
		err := rows.Scan(&l.ID, &l.ProgressID, &l.Event, &l.Recipient, &l.Status, &l.Detail, &l.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification log: %w", err)
		}
		logs = append(logs, l)
	}

	return logs, rows.Err()
}
