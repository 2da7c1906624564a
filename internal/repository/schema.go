package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaSQL creates every table the service needs. All statements are
// idempotent so the call is safe on every boot.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS calls (
	id         BIGSERIAL PRIMARY KEY,
	title      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'open',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS applicants (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS applications (
	id           BIGSERIAL PRIMARY KEY,
	call_id      BIGINT NOT NULL REFERENCES calls(id),
	applicant_id BIGINT NOT NULL REFERENCES applicants(id),
	status       TEXT NOT NULL DEFAULT 'active',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (call_id, applicant_id)
);

CREATE TABLE IF NOT EXISTS staff_users (
	id            BIGSERIAL PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS milestone_definitions (
	id           BIGSERIAL PRIMARY KEY,
	call_id      BIGINT NOT NULL REFERENCES calls(id),
	name         TEXT NOT NULL,
	order_index  INT NOT NULL,
	required     BOOLEAN NOT NULL DEFAULT TRUE,
	who_can_fill TEXT[] NOT NULL DEFAULT '{}',
	status       TEXT NOT NULL DEFAULT 'active',
	form_id      BIGINT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (call_id, order_index)
);

CREATE TABLE IF NOT EXISTS application_progress (
	id             BIGSERIAL PRIMARY KEY,
	application_id BIGINT NOT NULL REFERENCES applications(id),
	milestone_id   BIGINT NOT NULL REFERENCES milestone_definitions(id),
	status         TEXT NOT NULL DEFAULT 'PENDING',
	review_status  TEXT,
	review_notes   TEXT,
	reviewed_by    BIGINT REFERENCES staff_users(id),
	reviewed_at    TIMESTAMPTZ,
	completed_at   TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (application_id, milestone_id)
);

CREATE INDEX IF NOT EXISTS idx_application_progress_application
	ON application_progress (application_id);

CREATE TABLE IF NOT EXISTS outbox_events (
	id             BIGSERIAL PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id   BIGINT,
	routing_key    TEXT NOT NULL,
	payload        JSONB NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	retry_count    INT NOT NULL DEFAULT 0,
	next_retry_at  TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_outbox_events_pending
	ON outbox_events (status, next_retry_at);

CREATE TABLE IF NOT EXISTS notification_log (
	id          BIGSERIAL PRIMARY KEY,
	progress_id BIGINT NOT NULL,
	event       TEXT NOT NULL,
	recipient   TEXT NOT NULL,
	status      TEXT NOT NULL,
	detail      TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema applies the schema on startup.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
