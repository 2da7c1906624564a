package model

import "time"

// Notification delivery statuses.
const (
	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// NotificationLog records one delivery attempt made by the worker.
type NotificationLog struct {
	ID         int64     `json:"id"`
	ProgressID int64     `json:"progress_id"`
	Event      string    `json:"event"`
	Recipient  string    `json:"recipient"`
	Status     string    `json:"status"`
	Detail     *string   `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
