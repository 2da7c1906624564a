package model

import "time"

// Status is the lifecycle state of one application progress row.
type Status string

const (
	StatusPending      Status = "PENDING"
	StatusInProgress   Status = "IN_PROGRESS"
	StatusCompleted    Status = "COMPLETED"
	StatusRejected     Status = "REJECTED"
	StatusNeedsChanges Status = "NEEDS_CHANGES"
)

// Terminal reports whether the status allows no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// ReviewStatus records the outcome of the latest review.
type ReviewStatus string

const (
	ReviewApproved     ReviewStatus = "APPROVED"
	ReviewRejected     ReviewStatus = "REJECTED"
	ReviewNeedsChanges ReviewStatus = "NEEDS_CHANGES"
)

// Decision is a reviewer's verdict on a submitted milestone.
type Decision string

const (
	DecisionApproved     Decision = "APPROVED"
	DecisionRejected     Decision = "REJECTED"
	DecisionNeedsChanges Decision = "NEEDS_CHANGES"
)

// ParseDecision validates a decision coming off the wire.
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionApproved, DecisionRejected, DecisionNeedsChanges:
		return Decision(s), nil
	default:
		return "", ErrInvalidDecision
	}
}

// ApplicationProgress is one application x milestone ledger row.
type ApplicationProgress struct {
	ID            int64         `json:"id"`
	ApplicationID int64         `json:"application_id"`
	MilestoneID   int64         `json:"milestone_id"`
	Status        Status        `json:"status"`
	ReviewStatus  *ReviewStatus `json:"review_status,omitempty"`
	ReviewNotes   *string       `json:"review_notes,omitempty"`
	ReviewedBy    *int64        `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time    `json:"reviewed_at,omitempty"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// ProgressDetail joins a ledger row with its milestone definition.
type ProgressDetail struct {
	ApplicationProgress

	CallID        int64    `json:"call_id"`
	MilestoneName string   `json:"milestone_name"`
	OrderIndex    int      `json:"order_index"`
	Required      bool     `json:"required"`
	WhoCanFill    []string `json:"who_can_fill,omitempty"`
	ReviewerName  *string  `json:"reviewer_name,omitempty"`
}

// ReviewUpdate carries the field changes one review decision applies.
type ReviewUpdate struct {
	Status       Status
	ReviewStatus ReviewStatus
	Notes        *string
	ReviewedBy   int64
	SetCompleted bool
}

// ProgressSummary is the aggregate view of one application's ledger.
type ProgressSummary struct {
	Total            int     `json:"total"`
	Completed        int     `json:"completed"`
	Pending          int     `json:"pending"`
	Percentage       float64 `json:"percentage"`
	CurrentMilestone *string `json:"current_milestone,omitempty"`
}
