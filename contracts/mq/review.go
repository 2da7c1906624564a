// Package mq defines the event contracts shared by the API and the worker.
package mq

import "time"

// Routing keys published on the events exchange.
const (
	RoutingKeyMilestoneApproved     = "milestone.approved"
	RoutingKeyMilestoneRejected     = "milestone.rejected"
	RoutingKeyMilestoneNeedsChanges = "milestone.needs_changes"
)

// Queue consumed by the notification worker. It binds to milestone.* so one
// worker sees all review outcomes.
const (
	ReviewNotifyQueue      = "milestone.review.notify.q"
	ReviewNotifyBindingKey = "milestone.*"
)

// ReviewOutcomePayload is the body of every milestone.* event.
type ReviewOutcomePayload struct {
	ProgressID     int64     `json:"progress_id"`
	ApplicationID  int64     `json:"application_id"`
	CallID         int64     `json:"call_id"`
	MilestoneID    int64     `json:"milestone_id"`
	MilestoneName  string    `json:"milestone_name"`
	CallTitle      string    `json:"call_title"`
	Decision       string    `json:"decision"`
	ReviewerName   string    `json:"reviewer_name"`
	ReviewNotes    string    `json:"review_notes,omitempty"`
	ApplicantEmail string    `json:"applicant_email"`
	ApplicantName  string    `json:"applicant_name"`
	UnlockedNext   string    `json:"unlocked_next,omitempty"`
	CascadedRows   int64     `json:"cascaded_rows,omitempty"`
	ReviewedAt     time.Time `json:"reviewed_at"`
	TraceID        string    `json:"trace_id,omitempty"`
}

// RoutingKeyForDecision maps a review decision to its routing key.
func RoutingKeyForDecision(decision string) string {
	switch decision {
	case "APPROVED":
		return RoutingKeyMilestoneApproved
	case "REJECTED":
		return RoutingKeyMilestoneRejected
	case "NEEDS_CHANGES":
		return RoutingKeyMilestoneNeedsChanges
	default:
		return ""
	}
}
