package model

import "time"

// MilestoneStatus is the lifecycle status of a definition itself, distinct
// from any applicant's progress through it.
type MilestoneStatus string

const (
	MilestoneActive  MilestoneStatus = "active"
	MilestonePending MilestoneStatus = "pending"
)

// Valid reports whether the status belongs to the closed set.
func (s MilestoneStatus) Valid() bool {
	switch s {
	case MilestoneActive, MilestonePending:
		return true
	}
	return false
}

// MilestoneDefinition is one ordered step in a recruitment call's pipeline.
type MilestoneDefinition struct {
	ID         int64           `json:"id"`
	CallID     int64           `json:"call_id"`
	Name       string          `json:"name"`
	OrderIndex int             `json:"order_index"`
	Required   bool            `json:"required"`
	WhoCanFill []string        `json:"who_can_fill,omitempty"`
	Status     MilestoneStatus `json:"status"`
	FormID     *int64          `json:"form_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Call is one recruitment call.
type Call struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
