package model

import "time"

// Applicant is a person applying to recruitment calls.
type Applicant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Application links an applicant to a recruitment call.
type Application struct {
	ID          int64     `json:"id"`
	CallID      int64     `json:"call_id"`
	ApplicantID int64     `json:"applicant_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Contact is the notification target resolved for an application.
type Contact struct {
	ApplicationID int64
	ApplicantName string
	Email         string
	CallTitle     string
}
