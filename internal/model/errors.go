package model

import "errors"

var (
	// ErrNotFound means the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidDecision means the review decision is outside the allowed set.
	ErrInvalidDecision = errors.New("invalid review decision")

	// ErrInvalidTransition means the row is in a state that does not allow
	// the requested operation, e.g. re-reviewing a terminal row.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrConflict means a concurrent writer touched the same rows.
	ErrConflict = errors.New("concurrency conflict")

	// ErrInvalidOrderIndex means a milestone definition would break the
	// contiguous order of its recruitment call.
	ErrInvalidOrderIndex = errors.New("invalid order index")

	// ErrInvalidStatus means a milestone definition status is outside the
	// allowed set.
	ErrInvalidStatus = errors.New("invalid definition status")

	// ErrDuplicate means a unique constraint was violated.
	ErrDuplicate = errors.New("duplicate entity")

	// ErrInvalidCredentials means login failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
