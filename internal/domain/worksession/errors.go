package worksession

import "errors"

// Work session domain errors
var (
	ErrAlreadyClockedIn       = errors.New("you are already clocked in, please clock out first")
	ErrNoOpenSession          = errors.New("no active session found, you must clock in first")
	ErrSessionNotFound        = errors.New("work session not found")
	ErrSessionAlreadyReviewed = errors.New("work session has already been approved or rejected")
)
