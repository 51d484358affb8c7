package attendancerequest

import "errors"

// Attendance request domain errors
var (
	ErrRequestNotFound       = errors.New("attendance request not found")
	ErrRequestAlreadyDecided = errors.New("attendance request has already been approved or rejected")
	ErrRequestNotOwned       = errors.New("attendance request belongs to another user")
	ErrRequestLocked         = errors.New("only reason and attachment can be changed after a decision")
)
