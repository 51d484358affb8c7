package attendancerequest

import (
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/dailyattendance"
)

type Type string

const (
	TypeLeave          Type = "LEAVE"
	TypeSickLeave      Type = "SICK_LEAVE"
	TypeWFH            Type = "WFH"
	TypeRegularization Type = "REGULARIZATION"
	TypeShiftChange    Type = "SHIFT_CHANGE"
	TypeOther          Type = "OTHER"
)

var AllTypes = []Type{TypeLeave, TypeSickLeave, TypeWFH, TypeRegularization, TypeShiftChange, TypeOther}

func (t Type) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// AttendanceEffect returns the daily status an approved request of this type
// writes. Types without an effect only leave an audit trail.
func (t Type) AttendanceEffect() (dailyattendance.Status, bool) {
	switch t {
	case TypeLeave, TypeSickLeave:
		return dailyattendance.StatusLeave, true
	case TypeWFH:
		return dailyattendance.StatusPresent, true
	}
	return "", false
}

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

var transitions = map[Status][]Status{
	StatusPending: {StatusApproved, StatusRejected},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether a request in s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

type AttendanceRequest struct {
	ID            string
	UserID        string
	ProjectID     *string
	RequestType   Type
	Status        Status
	StartDate     time.Time
	EndDate       time.Time
	StartTime     *string // HH:MM
	EndTime       *string // HH:MM
	Reason        *string
	AttachmentURL *string
	RequestedAt   time.Time
	ReviewedBy    *string
	ReviewedAt    *time.Time
	ReviewComment *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MaxRequestDays bounds the inclusive date range of a single request.
const MaxRequestDays = 366

// Dates returns every calendar date from StartDate to EndDate inclusive.
func (r *AttendanceRequest) Dates() []time.Time {
	if r.EndDate.Before(r.StartDate) {
		return nil
	}
	var dates []time.Time
	for d := r.StartDate; !d.After(r.EndDate); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// IsPending reports whether the request still awaits a decision.
func (r *AttendanceRequest) IsPending() bool {
	return r.Status == StatusPending
}

// Approval is the audit record of a decision.
type Approval struct {
	ID         string
	RequestID  string
	ApproverID string
	Decision   Status
	Comment    *string
	DecidedAt  time.Time
}
