package worksession

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

var transitions = map[Status][]Status{
	StatusPending: {StatusApproved, StatusRejected},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether a timesheet review may move s to next.
// APPROVED and REJECTED are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsDecision reports whether s is a value a reviewer can choose.
func (s Status) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

// WorkSession is one clock-in/clock-out interval on a project.
type WorkSession struct {
	ID              string
	UserID          string
	ProjectID       string
	WorkRole        string
	ClockInAt       time.Time
	ClockOutAt      *time.Time
	TasksCompleted  int
	Notes           *string
	SheetDate       time.Time
	Status          Status
	ApproverID      *string
	ApprovalComment *string
	ApprovedAt      *time.Time
	MinutesWorked   *decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsOpen reports whether the session has not been clocked out yet.
func (s *WorkSession) IsOpen() bool {
	return s.ClockOutAt == nil
}

// WorkedMinutes returns the stored minutes_worked, falling back to the
// clock timestamps. Open sessions count as zero.
func (s *WorkSession) WorkedMinutes() decimal.Decimal {
	if s.MinutesWorked != nil {
		return *s.MinutesWorked
	}
	if s.ClockOutAt == nil {
		return decimal.Zero
	}
	return MinutesBetween(s.ClockInAt, *s.ClockOutAt)
}

// MinutesBetween returns the elapsed minutes between two instants rounded to
// two decimals. Negative intervals count as zero.
func MinutesBetween(from, to time.Time) decimal.Decimal {
	d := to.Sub(from)
	if d <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(d.Milliseconds()).Div(decimal.NewFromInt(60000)).Round(2)
}
