package dailyattendance

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPresent Status = "PRESENT"
	StatusAbsent  Status = "ABSENT"
	StatusLeave   Status = "LEAVE"
	StatusUnknown Status = "UNKNOWN"
	StatusWeekOff Status = "WEEKOFF"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLeave, StatusUnknown, StatusWeekOff:
		return true
	}
	return false
}

// rank orders statuses when one user has rows on several projects for the
// same day. Higher wins.
func (s Status) rank() int {
	switch s {
	case StatusPresent:
		return 5
	case StatusLeave:
		return 4
	case StatusWeekOff:
		return 3
	case StatusAbsent:
		return 2
	case StatusUnknown:
		return 1
	}
	return 0
}

type Source string

const (
	SourceAuto   Source = "AUTO"
	SourceManual Source = "MANUAL"
)

func (s Source) Valid() bool {
	return s == SourceAuto || s == SourceManual
}

// DailyAttendance is the reconciled attendance of one user on one project for
// one calendar day.
type DailyAttendance struct {
	ID             string
	UserID         string
	ProjectID      string
	AttendanceDate time.Time
	Status         Status
	MinutesWorked  *decimal.Decimal
	FirstClockInAt *time.Time
	LastClockOutAt *time.Time
	Source         Source
	RequestID      *string
	Notes          *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Key identifies a daily attendance row.
type Key struct {
	UserID    string
	ProjectID string
	Date      time.Time
}

func (d *DailyAttendance) Key() Key {
	return Key{UserID: d.UserID, ProjectID: d.ProjectID, Date: d.AttendanceDate}
}

// IsRequestLinked reports whether the row was produced by an approved request.
func (d *DailyAttendance) IsRequestLinked() bool {
	return d.Source == SourceAuto && d.RequestID != nil
}

// SessionSummary aggregates the closed and open work sessions of one user on
// one project for one sheet date.
type SessionSummary struct {
	Count          int
	FirstClockInAt *time.Time
	LastClockOutAt *time.Time
	MinutesWorked  decimal.Decimal
}

// Derive applies the attendance precedence to one row:
//  1. a MANUAL row is never changed automatically
//  2. a row created by an approved request keeps its status and request link,
//     only the clock fields are refreshed
//  3. otherwise the status comes from sessions: PRESENT if any, WEEKOFF on
//     a week-off day, ABSENT otherwise
//
// The second return value is false when nothing should be written.
func Derive(key Key, existing *DailyAttendance, sum SessionSummary, weekOff bool) (DailyAttendance, bool) {
	if existing != nil && existing.Source == SourceManual {
		return *existing, false
	}

	next := DailyAttendance{
		UserID:         key.UserID,
		ProjectID:      key.ProjectID,
		AttendanceDate: key.Date,
		Source:         SourceAuto,
	}
	if sum.Count > 0 {
		minutes := sum.MinutesWorked
		next.MinutesWorked = &minutes
		next.FirstClockInAt = sum.FirstClockInAt
		next.LastClockOutAt = sum.LastClockOutAt
	}

	switch {
	case existing != nil && existing.IsRequestLinked():
		next.Status = existing.Status
		next.RequestID = existing.RequestID
		next.Notes = existing.Notes
	case sum.Count > 0:
		next.Status = StatusPresent
	case weekOff:
		next.Status = StatusWeekOff
	default:
		next.Status = StatusAbsent
	}

	if existing != nil {
		next.ID = existing.ID
		next.CreatedAt = existing.CreatedAt
		next.UpdatedAt = existing.UpdatedAt
		if existing.Notes != nil && next.Notes == nil {
			next.Notes = existing.Notes
		}
		if SameContent(*existing, next) {
			return *existing, false
		}
	}
	return next, true
}

// ApplyRequest folds an approved request decision into a row. MANUAL rows are
// left untouched; clock fields already recorded are kept.
func ApplyRequest(key Key, existing *DailyAttendance, status Status, requestID string, notes *string) (DailyAttendance, bool) {
	if existing != nil && existing.Source == SourceManual {
		return *existing, false
	}

	next := DailyAttendance{
		UserID:         key.UserID,
		ProjectID:      key.ProjectID,
		AttendanceDate: key.Date,
		Status:         status,
		Source:         SourceAuto,
		RequestID:      &requestID,
		Notes:          notes,
	}
	if existing != nil {
		next.ID = existing.ID
		next.MinutesWorked = existing.MinutesWorked
		next.FirstClockInAt = existing.FirstClockInAt
		next.LastClockOutAt = existing.LastClockOutAt
		next.CreatedAt = existing.CreatedAt
		next.UpdatedAt = existing.UpdatedAt
		if SameContent(*existing, next) {
			return *existing, false
		}
	}
	return next, true
}

// SameContent compares the reconciled fields of two rows, ignoring identity
// and timestamps.
func SameContent(a, b DailyAttendance) bool {
	return a.Status == b.Status &&
		a.Source == b.Source &&
		decimalPtrEqual(a.MinutesWorked, b.MinutesWorked) &&
		timePtrEqual(a.FirstClockInAt, b.FirstClockInAt) &&
		timePtrEqual(a.LastClockOutAt, b.LastClockOutAt) &&
		stringPtrEqual(a.RequestID, b.RequestID) &&
		stringPtrEqual(a.Notes, b.Notes)
}

// ResolveDay computes a user's status for a day across all projects from the
// materialized rows, falling back to session activity and week-off days.
func ResolveDay(rows []DailyAttendance, sessionCount int, weekOff bool) (Status, *DailyAttendance) {
	if row := best(rows, func(r DailyAttendance) bool { return r.Source == SourceManual }); row != nil {
		return row.Status, row
	}
	if row := best(rows, func(r DailyAttendance) bool { return r.IsRequestLinked() }); row != nil {
		return row.Status, row
	}
	if sessionCount > 0 {
		return StatusPresent, best(rows, func(r DailyAttendance) bool { return r.Status == StatusPresent })
	}
	if weekOff {
		return StatusWeekOff, nil
	}
	return StatusAbsent, nil
}

func best(rows []DailyAttendance, match func(DailyAttendance) bool) *DailyAttendance {
	var picked *DailyAttendance
	for i := range rows {
		if !match(rows[i]) {
			continue
		}
		if picked == nil || rows[i].Status.rank() > picked.Status.rank() {
			picked = &rows[i]
		}
	}
	return picked
}

func decimalPtrEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
