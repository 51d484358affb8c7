package validator

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

type ValidationError struct {
	Field   string
	Message string
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var msgs []string
	for _, err := range v {
		msgs = append(msgs, err.Field+": "+err.Message)
	}
	return strings.Join(msgs, "; ")
}

func (v ValidationErrors) ToMap() map[string]string {
	result := make(map[string]string)
	for _, err := range v {
		result[err.Field] = err.Message
	}
	return result
}

// Add appends a field error.
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}

// Err returns nil when no errors were collected.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// IsEmpty checks if a string is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// IsValidUUID accepts any RFC 4122 UUID in its canonical dashed form.
func IsValidUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// Date validation
func IsValidDate(dateStr string) (time.Time, bool) {
	date, err := time.Parse(DateLayout, dateStr)
	return date, err == nil
}

// IsValidClock checks an "HH:MM" wall-clock time.
func IsValidClock(clock string) (time.Time, bool) {
	t, err := time.Parse(ClockLayout, clock)
	return t, err == nil
}

// DateRange is an optional, inclusive range of calendar dates.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// ParseDateRange parses optional start/end query values and checks that the
// end is not before the start.
func ParseDateRange(start, end string) (DateRange, error) {
	var (
		errs ValidationErrors
		r    DateRange
	)

	if start != "" {
		d, ok := IsValidDate(start)
		if !ok {
			errs.Add("start_date", "start_date must be in YYYY-MM-DD format")
		} else {
			r.Start = &d
		}
	}
	if end != "" {
		d, ok := IsValidDate(end)
		if !ok {
			errs.Add("end_date", "end_date must be in YYYY-MM-DD format")
		} else {
			r.End = &d
		}
	}
	if r.Start != nil && r.End != nil && r.End.Before(*r.Start) {
		errs.Add("end_date", "end_date must be on or after start_date")
	}

	return r, errs.Err()
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d time.Time) bool {
	if r.Start != nil && d.Before(*r.Start) {
		return false
	}
	if r.End != nil && d.After(*r.End) {
		return false
	}
	return true
}

// DateOf truncates t to its calendar date in loc, returned as midnight UTC so
// it compares cleanly with DATE columns.
func DateOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
