package dailyattendance

import (
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// UpsertRequest writes one daily attendance row. Administrators use it with
// Source MANUAL to correct a day.
type UpsertRequest struct {
	UserID         string           `json:"user_id"`
	ProjectID      string           `json:"project_id"`
	Date           string           `json:"date"`
	Status         Status           `json:"status"`
	Source         Source           `json:"source"`
	MinutesWorked  *decimal.Decimal `json:"minutes_worked"`
	FirstClockInAt *time.Time       `json:"first_clock_in_at"`
	LastClockOutAt *time.Time       `json:"last_clock_out_at"`
	RequestID      *string          `json:"request_id"`
	Notes          *string          `json:"notes"`
}

func (r *UpsertRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.UserID) {
		errs.Add("user_id", "user_id must be a valid UUID")
	}
	if !validator.IsValidUUID(r.ProjectID) {
		errs.Add("project_id", "project_id must be a valid UUID")
	}
	if _, ok := validator.IsValidDate(r.Date); !ok {
		errs.Add("date", "date must be in YYYY-MM-DD format")
	}
	if !r.Status.Valid() {
		errs.Add("status", "status must be one of PRESENT, ABSENT, LEAVE, UNKNOWN, WEEKOFF")
	}
	if r.Source == "" {
		r.Source = SourceManual
	}
	if !r.Source.Valid() {
		errs.Add("source", "source must be AUTO or MANUAL")
	}
	if r.MinutesWorked != nil && r.MinutesWorked.IsNegative() {
		errs.Add("minutes_worked", "minutes_worked must not be negative")
	}
	if r.FirstClockInAt != nil && r.LastClockOutAt != nil && r.LastClockOutAt.Before(*r.FirstClockInAt) {
		errs.Add("last_clock_out_at", "last_clock_out_at must not be before first_clock_in_at")
	}
	if r.RequestID != nil && !validator.IsValidUUID(*r.RequestID) {
		errs.Add("request_id", "request_id must be a valid UUID")
	}

	return errs.Err()
}

// ToEntity converts a validated request into a row.
func (r *UpsertRequest) ToEntity() DailyAttendance {
	date, _ := validator.IsValidDate(r.Date)
	return DailyAttendance{
		UserID:         r.UserID,
		ProjectID:      r.ProjectID,
		AttendanceDate: date,
		Status:         r.Status,
		Source:         r.Source,
		MinutesWorked:  r.MinutesWorked,
		FirstClockInAt: r.FirstClockInAt,
		LastClockOutAt: r.LastClockOutAt,
		RequestID:      r.RequestID,
		Notes:          r.Notes,
	}
}

type SyncRequest struct {
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`
	Date      string `json:"date"`
}

func (r *SyncRequest) Validate() (Key, error) {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.UserID) {
		errs.Add("user_id", "user_id must be a valid UUID")
	}
	if !validator.IsValidUUID(r.ProjectID) {
		errs.Add("project_id", "project_id must be a valid UUID")
	}
	date, ok := validator.IsValidDate(r.Date)
	if !ok {
		errs.Add("date", "date must be in YYYY-MM-DD format")
	}

	if err := errs.Err(); err != nil {
		return Key{}, err
	}
	return Key{UserID: r.UserID, ProjectID: r.ProjectID, Date: date}, nil
}

type ListFilter struct {
	UserID    *string
	ProjectID *string
	Dates     validator.DateRange
}

type DailyAttendanceResponse struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	ProjectID      string           `json:"project_id"`
	AttendanceDate string           `json:"attendance_date"`
	Status         Status           `json:"status"`
	MinutesWorked  *decimal.Decimal `json:"minutes_worked"`
	FirstClockInAt *time.Time       `json:"first_clock_in_at"`
	LastClockOutAt *time.Time       `json:"last_clock_out_at"`
	Source         Source           `json:"source"`
	RequestID      *string          `json:"request_id"`
	Notes          *string          `json:"notes"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func NewDailyAttendanceResponse(d DailyAttendance) DailyAttendanceResponse {
	return DailyAttendanceResponse{
		ID:             d.ID,
		UserID:         d.UserID,
		ProjectID:      d.ProjectID,
		AttendanceDate: d.AttendanceDate.Format(validator.DateLayout),
		Status:         d.Status,
		MinutesWorked:  d.MinutesWorked,
		FirstClockInAt: d.FirstClockInAt,
		LastClockOutAt: d.LastClockOutAt,
		Source:         d.Source,
		RequestID:      d.RequestID,
		Notes:          d.Notes,
		UpdatedAt:      d.UpdatedAt,
	}
}

// StatusResponse is the resolved status of a user for a day.
type StatusResponse struct {
	UserID       string  `json:"user_id"`
	Date         string  `json:"date"`
	Status       Status  `json:"status"`
	Materialized bool    `json:"materialized"`
	ProjectID    *string `json:"project_id,omitempty"`
	Source       *Source `json:"source,omitempty"`
	RequestID    *string `json:"request_id,omitempty"`
}
