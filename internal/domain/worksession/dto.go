package worksession

import (
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========================================
// CLOCK DTOs
// ========================================

type ClockInRequest struct {
	UserID    string `json:"-"`
	ProjectID string `json:"project_id"`
	WorkRole  string `json:"work_role"`
}

func (r *ClockInRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.UserID) {
		errs.Add("user_id", "user_id is required")
	}

	if validator.IsEmpty(r.ProjectID) {
		errs.Add("project_id", "project_id is required")
	} else if !validator.IsValidUUID(r.ProjectID) {
		errs.Add("project_id", "project_id must be a valid UUID")
	}

	if validator.IsEmpty(r.WorkRole) {
		errs.Add("work_role", "work_role is required")
	} else if len(r.WorkRole) > 100 {
		errs.Add("work_role", "work_role must not exceed 100 characters")
	}

	return errs.Err()
}

type ClockOutRequest struct {
	UserID         string  `json:"-"`
	TasksCompleted int     `json:"tasks_completed"`
	Notes          *string `json:"notes"`
}

func (r *ClockOutRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.UserID) {
		errs.Add("user_id", "user_id is required")
	}

	if r.TasksCompleted < 0 {
		errs.Add("tasks_completed", "tasks_completed must not be negative")
	}

	if r.Notes != nil && len(*r.Notes) > 2000 {
		errs.Add("notes", "notes must not exceed 2000 characters")
	}

	return errs.Err()
}

// ========================================
// REVIEW DTOs
// ========================================

type ReviewSessionRequest struct {
	SessionID  string  `json:"-"`
	ApproverID string  `json:"-"`
	Decision   Status  `json:"decision"`
	Comment    *string `json:"comment"`
}

func (r *ReviewSessionRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.SessionID) {
		errs.Add("id", "session id must be a valid UUID")
	}
	if validator.IsEmpty(r.ApproverID) {
		errs.Add("approver_id", "approver_id is required")
	}
	if !r.Decision.IsDecision() {
		errs.Add("decision", "decision must be APPROVED or REJECTED")
	}

	return errs.Err()
}

// ========================================
// RESPONSE DTOs
// ========================================

type WorkSessionResponse struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	ProjectID       string           `json:"project_id"`
	WorkRole        string           `json:"work_role"`
	ClockInAt       time.Time        `json:"clock_in_at"`
	ClockOutAt      *time.Time       `json:"clock_out_at"`
	TasksCompleted  int              `json:"tasks_completed"`
	Notes           *string          `json:"notes"`
	SheetDate       string           `json:"sheet_date"`
	Status          Status           `json:"status"`
	ApproverID      *string          `json:"approver_id"`
	ApprovalComment *string          `json:"approval_comment"`
	ApprovedAt      *time.Time       `json:"approved_at"`
	MinutesWorked   *decimal.Decimal `json:"minutes_worked"`
	HoursWorked     *decimal.Decimal `json:"hours_worked"`
}

func NewWorkSessionResponse(s WorkSession) WorkSessionResponse {
	resp := WorkSessionResponse{
		ID:              s.ID,
		UserID:          s.UserID,
		ProjectID:       s.ProjectID,
		WorkRole:        s.WorkRole,
		ClockInAt:       s.ClockInAt,
		ClockOutAt:      s.ClockOutAt,
		TasksCompleted:  s.TasksCompleted,
		Notes:           s.Notes,
		SheetDate:       s.SheetDate.Format(validator.DateLayout),
		Status:          s.Status,
		ApproverID:      s.ApproverID,
		ApprovalComment: s.ApprovalComment,
		ApprovedAt:      s.ApprovedAt,
	}

	if !s.IsOpen() {
		minutes := s.WorkedMinutes()
		hours := minutes.Div(decimal.NewFromInt(60)).Round(2)
		resp.MinutesWorked = &minutes
		resp.HoursWorked = &hours
	}

	return resp
}
