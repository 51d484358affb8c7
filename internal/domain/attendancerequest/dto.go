package attendancerequest

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
)

// ========================================
// REQUEST DTOs
// ========================================

type CreateAttendanceRequest struct {
	UserID        string  `json:"-"`
	ProjectID     *string `json:"project_id"`
	RequestType   Type    `json:"request_type"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	StartTime     *string `json:"start_time"`
	EndTime       *string `json:"end_time"`
	Reason        *string `json:"reason"`
	AttachmentURL *string `json:"attachment_url"`
}

func (r *CreateAttendanceRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.UserID) {
		errs.Add("user_id", "user_id is required")
	}
	if r.ProjectID != nil && !validator.IsValidUUID(*r.ProjectID) {
		errs.Add("project_id", "project_id must be a valid UUID")
	}
	if !r.RequestType.Valid() {
		errs.Add("request_type", "request_type must be one of LEAVE, SICK_LEAVE, WFH, REGULARIZATION, SHIFT_CHANGE, OTHER")
	}
	validateSchedule(&errs, r.StartDate, r.EndDate, r.StartTime, r.EndTime)
	validateMetadata(&errs, r.Reason, r.AttachmentURL)

	return errs.Err()
}

// ToEntity converts a validated request into a PENDING attendance request.
func (r *CreateAttendanceRequest) ToEntity(now time.Time) AttendanceRequest {
	start, _ := validator.IsValidDate(r.StartDate)
	end, _ := validator.IsValidDate(r.EndDate)
	return AttendanceRequest{
		UserID:        r.UserID,
		ProjectID:     r.ProjectID,
		RequestType:   r.RequestType,
		Status:        StatusPending,
		StartDate:     start,
		EndDate:       end,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Reason:        r.Reason,
		AttachmentURL: r.AttachmentURL,
		RequestedAt:   now,
	}
}

// UpdateAttendanceRequest is a partial update; nil fields are left unchanged.
type UpdateAttendanceRequest struct {
	ID            string  `json:"-"`
	UserID        string  `json:"-"`
	ProjectID     *string `json:"project_id"`
	RequestType   *Type   `json:"request_type"`
	StartDate     *string `json:"start_date"`
	EndDate       *string `json:"end_date"`
	StartTime     *string `json:"start_time"`
	EndTime       *string `json:"end_time"`
	Reason        *string `json:"reason"`
	AttachmentURL *string `json:"attachment_url"`
}

// TouchesSchedule reports whether the update changes anything other than the
// reason or attachment.
func (r *UpdateAttendanceRequest) TouchesSchedule() bool {
	return r.ProjectID != nil || r.RequestType != nil || r.StartDate != nil ||
		r.EndDate != nil || r.StartTime != nil || r.EndTime != nil
}

// Apply merges the update into current and validates the result.
func (r *UpdateAttendanceRequest) Apply(current AttendanceRequest) (AttendanceRequest, error) {
	var errs validator.ValidationErrors

	if r.ProjectID != nil {
		if !validator.IsValidUUID(*r.ProjectID) {
			errs.Add("project_id", "project_id must be a valid UUID")
		}
		current.ProjectID = r.ProjectID
	}
	if r.RequestType != nil {
		if !r.RequestType.Valid() {
			errs.Add("request_type", "request_type must be one of LEAVE, SICK_LEAVE, WFH, REGULARIZATION, SHIFT_CHANGE, OTHER")
		}
		current.RequestType = *r.RequestType
	}

	start := current.StartDate.Format(validator.DateLayout)
	end := current.EndDate.Format(validator.DateLayout)
	if r.StartDate != nil {
		start = *r.StartDate
	}
	if r.EndDate != nil {
		end = *r.EndDate
	}
	if r.StartTime != nil {
		current.StartTime = r.StartTime
	}
	if r.EndTime != nil {
		current.EndTime = r.EndTime
	}
	validateSchedule(&errs, start, end, current.StartTime, current.EndTime)
	current.StartDate, _ = validator.IsValidDate(start)
	current.EndDate, _ = validator.IsValidDate(end)

	if r.Reason != nil {
		current.Reason = r.Reason
	}
	if r.AttachmentURL != nil {
		current.AttachmentURL = r.AttachmentURL
	}
	validateMetadata(&errs, current.Reason, current.AttachmentURL)

	if err := errs.Err(); err != nil {
		return AttendanceRequest{}, err
	}
	return current, nil
}

type DecideRequest struct {
	RequestID  string  `json:"request_id"`
	ApproverID string  `json:"-"`
	Decision   Status  `json:"decision"`
	Comment    *string `json:"comment"`
}

func (r *DecideRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.RequestID) {
		errs.Add("request_id", "request_id must be a valid UUID")
	}
	if validator.IsEmpty(r.ApproverID) {
		errs.Add("approver_id", "approver_id is required")
	}
	if !r.Decision.IsDecision() {
		errs.Add("decision", "decision must be APPROVED or REJECTED")
	}
	if r.Comment != nil && len(*r.Comment) > 2000 {
		errs.Add("comment", "comment must not exceed 2000 characters")
	}

	return errs.Err()
}

type ListFilter struct {
	UserID *string
	Status *Status
	Type   *Type
	Dates  validator.DateRange
}

type ApprovalFilter struct {
	RequestID  *string
	ApproverID *string
}

func validateSchedule(errs *validator.ValidationErrors, startDate, endDate string, startTime, endTime *string) {
	start, startOK := validator.IsValidDate(startDate)
	if !startOK {
		errs.Add("start_date", "start_date must be in YYYY-MM-DD format")
	}
	end, endOK := validator.IsValidDate(endDate)
	if !endOK {
		errs.Add("end_date", "end_date must be in YYYY-MM-DD format")
	}
	if startOK && endOK && end.Before(start) {
		errs.Add("end_date", "end_date must be on or after start_date")
	}
	if startOK && endOK && end.After(start.AddDate(0, 0, MaxRequestDays-1)) {
		errs.Add("end_date", fmt.Sprintf("request must not span more than %d days", MaxRequestDays))
	}

	var from, to time.Time
	var fromOK, toOK bool
	if startTime != nil {
		if from, fromOK = validator.IsValidClock(*startTime); !fromOK {
			errs.Add("start_time", "start_time must be in HH:MM format")
		}
	}
	if endTime != nil {
		if to, toOK = validator.IsValidClock(*endTime); !toOK {
			errs.Add("end_time", "end_time must be in HH:MM format")
		}
	}
	if fromOK && toOK && !from.Before(to) {
		errs.Add("end_time", "end_time must be after start_time")
	}
}

func validateMetadata(errs *validator.ValidationErrors, reason, attachmentURL *string) {
	if reason != nil && len(*reason) > 2000 {
		errs.Add("reason", "reason must not exceed 2000 characters")
	}
	if attachmentURL != nil && len(*attachmentURL) > 2048 {
		errs.Add("attachment_url", "attachment_url must not exceed 2048 characters")
	}
}

// ========================================
// RESPONSE DTOs
// ========================================

type AttendanceRequestResponse struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	ProjectID     *string    `json:"project_id"`
	RequestType   Type       `json:"request_type"`
	Status        Status     `json:"status"`
	StartDate     string     `json:"start_date"`
	EndDate       string     `json:"end_date"`
	StartTime     *string    `json:"start_time"`
	EndTime       *string    `json:"end_time"`
	Reason        *string    `json:"reason"`
	AttachmentURL *string    `json:"attachment_url"`
	RequestedAt   time.Time  `json:"requested_at"`
	ReviewedBy    *string    `json:"reviewed_by"`
	ReviewedAt    *time.Time `json:"reviewed_at"`
	ReviewComment *string    `json:"review_comment"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func NewAttendanceRequestResponse(r AttendanceRequest) AttendanceRequestResponse {
	return AttendanceRequestResponse{
		ID:            r.ID,
		UserID:        r.UserID,
		ProjectID:     r.ProjectID,
		RequestType:   r.RequestType,
		Status:        r.Status,
		StartDate:     r.StartDate.Format(validator.DateLayout),
		EndDate:       r.EndDate.Format(validator.DateLayout),
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Reason:        r.Reason,
		AttachmentURL: r.AttachmentURL,
		RequestedAt:   r.RequestedAt,
		ReviewedBy:    r.ReviewedBy,
		ReviewedAt:    r.ReviewedAt,
		ReviewComment: r.ReviewComment,
		UpdatedAt:     r.UpdatedAt,
	}
}

type ApprovalResponse struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id"`
	ApproverID string    `json:"approver_id"`
	Decision   Status    `json:"decision"`
	Comment    *string   `json:"comment"`
	DecidedAt  time.Time `json:"decided_at"`
}

func NewApprovalResponse(a Approval) ApprovalResponse {
	return ApprovalResponse{
		ID:         a.ID,
		RequestID:  a.RequestID,
		ApproverID: a.ApproverID,
		Decision:   a.Decision,
		Comment:    a.Comment,
		DecidedAt:  a.DecidedAt,
	}
}

type DecisionResponse struct {
	Request      AttendanceRequestResponse `json:"request"`
	Approval     ApprovalResponse          `json:"approval"`
	DaysRecorded int                       `json:"days_recorded"`
}
