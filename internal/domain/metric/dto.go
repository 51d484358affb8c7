package metric

import (
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

var (
	maxDailyHours = decimal.NewFromInt(24)
	maxScore      = decimal.NewFromInt(100)
)

type CalculateRequest struct {
	ProjectID string `json:"project_id"`
	Date      string `json:"date"`
}

func (r *CalculateRequest) Validate() (time.Time, error) {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.ProjectID) {
		errs.Add("project_id", "project_id must be a valid UUID")
	}
	date, ok := validator.IsValidDate(r.Date)
	if !ok {
		errs.Add("date", "date must be in YYYY-MM-DD format")
	}

	return date, errs.Err()
}

type UpsertUserDailyMetricRequest struct {
	UserID            string           `json:"user_id"`
	ProjectID         string           `json:"project_id"`
	Date              string           `json:"date"`
	WorkRole          string           `json:"work_role"`
	HoursWorked       decimal.Decimal  `json:"hours_worked"`
	TasksCompleted    int              `json:"tasks_completed"`
	ProductivityScore *decimal.Decimal `json:"productivity_score"`
	Notes             *string          `json:"notes"`
}

func (r *UpsertUserDailyMetricRequest) Validate() error {
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
	if validator.IsEmpty(r.WorkRole) {
		errs.Add("work_role", "work_role is required")
	}
	if r.HoursWorked.IsNegative() || r.HoursWorked.GreaterThan(maxDailyHours) {
		errs.Add("hours_worked", "hours_worked must be between 0 and 24")
	}
	if r.TasksCompleted < 0 {
		errs.Add("tasks_completed", "tasks_completed must not be negative")
	}
	if r.ProductivityScore != nil && (r.ProductivityScore.IsNegative() || r.ProductivityScore.GreaterThan(maxScore)) {
		errs.Add("productivity_score", "productivity_score must be between 0 and 100")
	}

	return errs.Err()
}

// ToEntity converts a validated request; hours are stored with two decimals.
func (r *UpsertUserDailyMetricRequest) ToEntity() DailyMetric {
	date, _ := validator.IsValidDate(r.Date)
	m := DailyMetric{
		UserID:         r.UserID,
		ProjectID:      r.ProjectID,
		WorkRole:       r.WorkRole,
		MetricDate:     date,
		HoursWorked:    r.HoursWorked.Round(2),
		TasksCompleted: r.TasksCompleted,
		Notes:          r.Notes,
	}
	if r.ProductivityScore != nil {
		score := r.ProductivityScore.Round(2)
		m.ProductivityScore = &score
	}
	return m
}

type UserDailyFilter struct {
	UserID    *string
	ProjectID *string
	Dates     validator.DateRange
}

type HistoryFilter struct {
	UserID    *string
	ProjectID *string
}

// ========================================
// RESPONSE DTOs
// ========================================

type RoleDailyMetricResponse struct {
	ProjectID        string          `json:"project_id"`
	MetricDate       string          `json:"metric_date"`
	WorkRole         string          `json:"work_role"`
	ActiveUsersCount int             `json:"active_users_count"`
	TasksCompleted   int             `json:"tasks_completed"`
	TotalHoursWorked decimal.Decimal `json:"total_hours_worked"`
}

func NewRoleDailyMetricResponse(m RoleDailyMetric) RoleDailyMetricResponse {
	return RoleDailyMetricResponse{
		ProjectID:        m.ProjectID,
		MetricDate:       m.MetricDate.Format(validator.DateLayout),
		WorkRole:         m.WorkRole,
		ActiveUsersCount: m.ActiveUsersCount,
		TasksCompleted:   m.TasksCompleted,
		TotalHoursWorked: m.TotalHoursWorked,
	}
}

type DailyMetricResponse struct {
	ID                string           `json:"id"`
	UserID            string           `json:"user_id"`
	ProjectID         string           `json:"project_id"`
	WorkRole          string           `json:"work_role"`
	MetricDate        string           `json:"metric_date"`
	HoursWorked       decimal.Decimal  `json:"hours_worked"`
	TasksCompleted    int              `json:"tasks_completed"`
	ProductivityScore *decimal.Decimal `json:"productivity_score"`
	Notes             *string          `json:"notes"`
}

func NewDailyMetricResponse(m DailyMetric) DailyMetricResponse {
	return DailyMetricResponse{
		ID:                m.ID,
		UserID:            m.UserID,
		ProjectID:         m.ProjectID,
		WorkRole:          m.WorkRole,
		MetricDate:        m.MetricDate.Format(validator.DateLayout),
		HoursWorked:       m.HoursWorked,
		TasksCompleted:    m.TasksCompleted,
		ProductivityScore: m.ProductivityScore,
		Notes:             m.Notes,
	}
}

type ProjectHistoryResponse struct {
	UserID              string          `json:"user_id"`
	ProjectID           string          `json:"project_id"`
	WorkRole            string          `json:"work_role"`
	TotalHoursWorked    decimal.Decimal `json:"total_hours_worked"`
	TotalTasksCompleted int             `json:"total_tasks_completed"`
	FirstWorkedDate     *string         `json:"first_worked_date"`
	LastWorkedDate      *string         `json:"last_worked_date"`
}

func NewProjectHistoryResponse(h ProjectHistory) ProjectHistoryResponse {
	return ProjectHistoryResponse{
		UserID:              h.UserID,
		ProjectID:           h.ProjectID,
		WorkRole:            h.WorkRole,
		TotalHoursWorked:    h.TotalHoursWorked,
		TotalTasksCompleted: h.TotalTasksCompleted,
		FirstWorkedDate:     formatDatePtr(h.FirstWorkedDate),
		LastWorkedDate:      formatDatePtr(h.LastWorkedDate),
	}
}

type CalculationResponse struct {
	ProjectID   string                    `json:"project_id"`
	Date        string                    `json:"date"`
	Roles       []RoleDailyMetricResponse `json:"roles"`
	UsersSynced int                       `json:"users_synced"`
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(validator.DateLayout)
	return &s
}
