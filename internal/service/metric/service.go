package metric

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/metric"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/project"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type MetricServiceImpl struct {
	tx database.Transactor
	metric.MetricRepository
	projects project.ProjectRepository
}

// CalculateDailyMetrics implements metric.MetricService.
func (s *MetricServiceImpl) CalculateDailyMetrics(ctx context.Context, projectID string, date time.Time) (resp metric.CalculationResponse, err error) {
	defer func() {
		metrics.MetricCalculations.WithLabelValues(metrics.Result(err)).Inc()
	}()

	if err := s.ensureProject(ctx, projectID); err != nil {
		return metric.CalculationResponse{}, err
	}

	resp = metric.CalculationResponse{
		ProjectID: projectID,
		Date:      date.Format(validator.DateLayout),
		Roles:     make([]metric.RoleDailyMetricResponse, 0),
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// Reads below feed history deltas; concurrent runs for the same day
		// must see each other's writes.
		if err := s.MetricRepository.LockProjectDay(ctx, projectID, date); err != nil {
			return err
		}

		records, err := s.MetricRepository.ListSessions(ctx, projectID, date)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}

		roles, err := s.withVanishedRoles(ctx, projectID, date, metric.AggregateByRole(projectID, date, records))
		if err != nil {
			return err
		}
		for _, role := range roles {
			stored, err := s.MetricRepository.UpsertRoleDaily(ctx, role)
			if err != nil {
				return fmt.Errorf("failed to upsert role metric %s: %w", role.WorkRole, err)
			}
			resp.Roles = append(resp.Roles, metric.NewRoleDailyMetricResponse(stored))
		}

		users := metric.AggregateByUser(records)
		users, err = s.withVanishedUsers(ctx, projectID, date, users)
		if err != nil {
			return err
		}
		for _, agg := range users {
			existing, err := s.MetricRepository.GetUserDailyForUpdate(ctx, agg.UserID, projectID, date)
			if err != nil {
				return fmt.Errorf("failed to get user daily metric: %w", err)
			}

			next := metric.DailyMetric{
				UserID:         agg.UserID,
				ProjectID:      projectID,
				WorkRole:       agg.WorkRole,
				MetricDate:     date,
				HoursWorked:    agg.Hours,
				TasksCompleted: agg.Tasks,
			}
			if existing != nil {
				next.ProductivityScore = existing.ProductivityScore
				next.Notes = existing.Notes
			}

			if _, err := s.writeUserDay(ctx, existing, next); err != nil {
				return err
			}
			resp.UsersSynced++
		}
		return nil
	})
	if err != nil {
		return metric.CalculationResponse{}, err
	}

	slog.Info("Calculated daily metrics", "project_id", projectID, "date", resp.Date, "roles", len(resp.Roles), "users", resp.UsersSynced)
	return resp, nil
}

// withVanishedRoles appends zeroed rows for roles that were stored earlier
// but no longer have sessions, so a corrected day does not keep stale totals.
func (s *MetricServiceImpl) withVanishedRoles(ctx context.Context, projectID string, date time.Time, roles []metric.RoleDailyMetric) ([]metric.RoleDailyMetric, error) {
	stored, err := s.MetricRepository.ListRoleDaily(ctx, projectID, validator.DateRange{Start: &date, End: &date})
	if err != nil {
		return nil, fmt.Errorf("failed to list role metrics: %w", err)
	}

	current := make(map[string]bool, len(roles))
	for _, r := range roles {
		current[r.WorkRole] = true
	}
	for _, r := range stored {
		if current[r.WorkRole] {
			continue
		}
		roles = append(roles, metric.RoleDailyMetric{
			ProjectID:        projectID,
			MetricDate:       date,
			WorkRole:         r.WorkRole,
			TotalHoursWorked: decimal.Zero,
		})
	}
	return roles, nil
}

// withVanishedUsers appends zero totals for users whose daily row was synced
// earlier but who no longer have sessions that day.
func (s *MetricServiceImpl) withVanishedUsers(ctx context.Context, projectID string, date time.Time, users []metric.UserAggregate) ([]metric.UserAggregate, error) {
	stored, err := s.MetricRepository.ListUserDaily(ctx, metric.UserDailyFilter{
		ProjectID: &projectID,
		Dates:     validator.DateRange{Start: &date, End: &date},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list user daily metrics: %w", err)
	}

	current := make(map[string]bool, len(users))
	for _, u := range users {
		current[u.UserID] = true
	}
	for _, d := range stored {
		if current[d.UserID] || (d.HoursWorked.IsZero() && d.TasksCompleted == 0) {
			continue
		}
		users = append(users, metric.UserAggregate{UserID: d.UserID, WorkRole: d.WorkRole, Hours: decimal.Zero})
	}
	return users, nil
}

// CalculateForDate implements metric.MetricService.
func (s *MetricServiceImpl) CalculateForDate(ctx context.Context, date time.Time) (int, error) {
	projects, err := s.MetricRepository.ListProjectsWithSessions(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("failed to list projects with sessions: %w", err)
	}

	var (
		done int
		errs []error
	)
	for _, projectID := range projects {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := s.CalculateDailyMetrics(ctx, projectID, date); err != nil {
			slog.Error("Failed to calculate daily metrics", "project_id", projectID, "date", date.Format(validator.DateLayout), "error", err)
			errs = append(errs, fmt.Errorf("project %s: %w", projectID, err))
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

// GetProjectMetrics implements metric.MetricService.
func (s *MetricServiceImpl) GetProjectMetrics(ctx context.Context, projectID string, dates validator.DateRange) ([]metric.RoleDailyMetricResponse, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}

	rows, err := s.MetricRepository.ListRoleDaily(ctx, projectID, dates)
	if err != nil {
		return nil, fmt.Errorf("failed to list role metrics: %w", err)
	}

	resp := make([]metric.RoleDailyMetricResponse, 0, len(rows))
	for _, r := range rows {
		resp = append(resp, metric.NewRoleDailyMetricResponse(r))
	}
	return resp, nil
}

// UpsertUserDailyMetric implements metric.MetricService.
func (s *MetricServiceImpl) UpsertUserDailyMetric(ctx context.Context, req metric.UpsertUserDailyMetricRequest) (metric.DailyMetricResponse, error) {
	if err := req.Validate(); err != nil {
		return metric.DailyMetricResponse{}, err
	}
	next := req.ToEntity()

	if err := s.ensureProject(ctx, next.ProjectID); err != nil {
		return metric.DailyMetricResponse{}, err
	}

	var stored metric.DailyMetric
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.MetricRepository.LockProjectDay(ctx, next.ProjectID, next.MetricDate); err != nil {
			return err
		}
		existing, err := s.MetricRepository.GetUserDailyForUpdate(ctx, next.UserID, next.ProjectID, next.MetricDate)
		if err != nil {
			return fmt.Errorf("failed to get user daily metric: %w", err)
		}
		stored, err = s.writeUserDay(ctx, existing, next)
		return err
	})
	if err != nil {
		return metric.DailyMetricResponse{}, err
	}

	return metric.NewDailyMetricResponse(stored), nil
}

// writeUserDay stores next and moves the project history by its difference
// to existing. Must run inside a transaction.
func (s *MetricServiceImpl) writeUserDay(ctx context.Context, existing *metric.DailyMetric, next metric.DailyMetric) (metric.DailyMetric, error) {
	if existing != nil && sameDay(*existing, next) {
		return *existing, nil
	}

	stored, err := s.MetricRepository.UpsertUserDaily(ctx, next)
	if err != nil {
		return metric.DailyMetric{}, fmt.Errorf("failed to upsert user daily metric: %w", err)
	}

	delta := metric.NewHistoryDelta(existing, stored)
	if delta.IsZero() {
		return stored, nil
	}
	if err := s.MetricRepository.ApplyHistoryDelta(ctx, delta); err != nil {
		return metric.DailyMetric{}, fmt.Errorf("failed to update project history: %w", err)
	}
	return stored, nil
}

func sameDay(a, b metric.DailyMetric) bool {
	if a.WorkRole != b.WorkRole || !a.HoursWorked.Equal(b.HoursWorked) || a.TasksCompleted != b.TasksCompleted {
		return false
	}
	if (a.ProductivityScore == nil) != (b.ProductivityScore == nil) {
		return false
	}
	if a.ProductivityScore != nil && !a.ProductivityScore.Equal(*b.ProductivityScore) {
		return false
	}
	if (a.Notes == nil) != (b.Notes == nil) {
		return false
	}
	return a.Notes == nil || *a.Notes == *b.Notes
}

// ListUserDailyMetrics implements metric.MetricService.
func (s *MetricServiceImpl) ListUserDailyMetrics(ctx context.Context, filter metric.UserDailyFilter) ([]metric.DailyMetricResponse, error) {
	rows, err := s.MetricRepository.ListUserDaily(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list user daily metrics: %w", err)
	}

	resp := make([]metric.DailyMetricResponse, 0, len(rows))
	for _, r := range rows {
		resp = append(resp, metric.NewDailyMetricResponse(r))
	}
	return resp, nil
}

// GetProjectHistory implements metric.MetricService.
func (s *MetricServiceImpl) GetProjectHistory(ctx context.Context, userID, projectID string) (metric.ProjectHistoryResponse, error) {
	h, err := s.MetricRepository.GetHistory(ctx, userID, projectID)
	if err != nil {
		return metric.ProjectHistoryResponse{}, fmt.Errorf("failed to get project history: %w", err)
	}
	return metric.NewProjectHistoryResponse(h), nil
}

// ListProjectHistory implements metric.MetricService.
func (s *MetricServiceImpl) ListProjectHistory(ctx context.Context, filter metric.HistoryFilter) ([]metric.ProjectHistoryResponse, error) {
	rows, err := s.MetricRepository.ListHistory(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list project history: %w", err)
	}

	resp := make([]metric.ProjectHistoryResponse, 0, len(rows))
	for _, h := range rows {
		resp = append(resp, metric.NewProjectHistoryResponse(h))
	}
	return resp, nil
}

func (s *MetricServiceImpl) ensureProject(ctx context.Context, projectID string) error {
	exists, err := s.projects.Exists(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to check project: %w", err)
	}
	if !exists {
		return project.ErrProjectNotFound
	}
	return nil
}

func NewMetricService(tx database.Transactor, metricRepo metric.MetricRepository, projectRepo project.ProjectRepository) metric.MetricService {
	return &MetricServiceImpl{
		tx:               tx,
		MetricRepository: metricRepo,
		projects:         projectRepo,
	}
}
