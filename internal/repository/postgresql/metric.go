package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/metric"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	roleDailyColumns = `
		id, project_id, metric_date, work_role, active_users_count, tasks_completed,
		total_hours_worked, created_at, updated_at`
	userDailyColumns = `
		id, user_id, project_id, work_role, metric_date, hours_worked, tasks_completed,
		productivity_score, notes, created_at, updated_at`
	historyColumns = `
		id, user_id, project_id, work_role, total_hours_worked, total_tasks_completed,
		first_worked_date, last_worked_date, created_at, updated_at`
)

type metricRepositoryImpl struct {
	db *database.DB
}

func NewMetricRepository(db *database.DB) metric.MetricRepository {
	return &metricRepositoryImpl{db: db}
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}

func scanRoleDaily(row pgx.Row) (metric.RoleDailyMetric, error) {
	var m metric.RoleDailyMetric
	err := row.Scan(
		&m.ID,
		&m.ProjectID,
		&m.MetricDate,
		&m.WorkRole,
		&m.ActiveUsersCount,
		&m.TasksCompleted,
		&m.TotalHoursWorked,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

func scanUserDaily(row pgx.Row) (metric.DailyMetric, error) {
	var (
		m     metric.DailyMetric
		score decimal.NullDecimal
	)
	err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.ProjectID,
		&m.WorkRole,
		&m.MetricDate,
		&m.HoursWorked,
		&m.TasksCompleted,
		&score,
		&m.Notes,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return metric.DailyMetric{}, err
	}
	if score.Valid {
		m.ProductivityScore = &score.Decimal
	}
	return m, nil
}

func scanHistory(row pgx.Row) (metric.ProjectHistory, error) {
	var h metric.ProjectHistory
	err := row.Scan(
		&h.ID,
		&h.UserID,
		&h.ProjectID,
		&h.WorkRole,
		&h.TotalHoursWorked,
		&h.TotalTasksCompleted,
		&h.FirstWorkedDate,
		&h.LastWorkedDate,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	return h, err
}

// ListSessions implements metric.MetricRepository.
func (r *metricRepositoryImpl) ListSessions(ctx context.Context, projectID string, date time.Time) ([]metric.SessionRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT user_id, work_role,
			CASE WHEN clock_out_at IS NULL THEN 0 ELSE tasks_completed END,
			CASE WHEN clock_out_at IS NULL THEN 0 ELSE
				COALESCE(minutes_worked, ROUND((EXTRACT(EPOCH FROM (clock_out_at - clock_in_at)) / 60)::numeric, 2))
			END
		FROM work_sessions
		WHERE project_id = $1 AND sheet_date = $2
		ORDER BY clock_in_at`

	rows, err := q.Query(ctx, query, projectID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	records := make([]metric.SessionRecord, 0)
	for rows.Next() {
		var rec metric.SessionRecord
		if err := rows.Scan(&rec.UserID, &rec.WorkRole, &rec.TasksCompleted, &rec.Minutes); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListProjectsWithSessions implements metric.MetricRepository.
func (r *metricRepositoryImpl) ListProjectsWithSessions(ctx context.Context, date time.Time) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT DISTINCT project_id
		FROM work_sessions
		WHERE sheet_date = $1
		ORDER BY project_id`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects with sessions: %w", err)
	}
	defer rows.Close()

	projects := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		projects = append(projects, id)
	}
	return projects, rows.Err()
}

// LockProjectDay implements metric.MetricRepository.
func (r *metricRepositoryImpl) LockProjectDay(ctx context.Context, projectID string, date time.Time) error {
	q := GetQuerier(ctx, r.db)

	key := projectID + "|" + date.Format(validator.DateLayout)
	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("failed to lock project day: %w", err)
	}
	return nil
}

// UpsertRoleDaily implements metric.MetricRepository.
func (r *metricRepositoryImpl) UpsertRoleDaily(ctx context.Context, m metric.RoleDailyMetric) (metric.RoleDailyMetric, error) {
	q := GetQuerier(ctx, r.db)

	id, err := newID()
	if err != nil {
		return metric.RoleDailyMetric{}, err
	}

	query := `
		INSERT INTO project_daily_metrics (
			id, project_id, metric_date, work_role, active_users_count, tasks_completed, total_hours_worked,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT ON CONSTRAINT uq_project_daily_metrics DO UPDATE SET
			active_users_count = EXCLUDED.active_users_count,
			tasks_completed = EXCLUDED.tasks_completed,
			total_hours_worked = EXCLUDED.total_hours_worked,
			updated_at = NOW()
		WHERE (project_daily_metrics.active_users_count, project_daily_metrics.tasks_completed, project_daily_metrics.total_hours_worked)
			IS DISTINCT FROM (EXCLUDED.active_users_count, EXCLUDED.tasks_completed, EXCLUDED.total_hours_worked)
		RETURNING ` + roleDailyColumns

	stored, err := scanRoleDaily(q.QueryRow(ctx, query,
		id,
		m.ProjectID,
		m.MetricDate,
		m.WorkRole,
		m.ActiveUsersCount,
		m.TasksCompleted,
		m.TotalHoursWorked,
	))
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return metric.RoleDailyMetric{}, fmt.Errorf("failed to upsert project daily metric: %w", err)
	}

	// unchanged: return the stored row as is
	stored, err = scanRoleDaily(q.QueryRow(ctx, `
		SELECT `+roleDailyColumns+`
		FROM project_daily_metrics
		WHERE project_id = $1 AND metric_date = $2 AND work_role = $3`,
		m.ProjectID, m.MetricDate, m.WorkRole))
	if err != nil {
		return metric.RoleDailyMetric{}, fmt.Errorf("failed to get project daily metric: %w", err)
	}
	return stored, nil
}

// ListRoleDaily implements metric.MetricRepository.
func (r *metricRepositoryImpl) ListRoleDaily(ctx context.Context, projectID string, dates validator.DateRange) ([]metric.RoleDailyMetric, error) {
	q := GetQuerier(ctx, r.db)

	conditions := []string{"project_id = $1"}
	args := []interface{}{projectID}
	argIdx := 2

	if dates.Start != nil {
		conditions = append(conditions, fmt.Sprintf("metric_date >= $%d", argIdx))
		args = append(args, *dates.Start)
		argIdx++
	}
	if dates.End != nil {
		conditions = append(conditions, fmt.Sprintf("metric_date <= $%d", argIdx))
		args = append(args, *dates.End)
	}

	query := `
		SELECT ` + roleDailyColumns + `
		FROM project_daily_metrics
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY metric_date DESC, work_role`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list project daily metrics: %w", err)
	}
	defer rows.Close()

	result := make([]metric.RoleDailyMetric, 0)
	for rows.Next() {
		m, err := scanRoleDaily(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// GetUserDailyForUpdate implements metric.MetricRepository.
func (r *metricRepositoryImpl) GetUserDailyForUpdate(ctx context.Context, userID, projectID string, date time.Time) (*metric.DailyMetric, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + userDailyColumns + `
		FROM user_daily_metrics
		WHERE user_id = $1 AND project_id = $2 AND metric_date = $3
		FOR UPDATE`

	m, err := scanUserDaily(q.QueryRow(ctx, query, userID, projectID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user daily metric: %w", err)
	}
	return &m, nil
}

// UpsertUserDaily implements metric.MetricRepository.
func (r *metricRepositoryImpl) UpsertUserDaily(ctx context.Context, m metric.DailyMetric) (metric.DailyMetric, error) {
	q := GetQuerier(ctx, r.db)

	id, err := newID()
	if err != nil {
		return metric.DailyMetric{}, err
	}

	query := `
		INSERT INTO user_daily_metrics (
			id, user_id, project_id, work_role, metric_date, hours_worked, tasks_completed,
			productivity_score, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT ON CONSTRAINT uq_user_daily_metrics DO UPDATE SET
			work_role = EXCLUDED.work_role,
			hours_worked = EXCLUDED.hours_worked,
			tasks_completed = EXCLUDED.tasks_completed,
			productivity_score = EXCLUDED.productivity_score,
			notes = EXCLUDED.notes,
			updated_at = NOW()
		WHERE (user_daily_metrics.work_role, user_daily_metrics.hours_worked, user_daily_metrics.tasks_completed,
				user_daily_metrics.productivity_score, user_daily_metrics.notes)
			IS DISTINCT FROM (EXCLUDED.work_role, EXCLUDED.hours_worked, EXCLUDED.tasks_completed,
				EXCLUDED.productivity_score, EXCLUDED.notes)
		RETURNING ` + userDailyColumns

	stored, err := scanUserDaily(q.QueryRow(ctx, query,
		id,
		m.UserID,
		m.ProjectID,
		m.WorkRole,
		m.MetricDate,
		m.HoursWorked,
		m.TasksCompleted,
		m.ProductivityScore,
		m.Notes,
	))
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return metric.DailyMetric{}, fmt.Errorf("failed to upsert user daily metric: %w", err)
	}

	existing, err := r.GetUserDailyForUpdate(ctx, m.UserID, m.ProjectID, m.MetricDate)
	if err != nil {
		return metric.DailyMetric{}, err
	}
	if existing == nil {
		return metric.DailyMetric{}, fmt.Errorf("user daily metric %s/%s vanished during upsert", m.UserID, m.ProjectID)
	}
	return *existing, nil
}

// ListUserDaily implements metric.MetricRepository.
func (r *metricRepositoryImpl) ListUserDaily(ctx context.Context, filter metric.UserDailyFilter) ([]metric.DailyMetric, error) {
	q := GetQuerier(ctx, r.db)

	conditions := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIdx))
		args = append(args, *filter.UserID)
		argIdx++
	}
	if filter.ProjectID != nil {
		conditions = append(conditions, fmt.Sprintf("project_id = $%d", argIdx))
		args = append(args, *filter.ProjectID)
		argIdx++
	}
	if filter.Dates.Start != nil {
		conditions = append(conditions, fmt.Sprintf("metric_date >= $%d", argIdx))
		args = append(args, *filter.Dates.Start)
		argIdx++
	}
	if filter.Dates.End != nil {
		conditions = append(conditions, fmt.Sprintf("metric_date <= $%d", argIdx))
		args = append(args, *filter.Dates.End)
	}

	query := `
		SELECT ` + userDailyColumns + `
		FROM user_daily_metrics
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY metric_date DESC, user_id, project_id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list user daily metrics: %w", err)
	}
	defer rows.Close()

	result := make([]metric.DailyMetric, 0)
	for rows.Next() {
		m, err := scanUserDaily(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// ApplyHistoryDelta implements metric.MetricRepository.
func (r *metricRepositoryImpl) ApplyHistoryDelta(ctx context.Context, delta metric.HistoryDelta) error {
	q := GetQuerier(ctx, r.db)

	id, err := newID()
	if err != nil {
		return err
	}

	// The worked-date span only grows; totals move by the delta.
	query := `
		INSERT INTO user_project_history (
			id, user_id, project_id, work_role, total_hours_worked, total_tasks_completed,
			first_worked_date, last_worked_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, GREATEST($5::numeric, 0), GREATEST($6::int, 0), $7, $7, NOW(), NOW())
		ON CONFLICT ON CONSTRAINT uq_user_project_history DO UPDATE SET
			work_role = EXCLUDED.work_role,
			total_hours_worked = GREATEST(user_project_history.total_hours_worked + $5::numeric, 0),
			total_tasks_completed = GREATEST(user_project_history.total_tasks_completed + $6::int, 0),
			first_worked_date = LEAST(user_project_history.first_worked_date, EXCLUDED.first_worked_date),
			last_worked_date = GREATEST(user_project_history.last_worked_date, EXCLUDED.last_worked_date),
			updated_at = NOW()`

	_, err = q.Exec(ctx, query,
		id,
		delta.UserID,
		delta.ProjectID,
		delta.WorkRole,
		delta.Hours,
		delta.Tasks,
		delta.Date,
	)
	if err != nil {
		return fmt.Errorf("failed to apply project history delta: %w", err)
	}
	return nil
}

// GetHistory implements metric.MetricRepository.
func (r *metricRepositoryImpl) GetHistory(ctx context.Context, userID, projectID string) (metric.ProjectHistory, error) {
	q := GetQuerier(ctx, r.db)

	h, err := scanHistory(q.QueryRow(ctx, `
		SELECT `+historyColumns+`
		FROM user_project_history
		WHERE user_id = $1 AND project_id = $2`, userID, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return metric.ProjectHistory{}, metric.ErrProjectHistoryNotFound
		}
		return metric.ProjectHistory{}, fmt.Errorf("failed to get project history: %w", err)
	}
	return h, nil
}

// ListHistory implements metric.MetricRepository.
func (r *metricRepositoryImpl) ListHistory(ctx context.Context, filter metric.HistoryFilter) ([]metric.ProjectHistory, error) {
	q := GetQuerier(ctx, r.db)

	conditions := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIdx))
		args = append(args, *filter.UserID)
		argIdx++
	}
	if filter.ProjectID != nil {
		conditions = append(conditions, fmt.Sprintf("project_id = $%d", argIdx))
		args = append(args, *filter.ProjectID)
	}

	query := `
		SELECT ` + historyColumns + `
		FROM user_project_history
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY last_worked_date DESC NULLS LAST, user_id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list project history: %w", err)
	}
	defer rows.Close()

	result := make([]metric.ProjectHistory, 0)
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, rows.Err()
}
