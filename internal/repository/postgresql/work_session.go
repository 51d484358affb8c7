package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/dailyattendance"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/worksession"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const pgUniqueViolation = "23505"

const workSessionColumns = `
	id, user_id, project_id, work_role, clock_in_at, clock_out_at, tasks_completed, notes,
	sheet_date, status, approver_id, approval_comment, approved_at, minutes_worked, created_at, updated_at`

type workSessionRepositoryImpl struct {
	db *database.DB
}

func NewWorkSessionRepository(db *database.DB) worksession.WorkSessionRepository {
	return &workSessionRepositoryImpl{db: db}
}

func scanWorkSession(row pgx.Row) (worksession.WorkSession, error) {
	var (
		s       worksession.WorkSession
		minutes decimal.NullDecimal
	)
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.ProjectID,
		&s.WorkRole,
		&s.ClockInAt,
		&s.ClockOutAt,
		&s.TasksCompleted,
		&s.Notes,
		&s.SheetDate,
		&s.Status,
		&s.ApproverID,
		&s.ApprovalComment,
		&s.ApprovedAt,
		&minutes,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return worksession.WorkSession{}, err
	}
	if minutes.Valid {
		s.MinutesWorked = &minutes.Decimal
	}
	return s, nil
}

func collectWorkSessions(rows pgx.Rows) ([]worksession.WorkSession, error) {
	defer rows.Close()

	sessions := make([]worksession.WorkSession, 0)
	for rows.Next() {
		s, err := scanWorkSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Create implements worksession.WorkSessionRepository.
func (r *workSessionRepositoryImpl) Create(ctx context.Context, session worksession.WorkSession) (worksession.WorkSession, error) {
	q := GetQuerier(ctx, r.db)

	if session.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return worksession.WorkSession{}, fmt.Errorf("generate session id: %w", err)
		}
		session.ID = id.String()
	}

	query := `
		INSERT INTO work_sessions (
			id, user_id, project_id, work_role, clock_in_at, sheet_date, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW(), NOW()
		)
		RETURNING ` + workSessionColumns

	created, err := scanWorkSession(q.QueryRow(ctx, query,
		session.ID,
		session.UserID,
		session.ProjectID,
		session.WorkRole,
		session.ClockInAt,
		session.SheetDate,
		session.Status,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return worksession.WorkSession{}, worksession.ErrAlreadyClockedIn
		}
		return worksession.WorkSession{}, fmt.Errorf("failed to create work session: %w", err)
	}
	return created, nil
}

// GetByID implements worksession.WorkSessionRepository.
func (r *workSessionRepositoryImpl) GetByID(ctx context.Context, id string) (worksession.WorkSession, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate implements worksession.WorkSessionRepository.
func (r *workSessionRepositoryImpl) GetByIDForUpdate(ctx context.Context, id string) (worksession.WorkSession, error) {
	return r.getByID(ctx, id, true)
}

func (r *workSessionRepositoryImpl) getByID(ctx context.Context, id string, forUpdate bool) (worksession.WorkSession, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + workSessionColumns + ` FROM work_sessions WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	s, err := scanWorkSession(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return worksession.WorkSession{}, worksession.ErrSessionNotFound
		}
		return worksession.WorkSession{}, fmt.Errorf("failed to get work session: %w", err)
	}
	return s, nil
}

// GetOpenByUser implements worksession.WorkSessionRepository.
func (r *workSessionRepositoryImpl) GetOpenByUser(ctx context.Context, userID string) (*worksession.WorkSession, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + workSessionColumns + `
		FROM work_sessions
		WHERE user_id = $1 AND clock_out_at IS NULL
		FOR UPDATE`

	s, err := scanWorkSession(q.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open work session: %w", err)
	}
	return &s, nil
}

// Close implements worksession.WorkSessionRepository.
func (r *workSessionRepositoryImpl) Close(ctx context.Context, id string, params worksession.CloseParams) (worksession.WorkSession, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE work_sessions
		SET clock_out_at = $2,
			tasks_completed = $3,
			notes = $4,
			minutes_worked = $5,
			updated_at = NOW()
		WHERE id = $1 AND clock_out_at IS NULL
		RETURNING ` + workSessionColumns

	s, err := scanWorkSession(q.QueryRow(ctx, query,
		id,
		params.ClockOutAt,
		params.TasksCompleted,
		params.Notes,
		params.MinutesWorked,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return worksession.WorkSession{}, worksession.ErrNoOpenSession
		}
		return worksession.WorkSession{}, fmt.Errorf("failed to close work session: %w", err)
	}
	return s, nil
}

// ListByUser implements worksession.WorkSessionRepository.
func (r *workSessionRepositoryImpl) ListByUser(ctx context.Context, userID string, sheetDates validator.DateRange) ([]worksession.WorkSession, error) {
	q := GetQuerier(ctx, r.db)

	conditions := []string{"user_id = $1"}
	args := []interface{}{userID}
	argIdx := 2

	if sheetDates.Start != nil {
		conditions = append(conditions, fmt.Sprintf("sheet_date >= $%d", argIdx))
		args = append(args, *sheetDates.Start)
		argIdx++
	}
	if sheetDates.End != nil {
		conditions = append(conditions, fmt.Sprintf("sheet_date <= $%d", argIdx))
		args = append(args, *sheetDates.End)
	}

	query := `
		SELECT ` + workSessionColumns + `
		FROM work_sessions
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY clock_in_at DESC`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list work sessions: %w", err)
	}
	return collectWorkSessions(rows)
}

// UpdateReview implements worksession.WorkSessionRepository.
func (r *workSessionRepositoryImpl) UpdateReview(ctx context.Context, session worksession.WorkSession) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE work_sessions
		SET status = $2,
			approver_id = $3,
			approval_comment = $4,
			approved_at = $5,
			updated_at = NOW()
		WHERE id = $1`

	tag, err := q.Exec(ctx, query,
		session.ID,
		session.Status,
		session.ApproverID,
		session.ApprovalComment,
		session.ApprovedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update work session review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return worksession.ErrSessionNotFound
	}
	return nil
}

// ListOpenStartedBefore implements worksession.WorkSessionRepository.
func (r *workSessionRepositoryImpl) ListOpenStartedBefore(ctx context.Context, cutoff time.Time) ([]worksession.WorkSession, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + workSessionColumns + `
		FROM work_sessions
		WHERE clock_out_at IS NULL AND clock_in_at < $1
		ORDER BY clock_in_at`

	rows, err := q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale work sessions: %w", err)
	}
	return collectWorkSessions(rows)
}

// sessionReader serves the daily attendance synchronizer from work_sessions.
type sessionReader struct {
	db *database.DB
}

func NewSessionReader(db *database.DB) dailyattendance.SessionReader {
	return &sessionReader{db: db}
}

// SummarizeDay implements dailyattendance.SessionReader.
func (r *sessionReader) SummarizeDay(ctx context.Context, key dailyattendance.Key) (dailyattendance.SessionSummary, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT
			COUNT(*),
			MIN(clock_in_at),
			MAX(clock_out_at),
			COALESCE(SUM(COALESCE(minutes_worked, 0)), 0)
		FROM work_sessions
		WHERE user_id = $1 AND project_id = $2 AND sheet_date = $3`

	var sum dailyattendance.SessionSummary
	err := q.QueryRow(ctx, query, key.UserID, key.ProjectID, key.Date).Scan(
		&sum.Count,
		&sum.FirstClockInAt,
		&sum.LastClockOutAt,
		&sum.MinutesWorked,
	)
	if err != nil {
		return dailyattendance.SessionSummary{}, fmt.Errorf("failed to summarize sessions: %w", err)
	}
	return sum, nil
}

// CountUserSessionsOn implements dailyattendance.SessionReader.
func (r *sessionReader) CountUserSessionsOn(ctx context.Context, userID string, date time.Time) (int, error) {
	q := GetQuerier(ctx, r.db)

	var count int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM work_sessions WHERE user_id = $1 AND sheet_date = $2`, userID, date).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// ProjectsWorkedOn implements dailyattendance.SessionReader.
func (r *sessionReader) ProjectsWorkedOn(ctx context.Context, userID string, date time.Time) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT DISTINCT project_id
		FROM work_sessions
		WHERE user_id = $1 AND sheet_date = $2
		ORDER BY project_id`, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list worked projects: %w", err)
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

// LatestProject implements dailyattendance.SessionReader.
func (r *sessionReader) LatestProject(ctx context.Context, userID string) (*string, error) {
	q := GetQuerier(ctx, r.db)

	var projectID string
	err := q.QueryRow(ctx, `
		SELECT project_id
		FROM work_sessions
		WHERE user_id = $1
		ORDER BY clock_in_at DESC
		LIMIT 1`, userID).Scan(&projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest project: %w", err)
	}
	return &projectID, nil
}
