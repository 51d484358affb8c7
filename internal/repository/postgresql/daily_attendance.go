package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/dailyattendance"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const dailyAttendanceColumns = `
	id, user_id, project_id, attendance_date, status, minutes_worked, first_clock_in_at,
	last_clock_out_at, source, request_id, notes, created_at, updated_at`

type dailyAttendanceRepositoryImpl struct {
	db *database.DB
}

func NewDailyAttendanceRepository(db *database.DB) dailyattendance.DailyAttendanceRepository {
	return &dailyAttendanceRepositoryImpl{db: db}
}

func scanDailyAttendance(row pgx.Row) (dailyattendance.DailyAttendance, error) {
	var (
		d       dailyattendance.DailyAttendance
		minutes decimal.NullDecimal
	)
	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.ProjectID,
		&d.AttendanceDate,
		&d.Status,
		&minutes,
		&d.FirstClockInAt,
		&d.LastClockOutAt,
		&d.Source,
		&d.RequestID,
		&d.Notes,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return dailyattendance.DailyAttendance{}, err
	}
	if minutes.Valid {
		d.MinutesWorked = &minutes.Decimal
	}
	return d, nil
}

func collectDailyAttendance(rows pgx.Rows) ([]dailyattendance.DailyAttendance, error) {
	defer rows.Close()

	result := make([]dailyattendance.DailyAttendance, 0)
	for rows.Next() {
		d, err := scanDailyAttendance(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// GetForUpdate implements dailyattendance.DailyAttendanceRepository.
func (r *dailyAttendanceRepositoryImpl) GetForUpdate(ctx context.Context, key dailyattendance.Key) (*dailyattendance.DailyAttendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + dailyAttendanceColumns + `
		FROM daily_attendance
		WHERE user_id = $1 AND project_id = $2 AND attendance_date = $3
		FOR UPDATE`

	d, err := scanDailyAttendance(q.QueryRow(ctx, query, key.UserID, key.ProjectID, key.Date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get daily attendance: %w", err)
	}
	return &d, nil
}

// ListByUserAndDate implements dailyattendance.DailyAttendanceRepository.
func (r *dailyAttendanceRepositoryImpl) ListByUserAndDate(ctx context.Context, userID string, date time.Time) ([]dailyattendance.DailyAttendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + dailyAttendanceColumns + `
		FROM daily_attendance
		WHERE user_id = $1 AND attendance_date = $2
		ORDER BY project_id`

	rows, err := q.Query(ctx, query, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily attendance: %w", err)
	}
	return collectDailyAttendance(rows)
}

// List implements dailyattendance.DailyAttendanceRepository.
func (r *dailyAttendanceRepositoryImpl) List(ctx context.Context, filter dailyattendance.ListFilter) ([]dailyattendance.DailyAttendance, error) {
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
		conditions = append(conditions, fmt.Sprintf("attendance_date >= $%d", argIdx))
		args = append(args, *filter.Dates.Start)
		argIdx++
	}
	if filter.Dates.End != nil {
		conditions = append(conditions, fmt.Sprintf("attendance_date <= $%d", argIdx))
		args = append(args, *filter.Dates.End)
	}

	query := `
		SELECT ` + dailyAttendanceColumns + `
		FROM daily_attendance
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY attendance_date DESC, user_id, project_id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily attendance: %w", err)
	}
	return collectDailyAttendance(rows)
}

// Upsert implements dailyattendance.DailyAttendanceRepository.
func (r *dailyAttendanceRepositoryImpl) Upsert(ctx context.Context, row dailyattendance.DailyAttendance) (dailyattendance.DailyAttendance, bool, error) {
	q := GetQuerier(ctx, r.db)

	id, err := uuid.NewV7()
	if err != nil {
		return dailyattendance.DailyAttendance{}, false, fmt.Errorf("generate daily attendance id: %w", err)
	}

	// MANUAL rows only yield to another MANUAL write; identical content is a no-op.
	query := `
		INSERT INTO daily_attendance (
			id, user_id, project_id, attendance_date, status, minutes_worked,
			first_clock_in_at, last_clock_out_at, source, request_id, notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW()
		)
		ON CONFLICT ON CONSTRAINT uq_daily_attendance_user_project_date DO UPDATE SET
			status = EXCLUDED.status,
			minutes_worked = EXCLUDED.minutes_worked,
			first_clock_in_at = EXCLUDED.first_clock_in_at,
			last_clock_out_at = EXCLUDED.last_clock_out_at,
			source = EXCLUDED.source,
			request_id = EXCLUDED.request_id,
			notes = EXCLUDED.notes,
			updated_at = NOW()
		WHERE (EXCLUDED.source = 'MANUAL' OR daily_attendance.source <> 'MANUAL')
			AND (daily_attendance.status, daily_attendance.minutes_worked, daily_attendance.first_clock_in_at,
				daily_attendance.last_clock_out_at, daily_attendance.source, daily_attendance.request_id, daily_attendance.notes)
			IS DISTINCT FROM
				(EXCLUDED.status, EXCLUDED.minutes_worked, EXCLUDED.first_clock_in_at,
				EXCLUDED.last_clock_out_at, EXCLUDED.source, EXCLUDED.request_id, EXCLUDED.notes)
		RETURNING ` + dailyAttendanceColumns

	stored, err := scanDailyAttendance(q.QueryRow(ctx, query,
		id.String(),
		row.UserID,
		row.ProjectID,
		row.AttendanceDate,
		row.Status,
		row.MinutesWorked,
		row.FirstClockInAt,
		row.LastClockOutAt,
		row.Source,
		row.RequestID,
		row.Notes,
	))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return dailyattendance.DailyAttendance{}, false, fmt.Errorf("failed to upsert daily attendance: %w", err)
	}

	existing, err := r.GetForUpdate(ctx, row.Key())
	if err != nil {
		return dailyattendance.DailyAttendance{}, false, err
	}
	if existing == nil {
		return dailyattendance.DailyAttendance{}, false, fmt.Errorf("daily attendance %s/%s vanished during upsert", row.UserID, row.ProjectID)
	}
	return *existing, false, nil
}
