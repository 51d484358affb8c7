package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/attendancerequest"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// start_time/end_time are TIME columns exposed as "HH:MM".
const attendanceRequestColumns = `
	id, user_id, project_id, request_type, status, start_date, end_date,
	to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
	reason, attachment_url, requested_at, reviewed_by, reviewed_at, review_comment, created_at, updated_at`

const approvalColumns = `id, request_id, approver_id, decision, comment, decided_at`

type attendanceRequestRepositoryImpl struct {
	db *database.DB
}

func NewAttendanceRequestRepository(db *database.DB) attendancerequest.AttendanceRequestRepository {
	return &attendanceRequestRepositoryImpl{db: db}
}

func scanAttendanceRequest(row pgx.Row) (attendancerequest.AttendanceRequest, error) {
	var ar attendancerequest.AttendanceRequest
	err := row.Scan(
		&ar.ID,
		&ar.UserID,
		&ar.ProjectID,
		&ar.RequestType,
		&ar.Status,
		&ar.StartDate,
		&ar.EndDate,
		&ar.StartTime,
		&ar.EndTime,
		&ar.Reason,
		&ar.AttachmentURL,
		&ar.RequestedAt,
		&ar.ReviewedBy,
		&ar.ReviewedAt,
		&ar.ReviewComment,
		&ar.CreatedAt,
		&ar.UpdatedAt,
	)
	return ar, err
}

func scanApproval(row pgx.Row) (attendancerequest.Approval, error) {
	var a attendancerequest.Approval
	err := row.Scan(&a.ID, &a.RequestID, &a.ApproverID, &a.Decision, &a.Comment, &a.DecidedAt)
	return a, err
}

// Create implements attendancerequest.AttendanceRequestRepository.
func (r *attendanceRequestRepositoryImpl) Create(ctx context.Context, req attendancerequest.AttendanceRequest) (attendancerequest.AttendanceRequest, error) {
	q := GetQuerier(ctx, r.db)

	id, err := uuid.NewV7()
	if err != nil {
		return attendancerequest.AttendanceRequest{}, fmt.Errorf("generate request id: %w", err)
	}

	query := `
		INSERT INTO attendance_requests (
			id, user_id, project_id, request_type, status,
			start_date, end_date, start_time, end_time,
			reason, attachment_url, requested_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8::time, $9::time,
			$10, $11, $12, NOW(), NOW()
		)
		RETURNING ` + attendanceRequestColumns

	created, err := scanAttendanceRequest(q.QueryRow(ctx, query,
		id.String(),
		req.UserID,
		req.ProjectID,
		req.RequestType,
		req.Status,
		req.StartDate,
		req.EndDate,
		req.StartTime,
		req.EndTime,
		req.Reason,
		req.AttachmentURL,
		req.RequestedAt,
	))
	if err != nil {
		return attendancerequest.AttendanceRequest{}, fmt.Errorf("failed to create attendance request: %w", err)
	}
	return created, nil
}

// GetByID implements attendancerequest.AttendanceRequestRepository.
func (r *attendanceRequestRepositoryImpl) GetByID(ctx context.Context, id string) (attendancerequest.AttendanceRequest, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate implements attendancerequest.AttendanceRequestRepository.
func (r *attendanceRequestRepositoryImpl) GetByIDForUpdate(ctx context.Context, id string) (attendancerequest.AttendanceRequest, error) {
	return r.getByID(ctx, id, true)
}

func (r *attendanceRequestRepositoryImpl) getByID(ctx context.Context, id string, forUpdate bool) (attendancerequest.AttendanceRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + attendanceRequestColumns + ` FROM attendance_requests WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	ar, err := scanAttendanceRequest(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendancerequest.AttendanceRequest{}, attendancerequest.ErrRequestNotFound
		}
		return attendancerequest.AttendanceRequest{}, fmt.Errorf("failed to get attendance request: %w", err)
	}
	return ar, nil
}

// Update implements attendancerequest.AttendanceRequestRepository.
func (r *attendanceRequestRepositoryImpl) Update(ctx context.Context, req attendancerequest.AttendanceRequest) (attendancerequest.AttendanceRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE attendance_requests
		SET project_id = $2,
			request_type = $3,
			status = $4,
			start_date = $5,
			end_date = $6,
			start_time = $7::time,
			end_time = $8::time,
			reason = $9,
			attachment_url = $10,
			reviewed_by = $11,
			reviewed_at = $12,
			review_comment = $13,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + attendanceRequestColumns

	updated, err := scanAttendanceRequest(q.QueryRow(ctx, query,
		req.ID,
		req.ProjectID,
		req.RequestType,
		req.Status,
		req.StartDate,
		req.EndDate,
		req.StartTime,
		req.EndTime,
		req.Reason,
		req.AttachmentURL,
		req.ReviewedBy,
		req.ReviewedAt,
		req.ReviewComment,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendancerequest.AttendanceRequest{}, attendancerequest.ErrRequestNotFound
		}
		return attendancerequest.AttendanceRequest{}, fmt.Errorf("failed to update attendance request: %w", err)
	}
	return updated, nil
}

// Delete implements attendancerequest.AttendanceRequestRepository.
func (r *attendanceRequestRepositoryImpl) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	commandTag, err := q.Exec(ctx, `DELETE FROM attendance_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete attendance request: %w", err)
	}
	if commandTag.RowsAffected() != 1 {
		return attendancerequest.ErrRequestNotFound
	}
	return nil
}

// List implements attendancerequest.AttendanceRequestRepository.
func (r *attendanceRequestRepositoryImpl) List(ctx context.Context, filter attendancerequest.ListFilter) ([]attendancerequest.AttendanceRequest, error) {
	q := GetQuerier(ctx, r.db)

	conditions := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIdx))
		args = append(args, *filter.UserID)
		argIdx++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("request_type = $%d", argIdx))
		args = append(args, *filter.Type)
		argIdx++
	}
	// Date bounds select requests overlapping the range.
	if filter.Dates.Start != nil {
		conditions = append(conditions, fmt.Sprintf("end_date >= $%d", argIdx))
		args = append(args, *filter.Dates.Start)
		argIdx++
	}
	if filter.Dates.End != nil {
		conditions = append(conditions, fmt.Sprintf("start_date <= $%d", argIdx))
		args = append(args, *filter.Dates.End)
	}

	query := `
		SELECT ` + attendanceRequestColumns + `
		FROM attendance_requests
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY requested_at DESC`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance requests: %w", err)
	}
	defer rows.Close()

	requests := make([]attendancerequest.AttendanceRequest, 0)
	for rows.Next() {
		ar, err := scanAttendanceRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, ar)
	}
	return requests, rows.Err()
}

// CreateApproval implements attendancerequest.AttendanceRequestRepository.
func (r *attendanceRequestRepositoryImpl) CreateApproval(ctx context.Context, approval attendancerequest.Approval) (attendancerequest.Approval, error) {
	q := GetQuerier(ctx, r.db)

	id, err := uuid.NewV7()
	if err != nil {
		return attendancerequest.Approval{}, fmt.Errorf("generate approval id: %w", err)
	}

	query := `
		INSERT INTO attendance_request_approvals (id, request_id, approver_id, decision, comment, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + approvalColumns

	created, err := scanApproval(q.QueryRow(ctx, query,
		id.String(),
		approval.RequestID,
		approval.ApproverID,
		approval.Decision,
		approval.Comment,
		approval.DecidedAt,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return attendancerequest.Approval{}, attendancerequest.ErrRequestAlreadyDecided
		}
		return attendancerequest.Approval{}, fmt.Errorf("failed to create approval: %w", err)
	}
	return created, nil
}

// ListApprovals implements attendancerequest.AttendanceRequestRepository.
func (r *attendanceRequestRepositoryImpl) ListApprovals(ctx context.Context, filter attendancerequest.ApprovalFilter) ([]attendancerequest.Approval, error) {
	q := GetQuerier(ctx, r.db)

	conditions := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if filter.RequestID != nil {
		conditions = append(conditions, fmt.Sprintf("request_id = $%d", argIdx))
		args = append(args, *filter.RequestID)
		argIdx++
	}
	if filter.ApproverID != nil {
		conditions = append(conditions, fmt.Sprintf("approver_id = $%d", argIdx))
		args = append(args, *filter.ApproverID)
	}

	query := `
		SELECT ` + approvalColumns + `
		FROM attendance_request_approvals
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY decided_at DESC`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	defer rows.Close()

	approvals := make([]attendancerequest.Approval, 0)
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		approvals = append(approvals, a)
	}
	return approvals, rows.Err()
}
