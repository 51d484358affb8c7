package dailyattendance

import (
	"context"
	"time"
)

type DailyAttendanceService interface {
	// Upsert writes a row idempotently. AUTO writes never replace MANUAL rows.
	Upsert(ctx context.Context, req UpsertRequest) (DailyAttendanceResponse, error)

	// SyncFromSessions recomputes one row from the user's sessions that day.
	SyncFromSessions(ctx context.Context, key Key) (DailyAttendanceResponse, error)

	// ApplyApprovedRequest writes the effect of an approved request for one day.
	ApplyApprovedRequest(ctx context.Context, key Key, status Status, requestID string, notes *string) error

	// ResolveStatus applies the attendance precedence at read time.
	ResolveStatus(ctx context.Context, userID string, date time.Time) (StatusResponse, error)

	List(ctx context.Context, filter ListFilter) ([]DailyAttendanceResponse, error)

	// ReconcileDate materializes rows for every active user on date.
	ReconcileDate(ctx context.Context, date time.Time) (int, error)
}
