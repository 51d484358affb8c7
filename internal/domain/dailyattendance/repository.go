package dailyattendance

import (
	"context"
	"time"
)

type DailyAttendanceRepository interface {
	// GetForUpdate returns the row for key locked for the surrounding
	// transaction, or nil if none exists.
	GetForUpdate(ctx context.Context, key Key) (*DailyAttendance, error)

	ListByUserAndDate(ctx context.Context, userID string, date time.Time) ([]DailyAttendance, error)

	List(ctx context.Context, filter ListFilter) ([]DailyAttendance, error)

	// Upsert writes row keyed on (user, project, date). An AUTO row never
	// replaces a MANUAL one, and writing identical content leaves updated_at
	// untouched. The stored row is returned with changed=false in both cases.
	Upsert(ctx context.Context, row DailyAttendance) (stored DailyAttendance, changed bool, err error)
}

// SessionReader exposes the work session facts the synchronizer needs.
type SessionReader interface {
	SummarizeDay(ctx context.Context, key Key) (SessionSummary, error)
	CountUserSessionsOn(ctx context.Context, userID string, date time.Time) (int, error)
	// ProjectsWorkedOn lists the projects a user has sessions on for a sheet date.
	ProjectsWorkedOn(ctx context.Context, userID string, date time.Time) ([]string, error)
	// LatestProject returns the project of the user's most recent session, or nil.
	LatestProject(ctx context.Context, userID string) (*string, error)
}
