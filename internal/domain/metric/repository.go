package metric

import (
	"context"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
)

type MetricRepository interface {
	// ListSessions returns every session of a project whose sheet date is
	// date. Open sessions carry zero minutes and tasks.
	ListSessions(ctx context.Context, projectID string, date time.Time) ([]SessionRecord, error)
	ListProjectsWithSessions(ctx context.Context, date time.Time) ([]string, error)

	// LockProjectDay serializes metric writes for (project, date) until the
	// surrounding transaction ends.
	LockProjectDay(ctx context.Context, projectID string, date time.Time) error

	// UpsertRoleDaily writes one (project, date, role) row; unchanged rows
	// keep their updated_at.
	UpsertRoleDaily(ctx context.Context, m RoleDailyMetric) (RoleDailyMetric, error)

	// ListRoleDaily returns a project's role rows ordered by date descending.
	ListRoleDaily(ctx context.Context, projectID string, dates validator.DateRange) ([]RoleDailyMetric, error)

	// GetUserDailyForUpdate returns the locked (user, project, date) row or nil.
	GetUserDailyForUpdate(ctx context.Context, userID, projectID string, date time.Time) (*DailyMetric, error)
	UpsertUserDaily(ctx context.Context, m DailyMetric) (DailyMetric, error)
	ListUserDaily(ctx context.Context, filter UserDailyFilter) ([]DailyMetric, error)

	// ApplyHistoryDelta adds delta to the user's project totals, creating the
	// row on first contribution.
	ApplyHistoryDelta(ctx context.Context, delta HistoryDelta) error
	GetHistory(ctx context.Context, userID, projectID string) (ProjectHistory, error)
	ListHistory(ctx context.Context, filter HistoryFilter) ([]ProjectHistory, error)
}
