package metric

import (
	"context"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
)

// MetricService defines the metrics aggregator
type MetricService interface {
	// CalculateDailyMetrics rolls up a project's sessions for a day by role
	// and syncs the per-user daily rows. Safe to run repeatedly.
	CalculateDailyMetrics(ctx context.Context, projectID string, date time.Time) (CalculationResponse, error)

	// CalculateForDate runs CalculateDailyMetrics for every project with sessions on date
	CalculateForDate(ctx context.Context, date time.Time) (int, error)

	GetProjectMetrics(ctx context.Context, projectID string, dates validator.DateRange) ([]RoleDailyMetricResponse, error)

	// UpsertUserDailyMetric writes a user's day and moves project history by the difference
	UpsertUserDailyMetric(ctx context.Context, req UpsertUserDailyMetricRequest) (DailyMetricResponse, error)

	ListUserDailyMetrics(ctx context.Context, filter UserDailyFilter) ([]DailyMetricResponse, error)
	GetProjectHistory(ctx context.Context, userID, projectID string) (ProjectHistoryResponse, error)
	ListProjectHistory(ctx context.Context, filter HistoryFilter) ([]ProjectHistoryResponse, error)
}
