//go:build integration

package postgresql_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/attendancerequest"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/dailyattendance"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/metric"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/worksession"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/worktime-backend-go/internal/repository/postgresql"
	attendancerequestsvc "github.com/cmlabs-hris/worktime-backend-go/internal/service/attendancerequest"
	dailyattendancesvc "github.com/cmlabs-hris/worktime-backend-go/internal/service/dailyattendance"
	metricsvc "github.com/cmlabs-hris/worktime-backend-go/internal/service/metric"
	worksessionsvc "github.com/cmlabs-hris/worktime-backend-go/internal/service/worksession"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, notification.Event) {}

type services struct {
	sessions   worksession.WorkSessionService
	requests   attendancerequest.AttendanceRequestService
	attendance dailyattendance.DailyAttendanceService
	metrics    metric.MetricService
	users      user.UserRepository
}

func newServices(t *testing.T) services {
	t.Helper()
	testDB.Truncate(t)

	db := testDB.DB
	tx := postgresql.NewTransactor(db)
	users := postgresql.NewUserRepository(db)
	projects := postgresql.NewProjectRepository(db)

	attendance := dailyattendancesvc.NewDailyAttendanceService(tx, postgresql.NewDailyAttendanceRepository(db), postgresql.NewSessionReader(db), users)
	metrics := metricsvc.NewMetricService(tx, postgresql.NewMetricRepository(db), projects)

	return services{
		sessions:   worksessionsvc.NewWorkSessionService(tx, postgresql.NewWorkSessionRepository(db), projects, attendance, metrics, time.UTC),
		requests:   attendancerequestsvc.NewAttendanceRequestService(tx, postgresql.NewAttendanceRequestRepository(db), projects, attendance, nopDispatcher{}),
		attendance: attendance,
		metrics:    metrics,
		users:      users,
	}
}

func TestConcurrentClockInLeavesOneOpenSession(t *testing.T) {
	s := newServices(t)
	userID := testDB.SeedUser(t, "dev@example.com", "USER")
	projectID := testDB.SeedProject(t, "WT")
	ctx := context.Background()

	const n = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.sessions.ClockIn(ctx, worksession.ClockInRequest{UserID: userID, ProjectID: projectID, WorkRole: "Developer"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, worksession.ErrAlreadyClockedIn):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)

	var open int
	require.NoError(t, testDB.DB.QueryRow(ctx, `SELECT COUNT(*) FROM work_sessions WHERE user_id = $1 AND clock_out_at IS NULL`, userID).Scan(&open))
	assert.Equal(t, 1, open)

	closed, err := s.sessions.ClockOut(ctx, worksession.ClockOutRequest{UserID: userID, TasksCompleted: 2})
	require.NoError(t, err)
	assert.NotNil(t, closed.ClockOutAt)

	_, err = s.sessions.ClockOut(ctx, worksession.ClockOutRequest{UserID: userID})
	assert.ErrorIs(t, err, worksession.ErrNoOpenSession)
}

func TestDecideTwiceRecordsOneApproval(t *testing.T) {
	s := newServices(t)
	userID := testDB.SeedUser(t, "dev@example.com", "USER")
	adminID := testDB.SeedUser(t, "lead@example.com", "ADMIN")
	projectID := testDB.SeedProject(t, "WT")
	ctx := context.Background()

	created, err := s.requests.CreateRequest(ctx, attendancerequest.CreateAttendanceRequest{
		UserID: userID, ProjectID: &projectID, RequestType: attendancerequest.TypeLeave,
		StartDate: "2024-01-10", EndDate: "2024-01-12",
	})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for _, decision := range []attendancerequest.Status{attendancerequest.StatusApproved, attendancerequest.StatusRejected, attendancerequest.StatusApproved} {
		wg.Add(1)
		go func(decision attendancerequest.Status) {
			defer wg.Done()
			_, err := s.requests.Decide(ctx, attendancerequest.DecideRequest{RequestID: created.ID, ApproverID: adminID, Decision: decision})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, attendancerequest.ErrRequestAlreadyDecided)
		}(decision)
	}
	wg.Wait()
	assert.Equal(t, 1, successes)

	approvals, err := s.requests.ListApprovals(ctx, attendancerequest.ApprovalFilter{RequestID: &created.ID})
	require.NoError(t, err)
	require.Len(t, approvals, 1)

	rows, err := s.attendance.List(ctx, dailyattendance.ListFilter{UserID: &userID})
	require.NoError(t, err)
	if approvals[0].Decision == attendancerequest.StatusApproved {
		assert.Len(t, rows, 3)
		for _, row := range rows {
			assert.Equal(t, dailyattendance.StatusLeave, row.Status)
			assert.Equal(t, created.ID, *row.RequestID)
		}
	} else {
		assert.Empty(t, rows)
	}
}

func TestDailyUpsertIsIdempotent(t *testing.T) {
	s := newServices(t)
	userID := testDB.SeedUser(t, "dev@example.com", "USER")
	projectID := testDB.SeedProject(t, "WT")
	ctx := context.Background()

	minutes := decimal.NewFromInt(420)
	req := dailyattendance.UpsertRequest{
		UserID: userID, ProjectID: projectID, Date: "2024-01-10",
		Status: dailyattendance.StatusPresent, Source: dailyattendance.SourceAuto, MinutesWorked: &minutes,
	}
	first, err := s.attendance.Upsert(ctx, req)
	require.NoError(t, err)
	second, err := s.attendance.Upsert(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)

	var count int
	require.NoError(t, testDB.DB.QueryRow(ctx, `SELECT COUNT(*) FROM daily_attendance`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestManualRowSurvivesAutoWrites(t *testing.T) {
	s := newServices(t)
	userID := testDB.SeedUser(t, "dev@example.com", "USER")
	adminID := testDB.SeedUser(t, "lead@example.com", "ADMIN")
	projectID := testDB.SeedProject(t, "WT")
	ctx := context.Background()

	notes := "worked from client site"
	_, err := s.attendance.Upsert(ctx, dailyattendance.UpsertRequest{
		UserID: userID, ProjectID: projectID, Date: "2024-01-10",
		Status: dailyattendance.StatusPresent, Notes: &notes,
	})
	require.NoError(t, err)

	date := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	synced, err := s.attendance.SyncFromSessions(ctx, dailyattendance.Key{UserID: userID, ProjectID: projectID, Date: date})
	require.NoError(t, err)
	assert.Equal(t, dailyattendance.StatusPresent, synced.Status)
	assert.Equal(t, dailyattendance.SourceManual, synced.Source)

	created, err := s.requests.CreateRequest(ctx, attendancerequest.CreateAttendanceRequest{
		UserID: userID, ProjectID: &projectID, RequestType: attendancerequest.TypeSickLeave,
		StartDate: "2024-01-10", EndDate: "2024-01-10",
	})
	require.NoError(t, err)
	_, err = s.requests.Decide(ctx, attendancerequest.DecideRequest{RequestID: created.ID, ApproverID: adminID, Decision: attendancerequest.StatusApproved})
	require.NoError(t, err)

	status, err := s.attendance.ResolveStatus(ctx, userID, date)
	require.NoError(t, err)
	assert.Equal(t, dailyattendance.StatusPresent, status.Status)
	require.NotNil(t, status.Source)
	assert.Equal(t, dailyattendance.SourceManual, *status.Source)
}

func TestMetricsHistoryFollowsCorrections(t *testing.T) {
	s := newServices(t)
	userID := testDB.SeedUser(t, "dev@example.com", "USER")
	projectID := testDB.SeedProject(t, "WT")
	ctx := context.Background()

	in := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	out := in.Add(510 * time.Minute)
	_, err := testDB.DB.Exec(ctx, `
		INSERT INTO work_sessions (user_id, project_id, work_role, clock_in_at, clock_out_at, tasks_completed, sheet_date, minutes_worked)
		VALUES ($1, $2, 'Developer', $3, $4, 5, '2024-01-10', 510)
	`, userID, projectID, in, out)
	require.NoError(t, err)

	date := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		resp, err := s.metrics.CalculateDailyMetrics(ctx, projectID, date)
		require.NoError(t, err)
		require.Len(t, resp.Roles, 1)
		assert.Equal(t, "8.5", resp.Roles[0].TotalHoursWorked.String())
	}

	h, err := s.metrics.GetProjectHistory(ctx, userID, projectID)
	require.NoError(t, err)
	assert.Equal(t, "8.5", h.TotalHoursWorked.String())
	assert.Equal(t, 5, h.TotalTasksCompleted)

	_, err = s.metrics.UpsertUserDailyMetric(ctx, metric.UpsertUserDailyMetricRequest{
		UserID: userID, ProjectID: projectID, Date: "2024-01-10", WorkRole: "Developer",
		HoursWorked: decimal.NewFromInt(8), TasksCompleted: 5,
	})
	require.NoError(t, err)

	h, err = s.metrics.GetProjectHistory(ctx, userID, projectID)
	require.NoError(t, err)
	assert.Equal(t, "8", h.TotalHoursWorked.String())
}

func TestConcurrentMetricCalculationsCountHistoryOnce(t *testing.T) {
	s := newServices(t)
	userID := testDB.SeedUser(t, "dev@example.com", "USER")
	otherID := testDB.SeedUser(t, "qc@example.com", "USER")
	projectID := testDB.SeedProject(t, "WT")
	ctx := context.Background()

	in := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	out := in.Add(510 * time.Minute)
	_, err := testDB.DB.Exec(ctx, `
		INSERT INTO work_sessions (user_id, project_id, work_role, clock_in_at, clock_out_at, tasks_completed, sheet_date, minutes_worked)
		VALUES ($1, $2, 'Developer', $3, $4, 5, '2024-01-10', 510)
	`, userID, projectID, in, out)
	require.NoError(t, err)
	_, err = testDB.DB.Exec(ctx, `
		INSERT INTO work_sessions (user_id, project_id, work_role, clock_in_at, sheet_date)
		VALUES ($1, $2, 'QC', $3, '2024-01-10')
	`, otherID, projectID, in.Add(time.Hour))
	require.NoError(t, err)

	date := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.metrics.CalculateDailyMetrics(ctx, projectID, date)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	h, err := s.metrics.GetProjectHistory(ctx, userID, projectID)
	require.NoError(t, err)
	assert.Equal(t, "8.5", h.TotalHoursWorked.String())
	assert.Equal(t, 5, h.TotalTasksCompleted)

	roles, err := s.metrics.GetProjectMetrics(ctx, projectID, validator.DateRange{Start: &date, End: &date})
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, "QC", roles[1].WorkRole)
	assert.Equal(t, 1, roles[1].ActiveUsersCount)
}

func TestUserRepository(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	id := testDB.SeedUser(t, "dev@example.com", "USER", "SATURDAY", "SUNDAY")

	u, err := s.users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", u.Email)
	assert.True(t, u.IsWeekOff(time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC)))

	_, err = s.users.GetByID(ctx, "0188d0f2-7b8c-7b4a-8a2b-0000000000ff")
	assert.ErrorIs(t, err, user.ErrUserNotFound)

	active, err := s.users.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
