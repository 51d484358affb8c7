package dailyattendance

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/dailyattendance"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/worksession"
	"github.com/cmlabs-hris/worktime-backend-go/internal/testutil"
	"github.com/cmlabs-hris/worktime-backend-go/internal/testutil/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	aliceID   = "0188d0f2-7b8c-7b4a-8a2b-000000000001"
	bobID     = "0188d0f2-7b8c-7b4a-8a2b-000000000002"
	projectID = "0188d0f2-7b8c-7b4a-8a2b-0000000000a1"
	requestID = "0188d0f2-7b8c-7b4a-8a2b-0000000000f1"
)

var (
	wednesday = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	saturday  = time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	svc      dailyattendance.DailyAttendanceService
	rows     *memory.DailyAttendance
	sessions *memory.WorkSessions
	tx       *testutil.Transactor
}

func newFixture(users ...user.User) fixture {
	if len(users) == 0 {
		users = []user.User{
			{ID: aliceID, Name: "Alice", IsActive: true, WeekOffs: []string{"SATURDAY", "SUNDAY"}},
		}
	}
	f := fixture{
		rows:     memory.NewDailyAttendance(),
		sessions: memory.NewWorkSessions(),
		tx:       &testutil.Transactor{},
	}
	f.svc = NewDailyAttendanceService(f.tx, f.rows, f.sessions, memory.NewUsers(users...))
	return f
}

func (f fixture) addSession(userID string, date time.Time, from, to int) {
	in := date.Add(time.Duration(from) * time.Hour)
	out := date.Add(time.Duration(to) * time.Hour)
	f.sessions.Put(worksession.WorkSession{
		UserID:    userID,
		ProjectID: projectID,
		WorkRole:  "Developer",
		ClockInAt: in, ClockOutAt: &out,
		SheetDate: date,
	})
}

func TestSyncFromSessions_Present(t *testing.T) {
	f := newFixture()
	f.addSession(aliceID, wednesday, 9, 12)
	f.addSession(aliceID, wednesday, 13, 17)

	resp, err := f.svc.SyncFromSessions(context.Background(), dailyattendance.Key{UserID: aliceID, ProjectID: projectID, Date: wednesday})
	require.NoError(t, err)

	assert.Equal(t, dailyattendance.StatusPresent, resp.Status)
	assert.Equal(t, dailyattendance.SourceAuto, resp.Source)
	require.NotNil(t, resp.MinutesWorked)
	assert.Equal(t, "420", resp.MinutesWorked.String())
	assert.Equal(t, wednesday.Add(9*time.Hour), *resp.FirstClockInAt)
	assert.Equal(t, wednesday.Add(17*time.Hour), *resp.LastClockOutAt)
	assert.Equal(t, 1, f.tx.Calls)
}

func TestSyncFromSessions_WeekOffAndAbsent(t *testing.T) {
	f := newFixture()

	sat, err := f.svc.SyncFromSessions(context.Background(), dailyattendance.Key{UserID: aliceID, ProjectID: projectID, Date: saturday})
	require.NoError(t, err)
	assert.Equal(t, dailyattendance.StatusWeekOff, sat.Status)

	wed, err := f.svc.SyncFromSessions(context.Background(), dailyattendance.Key{UserID: aliceID, ProjectID: projectID, Date: wednesday})
	require.NoError(t, err)
	assert.Equal(t, dailyattendance.StatusAbsent, wed.Status)
	assert.Nil(t, wed.MinutesWorked)
}

func TestSyncFromSessions_Idempotent(t *testing.T) {
	f := newFixture()
	f.addSession(aliceID, wednesday, 9, 17)
	key := dailyattendance.Key{UserID: aliceID, ProjectID: projectID, Date: wednesday}

	first, err := f.svc.SyncFromSessions(context.Background(), key)
	require.NoError(t, err)
	second, err := f.svc.SyncFromSessions(context.Background(), key)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
	assert.Equal(t, 1, f.rows.Writes)
	assert.Equal(t, 1, f.rows.Len())
}

func TestSyncFromSessions_ManualRowWins(t *testing.T) {
	f := newFixture()
	f.addSession(aliceID, wednesday, 9, 17)
	manual := f.rows.Put(dailyattendance.DailyAttendance{
		UserID: aliceID, ProjectID: projectID, AttendanceDate: wednesday,
		Status: dailyattendance.StatusAbsent, Source: dailyattendance.SourceManual,
	})

	resp, err := f.svc.SyncFromSessions(context.Background(), manual.Key())
	require.NoError(t, err)
	assert.Equal(t, dailyattendance.StatusAbsent, resp.Status)
	assert.Equal(t, dailyattendance.SourceManual, resp.Source)
	assert.Zero(t, f.rows.Writes)
}

func TestSyncFromSessions_KeepsApprovedLeave(t *testing.T) {
	f := newFixture()
	rid := requestID
	f.rows.Put(dailyattendance.DailyAttendance{
		UserID: aliceID, ProjectID: projectID, AttendanceDate: wednesday,
		Status: dailyattendance.StatusLeave, Source: dailyattendance.SourceAuto, RequestID: &rid,
	})
	f.addSession(aliceID, wednesday, 9, 10)

	resp, err := f.svc.SyncFromSessions(context.Background(), dailyattendance.Key{UserID: aliceID, ProjectID: projectID, Date: wednesday})
	require.NoError(t, err)
	assert.Equal(t, dailyattendance.StatusLeave, resp.Status)
	require.NotNil(t, resp.RequestID)
	assert.Equal(t, requestID, *resp.RequestID)
	require.NotNil(t, resp.MinutesWorked)
	assert.Equal(t, "60", resp.MinutesWorked.String())
}

func TestApplyApprovedRequest(t *testing.T) {
	f := newFixture()
	key := dailyattendance.Key{UserID: aliceID, ProjectID: projectID, Date: wednesday}
	notes := "Approved LEAVE"

	require.NoError(t, f.svc.ApplyApprovedRequest(context.Background(), key, dailyattendance.StatusLeave, requestID, &notes))
	require.NoError(t, f.svc.ApplyApprovedRequest(context.Background(), key, dailyattendance.StatusLeave, requestID, &notes))

	row, ok := f.rows.Get(key)
	require.True(t, ok)
	assert.Equal(t, dailyattendance.StatusLeave, row.Status)
	assert.Equal(t, dailyattendance.SourceAuto, row.Source)
	assert.Equal(t, requestID, *row.RequestID)
	assert.Equal(t, 1, f.rows.Writes)
}

func TestApplyApprovedRequest_SkipsManual(t *testing.T) {
	f := newFixture()
	manual := f.rows.Put(dailyattendance.DailyAttendance{
		UserID: aliceID, ProjectID: projectID, AttendanceDate: wednesday,
		Status: dailyattendance.StatusPresent, Source: dailyattendance.SourceManual,
	})

	require.NoError(t, f.svc.ApplyApprovedRequest(context.Background(), manual.Key(), dailyattendance.StatusLeave, requestID, nil))

	row, _ := f.rows.Get(manual.Key())
	assert.Equal(t, dailyattendance.StatusPresent, row.Status)
	assert.Nil(t, row.RequestID)
}

func TestUpsert(t *testing.T) {
	f := newFixture()
	req := dailyattendance.UpsertRequest{
		UserID: aliceID, ProjectID: projectID, Date: "2024-01-10",
		Status: dailyattendance.StatusPresent,
	}

	first, err := f.svc.Upsert(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, dailyattendance.SourceManual, first.Source)

	second, err := f.svc.Upsert(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
	assert.Equal(t, 1, f.rows.Writes)

	auto := req
	auto.Source = dailyattendance.SourceAuto
	auto.Status = dailyattendance.StatusAbsent
	kept, err := f.svc.Upsert(context.Background(), auto)
	require.NoError(t, err)
	assert.Equal(t, dailyattendance.StatusPresent, kept.Status)
	assert.Equal(t, dailyattendance.SourceManual, kept.Source)

	_, err = f.svc.Upsert(context.Background(), dailyattendance.UpsertRequest{Date: "bad"})
	assert.Error(t, err)
}

func TestResolveStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sat, err := f.svc.ResolveStatus(ctx, aliceID, saturday)
	require.NoError(t, err)
	assert.Equal(t, dailyattendance.StatusWeekOff, sat.Status)
	assert.False(t, sat.Materialized)

	wed, err := f.svc.ResolveStatus(ctx, aliceID, wednesday)
	require.NoError(t, err)
	assert.Equal(t, dailyattendance.StatusAbsent, wed.Status)

	f.addSession(aliceID, wednesday, 9, 17)
	wed, err = f.svc.ResolveStatus(ctx, aliceID, wednesday)
	require.NoError(t, err)
	assert.Equal(t, dailyattendance.StatusPresent, wed.Status)

	rid := requestID
	f.rows.Put(dailyattendance.DailyAttendance{
		UserID: aliceID, ProjectID: projectID, AttendanceDate: saturday,
		Status: dailyattendance.StatusLeave, Source: dailyattendance.SourceAuto, RequestID: &rid,
	})
	sat, err = f.svc.ResolveStatus(ctx, aliceID, saturday)
	require.NoError(t, err)
	assert.Equal(t, dailyattendance.StatusLeave, sat.Status)
	assert.True(t, sat.Materialized)
	assert.Equal(t, requestID, *sat.RequestID)
}

func TestResolveStatus_UnknownUser(t *testing.T) {
	f := newFixture()

	_, err := f.svc.ResolveStatus(context.Background(), "0188d0f2-7b8c-7b4a-8a2b-0000000000ee", wednesday)
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestReconcileDate(t *testing.T) {
	carol := user.User{ID: "0188d0f2-7b8c-7b4a-8a2b-000000000003", IsActive: true}
	f := newFixture(
		user.User{ID: aliceID, IsActive: true},
		user.User{ID: bobID, IsActive: true},
		carol,
		user.User{ID: "0188d0f2-7b8c-7b4a-8a2b-000000000004", IsActive: false},
	)
	// alice worked that day, bob only earlier, carol never
	f.addSession(aliceID, wednesday, 9, 17)
	f.addSession(bobID, wednesday.AddDate(0, 0, -1), 9, 17)

	n, err := f.svc.ReconcileDate(context.Background(), wednesday)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	alice, ok := f.rows.Get(dailyattendance.Key{UserID: aliceID, ProjectID: projectID, Date: wednesday})
	require.True(t, ok)
	assert.Equal(t, dailyattendance.StatusPresent, alice.Status)

	bob, ok := f.rows.Get(dailyattendance.Key{UserID: bobID, ProjectID: projectID, Date: wednesday})
	require.True(t, ok)
	assert.Equal(t, dailyattendance.StatusAbsent, bob.Status)

	_, ok = f.rows.Get(dailyattendance.Key{UserID: carol.ID, ProjectID: projectID, Date: wednesday})
	assert.False(t, ok)
}
