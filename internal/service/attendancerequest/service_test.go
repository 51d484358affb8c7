package attendancerequest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/attendancerequest"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/dailyattendance"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/project"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/email"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
	dailyattendancesvc "github.com/cmlabs-hris/worktime-backend-go/internal/service/dailyattendance"
	notificationsvc "github.com/cmlabs-hris/worktime-backend-go/internal/service/notification"
	"github.com/cmlabs-hris/worktime-backend-go/internal/testutil"
	"github.com/cmlabs-hris/worktime-backend-go/internal/testutil/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	employeeID = "0188d0f2-7b8c-7b4a-8a2b-000000000001"
	managerID  = "0188d0f2-7b8c-7b4a-8a2b-000000000009"
	projectID  = "0188d0f2-7b8c-7b4a-8a2b-0000000000a1"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []notification.Event
}

func (d *recordingDispatcher) Dispatch(_ context.Context, event notification.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *recordingDispatcher) Events() []notification.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notification.Event(nil), d.events...)
}

type failingApplier struct{}

func (failingApplier) ApplyApprovedRequest(context.Context, dailyattendance.Key, dailyattendance.Status, string, *string) error {
	return errors.New("daily attendance unavailable")
}

type fixture struct {
	svc        *AttendanceRequestServiceImpl
	requests   *memory.Requests
	rows       *memory.DailyAttendance
	dispatcher *recordingDispatcher
}

func newFixture() fixture {
	tx := &testutil.Transactor{}
	rows := memory.NewDailyAttendance()
	users := memory.NewUsers(user.User{ID: employeeID, IsActive: true})
	attendance := dailyattendancesvc.NewDailyAttendanceService(tx, rows, memory.NewWorkSessions(), users)
	requests := memory.NewRequests()
	dispatcher := &recordingDispatcher{}

	projects := memory.NewProjects(project.Project{ID: projectID, Code: "WT"})

	svc := NewAttendanceRequestService(tx, requests, projects, attendance, dispatcher).(*AttendanceRequestServiceImpl)
	svc.now = func() time.Time { return time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC) }

	return fixture{svc: svc, requests: requests, rows: rows, dispatcher: dispatcher}
}

func leaveRequest() attendancerequest.CreateAttendanceRequest {
	p := projectID
	reason := "family trip"
	return attendancerequest.CreateAttendanceRequest{
		UserID:      employeeID,
		ProjectID:   &p,
		RequestType: attendancerequest.TypeLeave,
		StartDate:   "2024-01-10",
		EndDate:     "2024-01-12",
		Reason:      &reason,
	}
}

func date(s string) time.Time {
	d, _ := validator.IsValidDate(s)
	return d
}

func TestCreateRequest(t *testing.T) {
	f := newFixture()

	resp, err := f.svc.CreateRequest(context.Background(), leaveRequest())
	require.NoError(t, err)
	assert.Equal(t, attendancerequest.StatusPending, resp.Status)
	assert.Equal(t, "2024-01-10", resp.StartDate)
	assert.Equal(t, "2024-01-12", resp.EndDate)

	events := f.dispatcher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notification.EventRequestCreated, events[0].Type)
	assert.Equal(t, resp.ID, events[0].RequestID)
	assert.Equal(t, employeeID, events[0].RequesterID)
	assert.Equal(t, "family trip", events[0].Reason)
}

func TestCreateRequest_Invalid(t *testing.T) {
	f := newFixture()
	req := leaveRequest()
	req.EndDate = "2024-01-09"

	_, err := f.svc.CreateRequest(context.Background(), req)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "end_date")
	assert.Empty(t, f.dispatcher.Events())
}

func TestCreateRequest_UnknownProject(t *testing.T) {
	f := newFixture()
	req := leaveRequest()
	req.ProjectID = strPtr("0188d0f2-7b8c-7b4a-8a2b-0000000000ff")

	_, err := f.svc.CreateRequest(context.Background(), req)
	assert.ErrorIs(t, err, project.ErrProjectNotFound)
	assert.Empty(t, f.dispatcher.Events())

	all, err := f.svc.ListRequests(context.Background(), attendancerequest.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDecide_ApprovedLeaveWritesEveryDay(t *testing.T) {
	f := newFixture()
	created, err := f.svc.CreateRequest(context.Background(), leaveRequest())
	require.NoError(t, err)

	comment := "enjoy"
	resp, err := f.svc.Decide(context.Background(), attendancerequest.DecideRequest{
		RequestID: created.ID, ApproverID: managerID, Decision: attendancerequest.StatusApproved, Comment: &comment,
	})
	require.NoError(t, err)
	assert.Equal(t, attendancerequest.StatusApproved, resp.Request.Status)
	assert.Equal(t, managerID, *resp.Request.ReviewedBy)
	assert.Equal(t, 3, resp.DaysRecorded)
	assert.Equal(t, attendancerequest.StatusApproved, resp.Approval.Decision)

	for _, d := range []string{"2024-01-10", "2024-01-11", "2024-01-12"} {
		row, ok := f.rows.Get(dailyattendance.Key{UserID: employeeID, ProjectID: projectID, Date: date(d)})
		require.True(t, ok, d)
		assert.Equal(t, dailyattendance.StatusLeave, row.Status, d)
		assert.Equal(t, dailyattendance.SourceAuto, row.Source, d)
		require.NotNil(t, row.RequestID)
		assert.Equal(t, created.ID, *row.RequestID)
		assert.Equal(t, "Approved LEAVE request: enjoy", *row.Notes)
	}
	assert.Equal(t, 3, f.rows.Len())

	events := f.dispatcher.Events()
	require.Len(t, events, 2)
	assert.Equal(t, notification.EventRequestDecided, events[1].Type)
	assert.Equal(t, "APPROVED", events[1].Decision)
	assert.Equal(t, managerID, events[1].ApproverID)
}

func TestDecide_WFHIsPresent(t *testing.T) {
	f := newFixture()
	req := leaveRequest()
	req.RequestType = attendancerequest.TypeWFH
	req.EndDate = req.StartDate
	created, err := f.svc.CreateRequest(context.Background(), req)
	require.NoError(t, err)

	_, err = f.svc.Decide(context.Background(), attendancerequest.DecideRequest{
		RequestID: created.ID, ApproverID: managerID, Decision: attendancerequest.StatusApproved,
	})
	require.NoError(t, err)

	row, ok := f.rows.Get(dailyattendance.Key{UserID: employeeID, ProjectID: projectID, Date: date("2024-01-10")})
	require.True(t, ok)
	assert.Equal(t, dailyattendance.StatusPresent, row.Status)
}

func TestDecide_NoSideEffect(t *testing.T) {
	t.Run("rejected", func(t *testing.T) {
		f := newFixture()
		created, err := f.svc.CreateRequest(context.Background(), leaveRequest())
		require.NoError(t, err)

		resp, err := f.svc.Decide(context.Background(), attendancerequest.DecideRequest{
			RequestID: created.ID, ApproverID: managerID, Decision: attendancerequest.StatusRejected,
		})
		require.NoError(t, err)
		assert.Equal(t, attendancerequest.StatusRejected, resp.Request.Status)
		assert.Zero(t, f.rows.Len())
	})

	t.Run("type without effect", func(t *testing.T) {
		f := newFixture()
		req := leaveRequest()
		req.RequestType = attendancerequest.TypeShiftChange
		created, err := f.svc.CreateRequest(context.Background(), req)
		require.NoError(t, err)

		resp, err := f.svc.Decide(context.Background(), attendancerequest.DecideRequest{
			RequestID: created.ID, ApproverID: managerID, Decision: attendancerequest.StatusApproved,
		})
		require.NoError(t, err)
		assert.Zero(t, resp.DaysRecorded)
		assert.Zero(t, f.rows.Len())
	})

	t.Run("no project", func(t *testing.T) {
		f := newFixture()
		req := leaveRequest()
		req.ProjectID = nil
		created, err := f.svc.CreateRequest(context.Background(), req)
		require.NoError(t, err)

		_, err = f.svc.Decide(context.Background(), attendancerequest.DecideRequest{
			RequestID: created.ID, ApproverID: managerID, Decision: attendancerequest.StatusApproved,
		})
		require.NoError(t, err)
		assert.Zero(t, f.rows.Len())
	})
}

func TestDecide_ManualRowUntouched(t *testing.T) {
	f := newFixture()
	f.rows.Put(dailyattendance.DailyAttendance{
		UserID: employeeID, ProjectID: projectID, AttendanceDate: date("2024-01-11"),
		Status: dailyattendance.StatusPresent, Source: dailyattendance.SourceManual,
	})
	created, err := f.svc.CreateRequest(context.Background(), leaveRequest())
	require.NoError(t, err)

	_, err = f.svc.Decide(context.Background(), attendancerequest.DecideRequest{
		RequestID: created.ID, ApproverID: managerID, Decision: attendancerequest.StatusApproved,
	})
	require.NoError(t, err)

	row, _ := f.rows.Get(dailyattendance.Key{UserID: employeeID, ProjectID: projectID, Date: date("2024-01-11")})
	assert.Equal(t, dailyattendance.StatusPresent, row.Status)
	assert.Equal(t, dailyattendance.SourceManual, row.Source)
	assert.Nil(t, row.RequestID)
}

func TestDecide_Twice(t *testing.T) {
	f := newFixture()
	created, err := f.svc.CreateRequest(context.Background(), leaveRequest())
	require.NoError(t, err)
	decide := attendancerequest.DecideRequest{RequestID: created.ID, ApproverID: managerID, Decision: attendancerequest.StatusApproved}

	_, err = f.svc.Decide(context.Background(), decide)
	require.NoError(t, err)

	decide.Decision = attendancerequest.StatusRejected
	_, err = f.svc.Decide(context.Background(), decide)
	assert.ErrorIs(t, err, attendancerequest.ErrRequestAlreadyDecided)

	approvals, err := f.svc.ListApprovals(context.Background(), attendancerequest.ApprovalFilter{RequestID: &created.ID})
	require.NoError(t, err)
	require.Len(t, approvals, 1)
	assert.Equal(t, attendancerequest.StatusApproved, approvals[0].Decision)
}

func TestDecide_ConcurrentSingleAudit(t *testing.T) {
	f := newFixture()
	created, err := f.svc.CreateRequest(context.Background(), leaveRequest())
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Decide(context.Background(), attendancerequest.DecideRequest{
				RequestID: created.ID, ApproverID: managerID, Decision: attendancerequest.StatusApproved,
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, attendancerequest.ErrRequestAlreadyDecided)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	approvals, err := f.svc.ListApprovals(context.Background(), attendancerequest.ApprovalFilter{RequestID: &created.ID})
	require.NoError(t, err)
	assert.Len(t, approvals, 1)
}

func TestDecide_NotFoundAndInvalid(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Decide(context.Background(), attendancerequest.DecideRequest{
		RequestID: "0188d0f2-7b8c-7b4a-8a2b-0000000000ff", ApproverID: managerID, Decision: attendancerequest.StatusApproved,
	})
	assert.ErrorIs(t, err, attendancerequest.ErrRequestNotFound)

	_, err = f.svc.Decide(context.Background(), attendancerequest.DecideRequest{
		RequestID: "0188d0f2-7b8c-7b4a-8a2b-0000000000ff", ApproverID: managerID, Decision: attendancerequest.StatusPending,
	})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestDecide_AttendanceFailureFailsDecision(t *testing.T) {
	f := newFixture()
	f.svc.attendance = failingApplier{}
	created, err := f.svc.CreateRequest(context.Background(), leaveRequest())
	require.NoError(t, err)

	_, err = f.svc.Decide(context.Background(), attendancerequest.DecideRequest{
		RequestID: created.ID, ApproverID: managerID, Decision: attendancerequest.StatusApproved,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daily attendance unavailable")
	// only the creation event; nothing is announced for a failed decision
	assert.Len(t, f.dispatcher.Events(), 1)
}

type slowFailingMailer struct {
	release chan struct{}
}

func (m *slowFailingMailer) SendRequestCreated(ctx context.Context, _ string, _ email.RequestCreatedData) error {
	select {
	case <-m.release:
	case <-ctx.Done():
	}
	return errors.New("smtp unavailable")
}

func (m *slowFailingMailer) SendRequestDecided(ctx context.Context, to string, data email.RequestDecidedData) error {
	return m.SendRequestCreated(ctx, to, email.RequestCreatedData{})
}

func TestDecide_NotificationFailureDoesNotBlock(t *testing.T) {
	users := memory.NewUsers(
		user.User{ID: employeeID, Email: "employee@example.com", ManagerID: strPtr(managerID), IsActive: true},
		user.User{ID: managerID, Email: "manager@example.com", Role: user.RoleAdmin, IsActive: true},
	)
	projects := memory.NewProjects(project.Project{ID: projectID})
	mailer := &slowFailingMailer{release: make(chan struct{})}
	hub := sse.NewHub()
	dispatcher := notificationsvc.NewNotificationService(users, projects, mailer, hub, notificationsvc.Config{
		WorkerCount: 1, QueueSize: 1, Timeout: time.Second,
	})
	t.Cleanup(func() {
		close(mailer.release)
		dispatcher.Stop()
		hub.Close()
	})

	tx := &testutil.Transactor{}
	rows := memory.NewDailyAttendance()
	attendance := dailyattendancesvc.NewDailyAttendanceService(tx, rows, memory.NewWorkSessions(), users)
	svc := NewAttendanceRequestService(tx, memory.NewRequests(), projects, attendance, dispatcher)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			created, err := svc.CreateRequest(context.Background(), leaveRequest())
			if !assert.NoError(t, err) {
				return
			}
			_, err = svc.Decide(context.Background(), attendancerequest.DecideRequest{
				RequestID: created.ID, ApproverID: managerID, Decision: attendancerequest.StatusApproved,
			})
			assert.NoError(t, err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("request workflow blocked on notification delivery")
	}
	assert.Equal(t, 3, rows.Len())
}

func TestUpdateRequest(t *testing.T) {
	f := newFixture()
	created, err := f.svc.CreateRequest(context.Background(), leaveRequest())
	require.NoError(t, err)

	end := "2024-01-15"
	updated, err := f.svc.UpdateRequest(context.Background(), attendancerequest.UpdateAttendanceRequest{
		ID: created.ID, UserID: employeeID, EndDate: &end,
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", updated.EndDate)

	_, err = f.svc.UpdateRequest(context.Background(), attendancerequest.UpdateAttendanceRequest{
		ID: created.ID, UserID: managerID, EndDate: &end,
	})
	assert.ErrorIs(t, err, attendancerequest.ErrRequestNotOwned)

	_, err = f.svc.UpdateRequest(context.Background(), attendancerequest.UpdateAttendanceRequest{
		ID: created.ID, UserID: employeeID, ProjectID: strPtr("0188d0f2-7b8c-7b4a-8a2b-0000000000ff"),
	})
	assert.ErrorIs(t, err, project.ErrProjectNotFound)

	_, err = f.svc.Decide(context.Background(), attendancerequest.DecideRequest{
		RequestID: created.ID, ApproverID: managerID, Decision: attendancerequest.StatusApproved,
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateRequest(context.Background(), attendancerequest.UpdateAttendanceRequest{
		ID: created.ID, UserID: employeeID, EndDate: &end,
	})
	assert.ErrorIs(t, err, attendancerequest.ErrRequestLocked)

	reason := "updated reason"
	meta, err := f.svc.UpdateRequest(context.Background(), attendancerequest.UpdateAttendanceRequest{
		ID: created.ID, UserID: employeeID, Reason: &reason,
	})
	require.NoError(t, err)
	assert.Equal(t, reason, *meta.Reason)
	assert.Equal(t, attendancerequest.StatusApproved, meta.Status)
}

func TestWithdrawRequest(t *testing.T) {
	f := newFixture()
	created, err := f.svc.CreateRequest(context.Background(), leaveRequest())
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.WithdrawRequest(context.Background(), created.ID, managerID), attendancerequest.ErrRequestNotOwned)
	require.NoError(t, f.svc.WithdrawRequest(context.Background(), created.ID, employeeID))

	_, err = f.svc.GetRequest(context.Background(), created.ID, employeeID, false)
	assert.ErrorIs(t, err, attendancerequest.ErrRequestNotFound)

	decided, err := f.svc.CreateRequest(context.Background(), leaveRequest())
	require.NoError(t, err)
	_, err = f.svc.Decide(context.Background(), attendancerequest.DecideRequest{
		RequestID: decided.ID, ApproverID: managerID, Decision: attendancerequest.StatusRejected,
	})
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.WithdrawRequest(context.Background(), decided.ID, employeeID), attendancerequest.ErrRequestAlreadyDecided)
}

func TestGetAndListRequests(t *testing.T) {
	f := newFixture()
	created, err := f.svc.CreateRequest(context.Background(), leaveRequest())
	require.NoError(t, err)

	_, err = f.svc.GetRequest(context.Background(), created.ID, employeeID, false)
	require.NoError(t, err)
	_, err = f.svc.GetRequest(context.Background(), created.ID, managerID, true)
	require.NoError(t, err)
	_, err = f.svc.GetRequest(context.Background(), created.ID, managerID, false)
	assert.ErrorIs(t, err, attendancerequest.ErrRequestNotOwned)

	mine, err := f.svc.ListMyRequests(context.Background(), employeeID, attendancerequest.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	none, err := f.svc.ListMyRequests(context.Background(), managerID, attendancerequest.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)

	pending := attendancerequest.StatusPending
	all, err := f.svc.ListRequests(context.Background(), attendancerequest.ListFilter{Status: &pending})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func strPtr(s string) *string { return &s }
