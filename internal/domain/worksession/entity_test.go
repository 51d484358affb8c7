package worksession

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusPending, false},
		{StatusApproved, StatusRejected, false},
		{StatusApproved, StatusApproved, false},
		{StatusRejected, StatusApproved, false},
		{Status("DONE"), StatusApproved, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.False(t, Status("pending").Valid())
	assert.True(t, StatusApproved.IsDecision())
	assert.False(t, StatusPending.IsDecision())
}

func TestWorkSession_WorkedMinutes(t *testing.T) {
	in := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	out := time.Date(2024, 1, 10, 17, 30, 0, 0, time.UTC)

	t.Run("derived from timestamps", func(t *testing.T) {
		s := WorkSession{ClockInAt: in, ClockOutAt: &out}
		assert.True(t, decimal.NewFromInt(510).Equal(s.WorkedMinutes()))
	})

	t.Run("stored value wins", func(t *testing.T) {
		stored := decimal.NewFromInt(480)
		s := WorkSession{ClockInAt: in, ClockOutAt: &out, MinutesWorked: &stored}
		assert.True(t, stored.Equal(s.WorkedMinutes()))
	})

	t.Run("open session is zero", func(t *testing.T) {
		s := WorkSession{ClockInAt: in}
		assert.True(t, s.IsOpen())
		assert.True(t, s.WorkedMinutes().IsZero())
	})
}

func TestMinutesBetween(t *testing.T) {
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "510", MinutesBetween(base, base.Add(8*time.Hour+30*time.Minute)).String())
	assert.Equal(t, "0.5", MinutesBetween(base, base.Add(30*time.Second)).String())
	assert.True(t, MinutesBetween(base, base.Add(-time.Minute)).IsZero())
}

func TestNewWorkSessionResponse(t *testing.T) {
	in := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	out := time.Date(2024, 1, 10, 17, 30, 0, 0, time.UTC)

	resp := NewWorkSessionResponse(WorkSession{
		ID:             "s1",
		ClockInAt:      in,
		ClockOutAt:     &out,
		TasksCompleted: 5,
		SheetDate:      time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Status:         StatusPending,
	})

	assert.Equal(t, "2024-01-10", resp.SheetDate)
	if assert.NotNil(t, resp.HoursWorked) {
		assert.Equal(t, "8.5", resp.HoursWorked.String())
	}

	open := NewWorkSessionResponse(WorkSession{ClockInAt: in, SheetDate: in})
	assert.Nil(t, open.MinutesWorked)
	assert.Nil(t, open.HoursWorked)
}

func TestClockInRequest_Validate(t *testing.T) {
	ok := ClockInRequest{UserID: "u1", ProjectID: "0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b", WorkRole: "Developer"}
	assert.NoError(t, ok.Validate())

	bad := ClockInRequest{ProjectID: "nope"}
	err := bad.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "project_id")
	assert.Contains(t, err.Error(), "work_role")
}

func TestClockOutRequest_Validate(t *testing.T) {
	assert.NoError(t, (&ClockOutRequest{UserID: "u1", TasksCompleted: 5}).Validate())
	assert.Error(t, (&ClockOutRequest{UserID: "u1", TasksCompleted: -1}).Validate())
}

func TestReviewSessionRequest_Validate(t *testing.T) {
	req := ReviewSessionRequest{
		SessionID:  "0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		ApproverID: "m1",
		Decision:   StatusApproved,
	}
	assert.NoError(t, req.Validate())

	req.Decision = StatusPending
	assert.Error(t, req.Validate())
}
