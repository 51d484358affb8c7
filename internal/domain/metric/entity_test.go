package metric

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoursFromMinutes(t *testing.T) {
	tests := []struct {
		minutes string
		want    string
	}{
		{"510", "8.5"},
		{"0", "0"},
		{"100", "1.67"},
		{"1", "0.02"},
		{"59.99", "1"},
		{"45", "0.75"},
	}

	for _, tt := range tests {
		got := HoursFromMinutes(decimal.RequireFromString(tt.minutes))
		assert.Equal(t, tt.want, got.String(), "minutes=%s", tt.minutes)
	}
}

func TestAggregateByRole(t *testing.T) {
	date := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	records := []SessionRecord{
		{UserID: "u1", WorkRole: "Developer", TasksCompleted: 5, Minutes: decimal.NewFromInt(510)},
		{UserID: "u2", WorkRole: "Developer", TasksCompleted: 2, Minutes: decimal.NewFromInt(60)},
		{UserID: "u1", WorkRole: "Developer", TasksCompleted: 1, Minutes: decimal.NewFromInt(30)},
		{UserID: "u3", WorkRole: "QA", TasksCompleted: 3, Minutes: decimal.NewFromInt(100)},
	}

	got := AggregateByRole("p1", date, records)
	require.Len(t, got, 2)

	dev := got[0]
	assert.Equal(t, "Developer", dev.WorkRole)
	assert.Equal(t, 2, dev.ActiveUsersCount)
	assert.Equal(t, 8, dev.TasksCompleted)
	assert.Equal(t, "10", dev.TotalHoursWorked.String())
	assert.Equal(t, "p1", dev.ProjectID)
	assert.Equal(t, date, dev.MetricDate)

	qa := got[1]
	assert.Equal(t, "QA", qa.WorkRole)
	assert.Equal(t, 1, qa.ActiveUsersCount)
	assert.Equal(t, "1.67", qa.TotalHoursWorked.String())

	assert.Empty(t, AggregateByRole("p1", date, nil))
}

func TestAggregateByRole_SingleSession(t *testing.T) {
	got := AggregateByRole("p1", time.Time{}, []SessionRecord{
		{UserID: "u1", WorkRole: "Developer", TasksCompleted: 5, Minutes: decimal.NewFromInt(510)},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "8.5", got[0].TotalHoursWorked.String())
	assert.Equal(t, 5, got[0].TasksCompleted)
	assert.Equal(t, 1, got[0].ActiveUsersCount)
}

func TestAggregateByUser(t *testing.T) {
	records := []SessionRecord{
		{UserID: "u1", WorkRole: "Developer", TasksCompleted: 5, Minutes: decimal.NewFromInt(300)},
		{UserID: "u1", WorkRole: "Reviewer", TasksCompleted: 1, Minutes: decimal.NewFromInt(210)},
		{UserID: "u2", WorkRole: "QA", TasksCompleted: 0, Minutes: decimal.NewFromInt(60)},
		{UserID: "u2", WorkRole: "Analyst", TasksCompleted: 0, Minutes: decimal.NewFromInt(60)},
	}

	got := AggregateByUser(records)
	require.Len(t, got, 2)

	assert.Equal(t, "u1", got[0].UserID)
	assert.Equal(t, "Developer", got[0].WorkRole)
	assert.Equal(t, "8.5", got[0].Hours.String())
	assert.Equal(t, 6, got[0].Tasks)

	// ties go to the alphabetically first role
	assert.Equal(t, "Analyst", got[1].WorkRole)
	assert.Equal(t, "2", got[1].Hours.String())
}

func TestNewHistoryDelta(t *testing.T) {
	date := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	next := DailyMetric{UserID: "u1", ProjectID: "p1", WorkRole: "Developer", MetricDate: date, HoursWorked: decimal.RequireFromString("8.5"), TasksCompleted: 5}

	first := NewHistoryDelta(nil, next)
	assert.Equal(t, "8.5", first.Hours.String())
	assert.Equal(t, 5, first.Tasks)
	assert.False(t, first.IsZero())

	same := NewHistoryDelta(&next, next)
	assert.True(t, same.IsZero())

	// a clocked-in user with nothing worked yet does not open a history row
	idle := next
	idle.HoursWorked = decimal.Zero
	idle.TasksCompleted = 0
	assert.True(t, NewHistoryDelta(nil, idle).IsZero())

	corrected := next
	corrected.HoursWorked = decimal.RequireFromString("7.25")
	corrected.TasksCompleted = 6
	delta := NewHistoryDelta(&next, corrected)
	assert.Equal(t, "-1.25", delta.Hours.String())
	assert.Equal(t, 1, delta.Tasks)
	assert.False(t, delta.IsZero())
}

func TestUpsertUserDailyMetricRequest_Validate(t *testing.T) {
	score := decimal.NewFromInt(87)
	req := UpsertUserDailyMetricRequest{
		UserID:            "0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		ProjectID:         "0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8c",
		Date:              "2024-01-10",
		WorkRole:          "Developer",
		HoursWorked:       decimal.RequireFromString("8.456"),
		TasksCompleted:    5,
		ProductivityScore: &score,
	}
	require.NoError(t, req.Validate())
	assert.Equal(t, "8.46", req.ToEntity().HoursWorked.String())

	bad := req
	bad.HoursWorked = decimal.NewFromInt(25)
	tooHigh := decimal.NewFromInt(101)
	bad.ProductivityScore = &tooHigh
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hours_worked")
	assert.Contains(t, err.Error(), "productivity_score")
}
