package metric

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var minutesPerHour = decimal.NewFromInt(60)

// DailyMetric is a user's contribution to a project on one day.
type DailyMetric struct {
	ID                string
	UserID            string
	ProjectID         string
	WorkRole          string
	MetricDate        time.Time
	HoursWorked       decimal.Decimal
	TasksCompleted    int
	ProductivityScore *decimal.Decimal
	Notes             *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// RoleDailyMetric is the per-role rollup of a project's day.
type RoleDailyMetric struct {
	ID               string
	ProjectID        string
	MetricDate       time.Time
	WorkRole         string
	ActiveUsersCount int
	TasksCompleted   int
	TotalHoursWorked decimal.Decimal
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ProjectHistory accumulates a user's lifetime work on a project.
type ProjectHistory struct {
	ID                  string
	UserID              string
	ProjectID           string
	WorkRole            string
	TotalHoursWorked    decimal.Decimal
	TotalTasksCompleted int
	FirstWorkedDate     *time.Time
	LastWorkedDate      *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// SessionRecord is the slice of a closed work session the aggregator reads.
type SessionRecord struct {
	UserID         string
	WorkRole       string
	TasksCompleted int
	Minutes        decimal.Decimal
}

// HoursFromMinutes converts minutes to hours rounded to two decimals.
func HoursFromMinutes(minutes decimal.Decimal) decimal.Decimal {
	return minutes.Div(minutesPerHour).Round(2)
}

// AggregateByRole groups a project's sessions for a day by work role. The
// result is ordered by role name.
func AggregateByRole(projectID string, date time.Time, records []SessionRecord) []RoleDailyMetric {
	type acc struct {
		users   map[string]struct{}
		tasks   int
		minutes decimal.Decimal
	}
	byRole := make(map[string]*acc)
	for _, r := range records {
		a, ok := byRole[r.WorkRole]
		if !ok {
			a = &acc{users: make(map[string]struct{})}
			byRole[r.WorkRole] = a
		}
		a.users[r.UserID] = struct{}{}
		a.tasks += r.TasksCompleted
		a.minutes = a.minutes.Add(r.Minutes)
	}

	roles := make([]string, 0, len(byRole))
	for role := range byRole {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	out := make([]RoleDailyMetric, 0, len(roles))
	for _, role := range roles {
		a := byRole[role]
		out = append(out, RoleDailyMetric{
			ProjectID:        projectID,
			MetricDate:       date,
			WorkRole:         role,
			ActiveUsersCount: len(a.users),
			TasksCompleted:   a.tasks,
			TotalHoursWorked: HoursFromMinutes(a.minutes),
		})
	}
	return out
}

// UserAggregate is one user's total for a project day.
type UserAggregate struct {
	UserID   string
	WorkRole string
	Hours    decimal.Decimal
	Tasks    int
}

// AggregateByUser totals a project's sessions for a day per user. A user who
// worked several roles is attributed to the role with the most minutes.
func AggregateByUser(records []SessionRecord) []UserAggregate {
	type acc struct {
		tasks       int
		minutes     decimal.Decimal
		roleMinutes map[string]decimal.Decimal
	}
	byUser := make(map[string]*acc)
	for _, r := range records {
		a, ok := byUser[r.UserID]
		if !ok {
			a = &acc{roleMinutes: make(map[string]decimal.Decimal)}
			byUser[r.UserID] = a
		}
		a.tasks += r.TasksCompleted
		a.minutes = a.minutes.Add(r.Minutes)
		a.roleMinutes[r.WorkRole] = a.roleMinutes[r.WorkRole].Add(r.Minutes)
	}

	users := make([]string, 0, len(byUser))
	for u := range byUser {
		users = append(users, u)
	}
	sort.Strings(users)

	out := make([]UserAggregate, 0, len(users))
	for _, u := range users {
		a := byUser[u]
		out = append(out, UserAggregate{
			UserID:   u,
			WorkRole: dominantRole(a.roleMinutes),
			Hours:    HoursFromMinutes(a.minutes),
			Tasks:    a.tasks,
		})
	}
	return out
}

func dominantRole(roleMinutes map[string]decimal.Decimal) string {
	var (
		best    string
		bestMin decimal.Decimal
		first   = true
	)
	for role, m := range roleMinutes {
		if first || m.GreaterThan(bestMin) || (m.Equal(bestMin) && role < best) {
			best, bestMin, first = role, m, false
		}
	}
	return best
}

// HistoryDelta is the change a daily metric upsert applies to ProjectHistory.
type HistoryDelta struct {
	UserID    string
	ProjectID string
	WorkRole  string
	Date      time.Time
	Hours     decimal.Decimal
	Tasks     int
}

// NewHistoryDelta returns the difference between the stored daily row and the
// one replacing it, so re-writing a day never counts it twice.
func NewHistoryDelta(previous *DailyMetric, next DailyMetric) HistoryDelta {
	d := HistoryDelta{
		UserID:    next.UserID,
		ProjectID: next.ProjectID,
		WorkRole:  next.WorkRole,
		Date:      next.MetricDate,
		Hours:     next.HoursWorked,
		Tasks:     next.TasksCompleted,
	}
	if previous == nil {
		return d
	}
	d.Hours = next.HoursWorked.Sub(previous.HoursWorked)
	d.Tasks = next.TasksCompleted - previous.TasksCompleted
	return d
}

// IsZero reports whether applying d would not change the history totals.
func (d HistoryDelta) IsZero() bool {
	return d.Hours.IsZero() && d.Tasks == 0
}
