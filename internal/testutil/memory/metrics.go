package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/metric"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/worktime-backend-go/internal/testutil"
	"github.com/shopspring/decimal"
)

type roleKey struct {
	projectID string
	date      time.Time
	role      string
}

type userDayKey struct {
	userID    string
	projectID string
	date      time.Time
}

type historyKey struct {
	userID    string
	projectID string
}

// Metrics implements metric.MetricRepository; sessions are read from the
// shared WorkSessions store.
type Metrics struct {
	mu       sync.Mutex
	sessions *WorkSessions
	roles    map[roleKey]metric.RoleDailyMetric
	daily    map[userDayKey]metric.DailyMetric
	history  map[historyKey]metric.ProjectHistory
	dayLocks map[roleKey]*sync.Mutex
	Now      func() time.Time
}

func NewMetrics(sessions *WorkSessions) *Metrics {
	return &Metrics{
		sessions: sessions,
		roles:    make(map[roleKey]metric.RoleDailyMetric),
		daily:    make(map[userDayKey]metric.DailyMetric),
		history:  make(map[historyKey]metric.ProjectHistory),
		Now:      time.Now,
	}
}

func (m *Metrics) ListSessions(_ context.Context, projectID string, date time.Time) ([]metric.SessionRecord, error) {
	return m.sessions.sessionRecords(projectID, date), nil
}

// LockProjectDay holds a per-(project, date) mutex until the transaction in
// ctx ends, like an advisory transaction lock.
func (m *Metrics) LockProjectDay(ctx context.Context, projectID string, date time.Time) error {
	m.mu.Lock()
	if m.dayLocks == nil {
		m.dayLocks = make(map[roleKey]*sync.Mutex)
	}
	k := roleKey{projectID: projectID, date: date.UTC()}
	l, ok := m.dayLocks[k]
	if !ok {
		l = &sync.Mutex{}
		m.dayLocks[k] = l
	}
	m.mu.Unlock()

	l.Lock()
	testutil.AfterTx(ctx, l.Unlock)
	return nil
}

func (m *Metrics) ListProjectsWithSessions(_ context.Context, date time.Time) ([]string, error) {
	return m.sessions.projectsOn(date), nil
}

func (m *Metrics) UpsertRoleDaily(_ context.Context, r metric.RoleDailyMetric) (metric.RoleDailyMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := roleKey{r.ProjectID, r.MetricDate.UTC(), r.WorkRole}
	existing, ok := m.roles[k]
	if ok {
		if existing.ActiveUsersCount == r.ActiveUsersCount && existing.TasksCompleted == r.TasksCompleted &&
			existing.TotalHoursWorked.Equal(r.TotalHoursWorked) {
			return existing, nil
		}
		r.ID = existing.ID
		r.CreatedAt = existing.CreatedAt
	} else {
		r.ID = nextID("rdm")
		r.CreatedAt = m.Now()
	}
	r.UpdatedAt = m.Now()
	m.roles[k] = r
	return r, nil
}

func (m *Metrics) ListRoleDaily(_ context.Context, projectID string, dates validator.DateRange) ([]metric.RoleDailyMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []metric.RoleDailyMetric
	for _, r := range m.roles {
		if r.ProjectID == projectID && dates.Contains(r.MetricDate) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MetricDate.Equal(out[j].MetricDate) {
			return out[i].MetricDate.After(out[j].MetricDate)
		}
		return out[i].WorkRole < out[j].WorkRole
	})
	return out, nil
}

func (m *Metrics) GetUserDailyForUpdate(_ context.Context, userID, projectID string, date time.Time) (*metric.DailyMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.daily[userDayKey{userID, projectID, date.UTC()}]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *Metrics) UpsertUserDaily(_ context.Context, d metric.DailyMetric) (metric.DailyMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := userDayKey{d.UserID, d.ProjectID, d.MetricDate.UTC()}
	if existing, ok := m.daily[k]; ok {
		d.ID = existing.ID
		d.CreatedAt = existing.CreatedAt
	} else {
		d.ID = nextID("udm")
		d.CreatedAt = m.Now()
	}
	d.UpdatedAt = m.Now()
	m.daily[k] = d
	return d, nil
}

func (m *Metrics) ListUserDaily(_ context.Context, filter metric.UserDailyFilter) ([]metric.DailyMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []metric.DailyMetric
	for _, d := range m.daily {
		if filter.UserID != nil && d.UserID != *filter.UserID {
			continue
		}
		if filter.ProjectID != nil && d.ProjectID != *filter.ProjectID {
			continue
		}
		if !filter.Dates.Contains(d.MetricDate) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MetricDate.After(out[j].MetricDate) })
	return out, nil
}

func (m *Metrics) ApplyHistoryDelta(_ context.Context, delta metric.HistoryDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := historyKey{delta.UserID, delta.ProjectID}
	h, ok := m.history[k]
	if !ok {
		h = metric.ProjectHistory{ID: nextID("uph"), UserID: delta.UserID, ProjectID: delta.ProjectID, CreatedAt: m.Now()}
	}
	h.WorkRole = delta.WorkRole
	h.TotalHoursWorked = decimal.Max(h.TotalHoursWorked.Add(delta.Hours), decimal.Zero)
	h.TotalTasksCompleted = max(h.TotalTasksCompleted+delta.Tasks, 0)
	date := delta.Date
	if h.FirstWorkedDate == nil || date.Before(*h.FirstWorkedDate) {
		h.FirstWorkedDate = &date
	}
	if h.LastWorkedDate == nil || date.After(*h.LastWorkedDate) {
		h.LastWorkedDate = &date
	}
	h.UpdatedAt = m.Now()
	m.history[k] = h
	return nil
}

func (m *Metrics) GetHistory(_ context.Context, userID, projectID string) (metric.ProjectHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.history[historyKey{userID, projectID}]
	if !ok {
		return metric.ProjectHistory{}, metric.ErrProjectHistoryNotFound
	}
	return h, nil
}

func (m *Metrics) ListHistory(_ context.Context, filter metric.HistoryFilter) ([]metric.ProjectHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []metric.ProjectHistory
	for _, h := range m.history {
		if filter.UserID != nil && h.UserID != *filter.UserID {
			continue
		}
		if filter.ProjectID != nil && h.ProjectID != *filter.ProjectID {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectID < out[j].ProjectID })
	return out, nil
}
