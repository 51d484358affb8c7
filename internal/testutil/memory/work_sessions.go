package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/dailyattendance"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/metric"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/worksession"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

func dayRange(date time.Time) validator.DateRange {
	return validator.DateRange{Start: &date, End: &date}
}

// WorkSessions implements worksession.WorkSessionRepository and
// dailyattendance.SessionReader over one slice of sessions.
type WorkSessions struct {
	mu       sync.Mutex
	sessions []worksession.WorkSession
}

func NewWorkSessions() *WorkSessions {
	return &WorkSessions{}
}

// Put stores s as is, for seeding.
func (w *WorkSessions) Put(s worksession.WorkSession) worksession.WorkSession {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s.ID == "" {
		s.ID = nextID("ws")
	}
	if s.Status == "" {
		s.Status = worksession.StatusPending
	}
	w.sessions = append(w.sessions, s)
	return s
}

// Delete removes a session, for tests that simulate corrections.
func (w *WorkSessions) Delete(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i, ok := w.find(id); ok {
		w.sessions = append(w.sessions[:i], w.sessions[i+1:]...)
	}
}

func (w *WorkSessions) All() []worksession.WorkSession {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]worksession.WorkSession(nil), w.sessions...)
}

func (w *WorkSessions) Create(_ context.Context, s worksession.WorkSession) (worksession.WorkSession, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, existing := range w.sessions {
		if existing.UserID == s.UserID && existing.IsOpen() {
			return worksession.WorkSession{}, worksession.ErrAlreadyClockedIn
		}
	}
	if s.ID == "" {
		s.ID = nextID("ws")
	}
	s.CreatedAt = s.ClockInAt
	s.UpdatedAt = s.ClockInAt
	w.sessions = append(w.sessions, s)
	return s, nil
}

func (w *WorkSessions) find(id string) (int, bool) {
	for i := range w.sessions {
		if w.sessions[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

func (w *WorkSessions) GetByID(_ context.Context, id string) (worksession.WorkSession, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	i, ok := w.find(id)
	if !ok {
		return worksession.WorkSession{}, worksession.ErrSessionNotFound
	}
	return w.sessions[i], nil
}

func (w *WorkSessions) GetByIDForUpdate(ctx context.Context, id string) (worksession.WorkSession, error) {
	return w.GetByID(ctx, id)
}

func (w *WorkSessions) GetOpenByUser(_ context.Context, userID string) (*worksession.WorkSession, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.sessions {
		if s.UserID == userID && s.IsOpen() {
			return &s, nil
		}
	}
	return nil, nil
}

func (w *WorkSessions) Close(_ context.Context, id string, params worksession.CloseParams) (worksession.WorkSession, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	i, ok := w.find(id)
	if !ok || !w.sessions[i].IsOpen() {
		return worksession.WorkSession{}, worksession.ErrNoOpenSession
	}
	s := &w.sessions[i]
	out := params.ClockOutAt
	minutes := params.MinutesWorked
	s.ClockOutAt = &out
	s.TasksCompleted = params.TasksCompleted
	s.Notes = params.Notes
	s.MinutesWorked = &minutes
	s.UpdatedAt = out
	return *s, nil
}

func (w *WorkSessions) ListByUser(_ context.Context, userID string, sheetDates validator.DateRange) ([]worksession.WorkSession, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []worksession.WorkSession
	for _, s := range w.sessions {
		if s.UserID == userID && sheetDates.Contains(s.SheetDate) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClockInAt.After(out[j].ClockInAt) })
	return out, nil
}

func (w *WorkSessions) UpdateReview(_ context.Context, s worksession.WorkSession) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	i, ok := w.find(s.ID)
	if !ok {
		return worksession.ErrSessionNotFound
	}
	w.sessions[i].Status = s.Status
	w.sessions[i].ApproverID = s.ApproverID
	w.sessions[i].ApprovalComment = s.ApprovalComment
	w.sessions[i].ApprovedAt = s.ApprovedAt
	return nil
}

func (w *WorkSessions) ListOpenStartedBefore(_ context.Context, cutoff time.Time) ([]worksession.WorkSession, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []worksession.WorkSession
	for _, s := range w.sessions {
		if s.IsOpen() && s.ClockInAt.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (w *WorkSessions) SummarizeDay(_ context.Context, key dailyattendance.Key) (dailyattendance.SessionSummary, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var sum dailyattendance.SessionSummary
	for _, s := range w.sessions {
		if s.UserID != key.UserID || s.ProjectID != key.ProjectID || !s.SheetDate.Equal(key.Date) {
			continue
		}
		sum.Count++
		in := s.ClockInAt
		if sum.FirstClockInAt == nil || in.Before(*sum.FirstClockInAt) {
			sum.FirstClockInAt = &in
		}
		if s.ClockOutAt != nil {
			out := *s.ClockOutAt
			if sum.LastClockOutAt == nil || out.After(*sum.LastClockOutAt) {
				sum.LastClockOutAt = &out
			}
		}
		sum.MinutesWorked = sum.MinutesWorked.Add(s.WorkedMinutes())
	}
	return sum, nil
}

func (w *WorkSessions) CountUserSessionsOn(_ context.Context, userID string, date time.Time) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, s := range w.sessions {
		if s.UserID == userID && s.SheetDate.Equal(date) {
			n++
		}
	}
	return n, nil
}

func (w *WorkSessions) ProjectsWorkedOn(_ context.Context, userID string, date time.Time) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, s := range w.sessions {
		if s.UserID == userID && s.SheetDate.Equal(date) && !seen[s.ProjectID] {
			seen[s.ProjectID] = true
			out = append(out, s.ProjectID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (w *WorkSessions) LatestProject(_ context.Context, userID string) (*string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var latest *worksession.WorkSession
	for i := range w.sessions {
		s := &w.sessions[i]
		if s.UserID == userID && (latest == nil || s.ClockInAt.After(latest.ClockInAt)) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	p := latest.ProjectID
	return &p, nil
}

func (w *WorkSessions) sessionRecords(projectID string, date time.Time) []metric.SessionRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []metric.SessionRecord
	for _, s := range w.sessions {
		if s.ProjectID != projectID || !s.SheetDate.Equal(date) {
			continue
		}
		rec := metric.SessionRecord{UserID: s.UserID, WorkRole: s.WorkRole, Minutes: decimal.Zero}
		if !s.IsOpen() {
			rec.TasksCompleted = s.TasksCompleted
			rec.Minutes = s.WorkedMinutes()
		}
		out = append(out, rec)
	}
	return out
}

func (w *WorkSessions) projectsOn(date time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, s := range w.sessions {
		if s.SheetDate.Equal(date) && !seen[s.ProjectID] {
			seen[s.ProjectID] = true
			out = append(out, s.ProjectID)
		}
	}
	sort.Strings(out)
	return out
}
