package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/dailyattendance"
)

// DailyAttendance mirrors the guarded upsert of the SQL repository.
type DailyAttendance struct {
	mu     sync.Mutex
	rows   map[dailyattendance.Key]dailyattendance.DailyAttendance
	Writes int
	Now    func() time.Time
}

func NewDailyAttendance() *DailyAttendance {
	return &DailyAttendance{rows: make(map[dailyattendance.Key]dailyattendance.DailyAttendance), Now: time.Now}
}

func normKey(k dailyattendance.Key) dailyattendance.Key {
	k.Date = k.Date.UTC()
	return k
}

// Put stores row as is, for seeding.
func (d *DailyAttendance) Put(row dailyattendance.DailyAttendance) dailyattendance.DailyAttendance {
	d.mu.Lock()
	defer d.mu.Unlock()
	if row.ID == "" {
		row.ID = nextID("da")
	}
	d.rows[normKey(row.Key())] = row
	return row
}

// Get returns the stored row for key, if any.
func (d *DailyAttendance) Get(key dailyattendance.Key) (dailyattendance.DailyAttendance, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	row, ok := d.rows[normKey(key)]
	return row, ok
}

func (d *DailyAttendance) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rows)
}

func (d *DailyAttendance) GetForUpdate(_ context.Context, key dailyattendance.Key) (*dailyattendance.DailyAttendance, error) {
	row, ok := d.Get(key)
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (d *DailyAttendance) ListByUserAndDate(_ context.Context, userID string, date time.Time) ([]dailyattendance.DailyAttendance, error) {
	return d.List(context.Background(), dailyattendance.ListFilter{UserID: &userID, Dates: dayRange(date)})
}

func (d *DailyAttendance) List(_ context.Context, filter dailyattendance.ListFilter) ([]dailyattendance.DailyAttendance, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []dailyattendance.DailyAttendance
	for _, row := range d.rows {
		if filter.UserID != nil && row.UserID != *filter.UserID {
			continue
		}
		if filter.ProjectID != nil && row.ProjectID != *filter.ProjectID {
			continue
		}
		if !filter.Dates.Contains(row.AttendanceDate) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AttendanceDate.Equal(out[j].AttendanceDate) {
			return out[i].AttendanceDate.After(out[j].AttendanceDate)
		}
		return out[i].ProjectID < out[j].ProjectID
	})
	return out, nil
}

func (d *DailyAttendance) Upsert(_ context.Context, row dailyattendance.DailyAttendance) (dailyattendance.DailyAttendance, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := normKey(row.Key())
	existing, ok := d.rows[key]
	if ok {
		if existing.Source == dailyattendance.SourceManual && row.Source != dailyattendance.SourceManual {
			return existing, false, nil
		}
		if dailyattendance.SameContent(existing, row) {
			return existing, false, nil
		}
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
	} else {
		row.ID = nextID("da")
		row.CreatedAt = d.Now()
	}
	row.UpdatedAt = d.Now()
	d.rows[key] = row
	d.Writes++
	return row, true, nil
}
