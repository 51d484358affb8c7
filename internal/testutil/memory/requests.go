package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/attendancerequest"
)

type Requests struct {
	mu        sync.Mutex
	requests  map[string]attendancerequest.AttendanceRequest
	approvals []attendancerequest.Approval
	Now       func() time.Time
}

func NewRequests() *Requests {
	return &Requests{requests: make(map[string]attendancerequest.AttendanceRequest), Now: time.Now}
}

func (r *Requests) Create(_ context.Context, req attendancerequest.AttendanceRequest) (attendancerequest.AttendanceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req.ID = nextID("ar")
	req.CreatedAt = r.Now()
	req.UpdatedAt = req.CreatedAt
	r.requests[req.ID] = req
	return req, nil
}

func (r *Requests) GetByID(_ context.Context, id string) (attendancerequest.AttendanceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return attendancerequest.AttendanceRequest{}, attendancerequest.ErrRequestNotFound
	}
	return req, nil
}

func (r *Requests) GetByIDForUpdate(ctx context.Context, id string) (attendancerequest.AttendanceRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *Requests) Update(_ context.Context, req attendancerequest.AttendanceRequest) (attendancerequest.AttendanceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[req.ID]; !ok {
		return attendancerequest.AttendanceRequest{}, attendancerequest.ErrRequestNotFound
	}
	req.UpdatedAt = r.Now()
	r.requests[req.ID] = req
	return req, nil
}

func (r *Requests) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[id]; !ok {
		return attendancerequest.ErrRequestNotFound
	}
	delete(r.requests, id)
	return nil
}

func (r *Requests) List(_ context.Context, filter attendancerequest.ListFilter) ([]attendancerequest.AttendanceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []attendancerequest.AttendanceRequest
	for _, req := range r.requests {
		if filter.UserID != nil && req.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		if filter.Type != nil && req.RequestType != *filter.Type {
			continue
		}
		if filter.Dates.Start != nil && req.EndDate.Before(*filter.Dates.Start) {
			continue
		}
		if filter.Dates.End != nil && req.StartDate.After(*filter.Dates.End) {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out, nil
}

func (r *Requests) CreateApproval(_ context.Context, a attendancerequest.Approval) (attendancerequest.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.approvals {
		if existing.RequestID == a.RequestID {
			return attendancerequest.Approval{}, attendancerequest.ErrRequestAlreadyDecided
		}
	}
	a.ID = nextID("apr")
	r.approvals = append(r.approvals, a)
	return a, nil
}

func (r *Requests) ListApprovals(_ context.Context, filter attendancerequest.ApprovalFilter) ([]attendancerequest.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []attendancerequest.Approval
	for _, a := range r.approvals {
		if filter.RequestID != nil && a.RequestID != *filter.RequestID {
			continue
		}
		if filter.ApproverID != nil && a.ApproverID != *filter.ApproverID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DecidedAt.After(out[j].DecidedAt) })
	return out, nil
}
