package attendancerequest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/attendancerequest"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/dailyattendance"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/project"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
)

// attendanceApplier writes the daily effect of an approved request.
type attendanceApplier interface {
	ApplyApprovedRequest(ctx context.Context, key dailyattendance.Key, status dailyattendance.Status, requestID string, notes *string) error
}

type eventDispatcher interface {
	Dispatch(ctx context.Context, event notification.Event)
}

type AttendanceRequestServiceImpl struct {
	tx database.Transactor
	attendancerequest.AttendanceRequestRepository
	projects   project.ProjectRepository
	attendance attendanceApplier
	dispatcher eventDispatcher

	now func() time.Time
}

// CreateRequest implements attendancerequest.AttendanceRequestService.
func (s *AttendanceRequestServiceImpl) CreateRequest(ctx context.Context, req attendancerequest.CreateAttendanceRequest) (attendancerequest.AttendanceRequestResponse, error) {
	if err := req.Validate(); err != nil {
		return attendancerequest.AttendanceRequestResponse{}, err
	}
	if err := s.ensureProject(ctx, req.ProjectID); err != nil {
		return attendancerequest.AttendanceRequestResponse{}, err
	}

	created, err := s.AttendanceRequestRepository.Create(ctx, req.ToEntity(s.now().UTC()))
	if err != nil {
		return attendancerequest.AttendanceRequestResponse{}, fmt.Errorf("failed to create attendance request: %w", err)
	}

	slog.Info("Attendance request created", "request_id", created.ID, "user_id", created.UserID, "type", created.RequestType)
	s.dispatcher.Dispatch(ctx, newEvent(notification.EventRequestCreated, created))

	return attendancerequest.NewAttendanceRequestResponse(created), nil
}

// GetRequest implements attendancerequest.AttendanceRequestService.
func (s *AttendanceRequestServiceImpl) GetRequest(ctx context.Context, id string, callerID string, callerIsAdmin bool) (attendancerequest.AttendanceRequestResponse, error) {
	req, err := s.AttendanceRequestRepository.GetByID(ctx, id)
	if err != nil {
		return attendancerequest.AttendanceRequestResponse{}, fmt.Errorf("failed to get attendance request: %w", err)
	}
	if !callerIsAdmin && req.UserID != callerID {
		return attendancerequest.AttendanceRequestResponse{}, attendancerequest.ErrRequestNotOwned
	}
	return attendancerequest.NewAttendanceRequestResponse(req), nil
}

// ListMyRequests implements attendancerequest.AttendanceRequestService.
func (s *AttendanceRequestServiceImpl) ListMyRequests(ctx context.Context, userID string, filter attendancerequest.ListFilter) ([]attendancerequest.AttendanceRequestResponse, error) {
	filter.UserID = &userID
	return s.ListRequests(ctx, filter)
}

// ListRequests implements attendancerequest.AttendanceRequestService.
func (s *AttendanceRequestServiceImpl) ListRequests(ctx context.Context, filter attendancerequest.ListFilter) ([]attendancerequest.AttendanceRequestResponse, error) {
	requests, err := s.AttendanceRequestRepository.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance requests: %w", err)
	}

	resp := make([]attendancerequest.AttendanceRequestResponse, 0, len(requests))
	for _, r := range requests {
		resp = append(resp, attendancerequest.NewAttendanceRequestResponse(r))
	}
	return resp, nil
}

// UpdateRequest implements attendancerequest.AttendanceRequestService.
func (s *AttendanceRequestServiceImpl) UpdateRequest(ctx context.Context, req attendancerequest.UpdateAttendanceRequest) (attendancerequest.AttendanceRequestResponse, error) {
	var updated attendancerequest.AttendanceRequest
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.AttendanceRequestRepository.GetByIDForUpdate(ctx, req.ID)
		if err != nil {
			return fmt.Errorf("failed to get attendance request: %w", err)
		}
		if current.UserID != req.UserID {
			return attendancerequest.ErrRequestNotOwned
		}
		if !current.IsPending() && req.TouchesSchedule() {
			return attendancerequest.ErrRequestLocked
		}

		next, err := req.Apply(current)
		if err != nil {
			return err
		}
		if err := s.ensureProject(ctx, req.ProjectID); err != nil {
			return err
		}

		updated, err = s.AttendanceRequestRepository.Update(ctx, next)
		if err != nil {
			return fmt.Errorf("failed to update attendance request: %w", err)
		}
		return nil
	})
	if err != nil {
		return attendancerequest.AttendanceRequestResponse{}, err
	}

	return attendancerequest.NewAttendanceRequestResponse(updated), nil
}

// WithdrawRequest implements attendancerequest.AttendanceRequestService.
func (s *AttendanceRequestServiceImpl) WithdrawRequest(ctx context.Context, id string, userID string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.AttendanceRequestRepository.GetByIDForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get attendance request: %w", err)
		}
		if current.UserID != userID {
			return attendancerequest.ErrRequestNotOwned
		}
		if !current.IsPending() {
			return attendancerequest.ErrRequestAlreadyDecided
		}

		if err := s.AttendanceRequestRepository.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete attendance request: %w", err)
		}
		slog.Info("Attendance request withdrawn", "request_id", id, "user_id", userID)
		return nil
	})
}

// Decide implements attendancerequest.AttendanceRequestService. The audit
// record, the status change and the daily attendance rows commit together.
func (s *AttendanceRequestServiceImpl) Decide(ctx context.Context, req attendancerequest.DecideRequest) (attendancerequest.DecisionResponse, error) {
	if err := req.Validate(); err != nil {
		return attendancerequest.DecisionResponse{}, err
	}
	now := s.now().UTC()

	var (
		decided  attendancerequest.AttendanceRequest
		approval attendancerequest.Approval
		days     int
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.AttendanceRequestRepository.GetByIDForUpdate(ctx, req.RequestID)
		if err != nil {
			return fmt.Errorf("failed to get attendance request: %w", err)
		}
		if !current.Status.CanTransitionTo(req.Decision) {
			return attendancerequest.ErrRequestAlreadyDecided
		}

		approval, err = s.AttendanceRequestRepository.CreateApproval(ctx, attendancerequest.Approval{
			RequestID:  current.ID,
			ApproverID: req.ApproverID,
			Decision:   req.Decision,
			Comment:    req.Comment,
			DecidedAt:  now,
		})
		if err != nil {
			return fmt.Errorf("failed to record approval: %w", err)
		}

		current.Status = req.Decision
		current.ReviewedBy = &req.ApproverID
		current.ReviewedAt = &now
		current.ReviewComment = req.Comment
		decided, err = s.AttendanceRequestRepository.Update(ctx, current)
		if err != nil {
			return fmt.Errorf("failed to update attendance request: %w", err)
		}

		days, err = s.applyDecision(ctx, decided)
		return err
	})
	if err != nil {
		return attendancerequest.DecisionResponse{}, err
	}

	metrics.RequestDecisions.WithLabelValues(string(decided.Status)).Inc()
	slog.Info("Attendance request decided", "request_id", decided.ID, "decision", decided.Status, "approver_id", req.ApproverID, "days_recorded", days)

	event := newEvent(notification.EventRequestDecided, decided)
	event.Decision = string(decided.Status)
	event.ApproverID = req.ApproverID
	event.Comment = req.Comment
	event.OccurredAt = now
	s.dispatcher.Dispatch(ctx, event)

	return attendancerequest.DecisionResponse{
		Request:      attendancerequest.NewAttendanceRequestResponse(decided),
		Approval:     attendancerequest.NewApprovalResponse(approval),
		DaysRecorded: days,
	}, nil
}

// applyDecision writes one daily attendance row per requested date for an
// approved request whose type affects attendance.
func (s *AttendanceRequestServiceImpl) applyDecision(ctx context.Context, req attendancerequest.AttendanceRequest) (int, error) {
	if req.Status != attendancerequest.StatusApproved || req.ProjectID == nil {
		return 0, nil
	}
	status, ok := req.RequestType.AttendanceEffect()
	if !ok {
		return 0, nil
	}

	notes := decisionNotes(req)
	days := 0
	for _, date := range req.Dates() {
		key := dailyattendance.Key{UserID: req.UserID, ProjectID: *req.ProjectID, Date: date}
		if err := s.attendance.ApplyApprovedRequest(ctx, key, status, req.ID, &notes); err != nil {
			return days, fmt.Errorf("failed to apply request to %s: %w", date.Format(validator.DateLayout), err)
		}
		days++
	}
	return days, nil
}

func decisionNotes(req attendancerequest.AttendanceRequest) string {
	notes := fmt.Sprintf("Approved %s request", req.RequestType)
	if req.ReviewComment != nil && *req.ReviewComment != "" {
		notes += ": " + *req.ReviewComment
	}
	return notes
}

// ListApprovals implements attendancerequest.AttendanceRequestService.
func (s *AttendanceRequestServiceImpl) ListApprovals(ctx context.Context, filter attendancerequest.ApprovalFilter) ([]attendancerequest.ApprovalResponse, error) {
	approvals, err := s.AttendanceRequestRepository.ListApprovals(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}

	resp := make([]attendancerequest.ApprovalResponse, 0, len(approvals))
	for _, a := range approvals {
		resp = append(resp, attendancerequest.NewApprovalResponse(a))
	}
	return resp, nil
}

func newEvent(eventType notification.EventType, req attendancerequest.AttendanceRequest) notification.Event {
	event := notification.Event{
		Type:        eventType,
		RequestID:   req.ID,
		RequesterID: req.UserID,
		ProjectID:   req.ProjectID,
		RequestType: string(req.RequestType),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		OccurredAt:  req.RequestedAt,
	}
	if req.Reason != nil {
		event.Reason = *req.Reason
	}
	return event
}

func (s *AttendanceRequestServiceImpl) ensureProject(ctx context.Context, projectID *string) error {
	if projectID == nil {
		return nil
	}
	exists, err := s.projects.Exists(ctx, *projectID)
	if err != nil {
		return fmt.Errorf("failed to check project: %w", err)
	}
	if !exists {
		return project.ErrProjectNotFound
	}
	return nil
}

func NewAttendanceRequestService(
	tx database.Transactor,
	requestRepo attendancerequest.AttendanceRequestRepository,
	projectRepo project.ProjectRepository,
	attendance attendanceApplier,
	dispatcher eventDispatcher,
) attendancerequest.AttendanceRequestService {
	return &AttendanceRequestServiceImpl{
		tx:                          tx,
		AttendanceRequestRepository: requestRepo,
		projects:                    projectRepo,
		attendance:                  attendance,
		dispatcher:                  dispatcher,
		now:                         time.Now,
	}
}
