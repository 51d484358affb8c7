package worksession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/dailyattendance"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/metric"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/project"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/worksession"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
)

// attendanceSyncer refreshes the daily attendance row a session belongs to.
type attendanceSyncer interface {
	SyncFromSessions(ctx context.Context, key dailyattendance.Key) (dailyattendance.DailyAttendanceResponse, error)
}

type metricsCalculator interface {
	CalculateDailyMetrics(ctx context.Context, projectID string, date time.Time) (metric.CalculationResponse, error)
}

type WorkSessionServiceImpl struct {
	tx database.Transactor
	worksession.WorkSessionRepository
	projects   project.ProjectRepository
	attendance attendanceSyncer
	calculator metricsCalculator

	loc *time.Location
	now func() time.Time
}

// ClockIn implements worksession.WorkSessionService.
func (s *WorkSessionServiceImpl) ClockIn(ctx context.Context, req worksession.ClockInRequest) (worksession.WorkSessionResponse, error) {
	if err := req.Validate(); err != nil {
		return worksession.WorkSessionResponse{}, err
	}
	now := s.now().UTC()

	var created worksession.WorkSession
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		exists, err := s.projects.Exists(ctx, req.ProjectID)
		if err != nil {
			return fmt.Errorf("failed to check project: %w", err)
		}
		if !exists {
			return project.ErrProjectNotFound
		}

		open, err := s.WorkSessionRepository.GetOpenByUser(ctx, req.UserID)
		if err != nil {
			return fmt.Errorf("failed to get open session: %w", err)
		}
		if open != nil {
			return worksession.ErrAlreadyClockedIn
		}

		created, err = s.WorkSessionRepository.Create(ctx, worksession.WorkSession{
			UserID:    req.UserID,
			ProjectID: req.ProjectID,
			WorkRole:  req.WorkRole,
			ClockInAt: now,
			SheetDate: validator.DateOf(now, s.loc),
			Status:    worksession.StatusPending,
		})
		if err != nil {
			return fmt.Errorf("failed to create work session: %w", err)
		}

		return s.sync(ctx, created)
	})
	if err != nil {
		return worksession.WorkSessionResponse{}, err
	}

	metrics.ClockIns.Inc()
	slog.Info("Clocked in", "user_id", created.UserID, "project_id", created.ProjectID, "session_id", created.ID)
	return worksession.NewWorkSessionResponse(created), nil
}

// ClockOut implements worksession.WorkSessionService.
func (s *WorkSessionServiceImpl) ClockOut(ctx context.Context, req worksession.ClockOutRequest) (worksession.WorkSessionResponse, error) {
	if err := req.Validate(); err != nil {
		return worksession.WorkSessionResponse{}, err
	}
	now := s.now().UTC()

	var closed worksession.WorkSession
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		open, err := s.WorkSessionRepository.GetOpenByUser(ctx, req.UserID)
		if err != nil {
			return fmt.Errorf("failed to get open session: %w", err)
		}
		if open == nil {
			return worksession.ErrNoOpenSession
		}

		closed, err = s.WorkSessionRepository.Close(ctx, open.ID, worksession.CloseParams{
			ClockOutAt:     now,
			TasksCompleted: req.TasksCompleted,
			Notes:          req.Notes,
			MinutesWorked:  worksession.MinutesBetween(open.ClockInAt, now),
		})
		if err != nil {
			return fmt.Errorf("failed to close work session: %w", err)
		}

		return s.sync(ctx, closed)
	})
	if err != nil {
		return worksession.WorkSessionResponse{}, err
	}

	metrics.ClockOuts.Inc()
	slog.Info("Clocked out", "user_id", closed.UserID, "session_id", closed.ID, "tasks_completed", closed.TasksCompleted)
	return worksession.NewWorkSessionResponse(closed), nil
}

// GetCurrentSession implements worksession.WorkSessionService.
func (s *WorkSessionServiceImpl) GetCurrentSession(ctx context.Context, userID string) (*worksession.WorkSessionResponse, error) {
	open, err := s.WorkSessionRepository.GetOpenByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get open session: %w", err)
	}
	if open == nil {
		return nil, nil
	}
	resp := worksession.NewWorkSessionResponse(*open)
	return &resp, nil
}

// GetHistory implements worksession.WorkSessionService.
func (s *WorkSessionServiceImpl) GetHistory(ctx context.Context, userID string, sheetDates validator.DateRange) ([]worksession.WorkSessionResponse, error) {
	sessions, err := s.WorkSessionRepository.ListByUser(ctx, userID, sheetDates)
	if err != nil {
		return nil, fmt.Errorf("failed to list work sessions: %w", err)
	}

	resp := make([]worksession.WorkSessionResponse, 0, len(sessions))
	for _, ws := range sessions {
		resp = append(resp, worksession.NewWorkSessionResponse(ws))
	}
	return resp, nil
}

// ReviewSession implements worksession.WorkSessionService.
func (s *WorkSessionServiceImpl) ReviewSession(ctx context.Context, req worksession.ReviewSessionRequest) (worksession.WorkSessionResponse, error) {
	if err := req.Validate(); err != nil {
		return worksession.WorkSessionResponse{}, err
	}
	now := s.now().UTC()

	var reviewed worksession.WorkSession
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ws, err := s.WorkSessionRepository.GetByIDForUpdate(ctx, req.SessionID)
		if err != nil {
			return fmt.Errorf("failed to get work session: %w", err)
		}
		if !ws.Status.CanTransitionTo(req.Decision) {
			return worksession.ErrSessionAlreadyReviewed
		}

		ws.Status = req.Decision
		ws.ApproverID = &req.ApproverID
		ws.ApprovalComment = req.Comment
		ws.ApprovedAt = &now
		if err := s.WorkSessionRepository.UpdateReview(ctx, ws); err != nil {
			return fmt.Errorf("failed to update work session review: %w", err)
		}
		reviewed = ws
		return nil
	})
	if err != nil {
		return worksession.WorkSessionResponse{}, err
	}

	if reviewed.Status == worksession.StatusApproved && !reviewed.IsOpen() && s.calculator != nil {
		if _, err := s.calculator.CalculateDailyMetrics(ctx, reviewed.ProjectID, reviewed.SheetDate); err != nil {
			slog.Warn("Failed to recalculate metrics after session review", "session_id", reviewed.ID, "error", err)
		}
	}

	return worksession.NewWorkSessionResponse(reviewed), nil
}

// AutoCloseStaleSessions implements worksession.WorkSessionService.
func (s *WorkSessionServiceImpl) AutoCloseStaleSessions(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-maxAge)
	stale, err := s.WorkSessionRepository.ListOpenStartedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale sessions: %w", err)
	}

	var (
		closed int
		errs   []error
	)
	for _, ws := range stale {
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			clockOut := ws.ClockInAt.Add(maxAge)
			done, err := s.WorkSessionRepository.Close(ctx, ws.ID, worksession.CloseParams{
				ClockOutAt:     clockOut,
				TasksCompleted: ws.TasksCompleted,
				Notes:          autoCloseNote(ws.Notes, maxAge),
				MinutesWorked:  worksession.MinutesBetween(ws.ClockInAt, clockOut),
			})
			if err != nil {
				return err
			}
			return s.sync(ctx, done)
		})
		if errors.Is(err, worksession.ErrNoOpenSession) {
			continue
		}
		if err != nil {
			slog.Error("Failed to auto-close session", "session_id", ws.ID, "user_id", ws.UserID, "error", err)
			errs = append(errs, fmt.Errorf("session %s: %w", ws.ID, err))
			continue
		}
		closed++
		metrics.AutoClosedSessions.Inc()
	}

	if closed > 0 {
		slog.Info("Auto-closed stale sessions", "count", closed, "max_age", maxAge.String())
	}
	return closed, errors.Join(errs...)
}

func (s *WorkSessionServiceImpl) sync(ctx context.Context, ws worksession.WorkSession) error {
	key := dailyattendance.Key{UserID: ws.UserID, ProjectID: ws.ProjectID, Date: ws.SheetDate}
	if _, err := s.attendance.SyncFromSessions(ctx, key); err != nil {
		return fmt.Errorf("failed to sync daily attendance: %w", err)
	}
	return nil
}

func autoCloseNote(existing *string, maxAge time.Duration) *string {
	note := fmt.Sprintf("Automatically clocked out after %s without clock-out", maxAge)
	if existing != nil && *existing != "" {
		note = *existing + "\n" + note
	}
	return &note
}

func NewWorkSessionService(
	tx database.Transactor,
	workSessionRepo worksession.WorkSessionRepository,
	projectRepo project.ProjectRepository,
	attendance attendanceSyncer,
	calculator metricsCalculator,
	loc *time.Location,
) worksession.WorkSessionService {
	if loc == nil {
		loc = time.UTC
	}
	return &WorkSessionServiceImpl{
		tx:                    tx,
		WorkSessionRepository: workSessionRepo,
		projects:              projectRepo,
		attendance:            attendance,
		calculator:            calculator,
		loc:                   loc,
		now:                   time.Now,
	}
}
