package dailyattendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/dailyattendance"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
)

type DailyAttendanceServiceImpl struct {
	tx database.Transactor
	dailyattendance.DailyAttendanceRepository
	sessions dailyattendance.SessionReader
	users    user.UserRepository
}

// Upsert implements dailyattendance.DailyAttendanceService.
func (s *DailyAttendanceServiceImpl) Upsert(ctx context.Context, req dailyattendance.UpsertRequest) (dailyattendance.DailyAttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return dailyattendance.DailyAttendanceResponse{}, err
	}
	row := req.ToEntity()

	var stored dailyattendance.DailyAttendance
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.DailyAttendanceRepository.GetForUpdate(ctx, row.Key())
		if err != nil {
			return fmt.Errorf("failed to get daily attendance: %w", err)
		}
		if existing != nil {
			if existing.Source == dailyattendance.SourceManual && row.Source == dailyattendance.SourceAuto {
				stored = *existing
				return nil
			}
			if dailyattendance.SameContent(*existing, row) {
				stored = *existing
				return nil
			}
		}

		stored, _, err = s.DailyAttendanceRepository.Upsert(ctx, row)
		if err != nil {
			return fmt.Errorf("failed to upsert daily attendance: %w", err)
		}
		return nil
	})
	if err != nil {
		return dailyattendance.DailyAttendanceResponse{}, err
	}

	return dailyattendance.NewDailyAttendanceResponse(stored), nil
}

// SyncFromSessions implements dailyattendance.DailyAttendanceService.
func (s *DailyAttendanceServiceImpl) SyncFromSessions(ctx context.Context, key dailyattendance.Key) (dailyattendance.DailyAttendanceResponse, error) {
	var stored dailyattendance.DailyAttendance
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.DailyAttendanceRepository.GetForUpdate(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to get daily attendance: %w", err)
		}

		sum, err := s.sessions.SummarizeDay(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to summarize sessions: %w", err)
		}

		weekOff := false
		if sum.Count == 0 {
			if weekOff, err = s.isWeekOff(ctx, key.UserID, key.Date); err != nil {
				return err
			}
		}

		next, write := dailyattendance.Derive(key, existing, sum, weekOff)
		if !write {
			stored = next
			return nil
		}

		stored, _, err = s.DailyAttendanceRepository.Upsert(ctx, next)
		if err != nil {
			return fmt.Errorf("failed to upsert daily attendance: %w", err)
		}
		return nil
	})
	if err != nil {
		return dailyattendance.DailyAttendanceResponse{}, err
	}

	return dailyattendance.NewDailyAttendanceResponse(stored), nil
}

// ApplyApprovedRequest implements dailyattendance.DailyAttendanceService.
func (s *DailyAttendanceServiceImpl) ApplyApprovedRequest(ctx context.Context, key dailyattendance.Key, status dailyattendance.Status, requestID string, notes *string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.DailyAttendanceRepository.GetForUpdate(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to get daily attendance: %w", err)
		}

		next, write := dailyattendance.ApplyRequest(key, existing, status, requestID, notes)
		if !write {
			if existing != nil && existing.Source == dailyattendance.SourceManual {
				slog.Info("Kept manual attendance row", "user_id", key.UserID, "project_id", key.ProjectID,
					"date", key.Date.Format(validator.DateLayout), "request_id", requestID)
			}
			return nil
		}

		if _, _, err := s.DailyAttendanceRepository.Upsert(ctx, next); err != nil {
			return fmt.Errorf("failed to upsert daily attendance: %w", err)
		}
		return nil
	})
}

// ResolveStatus implements dailyattendance.DailyAttendanceService.
func (s *DailyAttendanceServiceImpl) ResolveStatus(ctx context.Context, userID string, date time.Time) (dailyattendance.StatusResponse, error) {
	rows, err := s.DailyAttendanceRepository.ListByUserAndDate(ctx, userID, date)
	if err != nil {
		return dailyattendance.StatusResponse{}, fmt.Errorf("failed to list daily attendance: %w", err)
	}

	count, err := s.sessions.CountUserSessionsOn(ctx, userID, date)
	if err != nil {
		return dailyattendance.StatusResponse{}, fmt.Errorf("failed to count sessions: %w", err)
	}

	weekOff, err := s.isWeekOff(ctx, userID, date)
	if err != nil {
		return dailyattendance.StatusResponse{}, err
	}

	status, row := dailyattendance.ResolveDay(rows, count, weekOff)
	resp := dailyattendance.StatusResponse{
		UserID: userID,
		Date:   date.Format(validator.DateLayout),
		Status: status,
	}
	if row != nil {
		resp.Materialized = true
		resp.ProjectID = &row.ProjectID
		resp.Source = &row.Source
		resp.RequestID = row.RequestID
	}
	return resp, nil
}

// List implements dailyattendance.DailyAttendanceService.
func (s *DailyAttendanceServiceImpl) List(ctx context.Context, filter dailyattendance.ListFilter) ([]dailyattendance.DailyAttendanceResponse, error) {
	rows, err := s.DailyAttendanceRepository.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily attendance: %w", err)
	}

	resp := make([]dailyattendance.DailyAttendanceResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, dailyattendance.NewDailyAttendanceResponse(row))
	}
	return resp, nil
}

// ReconcileDate implements dailyattendance.DailyAttendanceService. A failure
// for one user is logged and the run continues; all failures are returned
// together.
func (s *DailyAttendanceServiceImpl) ReconcileDate(ctx context.Context, date time.Time) (int, error) {
	users, err := s.users.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active users: %w", err)
	}

	var (
		synced int
		errs   []error
	)
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return synced, err
		}

		projects, err := s.projectsFor(ctx, u.ID, date)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		for _, projectID := range projects {
			key := dailyattendance.Key{UserID: u.ID, ProjectID: projectID, Date: date}
			if _, err := s.SyncFromSessions(ctx, key); err != nil {
				slog.Error("Failed to reconcile daily attendance", "user_id", u.ID, "project_id", projectID,
					"date", date.Format(validator.DateLayout), "error", err)
				errs = append(errs, fmt.Errorf("user %s project %s: %w", u.ID, projectID, err))
				continue
			}
			synced++
		}
	}

	slog.Info("Reconciled daily attendance", "date", date.Format(validator.DateLayout), "users", len(users), "rows", synced)
	return synced, errors.Join(errs...)
}

// projectsFor returns the projects a user worked on that day, or the project
// of their latest session when they did not work at all.
func (s *DailyAttendanceServiceImpl) projectsFor(ctx context.Context, userID string, date time.Time) ([]string, error) {
	projects, err := s.sessions.ProjectsWorkedOn(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects for user %s: %w", userID, err)
	}
	if len(projects) > 0 {
		return projects, nil
	}

	latest, err := s.sessions.LatestProject(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest project for user %s: %w", userID, err)
	}
	if latest == nil {
		return nil, nil
	}
	return []string{*latest}, nil
}

func (s *DailyAttendanceServiceImpl) isWeekOff(ctx context.Context, userID string, date time.Time) (bool, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	return u.IsWeekOff(date), nil
}

func NewDailyAttendanceService(
	tx database.Transactor,
	dailyAttendanceRepo dailyattendance.DailyAttendanceRepository,
	sessions dailyattendance.SessionReader,
	userRepo user.UserRepository,
) dailyattendance.DailyAttendanceService {
	return &DailyAttendanceServiceImpl{
		tx:                        tx,
		DailyAttendanceRepository: dailyAttendanceRepo,
		sessions:                  sessions,
		users:                     userRepo,
	}
}
