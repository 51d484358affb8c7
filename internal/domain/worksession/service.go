package worksession

import (
	"context"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
)

// WorkSessionService defines the session clock engine
type WorkSessionService interface {
	// ClockIn opens a session; fails with ErrAlreadyClockedIn if one is open anywhere
	ClockIn(ctx context.Context, req ClockInRequest) (WorkSessionResponse, error)

	// ClockOut closes the caller's open session; fails with ErrNoOpenSession otherwise
	ClockOut(ctx context.Context, req ClockOutRequest) (WorkSessionResponse, error)

	// GetCurrentSession returns the open session or nil
	GetCurrentSession(ctx context.Context, userID string) (*WorkSessionResponse, error)

	GetHistory(ctx context.Context, userID string, sheetDates validator.DateRange) ([]WorkSessionResponse, error)

	// ReviewSession records a manager's timesheet decision
	ReviewSession(ctx context.Context, req ReviewSessionRequest) (WorkSessionResponse, error)

	// AutoCloseStaleSessions closes sessions left open longer than maxAge
	AutoCloseStaleSessions(ctx context.Context, maxAge time.Duration) (int, error)
}
