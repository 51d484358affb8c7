package worksession

import (
	"context"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// CloseParams carries the values written when a session is clocked out.
type CloseParams struct {
	ClockOutAt     time.Time
	TasksCompleted int
	Notes          *string
	MinutesWorked  decimal.Decimal
}

type WorkSessionRepository interface {
	// Create inserts a new open session. A second open session for the same
	// user is rejected with ErrAlreadyClockedIn.
	Create(ctx context.Context, session WorkSession) (WorkSession, error)

	GetByID(ctx context.Context, id string) (WorkSession, error)

	// GetByIDForUpdate locks the row for the surrounding transaction.
	GetByIDForUpdate(ctx context.Context, id string) (WorkSession, error)

	// GetOpenByUser returns nil when the user has no open session.
	GetOpenByUser(ctx context.Context, userID string) (*WorkSession, error)

	// Close sets the clock-out fields on an open session. Returns
	// ErrNoOpenSession if the session was closed concurrently.
	Close(ctx context.Context, id string, params CloseParams) (WorkSession, error)

	// ListByUser returns sessions ordered by clock_in_at descending,
	// filtered on sheet_date when the range has bounds.
	ListByUser(ctx context.Context, userID string, sheetDates validator.DateRange) ([]WorkSession, error)

	UpdateReview(ctx context.Context, session WorkSession) error

	// ListOpenStartedBefore returns open sessions clocked in before cutoff.
	ListOpenStartedBefore(ctx context.Context, cutoff time.Time) ([]WorkSession, error)
}
