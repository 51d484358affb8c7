package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
)

type staleSessionCloser interface {
	AutoCloseStaleSessions(ctx context.Context, maxAge time.Duration) (int, error)
}

type attendanceReconciler interface {
	ReconcileDate(ctx context.Context, date time.Time) (int, error)
}

type metricsCalculator interface {
	CalculateForDate(ctx context.Context, date time.Time) (int, error)
}

// ReconciliationJobs closes forgotten sessions and settles the previous
// day's attendance and metrics.
type ReconciliationJobs struct {
	sessions   staleSessionCloser
	attendance attendanceReconciler
	metrics    metricsCalculator

	staleAfter time.Duration
	runHour    int
	loc        *time.Location
	now        func() time.Time
}

func NewReconciliationJobs(
	sessions staleSessionCloser,
	attendance attendanceReconciler,
	metricsCalc metricsCalculator,
	staleAfter time.Duration,
	runHour int,
	loc *time.Location,
) *ReconciliationJobs {
	return &ReconciliationJobs{
		sessions:   sessions,
		attendance: attendance,
		metrics:    metricsCalc,
		staleAfter: staleAfter,
		runHour:    runHour,
		loc:        loc,
		now:        time.Now,
	}
}

func (j *ReconciliationJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("auto_close_stale_sessions", 1*time.Hour, j.AutoCloseStaleSessions)
	scheduler.AddJob("settle_previous_day", 1*time.Hour, j.SettlePreviousDay)
}

func (j *ReconciliationJobs) AutoCloseStaleSessions(ctx context.Context) error {
	closed, err := j.sessions.AutoCloseStaleSessions(ctx, j.staleAfter)
	if err != nil {
		return fmt.Errorf("failed to auto-close stale sessions: %w", err)
	}
	if closed > 0 {
		slog.Info("Cron: auto-closed stale sessions", "count", closed, "older_than", j.staleAfter)
	}
	return nil
}

// SettlePreviousDay reconciles yesterday's attendance then recalculates its
// metrics. Runs only during the configured hour.
func (j *ReconciliationJobs) SettlePreviousDay(ctx context.Context) error {
	now := j.now()
	if now.In(j.loc).Hour() != j.runHour {
		return nil
	}
	return j.Settle(ctx, validator.DateOf(now, j.loc).AddDate(0, 0, -1))
}

// Settle runs both reconciliation steps for date regardless of the hour.
func (j *ReconciliationJobs) Settle(ctx context.Context, date time.Time) error {
	slog.Info("Cron: settling day", "date", date.Format(validator.DateLayout))

	var errs []error

	rows, err := j.attendance.ReconcileDate(ctx, date)
	if err != nil {
		errs = append(errs, fmt.Errorf("reconcile attendance: %w", err))
	} else {
		slog.Info("Cron: daily attendance reconciled", "date", date.Format(validator.DateLayout), "rows_changed", rows)
	}

	projects, err := j.metrics.CalculateForDate(ctx, date)
	if err != nil {
		errs = append(errs, fmt.Errorf("calculate metrics: %w", err))
	} else {
		slog.Info("Cron: daily metrics calculated", "date", date.Format(validator.DateLayout), "projects", projects)
	}

	return errors.Join(errs...)
}
