package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/config"
	appHTTP "github.com/cmlabs-hris/worktime-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/email"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/i18n"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/observability"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/worktime-backend-go/internal/repository/postgresql"
	attendanceRequestService "github.com/cmlabs-hris/worktime-backend-go/internal/service/attendancerequest"
	dailyAttendanceService "github.com/cmlabs-hris/worktime-backend-go/internal/service/dailyattendance"
	metricService "github.com/cmlabs-hris/worktime-backend-go/internal/service/metric"
	notificationService "github.com/cmlabs-hris/worktime-backend-go/internal/service/notification"
	workSessionService "github.com/cmlabs-hris/worktime-backend-go/internal/service/worksession"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})).With(
		slog.String("app", "worktime-cmlabs"),
		slog.String("env", cfg.App.Env),
	))

	flushSentry, err := observability.InitSentry(cfg.Sentry.DSN, cfg.App.Env, cfg.App.Release)
	if err != nil {
		slog.Warn("Sentry disabled", "error", err)
	}
	defer flushSentry()

	if err := i18n.Init(cfg.App.Locale); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := database.Migrate(db); err != nil {
			return err
		}
		slog.Info("Database migrations applied")
	}

	loc := cfg.Location()

	// Repositories
	tx := postgresql.NewTransactor(db)
	userRepo := postgresql.NewUserRepository(db)
	projectRepo := postgresql.NewProjectRepository(db)
	workSessionRepo := postgresql.NewWorkSessionRepository(db)
	sessionReader := postgresql.NewSessionReader(db)
	dailyAttendanceRepo := postgresql.NewDailyAttendanceRepository(db)
	attendanceRequestRepo := postgresql.NewAttendanceRequestRepository(db)
	metricRepo := postgresql.NewMetricRepository(db)

	// Notifications
	mailer, err := email.NewEmailService(cfg.SMTP)
	if err != nil {
		return fmt.Errorf("init email: %w", err)
	}
	hub := sse.NewHub()
	defer hub.Close()
	dispatcher := notificationService.NewNotificationService(userRepo, projectRepo, mailer, hub, notificationService.Config{
		WorkerCount: cfg.Notification.WorkerCount,
		QueueSize:   cfg.Notification.QueueSize,
		Locale:      cfg.App.Locale,
	})
	defer dispatcher.Stop()

	// Services
	dailyAttendanceSvc := dailyAttendanceService.NewDailyAttendanceService(tx, dailyAttendanceRepo, sessionReader, userRepo)
	metricSvc := metricService.NewMetricService(tx, metricRepo, projectRepo)
	workSessionSvc := workSessionService.NewWorkSessionService(tx, workSessionRepo, projectRepo, dailyAttendanceSvc, metricSvc, loc)
	attendanceRequestSvc := attendanceRequestService.NewAttendanceRequestService(tx, attendanceRequestRepo, projectRepo, dailyAttendanceSvc, dispatcher)

	JWTService, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	if err != nil {
		return err
	}

	// Nightly reconciliation
	if cfg.Jobs.Enabled {
		scheduler := cron.NewScheduler()
		cron.NewReconciliationJobs(
			workSessionSvc,
			dailyAttendanceSvc,
			metricSvc,
			time.Duration(cfg.Jobs.StaleSessionHours)*time.Hour,
			cfg.Jobs.RunHour,
			loc,
		).RegisterJobs(scheduler)
		scheduler.Start()
		defer scheduler.Stop()
	}

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			AllowedOrigins: cfg.App.AllowedOrigins,
			Env:            cfg.App.Env,
			Release:        cfg.App.Release,
			LogLevel:       cfg.SlogLevel(),
		},
		JWTService,
		db,
		appHTTP.Handlers{
			WorkSession:       appHTTP.NewWorkSessionHandler(workSessionSvc),
			AttendanceRequest: appHTTP.NewAttendanceRequestHandler(attendanceRequestSvc),
			DailyAttendance:   appHTTP.NewDailyAttendanceHandler(dailyAttendanceSvc, loc),
			Metric:            appHTTP.NewMetricHandler(metricSvc),
			Notification:      appHTTP.NewNotificationHandler(dispatcher, JWTService),
		},
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "timezone", loc.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Open SSE streams end when the hub closes
	hub.Close()
	return server.Shutdown(shutdownCtx)
}
