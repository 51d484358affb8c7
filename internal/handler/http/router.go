package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/worktime-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	AllowedOrigins []string
	Env            string
	Release        string
	LogLevel       slog.Level
}

type Handlers struct {
	WorkSession       WorkSessionHandler
	AttendanceRequest AttendanceRequestHandler
	DailyAttendance   DailyAttendanceHandler
	Metric            MetricHandler
	Notification      NotificationHandler
}

func NewRouter(cfg RouterConfig, JWTService jwt.Service, db database.Pinger, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(cfg.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "worktime-cmlabs"),
		slog.String("version", cfg.Release),
		slog.String("env", cfg.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  cfg.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", Health(db))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// SSE stream authenticates with its own short-lived token
		r.Get("/notifications/stream", h.Notification.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
			r.Use(chiMiddleware.AllowContentType("application/json"))

			r.Get("/notifications/stream-token", h.Notification.GetSSEToken)

			r.Route("/time", func(r chi.Router) {
				r.Post("/clock-in", h.WorkSession.ClockIn)
				r.Put("/clock-out", h.WorkSession.ClockOut)
				r.Get("/current", h.WorkSession.Current)
				r.Get("/history", h.WorkSession.History)
			})

			r.Route("/attendance-requests", func(r chi.Router) {
				r.Post("/", h.AttendanceRequest.CreateRequest)
				r.Get("/", h.AttendanceRequest.ListMyRequests)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.AttendanceRequest.GetRequest)
					r.Put("/", h.AttendanceRequest.UpdateRequest)
					r.Delete("/", h.AttendanceRequest.WithdrawRequest)
				})
			})

			r.Get("/attendance-daily/status", h.DailyAttendance.ResolveStatus)

			// Admin only
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.AdminOnly)

				r.Put("/time/sessions/{id}/review", h.WorkSession.Review)

				r.Get("/attendance-requests", h.AttendanceRequest.ListRequests)
				r.Route("/attendance-request-approvals", func(r chi.Router) {
					r.Post("/", h.AttendanceRequest.Decide)
					r.Get("/", h.AttendanceRequest.ListApprovals)
				})

				r.Route("/attendance-daily", func(r chi.Router) {
					r.Get("/", h.DailyAttendance.List)
					r.Put("/", h.DailyAttendance.SetManual)
					r.Post("/sync", h.DailyAttendance.Sync)
				})

				r.Route("/metrics", func(r chi.Router) {
					r.Post("/calculate", h.Metric.Calculate)
					r.Get("/projects/{id}", h.Metric.GetProjectMetrics)
					r.Post("/user-daily", h.Metric.UpsertUserDaily)
					r.Get("/user-daily", h.Metric.ListUserDaily)
					r.Get("/history", h.Metric.History)
				})
			})
		})
	})
	return r
}
