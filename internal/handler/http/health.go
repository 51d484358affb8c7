package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/metrics"
)

const healthTimeout = 2 * time.Second

// Health answers 200 while the database responds to a ping.
func Health(db database.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		start := time.Now()
		err := db.Ping(ctx)
		metrics.ObserveDBPing(time.Since(start))
		if err != nil {
			slog.Warn("Health check failed", "error", err)
			response.ServiceUnavailable(w, "Database unavailable")
			return
		}

		response.Success(w, map[string]string{"status": "ok"})
	}
}
