package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/worktime-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/worktime-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into dst and answers 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		slog.Error(op+" decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return false
	}
	return true
}

// callerOrUnauthorized returns the authenticated caller.
func callerOrUnauthorized(w http.ResponseWriter, r *http.Request) (middleware.Caller, bool) {
	caller, ok := middleware.CallerFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
	}
	return caller, ok
}

func optionalQuery(r *http.Request, key string) *string {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	return &v
}

// dateRangeQuery parses start_date and end_date; both are optional.
func dateRangeQuery(r *http.Request) (validator.DateRange, error) {
	q := r.URL.Query()
	return validator.ParseDateRange(q.Get("start_date"), q.Get("end_date"))
}

func optionalUUIDQuery(r *http.Request, key string, errs *validator.ValidationErrors) *string {
	v := optionalQuery(r, key)
	if v != nil && !validator.IsValidUUID(*v) {
		errs.Add(key, key+" must be a valid UUID")
	}
	return v
}
