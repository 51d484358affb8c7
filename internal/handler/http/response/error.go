package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/attendancerequest"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/metric"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/project"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/worksession"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/observability"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth
	case errors.Is(err, jwt.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, user.ErrAdminPrivilegeRequired):
		Forbidden(w, "Admin privilege required")
	case errors.Is(err, user.ErrUserNotFound):
		NotFound(w, "User not found")
	case errors.Is(err, project.ErrProjectNotFound):
		NotFound(w, "Project not found")

	// Work session domain errors
	case errors.Is(err, worksession.ErrAlreadyClockedIn):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, worksession.ErrNoOpenSession):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, worksession.ErrSessionNotFound):
		NotFound(w, "Work session not found")
	case errors.Is(err, worksession.ErrSessionAlreadyReviewed):
		BadRequest(w, err.Error(), nil)

	// Attendance request domain errors
	case errors.Is(err, attendancerequest.ErrRequestNotFound):
		NotFound(w, "Attendance request not found")
	case errors.Is(err, attendancerequest.ErrRequestAlreadyDecided):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendancerequest.ErrRequestLocked):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendancerequest.ErrRequestNotOwned):
		Forbidden(w, "Attendance request belongs to another user")

	// Metric domain errors
	case errors.Is(err, metric.ErrProjectHistoryNotFound):
		NotFound(w, "Project history not found")

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		observability.CaptureErr(err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
