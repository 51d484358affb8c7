package http

import (
	"net/http"
	"time"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/dailyattendance"
	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/worktime-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
)

type DailyAttendanceHandler interface {
	ResolveStatus(w http.ResponseWriter, r *http.Request)

	// Admin
	List(w http.ResponseWriter, r *http.Request)
	SetManual(w http.ResponseWriter, r *http.Request)
	Sync(w http.ResponseWriter, r *http.Request)
}

type DailyAttendanceHandlerImpl struct {
	dailyAttendanceService dailyattendance.DailyAttendanceService
	loc                    *time.Location
	now                    func() time.Time
}

// ResolveStatus implements DailyAttendanceHandler. user_id defaults to the
// caller and date to today; other users need an admin token.
func (h *DailyAttendanceHandlerImpl) ResolveStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	var errs validator.ValidationErrors
	userID := caller.UserID
	if v := optionalUUIDQuery(r, "user_id", &errs); v != nil {
		userID = *v
	}
	date := validator.DateOf(h.now(), h.loc)
	if v := optionalQuery(r, "date"); v != nil {
		d, ok := validator.IsValidDate(*v)
		if !ok {
			errs.Add("date", "date must be in YYYY-MM-DD format")
		}
		date = d
	}
	if err := errs.Err(); err != nil {
		response.HandleError(w, err)
		return
	}
	if userID != caller.UserID && !caller.IsAdmin() {
		response.HandleError(w, user.ErrAdminPrivilegeRequired)
		return
	}

	status, err := h.dailyAttendanceService.ResolveStatus(r.Context(), userID, date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, status)
}

// List implements DailyAttendanceHandler.
func (h *DailyAttendanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	var errs validator.ValidationErrors
	filter := dailyattendance.ListFilter{
		UserID:    optionalUUIDQuery(r, "user_id", &errs),
		ProjectID: optionalUUIDQuery(r, "project_id", &errs),
	}
	dates, err := dateRangeQuery(r)
	if rangeErrs, ok := err.(validator.ValidationErrors); ok {
		errs = append(errs, rangeErrs...)
	}
	filter.Dates = dates
	if err := errs.Err(); err != nil {
		response.HandleError(w, err)
		return
	}

	rows, err := h.dailyAttendanceService.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.List(w, rows, len(rows))
}

// SetManual implements DailyAttendanceHandler. Rows written here are MANUAL
// unless the body says otherwise.
func (h *DailyAttendanceHandlerImpl) SetManual(w http.ResponseWriter, r *http.Request) {
	var req dailyattendance.UpsertRequest
	if !decodeJSON(w, r, &req, "SetManual") {
		return
	}

	row, err := h.dailyAttendanceService.Upsert(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Daily attendance saved successfully", row)
}

// Sync implements DailyAttendanceHandler.
func (h *DailyAttendanceHandlerImpl) Sync(w http.ResponseWriter, r *http.Request) {
	var req dailyattendance.SyncRequest
	if !decodeJSON(w, r, &req, "SyncDailyAttendance") {
		return
	}

	key, err := req.Validate()
	if err != nil {
		response.HandleError(w, err)
		return
	}

	row, err := h.dailyAttendanceService.SyncFromSessions(r.Context(), key)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Daily attendance synced successfully", row)
}

func NewDailyAttendanceHandler(dailyAttendanceService dailyattendance.DailyAttendanceService, loc *time.Location) DailyAttendanceHandler {
	return &DailyAttendanceHandlerImpl{
		dailyAttendanceService: dailyAttendanceService,
		loc:                    loc,
		now:                    time.Now,
	}
}
