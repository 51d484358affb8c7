package http

import (
	"net/http"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/attendancerequest"
	"github.com/cmlabs-hris/worktime-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type AttendanceRequestHandler interface {
	CreateRequest(w http.ResponseWriter, r *http.Request)
	ListMyRequests(w http.ResponseWriter, r *http.Request)
	GetRequest(w http.ResponseWriter, r *http.Request)
	UpdateRequest(w http.ResponseWriter, r *http.Request)
	WithdrawRequest(w http.ResponseWriter, r *http.Request)

	// Admin
	ListRequests(w http.ResponseWriter, r *http.Request)
	Decide(w http.ResponseWriter, r *http.Request)
	ListApprovals(w http.ResponseWriter, r *http.Request)
}

type AttendanceRequestHandlerImpl struct {
	requestService attendancerequest.AttendanceRequestService
}

// CreateRequest implements AttendanceRequestHandler.
func (h *AttendanceRequestHandlerImpl) CreateRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req attendancerequest.CreateAttendanceRequest
	if !decodeJSON(w, r, &req, "CreateRequest") {
		return
	}
	// Owner always comes from the token
	req.UserID = caller.UserID

	created, err := h.requestService.CreateRequest(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Attendance request created successfully", created)
}

// ListMyRequests implements AttendanceRequestHandler.
func (h *AttendanceRequestHandlerImpl) ListMyRequests(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	filter, err := listFilterQuery(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	requests, err := h.requestService.ListMyRequests(r.Context(), caller.UserID, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.List(w, requests, len(requests))
}

// GetRequest implements AttendanceRequestHandler.
func (h *AttendanceRequestHandlerImpl) GetRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	req, err := h.requestService.GetRequest(r.Context(), chi.URLParam(r, "id"), caller.UserID, caller.IsAdmin())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, req)
}

// UpdateRequest implements AttendanceRequestHandler.
func (h *AttendanceRequestHandlerImpl) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req attendancerequest.UpdateAttendanceRequest
	if !decodeJSON(w, r, &req, "UpdateRequest") {
		return
	}
	req.ID = chi.URLParam(r, "id")
	req.UserID = caller.UserID

	updated, err := h.requestService.UpdateRequest(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance request updated successfully", updated)
}

// WithdrawRequest implements AttendanceRequestHandler.
func (h *AttendanceRequestHandlerImpl) WithdrawRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	if err := h.requestService.WithdrawRequest(r.Context(), chi.URLParam(r, "id"), caller.UserID); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance request withdrawn successfully", nil)
}

// ListRequests implements AttendanceRequestHandler.
func (h *AttendanceRequestHandlerImpl) ListRequests(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilterQuery(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	requests, err := h.requestService.ListRequests(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.List(w, requests, len(requests))
}

// Decide implements AttendanceRequestHandler.
func (h *AttendanceRequestHandlerImpl) Decide(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req attendancerequest.DecideRequest
	if !decodeJSON(w, r, &req, "Decide") {
		return
	}
	req.ApproverID = caller.UserID

	decision, err := h.requestService.Decide(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Attendance request "+string(decision.Request.Status), decision)
}

// ListApprovals implements AttendanceRequestHandler.
func (h *AttendanceRequestHandlerImpl) ListApprovals(w http.ResponseWriter, r *http.Request) {
	var errs validator.ValidationErrors
	filter := attendancerequest.ApprovalFilter{
		RequestID:  optionalUUIDQuery(r, "request_id", &errs),
		ApproverID: optionalUUIDQuery(r, "approver_id", &errs),
	}
	if err := errs.Err(); err != nil {
		response.HandleError(w, err)
		return
	}

	approvals, err := h.requestService.ListApprovals(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.List(w, approvals, len(approvals))
}

// listFilterQuery reads status, type, user_id and the date range.
func listFilterQuery(r *http.Request) (attendancerequest.ListFilter, error) {
	var errs validator.ValidationErrors
	filter := attendancerequest.ListFilter{
		UserID: optionalUUIDQuery(r, "user_id", &errs),
	}

	if v := optionalQuery(r, "status"); v != nil {
		status := attendancerequest.Status(*v)
		if !status.Valid() {
			errs.Add("status", "status must be PENDING, APPROVED or REJECTED")
		}
		filter.Status = &status
	}
	if v := optionalQuery(r, "type"); v != nil {
		t := attendancerequest.Type(*v)
		if !t.Valid() {
			errs.Add("type", "type must be one of LEAVE, SICK_LEAVE, WFH, REGULARIZATION, SHIFT_CHANGE, OTHER")
		}
		filter.Type = &t
	}

	dates, err := dateRangeQuery(r)
	if rangeErrs, ok := err.(validator.ValidationErrors); ok {
		errs = append(errs, rangeErrs...)
	}
	filter.Dates = dates

	return filter, errs.Err()
}

func NewAttendanceRequestHandler(requestService attendancerequest.AttendanceRequestService) AttendanceRequestHandler {
	return &AttendanceRequestHandlerImpl{
		requestService: requestService,
	}
}
