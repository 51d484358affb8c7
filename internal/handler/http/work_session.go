package http

import (
	"net/http"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/worksession"
	"github.com/cmlabs-hris/worktime-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type WorkSessionHandler interface {
	ClockIn(w http.ResponseWriter, r *http.Request)
	ClockOut(w http.ResponseWriter, r *http.Request)
	Current(w http.ResponseWriter, r *http.Request)
	History(w http.ResponseWriter, r *http.Request)

	// Admin
	Review(w http.ResponseWriter, r *http.Request)
}

type WorkSessionHandlerImpl struct {
	workSessionService worksession.WorkSessionService
}

// ClockIn implements WorkSessionHandler.
func (h *WorkSessionHandlerImpl) ClockIn(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req worksession.ClockInRequest
	if !decodeJSON(w, r, &req, "ClockIn") {
		return
	}
	req.UserID = caller.UserID

	session, err := h.workSessionService.ClockIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Clocked in successfully", session)
}

// ClockOut implements WorkSessionHandler.
func (h *WorkSessionHandlerImpl) ClockOut(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req worksession.ClockOutRequest
	if !decodeJSON(w, r, &req, "ClockOut") {
		return
	}
	req.UserID = caller.UserID

	session, err := h.workSessionService.ClockOut(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Clocked out successfully", session)
}

// Current implements WorkSessionHandler. Data is null when nothing is open.
func (h *WorkSessionHandlerImpl) Current(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	session, err := h.workSessionService.GetCurrentSession(r.Context(), caller.UserID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, session)
}

// History implements WorkSessionHandler.
func (h *WorkSessionHandlerImpl) History(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	dates, err := dateRangeQuery(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	sessions, err := h.workSessionService.GetHistory(r.Context(), caller.UserID, dates)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.List(w, sessions, len(sessions))
}

// Review implements WorkSessionHandler.
func (h *WorkSessionHandlerImpl) Review(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req worksession.ReviewSessionRequest
	if !decodeJSON(w, r, &req, "ReviewSession") {
		return
	}
	req.SessionID = chi.URLParam(r, "id")
	req.ApproverID = caller.UserID

	session, err := h.workSessionService.ReviewSession(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Work session reviewed successfully", session)
}

func NewWorkSessionHandler(workSessionService worksession.WorkSessionService) WorkSessionHandler {
	return &WorkSessionHandlerImpl{
		workSessionService: workSessionService,
	}
}
