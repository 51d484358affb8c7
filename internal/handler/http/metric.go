package http

import (
	"net/http"

	"github.com/cmlabs-hris/worktime-backend-go/internal/domain/metric"
	"github.com/cmlabs-hris/worktime-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/worktime-backend-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type MetricHandler interface {
	Calculate(w http.ResponseWriter, r *http.Request)
	GetProjectMetrics(w http.ResponseWriter, r *http.Request)
	UpsertUserDaily(w http.ResponseWriter, r *http.Request)
	ListUserDaily(w http.ResponseWriter, r *http.Request)
	History(w http.ResponseWriter, r *http.Request)
}

type MetricHandlerImpl struct {
	metricService metric.MetricService
}

// Calculate implements MetricHandler.
func (h *MetricHandlerImpl) Calculate(w http.ResponseWriter, r *http.Request) {
	var req metric.CalculateRequest
	if !decodeJSON(w, r, &req, "CalculateMetrics") {
		return
	}

	date, err := req.Validate()
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.metricService.CalculateDailyMetrics(r.Context(), req.ProjectID, date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Daily metrics calculated successfully", result)
}

// GetProjectMetrics implements MetricHandler.
func (h *MetricHandlerImpl) GetProjectMetrics(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	if !validator.IsValidUUID(projectID) {
		response.BadRequest(w, "Project ID must be a valid UUID", nil)
		return
	}

	dates, err := dateRangeQuery(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	rows, err := h.metricService.GetProjectMetrics(r.Context(), projectID, dates)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.List(w, rows, len(rows))
}

// UpsertUserDaily implements MetricHandler.
func (h *MetricHandlerImpl) UpsertUserDaily(w http.ResponseWriter, r *http.Request) {
	var req metric.UpsertUserDailyMetricRequest
	if !decodeJSON(w, r, &req, "UpsertUserDailyMetric") {
		return
	}

	row, err := h.metricService.UpsertUserDailyMetric(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "User daily metric saved successfully", row)
}

// ListUserDaily implements MetricHandler.
func (h *MetricHandlerImpl) ListUserDaily(w http.ResponseWriter, r *http.Request) {
	var errs validator.ValidationErrors
	filter := metric.UserDailyFilter{
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

	rows, err := h.metricService.ListUserDailyMetrics(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.List(w, rows, len(rows))
}

// History implements MetricHandler. With both user_id and project_id it
// returns the single history row; otherwise it lists matching rows.
func (h *MetricHandlerImpl) History(w http.ResponseWriter, r *http.Request) {
	var errs validator.ValidationErrors
	filter := metric.HistoryFilter{
		UserID:    optionalUUIDQuery(r, "user_id", &errs),
		ProjectID: optionalUUIDQuery(r, "project_id", &errs),
	}
	if err := errs.Err(); err != nil {
		response.HandleError(w, err)
		return
	}

	if filter.UserID != nil && filter.ProjectID != nil {
		history, err := h.metricService.GetProjectHistory(r.Context(), *filter.UserID, *filter.ProjectID)
		if err != nil {
			response.HandleError(w, err)
			return
		}
		response.Success(w, history)
		return
	}

	rows, err := h.metricService.ListProjectHistory(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.List(w, rows, len(rows))
}

func NewMetricHandler(metricService metric.MetricService) MetricHandler {
	return &MetricHandlerImpl{
		metricService: metricService,
	}
}
