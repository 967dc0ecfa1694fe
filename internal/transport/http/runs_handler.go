package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "wbbcli/internal/errors"
	"wbbcli/internal/infrastructure"
	"wbbcli/internal/middleware"
	"wbbcli/internal/operations"
	"wbbcli/internal/services"
)

// RunsHandler serves the run endpoints
type RunsHandler struct {
	service   RunManager
	validator *middleware.RequestValidator
	logger    *slog.Logger
}

// RunListResponse is the body of GET /api/runs
type RunListResponse struct {
	Runs  []*operations.Run `json:"runs"`
	Count int               `json:"count"`
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(service RunManager, validator *middleware.RequestValidator, logger *slog.Logger) *RunsHandler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if validator == nil {
		validator = middleware.NewRequestValidator(logger)
	}
	return &RunsHandler{
		service:   service,
		validator: validator,
		logger:    logger.With(slog.String("handler", "runs")),
	}
}

// Routes returns the runs router, mounted at /api/runs
func (h *RunsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.ContentTypeValidator("application/json"))

	r.Post("/", h.StartRun)
	r.Get("/", h.ListRuns)
	r.Get("/{id}", h.GetRun)
	r.Delete("/{id}", h.CancelRun)
	return r
}

// StartRun handles POST /api/runs
func (h *RunsHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req services.RunRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	run, err := h.service.Start(ctx, req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "run accepted",
		slog.String("run_id", run.ID),
		slog.String("request_id", middleware.GetRequestID(ctx)))

	w.Header().Set("Location", "/api/runs/"+run.ID)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, run)
}

// ListRuns handles GET /api/runs?status=&limit=
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	filter, err := parseRunFilter(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	runs := h.service.List(r.Context(), filter)
	if runs == nil {
		runs = []*operations.Run{}
	}
	render.JSON(w, r, RunListResponse{Runs: runs, Count: len(runs)})
}

// GetRun handles GET /api/runs/{id}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, r, run)
}

// CancelRun handles DELETE /api/runs/{id}. The run keeps the running status
// until the pipeline stops.
func (h *RunsHandler) CancelRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := h.service.Cancel(ctx, id); err != nil {
		h.handleError(w, r, err)
		return
	}

	run, err := h.service.Get(ctx, id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, run)
}

func parseRunFilter(r *http.Request) (operations.RunFilter, error) {
	var filter operations.RunFilter
	query := r.URL.Query()

	switch status := operations.RunStatus(query.Get("status")); status {
	case "", operations.RunStatusRunning, operations.RunStatusCompleted,
		operations.RunStatusFailed, operations.RunStatusCancelled:
		filter.Status = status
	default:
		return filter, apperrors.NewValidationErrors([]apperrors.ValidationError{{
			Field:   "status",
			Message: "status must be one of: running, completed, failed, cancelled",
		}})
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filter, apperrors.NewValidationErrors([]apperrors.ValidationError{{
				Field:   "limit",
				Message: "limit must be a positive integer",
			}})
		}
		filter.Limit = limit
	}
	return filter, nil
}

// handleError logs err and renders it as an APIError
func (h *RunsHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	apiErr := apperrors.FromError(err)
	if apperrors.IsType(err, apperrors.ErrTypeNotFound) {
		apiErr = apperrors.ErrRunNotFound
	}

	attrs := []any{
		slog.String("error", err.Error()),
		slog.Int("status", apiErr.StatusCode),
		slog.String("request_id", middleware.GetRequestID(ctx)),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
	}
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "request failed", attrs...)
		infrastructure.RecordError(ctx, err)
	} else {
		h.logger.WarnContext(ctx, "request rejected", attrs...)
	}

	render.Render(w, r, apiErr)
}
