package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"prepforge/interview/internal/managers"
	"prepforge/interview/internal/middleware"
	"prepforge/interview/internal/models"
	"prepforge/interview/internal/utils"
)

type InterviewHandler struct {
	Manager *managers.InterviewManager
	Logger  *zap.Logger
}

func NewInterviewHandler(manager *managers.InterviewManager, logger *zap.Logger) *InterviewHandler {
	return &InterviewHandler{Manager: manager, Logger: logger.Named("http")}
}

// ScheduleHandler creates a PENDING interview for the calling candidate.
func (h *InterviewHandler) ScheduleHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CurrentUser(r)
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized", "missing credentials")
		return
	}
	req := middleware.GetValidatedRequest[*models.ScheduleRequest](r)

	iv, err := h.Manager.Schedule(r.Context(), caller, *req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, iv)
}

// ListHandler pages through the caller's interviews. Query: as, status, limit, offset.
func (h *InterviewHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CurrentUser(r)
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized", "missing credentials")
		return
	}

	q := r.URL.Query()
	opts := managers.ListOptions{
		As:     q.Get("as"),
		Status: models.InterviewStatus(q.Get("status")),
	}
	var err error
	if opts.Limit, err = intParam(q.Get("limit")); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
		return
	}
	if opts.Offset, err = intParam(q.Get("offset")); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid_offset", "offset must be an integer")
		return
	}

	list, total, err := h.Manager.List(r.Context(), caller, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Interview{}
	}

	page := opts.Normalized()
	utils.JSON(w, http.StatusOK, models.InterviewListResponse{
		Interviews: list,
		Total:      total,
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
}

func (h *InterviewHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	h.withInterview(w, r, h.Manager.Get)
}

// JoinHandler returns room credentials; the first join starts the interview.
func (h *InterviewHandler) JoinHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CurrentUser(r)
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized", "missing credentials")
		return
	}
	resp, err := h.Manager.Join(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

func (h *InterviewHandler) CompleteHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CurrentUser(r)
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized", "missing credentials")
		return
	}
	// Validation happens in the manager, after the caller is known to be the interviewer.
	var req models.CompleteRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON in request body")
		return
	}

	iv, err := h.Manager.Complete(r.Context(), caller, chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, iv)
}

func (h *InterviewHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	h.withInterview(w, r, h.Manager.Cancel)
}

// PendingRequestsHandler backs the interviewer dashboard.
func (h *InterviewHandler) PendingRequestsHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CurrentUser(r)
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized", "missing credentials")
		return
	}
	list, err := h.Manager.PendingRequests(r.Context(), caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Interview{}
	}
	utils.JSON(w, http.StatusOK, list)
}

func (h *InterviewHandler) AcceptHandler(w http.ResponseWriter, r *http.Request) {
	h.withInterview(w, r, h.Manager.Accept)
}

func (h *InterviewHandler) DeclineHandler(w http.ResponseWriter, r *http.Request) {
	h.withInterview(w, r, h.Manager.Decline)
}

type interviewOp func(ctx context.Context, caller models.Principal, id string) (*models.Interview, error)

// withInterview runs op against the {id} path parameter and writes the resulting record.
func (h *InterviewHandler) withInterview(w http.ResponseWriter, r *http.Request, op interviewOp) {
	caller, ok := middleware.CurrentUser(r)
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized", "missing credentials")
		return
	}
	iv, err := op(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, iv)
}

// writeError maps lifecycle errors onto HTTP statuses.
func (h *InterviewHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *managers.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.JSON(w, http.StatusBadRequest, verr.Response)
	case errors.Is(err, managers.ErrNotFound):
		utils.JSONError(w, http.StatusNotFound, "not_found", "interview not found")
	case errors.Is(err, managers.ErrUnauthorized):
		utils.JSONError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, managers.ErrConflict):
		utils.JSONError(w, http.StatusConflict, "conflict", err.Error())
	default:
		h.Logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
