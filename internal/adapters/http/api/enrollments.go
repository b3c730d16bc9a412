package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type startEnrollmentRequest struct {
	Name string `json:"name"`
}

// EnrollmentsHandler drives enrollment sessions.
type EnrollmentsHandler struct {
	failer
	deps    Dependencies
	uploads uploadReader
}

// NewEnrollmentsHandler creates a new enrollments handler.
func NewEnrollmentsHandler(deps Dependencies, maxUploadBytes int64) *EnrollmentsHandler {
	return &EnrollmentsHandler{deps: deps, uploads: newUploadReader(maxUploadBytes)}
}

// HandleStart handles POST /v1/enrollments.
func (h *EnrollmentsHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_enrollment"
	var req startEnrollmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	progress, err := h.deps.StartEnrollment(r.Context(), req.Name)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, progress)
}

// HandleCapture handles POST /v1/enrollments/{id}/captures. A rejected
// frame answers 422 and leaves the session where it was.
func (h *EnrollmentsHandler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	const op = "api.capture"
	frame, err := h.uploads.frame(w, r)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	progress, err := h.deps.Capture(r.Context(), chi.URLParam(r, "id"), frame)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// HandleGet handles GET /v1/enrollments/{id}.
func (h *EnrollmentsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	progress, err := h.deps.Enrollment(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "api.get_enrollment", err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// HandleCancel handles DELETE /v1/enrollments/{id}.
func (h *EnrollmentsHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.CancelEnrollment(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "api.cancel_enrollment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
