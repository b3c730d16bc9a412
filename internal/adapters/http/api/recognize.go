package api

import (
	"net/http"
)

// RecognizeHandler handles recognition requests.
type RecognizeHandler struct {
	failer
	deps    Dependencies
	uploads uploadReader
}

// NewRecognizeHandler creates a new recognize handler.
func NewRecognizeHandler(deps Dependencies, maxUploadBytes int64) *RecognizeHandler {
	return &RecognizeHandler{deps: deps, uploads: newUploadReader(maxUploadBytes)}
}

// HandleRecognize handles POST /v1/recognize?mode=single|quorum. A
// recognition that ran answers 200 whatever its status; the body carries
// the status and the access decision.
func (h *RecognizeHandler) HandleRecognize(w http.ResponseWriter, r *http.Request) {
	const op = "api.recognize"
	frame, err := h.uploads.frame(w, r)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	out, err := h.deps.Recognize(r.Context(), frame, r.URL.Query().Get("mode"))
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
