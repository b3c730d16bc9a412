package api

import (
	"net/http"
	"strconv"

	"github.com/okian/facegate/internal/adapters/audit"
)

const (
	defaultAccessLimit = 50
	maxAccessLimit     = 1000
)

type accessEventsResponse struct {
	Events []audit.Record `json:"events"`
	Count  int            `json:"count"`
}

// AccessHandler answers access-event queries.
type AccessHandler struct {
	failer
	deps Dependencies
}

// NewAccessHandler creates a new access handler.
func NewAccessHandler(deps Dependencies) *AccessHandler {
	return &AccessHandler{deps: deps}
}

// HandleRecent handles GET /v1/access-events?limit=N.
func (h *AccessHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	const op = "api.access_events"
	limit := defaultAccessLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.fail(w, r, op, NewKind(op, audit.ErrInvalidLimit))
			return
		}
		limit = min(n, maxAccessLimit)
	}
	events, err := h.deps.RecentAccess(r.Context(), limit)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	if events == nil {
		events = []audit.Record{}
	}
	writeJSON(w, http.StatusOK, accessEventsResponse{Events: events, Count: len(events)})
}

// HandleStats handles GET /v1/access-events/stats.
func (h *AccessHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.deps.AccessStats(r.Context())
	if err != nil {
		h.fail(w, r, "api.access_stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
