package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/facegate/internal/domain/model"
)

type identitiesResponse struct {
	Identities []model.IdentitySummary `json:"identities"`
	Count      int                     `json:"count"`
}

// IdentitiesHandler lists and removes enrolled identities.
type IdentitiesHandler struct {
	failer
	deps Dependencies
}

// NewIdentitiesHandler creates a new identities handler.
func NewIdentitiesHandler(deps Dependencies) *IdentitiesHandler {
	return &IdentitiesHandler{deps: deps}
}

// HandleList handles GET /v1/identities.
func (h *IdentitiesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ids, err := h.deps.Identities()
	if err != nil {
		h.fail(w, r, "api.list_identities", err)
		return
	}
	if ids == nil {
		ids = []model.IdentitySummary{}
	}
	writeJSON(w, http.StatusOK, identitiesResponse{Identities: ids, Count: len(ids)})
}

// HandleRemove handles DELETE /v1/identities/{name}.
func (h *IdentitiesHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.RemoveIdentity(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.fail(w, r, "api.remove_identity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
