package api

import (
	"net/http"

	"github.com/technosupport/society-watch/internal/data"
	"github.com/technosupport/society-watch/internal/middleware"
	"github.com/technosupport/society-watch/internal/stats"
)

type StatsHandler struct {
	Engine *stats.Engine
}

// Get serves GET /api/stats. Non-admins always see their own society's
// snapshot regardless of the query parameter.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")

	if ac, ok := middleware.GetAuthContext(r.Context()); ok && ac.Role != data.RoleAdmin && ac.ClientID != "" {
		clientID = ac.ClientID
	}

	snap, err := h.Engine.Snapshot(r.Context(), clientID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, snap)
}
