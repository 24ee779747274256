package api

import (
	"net/http"
	"time"

	"github.com/technosupport/society-watch/internal/data"
)

type HealthHandler struct {
	Store data.EventStore
}

// Get serves GET /health. The stored-event count doubles as a liveness
// probe of the database path.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	n, err := h.Store.Count(r.Context())
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "degraded",
			"error":  "event store unreachable",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"events_stored": n,
		"time_ist":      data.ToIST(time.Now()).Format(time.RFC3339),
	})
}
