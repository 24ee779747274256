package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/technosupport/society-watch/internal/audit"
	"github.com/technosupport/society-watch/internal/data"
	"github.com/technosupport/society-watch/internal/middleware"
)

type EventHandler struct {
	Store data.EventStore
	Audit *audit.Service
}

// List serves GET /api/events. Viewers are pinned to their own society;
// admins may pass any client_id or none.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := data.EventFilter{
		ClientID:  q.Get("client_id"),
		EventType: q.Get("event_type"),
	}

	if ac, ok := middleware.GetAuthContext(r.Context()); ok && ac.Role != data.RoleAdmin && ac.ClientID != "" {
		f.ClientID = ac.ClientID
	}

	if v := q.Get("from"); v != "" {
		t, err := parseQueryTime(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := parseQueryTime(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid to timestamp")
			return
		}
		f.To = &t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			respondError(w, http.StatusBadRequest, "limit must be 1-1000")
			return
		}
		f.Limit = n
	}

	events, err := h.Store.Query(r.Context(), f)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "listing events: "+err.Error())
		return
	}
	if events == nil {
		events = []data.Event{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"total": len(events), "events": events})
}

// Clear serves DELETE /api/events: drops the whole event log. Admin only,
// audited with the removed row count.
func (h *EventHandler) Clear(w http.ResponseWriter, r *http.Request) {
	n, err := h.Store.Clear(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "clear failed")
		return
	}

	ac, _ := middleware.GetAuthContext(r.Context())
	details, _ := json.Marshal(map[string]int64{"cleared": n})
	h.Audit.Record(r.Context(), audit.Entry{
		Action:  "events.clear",
		Entity:  "events",
		Details: details,
		Actor:   ac.UserID,
	})

	respondJSON(w, http.StatusOK, map[string]int64{"cleared": n})
}

// parseQueryTime accepts RFC 3339 or a bare IST calendar date.
func parseQueryTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", v)
}
