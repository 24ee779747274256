package api

import (
	"net/http"
	"strconv"

	"github.com/technosupport/society-watch/internal/audit"
)

type AuditHandler struct {
	Audit *audit.Service
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := audit.Filter{
		ClientID: q.Get("client_id"),
		Action:   q.Get("action"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			respondError(w, http.StatusBadRequest, "limit must be 1-1000")
			return
		}
		f.Limit = n
	}

	entries, err := h.Audit.Query(r.Context(), f)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	respondJSON(w, http.StatusOK, entries)
}
