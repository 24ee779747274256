package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/technosupport/society-watch/internal/audit"
	"github.com/technosupport/society-watch/internal/data"
	"github.com/technosupport/society-watch/internal/middleware"
)

type SocietyHandler struct {
	Societies data.SocietyModel
	Audit     *audit.Service
}

type societyRequest struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive *bool  `json:"is_active"`
}

func (h *SocietyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req societyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Code == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "code and name are required")
		return
	}

	s := data.Society{Code: req.Code, Name: req.Name, IsActive: true}
	if req.IsActive != nil {
		s.IsActive = *req.IsActive
	}

	if err := h.Societies.Create(r.Context(), &s); err != nil {
		if errors.Is(err, data.ErrDuplicateCode) {
			respondError(w, http.StatusConflict, "society code already exists")
			return
		}
		respondError(w, http.StatusInternalServerError, "create failed")
		return
	}

	h.record(r, "society.create", s.Code)
	respondJSON(w, http.StatusCreated, s)
}

func (h *SocietyHandler) List(w http.ResponseWriter, r *http.Request) {
	societies, err := h.Societies.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if societies == nil {
		societies = []data.Society{}
	}
	respondJSON(w, http.StatusOK, societies)
}

func (h *SocietyHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.Societies.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "society not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, s)
}

func (h *SocietyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req societyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	code := chi.URLParam(r, "code")
	existing, err := h.Societies.GetByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "society not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}

	if err := h.Societies.Update(r.Context(), existing); err != nil {
		respondError(w, http.StatusInternalServerError, "update failed")
		return
	}

	h.record(r, "society.update", code)
	respondJSON(w, http.StatusOK, existing)
}

func (h *SocietyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := h.Societies.Delete(r.Context(), code); err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "society not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	h.record(r, "society.delete", code)
	respondJSON(w, http.StatusOK, map[string]string{"deleted": code})
}

func (h *SocietyHandler) record(r *http.Request, action, code string) {
	ac, _ := middleware.GetAuthContext(r.Context())
	h.Audit.Record(r.Context(), audit.Entry{
		Action:   action,
		Entity:   "society",
		EntityID: code,
		Actor:    ac.UserID,
	})
}
