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

type CameraHandler struct {
	Cameras data.CameraModel
	Audit   *audit.Service
}

type cameraRequest struct {
	DeviceID    string `json:"device_id"`
	Name        string `json:"name"`
	SocietyCode string `json:"society_code"`
	IsActive    *bool  `json:"is_active"`
}

func (h *CameraHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req cameraRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.DeviceID == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "device_id and name are required")
		return
	}

	c := data.Camera{DeviceID: req.DeviceID, Name: req.Name, SocietyCode: req.SocietyCode, IsActive: true}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}

	if err := h.Cameras.Create(r.Context(), &c); err != nil {
		if errors.Is(err, data.ErrDuplicateCode) {
			respondError(w, http.StatusConflict, "device_id already registered")
			return
		}
		respondError(w, http.StatusInternalServerError, "create failed")
		return
	}

	h.record(r, "camera.create", c.DeviceID)
	respondJSON(w, http.StatusCreated, c)
}

// List scopes viewers to their society's cameras; admins see all or may
// filter with ?society.
func (h *CameraHandler) List(w http.ResponseWriter, r *http.Request) {
	society := r.URL.Query().Get("society")
	if ac, ok := middleware.GetAuthContext(r.Context()); ok && ac.Role != data.RoleAdmin && ac.ClientID != "" {
		society = ac.ClientID
	}

	cameras, err := h.Cameras.List(r.Context(), society)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if cameras == nil {
		cameras = []data.Camera{}
	}
	respondJSON(w, http.StatusOK, cameras)
}

func (h *CameraHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req cameraRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	deviceID := chi.URLParam(r, "deviceID")
	existing, err := h.Cameras.GetByDeviceID(r.Context(), deviceID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "camera not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.SocietyCode != "" {
		existing.SocietyCode = req.SocietyCode
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}

	if err := h.Cameras.Update(r.Context(), existing); err != nil {
		respondError(w, http.StatusInternalServerError, "update failed")
		return
	}

	h.record(r, "camera.update", deviceID)
	respondJSON(w, http.StatusOK, existing)
}

func (h *CameraHandler) Delete(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	if err := h.Cameras.Delete(r.Context(), deviceID); err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "camera not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	h.record(r, "camera.delete", deviceID)
	respondJSON(w, http.StatusOK, map[string]string{"deleted": deviceID})
}

func (h *CameraHandler) record(r *http.Request, action, deviceID string) {
	ac, _ := middleware.GetAuthContext(r.Context())
	h.Audit.Record(r.Context(), audit.Entry{
		Action:   action,
		Entity:   "camera",
		EntityID: deviceID,
		Actor:    ac.UserID,
	})
}
