package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/technosupport/society-watch/internal/audit"
	"github.com/technosupport/society-watch/internal/auth"
	"github.com/technosupport/society-watch/internal/data"
	"github.com/technosupport/society-watch/internal/middleware"
)

type UserHandler struct {
	Users data.UserModel
	Audit *audit.Service
}

type createUserRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	SocietyCode string `json:"society_code"`
	Role        string `json:"role"`
	IssueAPIKey bool   `json:"issue_api_key"`
}

// Create provisions a dashboard account. When issue_api_key is set the
// plaintext key appears once in the response and is never retrievable
// again; only its hash is stored.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if req.Role == "" {
		req.Role = data.RoleViewer
	}
	if req.Role != data.RoleAdmin && req.Role != data.RoleViewer {
		respondError(w, http.StatusBadRequest, "role must be admin or viewer")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "password hashing failed")
		return
	}

	u := data.User{
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
		SocietyCode:  req.SocietyCode,
		Role:         req.Role,
	}

	var apiKey string
	if req.IssueAPIKey {
		apiKey, err = newAPIKey()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "key generation failed")
			return
		}
		u.APIKeyHash = auth.HashAPIKey(apiKey)
	}

	if err := h.Users.Create(r.Context(), &u); err != nil {
		if errors.Is(err, data.ErrDuplicateEmail) {
			respondError(w, http.StatusConflict, "email already registered")
			return
		}
		respondError(w, http.StatusInternalServerError, "create failed")
		return
	}

	h.record(r, "user.create", u.ID.String())

	resp := map[string]any{"user": u}
	if apiKey != "" {
		resp["api_key"] = apiKey
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context(), r.URL.Query().Get("society"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if users == nil {
		users = []data.User{}
	}
	respondJSON(w, http.StatusOK, users)
}

func (h *UserHandler) SetDisabled(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req struct {
		Disabled bool `json:"disabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.Users.SetDisabled(r.Context(), id, req.Disabled); err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "update failed")
		return
	}

	action := "user.enable"
	if req.Disabled {
		action = "user.disable"
	}
	h.record(r, action, id.String())
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "disabled": req.Disabled})
}

func (h *UserHandler) record(r *http.Request, action, id string) {
	ac, _ := middleware.GetAuthContext(r.Context())
	h.Audit.Record(r.Context(), audit.Entry{
		Action:   action,
		Entity:   "user",
		EntityID: id,
		Actor:    ac.UserID,
	})
}

func newAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "swk_" + hex.EncodeToString(buf), nil
}
