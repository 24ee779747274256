package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technosupport/society-watch/internal/auth"
	"github.com/technosupport/society-watch/internal/data"
	"github.com/technosupport/society-watch/internal/tokens"
)

type stubUsers struct{ byHash map[string]*data.User }

func (s stubUsers) GetByAPIKeyHash(_ context.Context, hash string) (*data.User, error) {
	if u, ok := s.byHash[hash]; ok {
		return u, nil
	}
	return nil, data.ErrRecordNotFound
}

func authedHandler(t *testing.T, tm *tokens.Manager, users UserLookup) (http.Handler, *AuthContext) {
	t.Helper()
	captured := &AuthContext{}
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := GetAuthContext(r.Context())
		require.True(t, ok)
		*captured = ac
		w.WriteHeader(http.StatusOK)
	})
	return Authenticator(tm, users)(inner), captured
}

func TestAuthenticatorBearerToken(t *testing.T) {
	tm := tokens.NewManager("test-secret", time.Hour)
	handler, captured := authedHandler(t, tm, stubUsers{})

	userID := uuid.NewString()
	token, err := tm.Generate(userID, "soc-a", data.RoleViewer)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, captured.UserID)
	assert.Equal(t, "soc-a", captured.ClientID)
	assert.Equal(t, data.RoleViewer, captured.Role)
}

func TestAuthenticatorRejectsBadToken(t *testing.T) {
	tm := tokens.NewManager("test-secret", time.Hour)
	handler, _ := authedHandler(t, tm, stubUsers{})

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticatorAPIKey(t *testing.T) {
	tm := tokens.NewManager("test-secret", time.Hour)
	key := "swk_0123456789abcdef"
	user := &data.User{ID: uuid.New(), SocietyCode: "soc-a", Role: data.RoleAdmin}
	handler, captured := authedHandler(t, tm, stubUsers{
		byHash: map[string]*data.User{auth.HashAPIKey(key): user},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("X-API-Key", key)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.ID.String(), captured.UserID)
	assert.Equal(t, data.RoleAdmin, captured.Role)
}

func TestAuthenticatorMissingCredentials(t *testing.T) {
	tm := tokens.NewManager("test-secret", time.Hour)
	handler, _ := authedHandler(t, tm, stubUsers{})

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAdmin(inner)

	req := httptest.NewRequest(http.MethodDelete, "/api/events", nil)
	req = req.WithContext(WithAuthContext(req.Context(), AuthContext{Role: data.RoleViewer}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/events", nil)
	req = req.WithContext(WithAuthContext(req.Context(), AuthContext{Role: data.RoleAdmin}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
