package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/technosupport/society-watch/internal/auth"
	"github.com/technosupport/society-watch/internal/data"
	"github.com/technosupport/society-watch/internal/tokens"
)

type contextKey string

const authContextKey contextKey = "authContext"

// AuthContext is the resolved identity placed on the request context.
type AuthContext struct {
	UserID   string
	ClientID string
	Role     string
}

func WithAuthContext(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, ac)
}

func GetAuthContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(authContextKey).(AuthContext)
	return ac, ok
}

// UserLookup resolves API keys to users. Satisfied by data.UserModel.
type UserLookup interface {
	GetByAPIKeyHash(ctx context.Context, hash string) (*data.User, error)
}

// Authenticator accepts either a Bearer JWT or an X-API-Key header.
// API keys are looked up by SHA-256 hash so the plaintext never touches
// the database.
func Authenticator(tm *tokens.Manager, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				claims, err := tm.Validate(strings.TrimPrefix(h, "Bearer "))
				if err != nil {
					unauthorized(w, "invalid or expired token")
					return
				}
				ac := AuthContext{UserID: claims.Subject, ClientID: claims.ClientID, Role: claims.Role}
				next.ServeHTTP(w, r.WithContext(WithAuthContext(r.Context(), ac)))
				return
			}

			if key := r.Header.Get("X-API-Key"); key != "" {
				user, err := users.GetByAPIKeyHash(r.Context(), auth.HashAPIKey(key))
				if err != nil {
					if errors.Is(err, data.ErrRecordNotFound) {
						unauthorized(w, "invalid API key")
						return
					}
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
				if user.IsDisabled {
					unauthorized(w, "account disabled")
					return
				}
				ac := AuthContext{UserID: user.ID.String(), ClientID: user.SocietyCode, Role: user.Role}
				next.ServeHTTP(w, r.WithContext(WithAuthContext(r.Context(), ac)))
				return
			}

			unauthorized(w, "missing credentials")
		})
	}
}

// RequireAdmin gates a handler on the admin role. Must run inside
// Authenticator.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := GetAuthContext(r.Context())
		if !ok {
			unauthorized(w, "missing credentials")
			return
		}
		if ac.Role != data.RoleAdmin {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "admin role required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
