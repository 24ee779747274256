package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/technosupport/society-watch/internal/audit"
	"github.com/technosupport/society-watch/internal/data"
	"github.com/technosupport/society-watch/internal/ingest"
	"github.com/technosupport/society-watch/internal/metrics"
	"github.com/technosupport/society-watch/internal/middleware"
	"github.com/technosupport/society-watch/internal/stats"
	"github.com/technosupport/society-watch/internal/tokens"
)

// Server groups the HTTP dependencies and builds the router.
type Server struct {
	Events    data.EventStore
	Societies data.SocietyModel
	Cameras   data.CameraModel
	Users     data.UserModel

	Ingest *ingest.Service
	Stats  *stats.Engine
	Audit  *audit.Service
	Tokens *tokens.Manager

	Metrics *metrics.Collector

	// WebhookSecret yields the live HMAC secret; empty disables checks.
	WebhookSecret func() string

	// RateLimit wraps the webhook route when non-nil.
	RateLimit func(http.Handler) http.Handler
}

func (s *Server) Router() http.Handler {
	webhook := &WebhookHandler{Ingest: s.Ingest, Secret: s.WebhookSecret}
	events := &EventHandler{Store: s.Events, Audit: s.Audit}
	statsH := &StatsHandler{Engine: s.Stats}
	health := &HealthHandler{Store: s.Events}
	societies := &SocietyHandler{Societies: s.Societies, Audit: s.Audit}
	cameras := &CameraHandler{Cameras: s.Cameras, Audit: s.Audit}
	users := &UserHandler{Users: s.Users, Audit: s.Audit}
	authH := &AuthHandler{Users: s.Users, Tokens: s.Tokens}
	auditH := &AuditHandler{Audit: s.Audit}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(s.Metrics))

	r.Get("/health", health.Get)
	r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())

	r.Group(func(r chi.Router) {
		if s.RateLimit != nil {
			r.Use(s.RateLimit)
		}
		r.Post("/webhook", webhook.Receive)
	})

	r.Post("/api/auth/login", authH.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticator(s.Tokens, s.Users))

		r.Get("/api/events", events.List)
		r.Get("/api/stats", statsH.Get)
		r.Get("/api/cameras", cameras.List)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Delete("/api/events", events.Clear)

			r.Post("/api/societies", societies.Create)
			r.Get("/api/societies", societies.List)
			r.Get("/api/societies/{code}", societies.Get)
			r.Put("/api/societies/{code}", societies.Update)
			r.Delete("/api/societies/{code}", societies.Delete)

			r.Post("/api/cameras", cameras.Create)
			r.Put("/api/cameras/{deviceID}", cameras.Update)
			r.Delete("/api/cameras/{deviceID}", cameras.Delete)

			r.Post("/api/users", users.Create)
			r.Get("/api/users", users.List)
			r.Patch("/api/users/{id}/disabled", users.SetDisabled)

			r.Get("/api/audit", auditH.List)
		})
	})

	return r
}
