package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/notekeep/notekeep/internal/middleware"
)

// RouterConfig wires handlers and middleware into the API router.
type RouterConfig struct {
	Logger *slog.Logger

	Health *HealthHandler
	Auth   *AuthHandler
	Notes  *NoteHandler

	// AuthGate protects /me and /notes.
	AuthGate func(http.Handler) http.Handler

	// Metrics serves GET /metrics when set.
	Metrics http.Handler

	Security       middleware.SecurityConfig
	AllowedOrigins []string
	MaxBodySize    int64
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	h := New()
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(cfg.Security))
	r.Use(middleware.MaxBodySize(cfg.MaxBodySize))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.AllowedOrigins)))

	r.Get("/health", cfg.Health.Health)
	r.Get("/readyz", cfg.Health.Readyz)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Post("/signup", cfg.Auth.Signup)
	r.Post("/login", cfg.Auth.Login)

	r.Group(func(r chi.Router) {
		r.Use(cfg.AuthGate)

		r.Get("/me", cfg.Auth.Me)
		r.Delete("/me", cfg.Auth.DeleteMe)

		r.Route("/notes", func(r chi.Router) {
			r.Get("/", cfg.Notes.List)
			r.Post("/", cfg.Notes.Create)
			r.Patch("/{id}", cfg.Notes.Update)
			r.Delete("/{id}", cfg.Notes.Delete)
		})
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
