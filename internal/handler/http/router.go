package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/domain"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/repository"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/health"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/middleware"
)

// NewRouter creates a chi router with all identity service routes registered.
func NewRouter(
	authService AuthService,
	auditRepo repository.AuditRepository,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("identity"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	authHandler := NewAuthHandler(authService)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Public endpoints
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(AuthGuard(authService))

			r.Get("/me", authHandler.Me)
			r.Post("/logout", authHandler.Logout)
			r.Post("/change-password", authHandler.ChangePassword)
		})
	})

	// Admin endpoints (manager can read the audit trail, only admin can
	// deactivate accounts)
	adminHandler := NewAdminHandler(authService, auditRepo)
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(AuthGuard(authService))

		r.With(RequireMinRole(domain.RoleManager)).
			Get("/audit-events", adminHandler.ListAuditEvents)
		r.With(RequireMinRole(domain.RoleAdmin)).
			Post("/users/{id}/deactivate", adminHandler.DeactivateUser)
	})

	return r
}
