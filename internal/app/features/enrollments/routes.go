// internal/app/features/enrollments/routes.go
package enrollments

import (
	"github.com/dalemusser/therapyrooms/internal/app/system/auth"
	"github.com/dalemusser/therapyrooms/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the enrollment routes. limiter throttles enrollment
// requests per user; nil disables throttling.
func Routes(h *Handler, sm *auth.SessionManager, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.With(ratelimit.Middleware(limiter, ratelimit.ByUserOrIP)).Post("/", h.HandleEnroll)
		pr.Get("/me", h.ServeMine)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(auth.RoleAdmin))
		pr.Delete("/{userID}/{groupID}", h.HandleUnenroll)
	})

	return r
}
