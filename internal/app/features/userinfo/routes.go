// internal/app/features/userinfo/routes.go
package userinfo

import "github.com/go-chi/chi/v5"

// MountRoutes adds GET /api/userinfo to r. It is public: anonymous callers
// get isAuthenticated=false rather than a 401.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/api/userinfo", h.ServeUserInfo)
}
