// internal/app/features/auditlog/routes.go
package auditlog

import "github.com/go-chi/chi/v5"

// MountRoutes adds the audit log listing to r.
// The caller is responsible for restricting r to admins.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/audit", h.ServeList)
}
