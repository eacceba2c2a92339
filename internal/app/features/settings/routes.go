// internal/app/features/settings/routes.go
package settings

import "github.com/go-chi/chi/v5"

// MountRoutes mounts the chat settings routes on r.
// The caller is responsible for restricting r to admins.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.ServeSettings)
	r.Put("/", h.HandleSettings)
}
