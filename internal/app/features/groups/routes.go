// internal/app/features/groups/routes.go
package groups

import (
	"net/http"

	"github.com/dalemusser/therapyrooms/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the group routes. chat, when non-nil, is mounted at
// /{id}/chat and sees the group id as the {id} URL parameter.
func Routes(h *Handler, sm *auth.SessionManager, chat http.Handler) chi.Router {
	r := chi.NewRouter()

	// Everything under /groups is admin only
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(auth.RoleAdmin))

		pr.Post("/", h.HandleCreateGroup)
		pr.Get("/{id}", h.ServeGroup)
		pr.Patch("/{id}", h.HandleEditGroup)
		pr.Delete("/{id}", h.HandleDeleteGroup)
		if chat != nil {
			pr.Mount("/{id}/chat", chat)
		}
	})

	return r
}
