// internal/app/features/chatadmin/routes.go
package chatadmin

import "github.com/go-chi/chi/v5"

// RoomRoutes serves /groups/{id}/chat. The {id} parameter comes from the
// parent router.
func RoomRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeRoom)
	r.Post("/archive", h.HandleArchive)
	r.Post("/reactivate", h.HandleReactivate)
	r.Post("/delete", h.HandleDelete)
	r.Post("/expire", h.HandleExpire)
	r.Post("/extend", h.HandleExtend)
	return r
}

// MountSweep adds the manual sweep trigger to r.
func (h *Handler) MountSweep(r chi.Router) {
	r.Post("/sweep", h.HandleSweep)
}
