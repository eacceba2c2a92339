// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/therapyrooms/internal/app/system/auth"
	"go.uber.org/zap"
)

// SignOuter clears the session cookie.
type SignOuter interface {
	SignOut(w http.ResponseWriter, r *http.Request) error
}

type Handler struct {
	Log      *zap.Logger
	Sessions SignOuter
}

func NewHandler(sessions SignOuter, logger *zap.Logger) *Handler {
	return &Handler{
		Log:      logger,
		Sessions: sessions,
	}
}

// HandleLogout handles POST /logout. The cookie is cleared even when the
// request carried no session; the response is always 204.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		h.Log.Info("sign out", zap.String("user_id", u.ID))
	}
	if err := h.Sessions.SignOut(w, r); err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}
