// internal/app/features/settings/admin.go
package settings

import (
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/therapyrooms/internal/app/chat/lifecycle"
	uierrors "github.com/dalemusser/therapyrooms/internal/app/features/errors"
	"github.com/dalemusser/therapyrooms/internal/app/system/authz"
	"github.com/dalemusser/therapyrooms/internal/app/system/formutil"
	"github.com/dalemusser/therapyrooms/internal/app/system/timeouts"
	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"go.uber.org/zap"
)

type effectiveVM struct {
	ExpiryAction      string `json:"expiry_action"`
	DefaultExpiryDays int    `json:"default_expiry_days"`
	NotifyEmail       string `json:"notify_email"`
	TimeZone          string `json:"time_zone"`
}

type settingsVM struct {
	// Saved is what admins stored; empty fields use the service configuration.
	Saved     models.ChatSettings `json:"saved"`
	Effective effectiveVM         `json:"effective"`
}

func effective(cfg lifecycle.Config) effectiveVM {
	tz := "UTC"
	if cfg.Location != nil {
		tz = cfg.Location.String()
	}
	return effectiveVM{
		ExpiryAction:      cfg.ExpiryAction,
		DefaultExpiryDays: cfg.DefaultExpiryDays,
		NotifyEmail:       cfg.NotifyEmail,
		TimeZone:          tz,
	}
}

type settingsInput struct {
	ExpiryAction      string `json:"expiry_action" validate:"omitempty,expiryaction" label:"Expiry action"`
	DefaultExpiryDays int    `json:"default_expiry_days" validate:"min=0,max=3650" label:"Default expiry days"`
	NotifyEmail       string `json:"notify_email" validate:"omitempty,email" label:"Notification email"`
}

// ServeSettings returns the saved and the effective chat settings.
func (h *Handler) ServeSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load chat settings")
	defer cancel()

	saved, err := h.Store.Get(ctx)
	if err != nil {
		h.Log.Error("load chat settings failed", zap.Error(err))
		uierrors.Write(w, http.StatusServiceUnavailable, "storage", "Failed to load settings.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, settingsVM{Saved: saved, Effective: effective(h.Applier.Config())})
}

// HandleSettings saves the chat settings and applies them to the running
// lifecycle manager and room registry.
func (h *Handler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Write(w, http.StatusUnauthorized, "unauthorized", "Sign in first.")
		return
	}

	var in settingsInput
	if !formutil.Decode(w, r, &in) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "save chat settings")
	defer cancel()

	now := time.Now().UTC()
	st := models.ChatSettings{
		ExpiryAction:      strings.ToLower(strings.TrimSpace(in.ExpiryAction)),
		DefaultExpiryDays: in.DefaultExpiryDays,
		NotifyEmail:       strings.TrimSpace(in.NotifyEmail),
		UpdatedAt:         &now,
		UpdatedByID:       &uid,
	}
	if err := h.Store.Save(ctx, st); err != nil {
		h.Log.Error("save chat settings failed", zap.Error(err))
		uierrors.Write(w, http.StatusServiceUnavailable, "storage", "Failed to save settings.")
		return
	}

	cfg := h.Applier.ApplySettings(st)
	h.Audit.ChatSettingsUpdated(ctx, r, uid, cfg.ExpiryAction, cfg.DefaultExpiryDays)

	uierrors.WriteJSON(w, http.StatusOK, settingsVM{Saved: st, Effective: effective(cfg)})
}
