// internal/app/features/settings/handler.go
package settings

import (
	"github.com/dalemusser/therapyrooms/internal/app/chat/lifecycle"
	settingsstore "github.com/dalemusser/therapyrooms/internal/app/store/settings"
	"github.com/dalemusser/therapyrooms/internal/app/system/auditlog"
	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"go.uber.org/zap"
)

// Applier makes saved settings take effect.
type Applier interface {
	Config() lifecycle.Config
	ApplySettings(st models.ChatSettings) lifecycle.Config
}

// Handler owns the admin-facing chat settings handlers.
type Handler struct {
	Store   *settingsstore.Store
	Applier Applier
	Audit   *auditlog.Logger
	Log     *zap.Logger
}

// NewHandler constructs a Handler.
func NewHandler(store *settingsstore.Store, applier Applier, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Store:   store,
		Applier: applier,
		Audit:   audit,
		Log:     logger,
	}
}
