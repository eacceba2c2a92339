// internal/app/features/auditlog/handler.go
package auditlog

import (
	"context"

	"github.com/dalemusser/therapyrooms/internal/app/store/audit"
	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// EventQuerier reads audit events.
type EventQuerier interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
	CountByFilter(ctx context.Context, filter audit.QueryFilter) (int64, error)
}

// UserLookup resolves actor and subject names.
type UserLookup interface {
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
}

type Handler struct {
	Events EventQuerier
	Users  UserLookup
	Log    *zap.Logger
}

// NewHandler constructs the audit log handler.
func NewHandler(events EventQuerier, users UserLookup, logger *zap.Logger) *Handler {
	return &Handler{
		Events: events,
		Users:  users,
		Log:    logger,
	}
}
