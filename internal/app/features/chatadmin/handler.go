// internal/app/features/chatadmin/handler.go
package chatadmin

import (
	"context"
	"time"

	"github.com/dalemusser/therapyrooms/internal/app/chat/lifecycle"
	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RoomLookup resolves a group's room.
type RoomLookup interface {
	GetRoom(ctx context.Context, groupID primitive.ObjectID) (models.ChatRoom, error)
}

// MemberLister lists a room's members across every membership shape.
type MemberLister interface {
	ListMembers(ctx context.Context, roomID primitive.ObjectID) ([]primitive.ObjectID, error)
}

// UserLookup loads display details for member ids.
type UserLookup interface {
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
}

// Lifecycle is the set of room transitions staff may trigger.
type Lifecycle interface {
	Archive(ctx context.Context, roomID, groupID primitive.ObjectID) error
	Delete(ctx context.Context, roomID, groupID primitive.ObjectID) error
	ExtendExpiry(ctx context.Context, groupID primitive.ObjectID, date string) (time.Time, error)
	ManuallyExpire(ctx context.Context, groupID primitive.ObjectID, action string) error
	Reactivate(ctx context.Context, groupID primitive.ObjectID) error
	RunExpirySweep(ctx context.Context, today time.Time) (lifecycle.SweepResult, error)
}

// Embedder yields the embeddable address of a room.
type Embedder interface {
	RoomURL(roomID primitive.ObjectID) string
}

// Handler serves the staff view of group chat rooms.
type Handler struct {
	Rooms     RoomLookup
	Members   MemberLister
	Users     UserLookup
	Lifecycle Lifecycle
	Embed     Embedder
	Log       *zap.Logger

	now func() time.Time
}

// NewHandler constructs a chatadmin Handler.
func NewHandler(rooms RoomLookup, members MemberLister, users UserLookup, life Lifecycle, embed Embedder, logger *zap.Logger) *Handler {
	return &Handler{
		Rooms:     rooms,
		Members:   members,
		Users:     users,
		Lifecycle: life,
		Embed:     embed,
		Log:       logger,
		now:       time.Now,
	}
}
