// internal/app/features/groups/handler.go
package groups

import (
	"context"
	"time"

	groupstore "github.com/dalemusser/therapyrooms/internal/app/store/groups"
	"github.com/dalemusser/therapyrooms/internal/app/system/auditlog"
	"github.com/dalemusser/therapyrooms/internal/app/system/events"
	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RoomRegistry resolves and creates group chat rooms.
type RoomRegistry interface {
	GetOrCreateRoom(ctx context.Context, groupID primitive.ObjectID, name, description string, creatorID *primitive.ObjectID, expiry *time.Time) (primitive.ObjectID, error)
	GetRoom(ctx context.Context, groupID primitive.ObjectID) (models.ChatRoom, error)
}

// RoomDeleter removes a room and everything hanging off it.
type RoomDeleter interface {
	Delete(ctx context.Context, roomID, groupID primitive.ObjectID) error
}

// RoomFinder finds a room by its back link to a group.
type RoomFinder interface {
	GetByGroup(ctx context.Context, groupID primitive.ObjectID) (models.ChatRoom, error)
}

// LinkCleaner drops enrollment links pointing at a group.
type LinkCleaner interface {
	DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error)
}

// Handler is the shared dependency container for the groups feature.
type Handler struct {
	Groups    *groupstore.Store
	Rooms     RoomRegistry
	BackLinks RoomFinder
	Lifecycle RoomDeleter
	Links     LinkCleaner
	Bus       *events.Bus
	Audit     *auditlog.Logger
	Loc       *time.Location
	Log       *zap.Logger
}

// NewHandler constructs a new groups Handler. A nil loc means UTC.
func NewHandler(groups *groupstore.Store, rooms RoomRegistry, backlinks RoomFinder, life RoomDeleter, links LinkCleaner, bus *events.Bus, audit *auditlog.Logger, loc *time.Location, logger *zap.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		Groups:    groups,
		Rooms:     rooms,
		BackLinks: backlinks,
		Lifecycle: life,
		Links:     links,
		Bus:       bus,
		Audit:     audit,
		Loc:       loc,
		Log:       logger,
	}
}

// roomView is the chat room summary embedded in group responses.
type roomView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
}

type groupView struct {
	models.SessionGroup
	Room *roomView `json:"room,omitempty"`
}

// view attaches the group's room when it resolves. Lookup failures are
// logged and leave Room empty.
func (h *Handler) view(ctx context.Context, g models.SessionGroup) groupView {
	v := groupView{SessionGroup: g}
	if g.ChatRoomID == nil {
		return v
	}
	room, err := h.Rooms.GetRoom(ctx, g.ID)
	if err != nil {
		h.Log.Warn("group view: room lookup failed",
			zap.String("group_id", g.ID.Hex()),
			zap.Error(err))
		return v
	}
	v.Room = &roomView{
		ID:        room.ID.Hex(),
		Name:      room.Name,
		Status:    room.Status,
		ExpiresAt: room.ExpiresAt,
	}
	return v
}
