// Package dispatch subscribes the chat services to the event bus: group
// registrations enroll users, and group edits keep the room in step.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/therapyrooms/internal/app/chat/chaterr"
	"github.com/dalemusser/therapyrooms/internal/app/system/events"
	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// GroupChanger moves a user into a group.
type GroupChanger interface {
	ChangeGroup(ctx context.Context, userID, groupID primitive.ObjectID) error
}

// RoomRenamer renames a group's room.
type RoomRenamer interface {
	RenameRoom(ctx context.Context, groupID primitive.ObjectID, title string) error
}

// Expirer changes a room's expiry.
type Expirer interface {
	ExtendExpiry(ctx context.Context, groupID primitive.ObjectID, date string) (time.Time, error)
	ManuallyExpire(ctx context.Context, groupID primitive.ObjectID, action string) error
}

// Register subscribes the handlers to bus.
func Register(bus *events.Bus, enroll GroupChanger, rooms RoomRenamer, life Expirer, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	bus.Subscribe(events.NameEnrollmentRequested, func(ctx context.Context, ev events.Event) error {
		e, ok := ev.(events.EnrollmentRequested)
		if !ok {
			return fmt.Errorf("dispatch: unexpected %T for %s", ev, ev.EventName())
		}
		return enroll.ChangeGroup(ctx, e.UserID, e.GroupID)
	})

	bus.Subscribe(events.NameGroupMetaChanged, func(ctx context.Context, ev events.Event) error {
		e, ok := ev.(events.GroupMetaChanged)
		if !ok {
			return fmt.Errorf("dispatch: unexpected %T for %s", ev, ev.EventName())
		}
		err := syncGroupMeta(ctx, e, rooms, life)
		// A group without a room has nothing to keep in step.
		if errors.Is(err, chaterr.ErrNotFound) {
			logger.Debug("group meta change: no chat room",
				zap.String("group_id", e.GroupID.Hex()),
				zap.String("key", e.Key))
			return nil
		}
		return err
	})
}

func syncGroupMeta(ctx context.Context, e events.GroupMetaChanged, rooms RoomRenamer, life Expirer) error {
	switch e.Key {
	case events.KeyTitle:
		return rooms.RenameRoom(ctx, e.GroupID, e.Value)
	case events.KeyChatExpiryDate:
		if strings.TrimSpace(e.Value) == "" {
			return nil
		}
		_, err := life.ExtendExpiry(ctx, e.GroupID, e.Value)
		return err
	case events.KeyStatus:
		if strings.EqualFold(e.Value, models.GroupStatusCompleted) {
			return life.ManuallyExpire(ctx, e.GroupID, "")
		}
	}
	return nil
}
