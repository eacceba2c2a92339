// Package registry maps session groups to their chat rooms, one room per
// group, with the link stored on both records.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/therapyrooms/internal/app/chat/chaterr"
	chatroomstore "github.com/dalemusser/therapyrooms/internal/app/store/chatrooms"
	groupstore "github.com/dalemusser/therapyrooms/internal/app/store/groups"
	"github.com/dalemusser/therapyrooms/internal/app/system/auditlog"
	"github.com/dalemusser/therapyrooms/internal/app/system/dateparse"
	"github.com/dalemusser/therapyrooms/internal/app/system/htmlsanitize"
	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// GroupStore is the group-side half of the link.
type GroupStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.SessionGroup, error)
	LinkRoom(ctx context.Context, groupID, roomID primitive.ObjectID) error
	UnlinkRoom(ctx context.Context, groupID, roomID primitive.ObjectID) error
}

// RoomStore is the room-side half of the link.
type RoomStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.ChatRoom, error)
	GetByGroup(ctx context.Context, groupID primitive.ObjectID) (models.ChatRoom, error)
	Create(ctx context.Context, r models.ChatRoom) (models.ChatRoom, error)
	Rename(ctx context.Context, id primitive.ObjectID, name string) error
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

// Registry resolves and creates group chat rooms.
type Registry struct {
	groups GroupStore
	rooms  RoomStore
	audit  *auditlog.Logger
	log    *zap.Logger

	mu          sync.RWMutex
	defaultDays int
	loc         *time.Location

	now func() time.Time
}

// New creates a Registry. defaultDays is the room lifetime used when the
// caller gives no expiry; loc decides which calendar day "today" is.
func New(groups GroupStore, rooms RoomStore, audit *auditlog.Logger, logger *zap.Logger, defaultDays int, loc *time.Location) *Registry {
	if loc == nil {
		loc = time.UTC
	}
	return &Registry{
		groups:      groups,
		rooms:       rooms,
		audit:       audit,
		log:         logger,
		defaultDays: defaultDays,
		loc:         loc,
		now:         time.Now,
	}
}

// SetDefaultExpiryDays replaces the default room lifetime.
func (r *Registry) SetDefaultExpiryDays(days int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultDays = days
}

// DefaultExpiry is today plus the default lifetime, at midnight in the
// registry's location.
func (r *Registry) DefaultExpiry() time.Time {
	r.mu.RLock()
	days := r.defaultDays
	r.mu.RUnlock()
	return dateparse.StartOfDay(r.now(), r.loc).AddDate(0, 0, days)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, chaterr.ErrStorage, err)
}

// GetOrCreateRoom returns the group's room, creating and linking one when
// the group has none. Calling it again for the same group returns the same
// id without writing anything.
//
// name defaults to the group title. A nil expiry means DefaultExpiry().
func (r *Registry) GetOrCreateRoom(ctx context.Context, groupID primitive.ObjectID, name, description string, creatorID *primitive.ObjectID, expiry *time.Time) (primitive.ObjectID, error) {
	g, err := r.groups.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return primitive.NilObjectID, fmt.Errorf("group %s: %w", groupID.Hex(), chaterr.ErrNotFound)
		}
		return primitive.NilObjectID, storageErr("load group", err)
	}

	if g.ChatRoomID != nil {
		room, err := r.rooms.GetByID(ctx, *g.ChatRoomID)
		switch {
		case err == nil:
			if room.GroupID != groupID {
				r.log.Error("chat room back link disagrees with group",
					zap.String("group_id", groupID.Hex()),
					zap.String("room_id", room.ID.Hex()),
					zap.String("room_group_id", room.GroupID.Hex()))
				return primitive.NilObjectID, fmt.Errorf("group %s room %s: %w", groupID.Hex(), room.ID.Hex(), chaterr.ErrIntegrity)
			}
			return room.ID, nil
		case errors.Is(err, mongo.ErrNoDocuments):
			r.log.Warn("group links a missing chat room; replacing",
				zap.String("group_id", groupID.Hex()),
				zap.String("room_id", g.ChatRoomID.Hex()))
			if err := r.groups.UnlinkRoom(ctx, groupID, *g.ChatRoomID); err != nil {
				return primitive.NilObjectID, storageErr("clear dangling link", err)
			}
		default:
			return primitive.NilObjectID, storageErr("load room", err)
		}
	}

	// A room may already point at the group if a previous call stopped
	// between creating the room and linking the group.
	if orphan, err := r.rooms.GetByGroup(ctx, groupID); err == nil {
		r.log.Warn("re-linking chat room left without a group link",
			zap.String("group_id", groupID.Hex()),
			zap.String("room_id", orphan.ID.Hex()))
		return r.link(ctx, groupID, orphan.ID)
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return primitive.NilObjectID, storageErr("find room by group", err)
	}

	if name = htmlsanitize.SanitizeName(name); name == "" {
		name = htmlsanitize.SanitizeName(g.Title)
	}
	expiresAt := r.DefaultExpiry()
	if expiry != nil {
		expiresAt = dateparse.StartOfDay(*expiry, r.loc)
	}

	room, err := r.rooms.Create(ctx, models.ChatRoom{
		GroupID:     groupID,
		Name:        name,
		Description: htmlsanitize.Sanitize(description),
		ExpiresAt:   expiresAt,
		CreatorID:   creatorID,
	})
	if err != nil {
		if errors.Is(err, chatroomstore.ErrRoomExists) {
			// Lost the race with a concurrent creator; the winner's room is ours.
			winner, gerr := r.rooms.GetByGroup(ctx, groupID)
			if gerr != nil {
				return primitive.NilObjectID, storageErr("load winning room", gerr)
			}
			r.log.Debug("chat room created concurrently; using existing",
				zap.String("group_id", groupID.Hex()),
				zap.String("room_id", winner.ID.Hex()))
			return r.link(ctx, groupID, winner.ID)
		}
		return primitive.NilObjectID, storageErr("create room", err)
	}

	if _, err := r.link(ctx, groupID, room.ID); err != nil {
		if _, derr := r.rooms.Delete(ctx, room.ID); derr != nil {
			r.log.Error("failed to remove room after link failure",
				zap.String("group_id", groupID.Hex()),
				zap.String("room_id", room.ID.Hex()),
				zap.Error(derr))
		}
		return primitive.NilObjectID, err
	}

	r.log.Info("chat room created",
		zap.String("group_id", groupID.Hex()),
		zap.String("room_id", room.ID.Hex()),
		zap.Time("expires_at", expiresAt))
	r.audit.RoomCreated(ctx, groupID, room.ID, expiresAt)
	return room.ID, nil
}

func (r *Registry) link(ctx context.Context, groupID, roomID primitive.ObjectID) (primitive.ObjectID, error) {
	err := r.groups.LinkRoom(ctx, groupID, roomID)
	switch {
	case err == nil:
		return roomID, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return primitive.NilObjectID, fmt.Errorf("group %s: %w", groupID.Hex(), chaterr.ErrNotFound)
	case errors.Is(err, groupstore.ErrLinkConflict):
		return primitive.NilObjectID, fmt.Errorf("group %s linked elsewhere: %w", groupID.Hex(), chaterr.ErrIntegrity)
	default:
		return primitive.NilObjectID, storageErr("link group", err)
	}
}

// GetRoom returns the room linked to groupID. It fails with ErrNotFound when
// the group has no link and with ErrIntegrity when the link dangles or the
// room points at another group.
func (r *Registry) GetRoom(ctx context.Context, groupID primitive.ObjectID) (models.ChatRoom, error) {
	g, err := r.groups.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ChatRoom{}, fmt.Errorf("group %s: %w", groupID.Hex(), chaterr.ErrNotFound)
		}
		return models.ChatRoom{}, storageErr("load group", err)
	}
	if g.ChatRoomID == nil {
		return models.ChatRoom{}, fmt.Errorf("group %s has no chat room: %w", groupID.Hex(), chaterr.ErrNotFound)
	}

	room, err := r.rooms.GetByID(ctx, *g.ChatRoomID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.log.Error("group links a missing chat room",
				zap.String("group_id", groupID.Hex()),
				zap.String("room_id", g.ChatRoomID.Hex()))
			return models.ChatRoom{}, fmt.Errorf("group %s room %s missing: %w", groupID.Hex(), g.ChatRoomID.Hex(), chaterr.ErrIntegrity)
		}
		return models.ChatRoom{}, storageErr("load room", err)
	}
	if room.GroupID != groupID {
		r.log.Error("chat room back link disagrees with group",
			zap.String("group_id", groupID.Hex()),
			zap.String("room_id", room.ID.Hex()),
			zap.String("room_group_id", room.GroupID.Hex()))
		return models.ChatRoom{}, fmt.Errorf("group %s room %s: %w", groupID.Hex(), room.ID.Hex(), chaterr.ErrIntegrity)
	}
	return room, nil
}

// GetRoomID is GetRoom reduced to the id.
func (r *Registry) GetRoomID(ctx context.Context, groupID primitive.ObjectID) (primitive.ObjectID, error) {
	room, err := r.GetRoom(ctx, groupID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return room.ID, nil
}

// RenameRoom gives the group's room a new display name. A group without a
// room is left alone.
func (r *Registry) RenameRoom(ctx context.Context, groupID primitive.ObjectID, title string) error {
	room, err := r.GetRoom(ctx, groupID)
	if err != nil {
		if errors.Is(err, chaterr.ErrNotFound) {
			return nil
		}
		return err
	}
	name := htmlsanitize.SanitizeName(title)
	if name == "" || name == room.Name {
		return nil
	}
	if err := r.rooms.Rename(ctx, room.ID, name); err != nil {
		return storageErr("rename room", err)
	}
	return nil
}
