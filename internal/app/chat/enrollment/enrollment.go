// Package enrollment puts users into a session group's chat room and keeps
// their single enrollment link pointing at it.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/therapyrooms/internal/app/chat/chaterr"
	"github.com/dalemusser/therapyrooms/internal/app/system/auditlog"
	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Rooms resolves and creates group rooms.
type Rooms interface {
	GetOrCreateRoom(ctx context.Context, groupID primitive.ObjectID, name, description string, creatorID *primitive.ObjectID, expiry *time.Time) (primitive.ObjectID, error)
	GetRoom(ctx context.Context, groupID primitive.ObjectID) (models.ChatRoom, error)
}

// Members writes room membership.
type Members interface {
	AddMember(ctx context.Context, userID, roomID primitive.ObjectID) (string, error)
	RemoveMember(ctx context.Context, userID, roomID primitive.ObjectID) error
}

// Links stores the one enrollment link per user.
type Links interface {
	Get(ctx context.Context, userID primitive.ObjectID) (models.EnrollmentLink, error)
	Set(ctx context.Context, userID, groupID, roomID primitive.ObjectID) error
	Clear(ctx context.Context, userID, groupID primitive.ObjectID) (bool, error)
}

// Service enrolls users.
type Service struct {
	rooms   Rooms
	members Members
	links   Links
	audit   *auditlog.Logger
	log     *zap.Logger
}

// New creates a Service.
func New(rooms Rooms, members Members, links Links, audit *auditlog.Logger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{rooms: rooms, members: members, links: links, audit: audit, log: logger}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, chaterr.ErrStorage, err)
}

// openRoom resolves (creating if needed) the group's room and fails with
// ErrRoomClosed when it is not active.
func (s *Service) openRoom(ctx context.Context, groupID primitive.ObjectID) (models.ChatRoom, error) {
	if _, err := s.rooms.GetOrCreateRoom(ctx, groupID, "", "", nil, nil); err != nil {
		return models.ChatRoom{}, err
	}
	room, err := s.rooms.GetRoom(ctx, groupID)
	if err != nil {
		return models.ChatRoom{}, err
	}
	if !room.IsOpen() {
		s.log.Warn("enrollment refused: chat room is closed",
			zap.String("group_id", groupID.Hex()),
			zap.String("room_id", room.ID.Hex()),
			zap.String("status", room.Status))
		return room, fmt.Errorf("group %s room %s is %s: %w", groupID.Hex(), room.ID.Hex(), room.Status, chaterr.ErrRoomClosed)
	}
	return room, nil
}

// Enroll adds userID to the group's room, creating the room if the group
// has none, and points the user's enrollment link at it. Enrolling an
// existing member only refreshes the link.
func (s *Service) Enroll(ctx context.Context, userID, groupID primitive.ObjectID) (primitive.ObjectID, error) {
	room, err := s.openRoom(ctx, groupID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return room.ID, s.enrollInto(ctx, userID, groupID, room.ID)
}

func (s *Service) enrollInto(ctx context.Context, userID, groupID, roomID primitive.ObjectID) error {
	channel, err := s.members.AddMember(ctx, userID, roomID)
	if err != nil {
		return err
	}
	if err := s.links.Set(ctx, userID, groupID, roomID); err != nil {
		if channel != "" {
			s.dropMember(ctx, userID, roomID)
		}
		return storageErr("set enrollment link", err)
	}
	s.log.Info("user enrolled",
		zap.String("user_id", userID.Hex()),
		zap.String("group_id", groupID.Hex()),
		zap.String("room_id", roomID.Hex()),
		zap.String("channel", channel))
	s.audit.MemberEnrolled(ctx, userID, groupID, roomID, channel)
	return nil
}

// Unenroll removes userID from the group's room in every storage shape and
// clears the user's link if it points at the group. A group whose room is
// gone only has its link cleared.
func (s *Service) Unenroll(ctx context.Context, userID, groupID primitive.ObjectID) error {
	room, err := s.rooms.GetRoom(ctx, groupID)
	switch {
	case err == nil:
		if err := s.members.RemoveMember(ctx, userID, room.ID); err != nil {
			return err
		}
	case errors.Is(err, chaterr.ErrNotFound), errors.Is(err, chaterr.ErrIntegrity):
		s.log.Debug("unenroll: group has no usable room",
			zap.String("group_id", groupID.Hex()), zap.Error(err))
	default:
		return err
	}

	if _, err := s.links.Clear(ctx, userID, groupID); err != nil {
		return storageErr("clear enrollment link", err)
	}
	s.log.Info("user unenrolled",
		zap.String("user_id", userID.Hex()),
		zap.String("group_id", groupID.Hex()),
		zap.String("room_id", room.ID.Hex()))
	s.audit.MemberUnenrolled(ctx, userID, groupID, room.ID)
	return nil
}

// dropMember undoes a membership whose enrollment could not be recorded.
func (s *Service) dropMember(ctx context.Context, userID, roomID primitive.ObjectID) {
	if err := s.members.RemoveMember(ctx, userID, roomID); err != nil {
		s.log.Error("undo membership failed",
			zap.String("user_id", userID.Hex()),
			zap.String("room_id", roomID.Hex()),
			zap.Error(err))
	}
}

// ChangeGroup moves userID into newGroupID. When the user is already linked
// there only the room's status is checked. The new room is checked before the old
// enrollment is touched; if joining it still fails after leaving the old
// group, the user is put back into the old group and the join error is
// returned.
func (s *Service) ChangeGroup(ctx context.Context, userID, newGroupID primitive.ObjectID) error {
	var from *primitive.ObjectID
	cur, err := s.links.Get(ctx, userID)
	switch {
	case err == nil:
		if cur.GroupID == newGroupID {
			_, err := s.openRoom(ctx, newGroupID)
			return err
		}
		from = &cur.GroupID
	case errors.Is(err, mongo.ErrNoDocuments):
	default:
		return storageErr("load enrollment link", err)
	}

	room, err := s.openRoom(ctx, newGroupID)
	if err != nil {
		s.audit.MemberGroupChanged(ctx, userID, from, newGroupID, false, err.Error())
		return err
	}

	if from != nil {
		if err := s.Unenroll(ctx, userID, *from); err != nil {
			s.audit.MemberGroupChanged(ctx, userID, from, newGroupID, false, err.Error())
			return err
		}
	}

	if err := s.enrollInto(ctx, userID, newGroupID, room.ID); err != nil {
		if from != nil {
			s.dropMember(ctx, userID, room.ID)
			s.rollback(ctx, userID, *from)
		}
		s.audit.MemberGroupChanged(ctx, userID, from, newGroupID, false, err.Error())
		return err
	}

	s.audit.MemberGroupChanged(ctx, userID, from, newGroupID, true, "")
	return nil
}

func (s *Service) rollback(ctx context.Context, userID, groupID primitive.ObjectID) {
	if _, err := s.Enroll(ctx, userID, groupID); err != nil {
		s.log.Error("group change rollback failed; user has no enrollment",
			zap.String("user_id", userID.Hex()),
			zap.String("group_id", groupID.Hex()),
			zap.Error(err))
		return
	}
	s.log.Warn("group change rolled back",
		zap.String("user_id", userID.Hex()),
		zap.String("group_id", groupID.Hex()))
}

// Current returns the user's enrollment link.
func (s *Service) Current(ctx context.Context, userID primitive.ObjectID) (models.EnrollmentLink, error) {
	l, err := s.links.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.EnrollmentLink{}, fmt.Errorf("user %s: %w", userID.Hex(), chaterr.ErrNotFound)
		}
		return models.EnrollmentLink{}, storageErr("load enrollment link", err)
	}
	return l, nil
}
