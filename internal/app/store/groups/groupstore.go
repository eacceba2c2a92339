// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/therapyrooms/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrDuplicateGroupTitle = errors.New("a session group with this title already exists")
	ErrBadStatus           = errors.New(`status must be "active", "inactive" or "completed"`)
	ErrBadKind             = errors.New(`kind must be "therapy" or "retreat"`)

	// ErrLinkConflict means the group is already linked to a different room.
	ErrLinkConflict = errors.New("group is linked to a different chat room")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("session_groups")}
}

func validStatus(s string) bool {
	switch s {
	case models.GroupStatusActive, models.GroupStatusInactive, models.GroupStatusCompleted:
		return true
	}
	return false
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.SessionGroup, error) {
	var g models.SessionGroup
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return models.SessionGroup{}, err
	}
	return g, nil
}

func (s *Store) Create(ctx context.Context, g models.SessionGroup) (models.SessionGroup, error) {
	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.TitleCI = text.Fold(g.Title)
	if g.Status == "" {
		g.Status = models.GroupStatusActive
	}
	if !validStatus(g.Status) {
		return models.SessionGroup{}, ErrBadStatus
	}
	if g.Kind == "" {
		g.Kind = models.GroupKindTherapy
	}
	if g.Kind != models.GroupKindTherapy && g.Kind != models.GroupKindRetreat {
		return models.SessionGroup{}, ErrBadKind
	}
	// Links are owned by the room registry.
	g.ChatRoomID = nil
	g.CreatedAt = now
	g.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, g)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.SessionGroup{}, ErrDuplicateGroupTitle
		}
		return models.SessionGroup{}, err
	}
	return g, nil
}

// InfoUpdate carries the editable group attributes. Nil fields are left as is.
type InfoUpdate struct {
	Title     *string
	Status    *string
	IssueTag  *string
	Gender    *string
	Capacity  *int
	StartDate *time.Time
	EndDate   *time.Time
}

func (s *Store) UpdateInfo(ctx context.Context, id primitive.ObjectID, upd InfoUpdate) error {
	set := bson.M{
		"updated_at": time.Now().UTC(),
	}
	if upd.Title != nil && strings.TrimSpace(*upd.Title) != "" {
		set["title"] = *upd.Title
		set["title_ci"] = text.Fold(*upd.Title)
	}
	if upd.Status != nil {
		if !validStatus(*upd.Status) {
			return ErrBadStatus
		}
		set["status"] = *upd.Status
	}
	if upd.IssueTag != nil {
		set["issue_tag"] = *upd.IssueTag
	}
	if upd.Gender != nil {
		set["gender"] = *upd.Gender
	}
	if upd.Capacity != nil {
		set["capacity"] = *upd.Capacity
	}
	if upd.StartDate != nil {
		set["start_date"] = *upd.StartDate
	}
	if upd.EndDate != nil {
		set["end_date"] = *upd.EndDate
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateGroupTitle
		}
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// LinkRoom sets chat_room_id when the group has no link yet (or already points
// at roomID). It also clears the chat_expired / chat_deleted flags.
func (s *Store) LinkRoom(ctx context.Context, groupID, roomID primitive.ObjectID) error {
	filter := bson.M{
		"_id": groupID,
		"$or": bson.A{
			bson.M{"chat_room_id": bson.M{"$exists": false}},
			bson.M{"chat_room_id": nil},
			bson.M{"chat_room_id": roomID},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"chat_room_id": roomID,
			"chat_expired": false,
			"chat_deleted": false,
			"updated_at":   time.Now().UTC(),
		},
		"$unset": bson.M{"chat_archived_at": ""},
	}
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Either the group is gone or another room holds the link.
		n, err := s.c.CountDocuments(ctx, bson.M{"_id": groupID})
		if err != nil {
			return err
		}
		if n == 0 {
			return mongo.ErrNoDocuments
		}
		return ErrLinkConflict
	}
	return nil
}

// UnlinkRoom clears chat_room_id only while it still points at roomID.
func (s *Store) UnlinkRoom(ctx context.Context, groupID, roomID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": groupID, "chat_room_id": roomID},
		bson.M{
			"$unset": bson.M{"chat_room_id": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		})
	return err
}

// MarkChatExpired flags the group's chat as expired and stamps the archive time.
func (s *Store) MarkChatExpired(ctx context.Context, groupID primitive.ObjectID, at time.Time) error {
	_, err := s.c.UpdateByID(ctx, groupID, bson.M{"$set": bson.M{
		"chat_expired":     true,
		"chat_archived_at": at,
		"updated_at":       time.Now().UTC(),
	}})
	return err
}

// ClearChatExpired removes the expired flag after a room is reactivated.
func (s *Store) ClearChatExpired(ctx context.Context, groupID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, groupID, bson.M{
		"$set":   bson.M{"chat_expired": false, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"chat_archived_at": ""},
	})
	return err
}

// MarkChatDeleted flags the group after its room was permanently removed.
func (s *Store) MarkChatDeleted(ctx context.Context, groupID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, groupID, bson.M{"$set": bson.M{
		"chat_deleted": true,
		"updated_at":   time.Now().UTC(),
	}})
	return err
}

// Delete removes a group by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountByStatus returns the number of groups with the given status.
func (s *Store) CountByStatus(ctx context.Context, status string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"status": status})
}
