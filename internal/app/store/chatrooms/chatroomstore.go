// internal/app/store/chatrooms/chatroomstore.go
package chatroomstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dalemusser/therapyrooms/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

// ErrRoomExists is returned by Create when another room already points at
// the same group (unique index on group_id).
var ErrRoomExists = errors.New("a chat room already exists for this group")

// ErrConcurrentUpdate is returned when the JSON member blob changed between
// read and write.
var ErrConcurrentUpdate = errors.New("chat room changed concurrently")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("chat_rooms")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.ChatRoom, error) {
	var r models.ChatRoom
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return models.ChatRoom{}, err
	}
	return r, nil
}

// GetByGroup returns the room whose back link points at groupID.
func (s *Store) GetByGroup(ctx context.Context, groupID primitive.ObjectID) (models.ChatRoom, error) {
	var r models.ChatRoom
	if err := s.c.FindOne(ctx, bson.M{"group_id": groupID}).Decode(&r); err != nil {
		return models.ChatRoom{}, err
	}
	return r, nil
}

// Create inserts a new active room. ID, status and timestamps are assigned here.
func (s *Store) Create(ctx context.Context, r models.ChatRoom) (models.ChatRoom, error) {
	now := time.Now().UTC()
	r.ID = primitive.NewObjectID()
	r.Status = models.RoomStatusActive
	r.ArchivedAt = nil
	r.CreatedAt = now
	r.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		if wafflemongo.IsDup(err) {
			return models.ChatRoom{}, ErrRoomExists
		}
		return models.ChatRoom{}, err
	}
	return r, nil
}

// Rename updates the room's display name.
func (s *Store) Rename(ctx context.Context, id primitive.ObjectID, name string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"name":       name,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Transition moves a room to status `to` only if its current status is one
// of `from`. It reports whether the room was changed. archivedAt, when non-nil,
// is stamped; a nil archivedAt clears any previous stamp when `to` is active.
//
// The status guard is the only coordination between the scheduled sweep and
// manual actions: a transition that lost the race matches nothing.
func (s *Store) Transition(ctx context.Context, id primitive.ObjectID, from []string, to string, archivedAt *time.Time) (bool, error) {
	update := bson.M{"$set": bson.M{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}}
	if archivedAt != nil {
		update["$set"].(bson.M)["archived_at"] = *archivedAt
	} else if to == models.RoomStatusActive {
		update["$unset"] = bson.M{"archived_at": ""}
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "status": bson.M{"$in": from}}, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// SetExpiry updates the expiry date.
func (s *Store) SetExpiry(ctx context.Context, id primitive.ObjectID, expiresAt time.Time) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"expires_at": expiresAt,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ListExpiring returns active rooms whose expires_at is before `before`.
func (s *Store) ListExpiring(ctx context.Context, before time.Time) ([]models.ChatRoom, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"status": models.RoomStatusActive, "expires_at": bson.M{"$lt": before}},
		options.Find().SetSort(bson.D{{Key: "expires_at", Value: 1}}).
			SetProjection(bson.M{"member_ids": 0, "members_json": 0}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rooms []models.ChatRoom
	if err := cur.All(ctx, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// Delete removes a room. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteIfStatus removes a room only while its status is one of `statuses`.
func (s *Store) DeleteIfStatus(ctx context.Context, id primitive.ObjectID, statuses ...string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "status": bson.M{"$in": statuses}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountByStatus returns the number of rooms in a status.
func (s *Store) CountByStatus(ctx context.Context, status string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"status": status})
}

/* -------------------------------------------------------------------------- */
/* Room-attached member list                                                  */
/* -------------------------------------------------------------------------- */

// ListMembers returns the member_ids list attached to the room.
func (s *Store) ListMembers(ctx context.Context, id primitive.ObjectID) ([]primitive.ObjectID, error) {
	var doc struct {
		MemberIDs []primitive.ObjectID `bson:"member_ids"`
	}
	err := s.c.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"member_ids": 1})).Decode(&doc)
	if err != nil {
		return nil, err
	}
	return doc.MemberIDs, nil
}

// HasListedMember checks the member_ids list for userID.
func (s *Store) HasListedMember(ctx context.Context, id, userID primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id, "member_ids": userID})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddListedMember appends userID to member_ids (set semantics).
func (s *Store) AddListedMember(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$addToSet": bson.M{"member_ids": userID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// RemoveListedMember pulls userID from member_ids. It reports whether the
// list changed.
func (s *Store) RemoveListedMember(ctx context.Context, id, userID primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$pull": bson.M{"member_ids": userID}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

/* -------------------------------------------------------------------------- */
/* JSON-encoded member blob                                                   */
/* -------------------------------------------------------------------------- */

// JSONMembers decodes members_json. Entries may be hex strings or objects
// with a "user_id" field; unparseable entries are skipped.
func (s *Store) JSONMembers(ctx context.Context, id primitive.ObjectID) ([]primitive.ObjectID, string, error) {
	var doc struct {
		MembersJSON string `bson:"members_json"`
	}
	err := s.c.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"members_json": 1})).Decode(&doc)
	if err != nil {
		return nil, "", err
	}
	ids, err := DecodeMembersJSON(doc.MembersJSON)
	if err != nil {
		return nil, doc.MembersJSON, err
	}
	return ids, doc.MembersJSON, nil
}

// ReplaceJSONMembers writes a new blob only if the stored blob still equals
// prev. Returns ErrConcurrentUpdate otherwise.
func (s *Store) ReplaceJSONMembers(ctx context.Context, id primitive.ObjectID, prev string, ids []primitive.ObjectID) error {
	blob, err := EncodeMembersJSON(ids)
	if err != nil {
		return err
	}
	filter := bson.M{"_id": id}
	if prev == "" {
		filter["$or"] = bson.A{
			bson.M{"members_json": bson.M{"$exists": false}},
			bson.M{"members_json": ""},
		}
	} else {
		filter["members_json"] = prev
	}
	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"members_json": blob}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

// DecodeMembersJSON parses the legacy blob. An empty blob is an empty list.
func DecodeMembersJSON(blob string) ([]primitive.ObjectID, error) {
	if blob == "" {
		return nil, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, item := range raw {
		var hex string
		if err := json.Unmarshal(item, &hex); err != nil {
			var obj struct {
				UserID string `json:"user_id"`
			}
			if err := json.Unmarshal(item, &obj); err != nil {
				continue
			}
			hex = obj.UserID
		}
		if oid, err := primitive.ObjectIDFromHex(hex); err == nil {
			ids = append(ids, oid)
		}
	}
	return ids, nil
}

// EncodeMembersJSON renders ids as a JSON array of hex strings.
func EncodeMembersJSON(ids []primitive.ObjectID) (string, error) {
	hexes := make([]string, 0, len(ids))
	for _, id := range ids {
		hexes = append(hexes, id.Hex())
	}
	b, err := json.Marshal(hexes)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
