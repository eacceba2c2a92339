package roommemberstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/therapyrooms/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store manages the room_members collection: one record per
// (room_id, user_id, source).
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("room_members")}
}

var errBadSource = errors.New(`source must be "native", "participant" or "recipient"`)

func validSource(source string) bool {
	switch source {
	case models.MemberSourceNative, models.MemberSourceParticipant, models.MemberSourceRecipient:
		return true
	}
	return false
}

// Add records userID in roomID under source. An existing record for the same
// triple is not an error.
func (s *Store) Add(ctx context.Context, roomID, userID primitive.ObjectID, source string) error {
	if !validSource(source) {
		return errBadSource
	}
	_, err := s.c.InsertOne(ctx, models.RoomMember{
		ID:       primitive.NewObjectID(),
		RoomID:   roomID,
		UserID:   userID,
		Source:   source,
		JoinedAt: time.Now().UTC(),
	})
	if err != nil && !wafflemongo.IsDup(err) {
		return err
	}
	return nil
}

// Remove deletes every record for (roomID, userID), whatever its source.
// Returns the number of documents deleted.
func (s *Store) Remove(ctx context.Context, roomID, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"room_id": roomID, "user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Exists checks if any record exists for the room and user.
func (s *Store) Exists(ctx context.Context, roomID, userID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"room_id": roomID, "user_id": userID}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListByRoom returns all records for a room, optionally filtered by source.
// If source is empty, returns records from every source.
func (s *Store) ListByRoom(ctx context.Context, roomID primitive.ObjectID, source string) ([]models.RoomMember, error) {
	filter := bson.M{"room_id": roomID}
	if source != "" {
		filter["source"] = source
	}
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var members []models.RoomMember
	if err := cur.All(ctx, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// DeleteByRoom removes all records for a room.
// Returns the number of documents deleted.
func (s *Store) DeleteByRoom(ctx context.Context, roomID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"room_id": roomID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountByRoom returns the number of distinct users with a record in the room.
func (s *Store) CountByRoom(ctx context.Context, roomID primitive.ObjectID) (int, error) {
	ids, err := s.c.Distinct(ctx, "user_id", bson.M{"room_id": roomID})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
