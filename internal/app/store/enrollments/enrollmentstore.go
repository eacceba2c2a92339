package enrollmentstore

import (
	"context"
	"time"

	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages enrollment_links: one document per user.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("enrollment_links")}
}

// Get returns the user's current link or mongo.ErrNoDocuments.
func (s *Store) Get(ctx context.Context, userID primitive.ObjectID) (models.EnrollmentLink, error) {
	var l models.EnrollmentLink
	if err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&l); err != nil {
		return models.EnrollmentLink{}, err
	}
	return l, nil
}

// Set replaces whatever link the user had with (groupID, roomID).
func (s *Store) Set(ctx context.Context, userID, groupID, roomID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$set": bson.M{
				"group_id":    groupID,
				"room_id":     roomID,
				"enrolled_at": time.Now().UTC(),
			},
			"$setOnInsert": bson.M{"_id": primitive.NewObjectID()},
		},
		options.Update().SetUpsert(true))
	return err
}

// Clear removes the user's link only while it points at groupID.
// It reports whether a link was removed.
func (s *Store) Clear(ctx context.Context, userID, groupID primitive.ObjectID) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"user_id": userID, "group_id": groupID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// ListByGroup returns every link pointing at a group.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.EnrollmentLink, error) {
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var links []models.EnrollmentLink
	if err := cur.All(ctx, &links); err != nil {
		return nil, err
	}
	return links, nil
}

// DeleteByGroup removes all links for a group.
// Returns the number of documents deleted.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
