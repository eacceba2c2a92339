package settingsstore

import (
	"context"
	"time"

	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// settingsKey identifies the single chat settings document.
const settingsKey = "chat"

// Store provides access to the chat_settings collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new settings store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("chat_settings")}
}

// Get returns the stored chat settings. If nothing was saved yet, it returns
// zero settings (every field falls back to the configured default).
func (s *Store) Get(ctx context.Context) (models.ChatSettings, error) {
	var settings models.ChatSettings
	err := s.c.FindOne(ctx, bson.M{"key": settingsKey}).Decode(&settings)
	if err == mongo.ErrNoDocuments {
		return models.ChatSettings{}, nil
	}
	if err != nil {
		return models.ChatSettings{}, err
	}
	return settings, nil
}

// Save upserts the chat settings.
func (s *Store) Save(ctx context.Context, settings models.ChatSettings) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"key":                 settingsKey,
			"expiry_action":       settings.ExpiryAction,
			"default_expiry_days": settings.DefaultExpiryDays,
			"notify_email":        settings.NotifyEmail,
			"updated_at":          now,
			"updated_by_id":       settings.UpdatedByID,
		},
		"$setOnInsert": bson.M{
			"_id": primitive.NewObjectID(),
		},
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"key": settingsKey}, update, options.Update().SetUpsert(true))
	return err
}
