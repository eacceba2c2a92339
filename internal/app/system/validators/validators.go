// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	// Groups and their rooms
	ensure("session_groups", sessionGroupsSchema())
	ensure("chat_rooms", chatRoomsSchema())

	// Membership and enrollment
	ensure("room_members", roomMembersSchema())
	ensure("enrollment_links", enrollmentLinksSchema())

	ensure("users", usersSchema())
	ensure("chat_settings", chatSettingsSchema())

	// Written by the audit logger; no validator.
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func enumOf(values ...string) bson.A {
	out := make(bson.A, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func sessionGroupsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "title_ci", "kind", "status"},
			"properties": bson.M{
				"title":        nonBlank,
				"title_ci":     nonBlank,
				"kind":         bson.M{"enum": enumOf(models.GroupKindTherapy, models.GroupKindRetreat)},
				"status":       bson.M{"enum": enumOf(models.GroupStatusActive, models.GroupStatusInactive, models.GroupStatusCompleted)},
				"capacity":     bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"chat_room_id": bson.M{"bsonType": bson.A{"objectId", "null"}},
				"chat_expired": bson.M{"bsonType": "bool"},
				"chat_deleted": bson.M{"bsonType": "bool"},
			},
		},
	}
}

func chatRoomsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "name", "status", "expires_at"},
			"properties": bson.M{
				"group_id":     bson.M{"bsonType": "objectId"},
				"name":         bson.M{"bsonType": "string"},
				"description":  bson.M{"bsonType": "string"},
				"status":       bson.M{"enum": enumOf(models.RoomStatusActive, models.RoomStatusArchived, models.RoomStatusExpired)},
				"expires_at":   bson.M{"bsonType": "date"},
				"archived_at":  bson.M{"bsonType": "date"},
				"member_ids":   bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
				"members_json": bson.M{"bsonType": "string"},
			},
		},
	}
}

func roomMembersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"room_id", "user_id", "source"},
			"properties": bson.M{
				"room_id":   bson.M{"bsonType": "objectId"},
				"user_id":   bson.M{"bsonType": "objectId"},
				"source":    bson.M{"enum": enumOf(models.MemberSourceNative, models.MemberSourceParticipant, models.MemberSourceRecipient)},
				"joined_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func enrollmentLinksSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "group_id", "room_id"},
			"properties": bson.M{
				"user_id":     bson.M{"bsonType": "objectId"},
				"group_id":    bson.M{"bsonType": "objectId"},
				"room_id":     bson.M{"bsonType": "objectId"},
				"enrolled_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"full_name", "role"},
			"properties": bson.M{
				"full_name":    nonBlank,
				"full_name_ci": bson.M{"bsonType": "string"},
				"email":        bson.M{"bsonType": bson.A{"string", "null"}},
				"role":         bson.M{"enum": enumOf("admin", "therapist", "client")},
				"status":       bson.M{"enum": enumOf("active", "disabled")},
			},
		},
	}
}

func chatSettingsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"key"},
			"properties": bson.M{
				"key": bson.M{"bsonType": "string"},
				// Empty values mean "use the configured default".
				"expiry_action":       bson.M{"enum": enumOf("", "archive", "delete")},
				"default_expiry_days": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"notify_email":        bson.M{"bsonType": "string"},
			},
		},
	}
}
