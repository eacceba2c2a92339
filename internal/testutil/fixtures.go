package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParams adds chi URL parameters (key, value pairs) to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateGroup creates an active therapy group with no chat room.
func (f *Fixtures) CreateGroup(ctx context.Context, title string) models.SessionGroup {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.SessionGroup{
		ID:        primitive.NewObjectID(),
		Title:     title,
		TitleCI:   text.Fold(title),
		Kind:      models.GroupKindTherapy,
		Status:    models.GroupStatusActive,
		Capacity:  12,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("session_groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// CreateUser creates a test user with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      email,
		Role:       role,
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateClient creates a client (member) user.
func (f *Fixtures) CreateClient(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, "client")
}

// CreateLinkedRoom creates a room for the group and links both sides.
func (f *Fixtures) CreateLinkedRoom(ctx context.Context, groupID primitive.ObjectID, status string, expiresAt time.Time) models.ChatRoom {
	f.t.Helper()

	room := f.CreateRoomOnly(ctx, groupID, status, expiresAt)
	_, err := f.db.Collection("session_groups").UpdateByID(ctx, groupID,
		bson.M{"$set": bson.M{"chat_room_id": room.ID}})
	if err != nil {
		f.t.Fatalf("failed to link test room: %v", err)
	}
	return room
}

// CreateRoomOnly inserts a room whose back link points at groupID without
// touching the group document.
func (f *Fixtures) CreateRoomOnly(ctx context.Context, groupID primitive.ObjectID, status string, expiresAt time.Time) models.ChatRoom {
	f.t.Helper()

	now := time.Now().UTC()
	room := models.ChatRoom{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		Name:      "Room",
		Status:    status,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("chat_rooms").InsertOne(ctx, room); err != nil {
		f.t.Fatalf("failed to create test room: %v", err)
	}
	return room
}

// SetLegacyMembers writes the list and JSON membership shapes directly.
func (f *Fixtures) SetLegacyMembers(ctx context.Context, roomID primitive.ObjectID, list []primitive.ObjectID, jsonBlob string) {
	f.t.Helper()

	set := bson.M{}
	if list != nil {
		set["member_ids"] = list
	}
	if jsonBlob != "" {
		set["members_json"] = jsonBlob
	}
	if _, err := f.db.Collection("chat_rooms").UpdateByID(ctx, roomID, bson.M{"$set": set}); err != nil {
		f.t.Fatalf("failed to set legacy members: %v", err)
	}
}

// AddMemberRecord inserts a one-record-per-user membership row.
func (f *Fixtures) AddMemberRecord(ctx context.Context, roomID, userID primitive.ObjectID, source string) {
	f.t.Helper()

	_, err := f.db.Collection("room_members").InsertOne(ctx, models.RoomMember{
		ID:       primitive.NewObjectID(),
		RoomID:   roomID,
		UserID:   userID,
		Source:   source,
		JoinedAt: time.Now().UTC(),
	})
	if err != nil {
		f.t.Fatalf("failed to add member record: %v", err)
	}
}
