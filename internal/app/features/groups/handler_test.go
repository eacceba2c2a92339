package groups_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/therapyrooms/internal/app/chat"
	"github.com/dalemusser/therapyrooms/internal/app/chat/lifecycle"
	"github.com/dalemusser/therapyrooms/internal/app/features/groups"
	"github.com/dalemusser/therapyrooms/internal/app/system/auth"
	"github.com/dalemusser/therapyrooms/internal/app/system/indexes"
	"github.com/dalemusser/therapyrooms/internal/app/system/notify"
	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"github.com/dalemusser/therapyrooms/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*groups.Handler, *chat.Services, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	svc, err := chat.New(db, chat.Options{
		ProviderKind: "none",
		Lifecycle:    lifecycle.Config{ExpiryAction: "archive", DefaultExpiryDays: 30},
		Notifier:     &notify.Recorder{},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("chat.New failed: %v", err)
	}
	h := groups.NewHandler(svc.Groups, svc.Registry, svc.Rooms, svc.Lifecycle, svc.Links, svc.Bus, nil, time.UTC, zap.NewNop())
	return h, svc, testutil.NewFixtures(t, db)
}

func adminUser() *auth.SessionUser {
	return &auth.SessionUser{
		ID:    primitive.NewObjectID().Hex(),
		Name:  "Test Admin",
		Email: "admin@test.com",
		Role:  "admin",
	}
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return auth.WithTestUser(req, adminUser())
}

type groupResponse struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Status     string  `json:"status"`
	ChatRoomID *string `json:"chat_room_id"`
	Room       *struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Status    string    `json:"status"`
		ExpiresAt time.Time `json:"expires_at"`
	} `json:"room"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) groupResponse {
	t.Helper()
	var g groupResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &g); err != nil {
		t.Fatalf("bad response %q: %v", rec.Body.String(), err)
	}
	return g
}

func TestHandleCreateGroup_ActiveGetsRoom(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.HandleCreateGroup(rec, jsonRequest("POST", "/groups",
		`{"title":"Grief Support","kind":"therapy","chat_expiry_date":"2099-06-30"}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	g := decode(t, rec)
	if g.Title != "Grief Support" {
		t.Errorf("title = %q", g.Title)
	}
	if g.Room == nil {
		t.Fatal("expected a chat room")
	}
	if g.Room.Status != models.RoomStatusActive {
		t.Errorf("room status = %q, want active", g.Room.Status)
	}
	want := time.Date(2099, 6, 30, 0, 0, 0, 0, time.UTC)
	if !g.Room.ExpiresAt.Equal(want) {
		t.Errorf("expires_at = %v, want %v", g.Room.ExpiresAt, want)
	}
}

func TestHandleCreateGroup_InactiveHasNoRoom(t *testing.T) {
	handler, _, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := httptest.NewRecorder()
	handler.HandleCreateGroup(rec, jsonRequest("POST", "/groups", `{"title":"Later","status":"inactive"}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rec.Code)
	}
	if g := decode(t, rec); g.Room != nil || g.ChatRoomID != nil {
		t.Errorf("expected no room, got %+v", g)
	}
	n, err := fixtures.DB().Collection("chat_rooms").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 rooms, got %d", n)
	}
}

func TestHandleCreateGroup_Validation(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{"kind":"therapy"}`},
		{"bad kind", `{"title":"X","kind":"book club"}`},
		{"bad status", `{"title":"X","status":"paused"}`},
		{"bad expiry", `{"title":"X","chat_expiry_date":"someday"}`},
		{"negative capacity", `{"title":"X","capacity":-2}`},
		{"unknown field", `{"title":"X","colour":"blue"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.HandleCreateGroup(rec, jsonRequest("POST", "/groups", tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
		})
	}
}

func TestHandleCreateGroup_DuplicateTitle(t *testing.T) {
	handler, _, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateGroup(ctx, "Anxiety Group")

	rec := httptest.NewRecorder()
	handler.HandleCreateGroup(rec, jsonRequest("POST", "/groups", `{"title":"anxiety group"}`))

	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
}

func TestHandleCreateGroup_Unauthenticated(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := httptest.NewRequest("POST", "/groups", strings.NewReader(`{"title":"X"}`))
	rec := httptest.NewRecorder()
	handler.HandleCreateGroup(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestServeGroup(t *testing.T) {
	handler, _, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fixtures.CreateGroup(ctx, "Viewable")
	room := fixtures.CreateLinkedRoom(ctx, g.ID, models.RoomStatusExpired, time.Now().AddDate(0, 0, -1))

	rec := httptest.NewRecorder()
	req := testutil.WithChiURLParams(jsonRequest("GET", "/groups/"+g.ID.Hex(), ""), "id", g.ID.Hex())
	handler.ServeGroup(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	resp := decode(t, rec)
	if resp.Room == nil || resp.Room.ID != room.ID.Hex() {
		t.Fatalf("room = %+v, want %s", resp.Room, room.ID.Hex())
	}
	if resp.Room.Status != models.RoomStatusExpired {
		t.Errorf("room status = %q, want expired", resp.Room.Status)
	}
}

func TestServeGroup_NotFoundAndBadID(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	tests := []struct {
		id   string
		want int
	}{
		{primitive.NewObjectID().Hex(), http.StatusNotFound},
		{"nope", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		req := testutil.WithChiURLParams(jsonRequest("GET", "/groups/"+tt.id, ""), "id", tt.id)
		handler.ServeGroup(rec, req)
		if rec.Code != tt.want {
			t.Errorf("id %q: expected status %d, got %d", tt.id, tt.want, rec.Code)
		}
	}
}

func TestHandleEditGroup_SyncsRoom(t *testing.T) {
	handler, svc, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fixtures.CreateGroup(ctx, "Before")
	room := fixtures.CreateLinkedRoom(ctx, g.ID, models.RoomStatusExpired, time.Now().AddDate(0, 0, -3))

	rec := httptest.NewRecorder()
	req := testutil.WithChiURLParams(jsonRequest("PATCH", "/groups/"+g.ID.Hex(),
		`{"title":"After","chat_expiry_date":"2099-01-01","capacity":8}`), "id", g.ID.Hex())
	handler.HandleEditGroup(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	got, err := svc.Rooms.GetByID(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "After" {
		t.Errorf("room name = %q, want After", got.Name)
	}
	if got.Status != models.RoomStatusActive {
		t.Errorf("room status = %q, want active", got.Status)
	}
	if !got.ExpiresAt.Equal(time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expires_at = %v", got.ExpiresAt)
	}

	grp, err := svc.Groups.GetByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetByID(group) failed: %v", err)
	}
	if grp.Capacity != 8 {
		t.Errorf("capacity = %d, want 8", grp.Capacity)
	}
}

func TestHandleEditGroup_CompletedExpiresRoom(t *testing.T) {
	handler, svc, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fixtures.CreateGroup(ctx, "Finishing")
	room := fixtures.CreateLinkedRoom(ctx, g.ID, models.RoomStatusActive, time.Now().AddDate(0, 1, 0))

	rec := httptest.NewRecorder()
	req := testutil.WithChiURLParams(jsonRequest("PATCH", "/groups/"+g.ID.Hex(), `{"status":"completed"}`), "id", g.ID.Hex())
	handler.HandleEditGroup(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	got, err := svc.Rooms.GetByID(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != models.RoomStatusExpired {
		t.Errorf("room status = %q, want expired", got.Status)
	}
}

func TestHandleEditGroup_NoRoomIsFine(t *testing.T) {
	handler, _, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fixtures.CreateGroup(ctx, "Roomless")

	rec := httptest.NewRecorder()
	req := testutil.WithChiURLParams(jsonRequest("PATCH", "/groups/"+g.ID.Hex(),
		`{"title":"Still Roomless","chat_expiry_date":"2099-01-01"}`), "id", g.ID.Hex())
	handler.HandleEditGroup(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if resp := decode(t, rec); resp.Title != "Still Roomless" {
		t.Errorf("title = %q", resp.Title)
	}
}

func TestHandleEditGroup_NotFound(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	id := primitive.NewObjectID().Hex()

	rec := httptest.NewRecorder()
	req := testutil.WithChiURLParams(jsonRequest("PATCH", "/groups/"+id, `{"title":"X"}`), "id", id)
	handler.HandleEditGroup(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestHandleDeleteGroup_CascadesRoom(t *testing.T) {
	handler, svc, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	db := fixtures.DB()

	g := fixtures.CreateGroup(ctx, "Doomed")
	room := fixtures.CreateLinkedRoom(ctx, g.ID, models.RoomStatusActive, time.Now().AddDate(0, 1, 0))
	u := fixtures.CreateClient(ctx, "Member", "member@example.com")
	fixtures.AddMemberRecord(ctx, room.ID, u.ID, models.MemberSourceRecipient)
	if err := svc.Links.Set(ctx, u.ID, g.ID, room.ID); err != nil {
		t.Fatalf("Set link failed: %v", err)
	}

	rec := httptest.NewRecorder()
	req := testutil.WithChiURLParams(jsonRequest("DELETE", "/groups/"+g.ID.Hex(), ""), "id", g.ID.Hex())
	handler.HandleDeleteGroup(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d: %s", http.StatusNoContent, rec.Code, rec.Body.String())
	}
	for coll, filter := range map[string]bson.M{
		"session_groups":   {"_id": g.ID},
		"chat_rooms":       {"_id": room.ID},
		"room_members":     {"room_id": room.ID},
		"enrollment_links": {"group_id": g.ID},
	} {
		n, err := db.Collection(coll).CountDocuments(ctx, filter)
		if err != nil {
			t.Fatalf("CountDocuments(%s) failed: %v", coll, err)
		}
		if n != 0 {
			t.Errorf("%s: expected 0 documents, got %d", coll, n)
		}
	}
}

func TestHandleDeleteGroup_BrokenLinkStillCascades(t *testing.T) {
	tests := []struct {
		name string
		link func(ctx context.Context, db *mongo.Database, groupID primitive.ObjectID) error
	}{
		{"dangling group link", func(ctx context.Context, db *mongo.Database, groupID primitive.ObjectID) error {
			_, err := db.Collection("session_groups").UpdateByID(ctx, groupID,
				bson.M{"$set": bson.M{"chat_room_id": primitive.NewObjectID()}})
			return err
		}},
		{"no group link", func(ctx context.Context, db *mongo.Database, groupID primitive.ObjectID) error {
			return nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _, fixtures := newTestHandler(t)
			ctx, cancel := testutil.TestContext()
			defer cancel()
			db := fixtures.DB()

			g := fixtures.CreateGroup(ctx, "Half Linked")
			room := fixtures.CreateRoomOnly(ctx, g.ID, models.RoomStatusActive, time.Now().AddDate(0, 1, 0))
			if err := tt.link(ctx, db, g.ID); err != nil {
				t.Fatalf("set up link: %v", err)
			}

			rec := httptest.NewRecorder()
			req := testutil.WithChiURLParams(jsonRequest("DELETE", "/groups/"+g.ID.Hex(), ""), "id", g.ID.Hex())
			handler.HandleDeleteGroup(rec, req)

			if rec.Code != http.StatusNoContent {
				t.Fatalf("expected status %d, got %d: %s", http.StatusNoContent, rec.Code, rec.Body.String())
			}
			for coll, id := range map[string]primitive.ObjectID{"session_groups": g.ID, "chat_rooms": room.ID} {
				n, err := db.Collection(coll).CountDocuments(ctx, bson.M{"_id": id})
				if err != nil {
					t.Fatalf("CountDocuments(%s) failed: %v", coll, err)
				}
				if n != 0 {
					t.Errorf("%s: expected 0 documents, got %d", coll, n)
				}
			}
		})
	}
}

func TestHandleDeleteGroup_WithoutRoom(t *testing.T) {
	handler, _, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fixtures.CreateGroup(ctx, "Plain")

	rec := httptest.NewRecorder()
	req := testutil.WithChiURLParams(jsonRequest("DELETE", "/groups/"+g.ID.Hex(), ""), "id", g.ID.Hex())
	handler.HandleDeleteGroup(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.HandleDeleteGroup(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}
