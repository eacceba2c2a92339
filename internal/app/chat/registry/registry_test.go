package registry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/therapyrooms/internal/app/chat/chaterr"
	"github.com/dalemusser/therapyrooms/internal/app/chat/registry"
	chatroomstore "github.com/dalemusser/therapyrooms/internal/app/store/chatrooms"
	groupstore "github.com/dalemusser/therapyrooms/internal/app/store/groups"
	"github.com/dalemusser/therapyrooms/internal/app/system/dateparse"
	"github.com/dalemusser/therapyrooms/internal/app/system/indexes"
	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"github.com/dalemusser/therapyrooms/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*mongo.Database, *testutil.Fixtures, *registry.Registry) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	reg := registry.New(groupstore.New(db), chatroomstore.New(db), nil, zap.NewNop(), 30, time.UTC)
	return db, testutil.NewFixtures(t, db), reg
}

func countRooms(t *testing.T, db *mongo.Database, groupID primitive.ObjectID) int64 {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, err := db.Collection("chat_rooms").CountDocuments(ctx, bson.M{"group_id": groupID})
	if err != nil {
		t.Fatalf("count rooms: %v", err)
	}
	return n
}

func TestGetOrCreateRoom_Idempotent(t *testing.T) {
	db, fx, reg := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Tuesday Grief Circle")

	first, err := reg.GetOrCreateRoom(ctx, g.ID, "", "", nil, nil)
	if err != nil {
		t.Fatalf("first GetOrCreateRoom failed: %v", err)
	}
	second, err := reg.GetOrCreateRoom(ctx, g.ID, "Other name", "", nil, nil)
	if err != nil {
		t.Fatalf("second GetOrCreateRoom failed: %v", err)
	}
	if first != second {
		t.Errorf("expected same room id, got %s and %s", first.Hex(), second.Hex())
	}
	if n := countRooms(t, db, g.ID); n != 1 {
		t.Errorf("expected 1 room, got %d", n)
	}

	// both sides of the link agree
	group, err := groupstore.New(db).GetByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if group.ChatRoomID == nil || *group.ChatRoomID != first {
		t.Errorf("group link = %v, want %s", group.ChatRoomID, first.Hex())
	}
	room, err := chatroomstore.New(db).GetByID(ctx, first)
	if err != nil {
		t.Fatalf("room GetByID failed: %v", err)
	}
	if room.GroupID != g.ID || room.Status != models.RoomStatusActive {
		t.Errorf("unexpected room: %+v", room)
	}
	if room.Name != "Tuesday Grief Circle" {
		t.Errorf("room name = %q, want the group title", room.Name)
	}
}

func TestGetOrCreateRoom_Expiry(t *testing.T) {
	db, fx, reg := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	rooms := chatroomstore.New(db)

	// default lifetime
	g1 := fx.CreateGroup(ctx, "Default expiry")
	id1, err := reg.GetOrCreateRoom(ctx, g1.ID, "", "", nil, nil)
	if err != nil {
		t.Fatalf("GetOrCreateRoom failed: %v", err)
	}
	r1, _ := rooms.GetByID(ctx, id1)
	want := dateparse.StartOfDay(time.Now(), time.UTC).AddDate(0, 0, 30)
	if !r1.ExpiresAt.Equal(want) {
		t.Errorf("default expiry = %v, want %v", r1.ExpiresAt, want)
	}

	// explicit expiry is truncated to the day
	g2 := fx.CreateGroup(ctx, "Explicit expiry")
	exp := time.Date(2099, 1, 1, 15, 4, 5, 0, time.UTC)
	id2, err := reg.GetOrCreateRoom(ctx, g2.ID, "", "", nil, &exp)
	if err != nil {
		t.Fatalf("GetOrCreateRoom failed: %v", err)
	}
	r2, _ := rooms.GetByID(ctx, id2)
	if !r2.ExpiresAt.Equal(time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("explicit expiry = %v", r2.ExpiresAt)
	}
}

func TestGetOrCreateRoom_SanitizesInput(t *testing.T) {
	db, fx, reg := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Sanitize")
	creator := primitive.NewObjectID()
	id, err := reg.GetOrCreateRoom(ctx, g.ID, "<b>Spring</b> retreat", `<p>Welcome</p><script>x()</script>`, &creator, nil)
	if err != nil {
		t.Fatalf("GetOrCreateRoom failed: %v", err)
	}
	room, _ := chatroomstore.New(db).GetByID(ctx, id)
	if room.Name != "Spring retreat" {
		t.Errorf("name = %q", room.Name)
	}
	if room.Description != "<p>Welcome</p>" {
		t.Errorf("description = %q", room.Description)
	}
	if room.CreatorID == nil || *room.CreatorID != creator {
		t.Errorf("creator = %v", room.CreatorID)
	}
}

func TestGetOrCreateRoom_GroupNotFound(t *testing.T) {
	_, _, reg := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := reg.GetOrCreateRoom(ctx, primitive.NewObjectID(), "", "", nil, nil)
	if !errors.Is(err, chaterr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetOrCreateRoom_ReplacesDanglingLink(t *testing.T) {
	db, fx, reg := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Dangling")
	missing := primitive.NewObjectID()
	if _, err := db.Collection("session_groups").UpdateByID(ctx, g.ID, bson.M{"$set": bson.M{"chat_room_id": missing}}); err != nil {
		t.Fatalf("seed dangling link: %v", err)
	}

	id, err := reg.GetOrCreateRoom(ctx, g.ID, "", "", nil, nil)
	if err != nil {
		t.Fatalf("GetOrCreateRoom failed: %v", err)
	}
	if id == missing {
		t.Error("expected a new room, got the dangling id")
	}
	got, err := reg.GetRoomID(ctx, g.ID)
	if err != nil || got != id {
		t.Errorf("GetRoomID = %s, %v; want %s", got.Hex(), err, id.Hex())
	}
}

func TestGetOrCreateRoom_RepairsHalfLink(t *testing.T) {
	db, fx, reg := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Half linked")
	orphan := fx.CreateRoomOnly(ctx, g.ID, models.RoomStatusActive, time.Now().AddDate(0, 1, 0))

	id, err := reg.GetOrCreateRoom(ctx, g.ID, "", "", nil, nil)
	if err != nil {
		t.Fatalf("GetOrCreateRoom failed: %v", err)
	}
	if id != orphan.ID {
		t.Errorf("expected the existing room %s, got %s", orphan.ID.Hex(), id.Hex())
	}
	if n := countRooms(t, db, g.ID); n != 1 {
		t.Errorf("expected 1 room, got %d", n)
	}
	if got, err := reg.GetRoomID(ctx, g.ID); err != nil || got != orphan.ID {
		t.Errorf("GetRoomID = %s, %v", got.Hex(), err)
	}
}

func TestGetOrCreateRoom_MismatchedBackLink(t *testing.T) {
	_, fx, reg := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Mismatch A")
	other := fx.CreateGroup(ctx, "Mismatch B")
	room := fx.CreateRoomOnly(ctx, other.ID, models.RoomStatusActive, time.Now())
	if _, err := fx.DB().Collection("session_groups").UpdateByID(ctx, g.ID, bson.M{"$set": bson.M{"chat_room_id": room.ID}}); err != nil {
		t.Fatalf("seed mismatched link: %v", err)
	}

	if _, err := reg.GetOrCreateRoom(ctx, g.ID, "", "", nil, nil); !errors.Is(err, chaterr.ErrIntegrity) {
		t.Errorf("GetOrCreateRoom: expected ErrIntegrity, got %v", err)
	}
	if _, err := reg.GetRoomID(ctx, g.ID); !errors.Is(err, chaterr.ErrIntegrity) {
		t.Errorf("GetRoomID: expected ErrIntegrity, got %v", err)
	}
}

func TestGetOrCreateRoom_Concurrent(t *testing.T) {
	db, fx, reg := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Racing")

	const n = 8
	ids := make([]primitive.ObjectID, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = reg.GetOrCreateRoom(ctx, g.ID, "", "", nil, nil)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("call %d failed: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Errorf("call %d returned %s, want %s", i, ids[i].Hex(), ids[0].Hex())
		}
	}
	if c := countRooms(t, db, g.ID); c != 1 {
		t.Errorf("expected exactly 1 room, got %d", c)
	}
}

// failingLinker refuses to write the group link.
type failingLinker struct {
	*groupstore.Store
}

func (f failingLinker) LinkRoom(context.Context, primitive.ObjectID, primitive.ObjectID) error {
	return errors.New("write rejected")
}

func TestGetOrCreateRoom_LinkFailureLeavesNoRoom(t *testing.T) {
	db, fx, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	reg := registry.New(failingLinker{groupstore.New(db)}, chatroomstore.New(db), nil, zap.NewNop(), 30, time.UTC)
	g := fx.CreateGroup(ctx, "Link fails")

	_, err := reg.GetOrCreateRoom(ctx, g.ID, "", "", nil, nil)
	if !errors.Is(err, chaterr.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if n := countRooms(t, db, g.ID); n != 0 {
		t.Errorf("expected the new room to be removed, found %d", n)
	}
	group, _ := groupstore.New(db).GetByID(ctx, g.ID)
	if group.ChatRoomID != nil {
		t.Errorf("expected no group link, got %s", group.ChatRoomID.Hex())
	}
}

func TestGetRoomID_NotFound(t *testing.T) {
	_, fx, reg := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "No room yet")
	if _, err := reg.GetRoomID(ctx, g.ID); !errors.Is(err, chaterr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := reg.GetRoomID(ctx, primitive.NewObjectID()); !errors.Is(err, chaterr.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown group, got %v", err)
	}
}

func TestGetRoomID_DanglingIsIntegrityError(t *testing.T) {
	db, fx, reg := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Dangling read")
	if _, err := db.Collection("session_groups").UpdateByID(ctx, g.ID, bson.M{"$set": bson.M{"chat_room_id": primitive.NewObjectID()}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := reg.GetRoomID(ctx, g.ID); !errors.Is(err, chaterr.ErrIntegrity) {
		t.Errorf("expected ErrIntegrity, got %v", err)
	}
}

func TestRenameRoom(t *testing.T) {
	db, fx, reg := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Old title")
	id, err := reg.GetOrCreateRoom(ctx, g.ID, "", "", nil, nil)
	if err != nil {
		t.Fatalf("GetOrCreateRoom failed: %v", err)
	}
	if err := reg.RenameRoom(ctx, g.ID, "New <i>title</i>"); err != nil {
		t.Fatalf("RenameRoom failed: %v", err)
	}
	room, _ := chatroomstore.New(db).GetByID(ctx, id)
	if room.Name != "New title" {
		t.Errorf("name = %q, want %q", room.Name, "New title")
	}

	// no room: nothing to do
	bare := fx.CreateGroup(ctx, "Roomless")
	if err := reg.RenameRoom(ctx, bare.ID, "Whatever"); err != nil {
		t.Errorf("RenameRoom on roomless group: %v", err)
	}
}
