package enrollmentstore_test

import (
	"testing"

	enrollmentstore "github.com/dalemusser/therapyrooms/internal/app/store/enrollments"
	"github.com/dalemusser/therapyrooms/internal/app/system/indexes"
	"github.com/dalemusser/therapyrooms/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_SetReplaces(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := enrollmentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	user := primitive.NewObjectID()
	groupA, roomA := primitive.NewObjectID(), primitive.NewObjectID()
	groupB, roomB := primitive.NewObjectID(), primitive.NewObjectID()

	if err := store.Set(ctx, user, groupA, roomA); err != nil {
		t.Fatalf("Set(A) failed: %v", err)
	}
	if err := store.Set(ctx, user, groupB, roomB); err != nil {
		t.Fatalf("Set(B) failed: %v", err)
	}

	count, err := db.Collection("enrollment_links").CountDocuments(ctx, bson.M{"user_id": user})
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one link, got %d", count)
	}

	link, err := store.Get(ctx, user)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if link.GroupID != groupB || link.RoomID != roomB {
		t.Errorf("expected link to B, got %+v", link)
	}
}

func TestStore_Clear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := enrollmentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := primitive.NewObjectID()
	group := primitive.NewObjectID()
	_ = store.Set(ctx, user, group, primitive.NewObjectID())

	// Clearing a different group leaves the link alone.
	removed, err := store.Clear(ctx, user, primitive.NewObjectID())
	if err != nil || removed {
		t.Fatalf("Clear(other): removed=%v err=%v", removed, err)
	}
	removed, err = store.Clear(ctx, user, group)
	if err != nil || !removed {
		t.Fatalf("Clear: removed=%v err=%v", removed, err)
	}
	if _, err := store.Get(ctx, user); err != mongo.ErrNoDocuments {
		t.Errorf("expected ErrNoDocuments after clear, got %v", err)
	}
}

func TestStore_ByGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := enrollmentstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	group := primitive.NewObjectID()
	room := primitive.NewObjectID()
	_ = store.Set(ctx, primitive.NewObjectID(), group, room)
	_ = store.Set(ctx, primitive.NewObjectID(), group, room)
	_ = store.Set(ctx, primitive.NewObjectID(), primitive.NewObjectID(), room)

	links, err := store.ListByGroup(ctx, group)
	if err != nil {
		t.Fatalf("ListByGroup failed: %v", err)
	}
	if len(links) != 2 {
		t.Errorf("expected 2 links, got %d", len(links))
	}
	n, err := store.DeleteByGroup(ctx, group)
	if err != nil || n != 2 {
		t.Errorf("DeleteByGroup: n=%d err=%v", n, err)
	}
}
