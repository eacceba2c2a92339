package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/therapyrooms/internal/app/store/audit"
	"github.com/dalemusser/therapyrooms/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	roomID := primitive.NewObjectID()
	event := audit.Event{
		Category:  audit.CategoryChat,
		EventType: audit.EventMemberEnrolled,
		UserID:    &userID,
		RoomID:    &roomID,
		Success:   true,
	}

	if err := store.Log(ctx, event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID.IsZero() {
		t.Error("expected ID to be generated")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestStore_GetByRoom(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	roomA := primitive.NewObjectID()
	roomB := primitive.NewObjectID()
	for _, ev := range []audit.Event{
		{Category: audit.CategoryChat, EventType: audit.EventRoomCreated, RoomID: &roomA, Success: true},
		{Category: audit.CategoryChat, EventType: audit.EventRoomArchived, RoomID: &roomA, Success: true},
		{Category: audit.CategoryChat, EventType: audit.EventRoomCreated, RoomID: &roomB, Success: true},
	} {
		if err := store.Log(ctx, ev); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	events, err := store.GetByRoom(ctx, roomA, 10)
	if err != nil {
		t.Fatalf("GetByRoom failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events for room A, got %d", len(events))
	}
}

func TestStore_QueryFilters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	old := time.Now().Add(-48 * time.Hour)
	groupID := primitive.NewObjectID()
	events := []audit.Event{
		{Category: audit.CategoryAdmin, EventType: audit.EventGroupCreated, GroupID: &groupID, Timestamp: old, Success: true},
		{Category: audit.CategoryAdmin, EventType: audit.EventGroupUpdated, GroupID: &groupID, Success: true},
		{Category: audit.CategoryChat, EventType: audit.EventRoomDeleted, Success: false, FailureReason: "storage"},
	}
	for _, ev := range events {
		if err := store.Log(ctx, ev); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter audit.QueryFilter
		want   int64
	}{
		{"all", audit.QueryFilter{}, 3},
		{"by category", audit.QueryFilter{Category: audit.CategoryAdmin}, 2},
		{"by event type", audit.QueryFilter{EventType: audit.EventRoomDeleted}, 1},
		{"by group", audit.QueryFilter{GroupID: &groupID}, 2},
	}
	since := time.Now().Add(-time.Hour)
	tests = append(tests, struct {
		name   string
		filter audit.QueryFilter
		want   int64
	}{"since", audit.QueryFilter{StartTime: &since}, 2})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := store.CountByFilter(ctx, tt.filter)
			if err != nil {
				t.Fatalf("CountByFilter failed: %v", err)
			}
			if n != tt.want {
				t.Errorf("CountByFilter() = %d, want %d", n, tt.want)
			}
		})
	}

	got, err := store.Query(ctx, audit.QueryFilter{Limit: 1})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(got))
	}
	if got[0].EventType == audit.EventGroupCreated {
		t.Error("expected newest event first")
	}
}
