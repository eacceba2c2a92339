package chatprovider_test

import (
	"context"
	"errors"
	"testing"

	roommemberstore "github.com/dalemusser/therapyrooms/internal/app/store/roommembers"
	"github.com/dalemusser/therapyrooms/internal/app/system/chatprovider"
	"github.com/dalemusser/therapyrooms/internal/app/system/indexes"
	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"github.com/dalemusser/therapyrooms/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNew_Validation(t *testing.T) {
	members := &roommemberstore.Store{}
	tests := []struct {
		name    string
		kind    string
		base    string
		wantErr bool
		want    string
	}{
		{"native", "native", "", false, chatprovider.KindNative},
		{"default is native", "", "", false, chatprovider.KindNative},
		{"none", "NONE", "https://chat.example.com", false, chatprovider.KindNone},
		{"unknown", "slack", "", true, ""},
		{"bad url", "none", "not a url", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := chatprovider.New(tt.kind, members, tt.base)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.want)
			}
		})
	}
}

func TestRoomURL(t *testing.T) {
	roomID := primitive.NewObjectID()

	p, err := chatprovider.New("none", nil, "https://chat.example.com/")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	want := "https://chat.example.com/rooms/" + roomID.Hex()
	if got := p.RoomURL(roomID); got != want {
		t.Errorf("RoomURL() = %q, want %q", got, want)
	}

	p, _ = chatprovider.New("none", nil, "")
	if got := p.RoomURL(roomID); got != "" {
		t.Errorf("expected empty RoomURL without base, got %q", got)
	}
}

func TestNone_JoinUnsupported(t *testing.T) {
	p, _ := chatprovider.New("none", nil, "")
	err := p.JoinRoom(context.Background(), primitive.NewObjectID(), primitive.NewObjectID())
	if !errors.Is(err, chatprovider.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestNative_JoinWritesNativeRecord(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	members := roommemberstore.New(db)
	p, err := chatprovider.New("native", members, "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	roomID, userID := primitive.NewObjectID(), primitive.NewObjectID()
	if err := p.JoinRoom(ctx, roomID, userID); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	// joining twice is harmless
	if err := p.JoinRoom(ctx, roomID, userID); err != nil {
		t.Fatalf("second JoinRoom failed: %v", err)
	}

	recs, err := members.ListByRoom(ctx, roomID, models.MemberSourceNative)
	if err != nil {
		t.Fatalf("ListByRoom failed: %v", err)
	}
	if len(recs) != 1 || recs[0].UserID != userID {
		t.Errorf("expected one native record for the user, got %+v", recs)
	}
}
