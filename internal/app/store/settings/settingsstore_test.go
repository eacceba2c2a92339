package settingsstore_test

import (
	"testing"

	settingsstore "github.com/dalemusser/therapyrooms/internal/app/store/settings"
	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"github.com/dalemusser/therapyrooms/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_GetDefaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := settingsstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ExpiryAction != "" || got.DefaultExpiryDays != 0 {
		t.Errorf("expected zero settings, got %+v", got)
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := settingsstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	by := primitive.NewObjectID()
	if err := store.Save(ctx, models.ChatSettings{ExpiryAction: "delete", DefaultExpiryDays: 45, UpdatedByID: &by}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(ctx, models.ChatSettings{ExpiryAction: "archive", DefaultExpiryDays: 60, NotifyEmail: "ops@example.com"}); err != nil {
		t.Fatalf("Save (second) failed: %v", err)
	}

	n, _ := db.Collection("chat_settings").CountDocuments(ctx, map[string]any{})
	if n != 1 {
		t.Errorf("expected a single settings document, got %d", n)
	}

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ExpiryAction != "archive" || got.DefaultExpiryDays != 60 || got.NotifyEmail != "ops@example.com" {
		t.Errorf("unexpected settings: %+v", got)
	}
	if got.UpdatedAt == nil {
		t.Error("expected UpdatedAt to be stamped")
	}
}
