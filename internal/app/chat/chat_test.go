package chat_test

import (
	"testing"
	"time"

	"github.com/dalemusser/therapyrooms/internal/app/chat"
	"github.com/dalemusser/therapyrooms/internal/app/chat/lifecycle"
	"github.com/dalemusser/therapyrooms/internal/app/system/events"
	"github.com/dalemusser/therapyrooms/internal/app/system/indexes"
	"github.com/dalemusser/therapyrooms/internal/app/system/notify"
	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"github.com/dalemusser/therapyrooms/internal/testutil"
	"go.uber.org/zap"
)

func newServices(t *testing.T) (*chat.Services, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	svc, err := chat.New(db, chat.Options{
		ProviderKind: "native",
		Lifecycle:    lifecycle.Config{ExpiryAction: "archive", DefaultExpiryDays: 30},
		Notifier:     &notify.Recorder{},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("chat.New failed: %v", err)
	}
	return svc, testutil.NewFixtures(t, db)
}

func TestNew_UnknownProvider(t *testing.T) {
	db := testutil.SetupTestDB(t)
	if _, err := chat.New(db, chat.Options{ProviderKind: "carrier-pigeon"}, zap.NewNop()); err == nil {
		t.Fatal("expected an error for an unknown provider")
	}
}

func TestNew_WiresEnrollmentEvents(t *testing.T) {
	svc, fx := newServices(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Tuesday Circle")
	u := fx.CreateClient(ctx, "Casey", "casey@example.com")

	if err := svc.Bus.Publish(ctx, events.NewEnrollmentRequested(u.ID, g.ID)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	link, err := svc.Enrollment.Current(ctx, u.ID)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if link.GroupID != g.ID {
		t.Errorf("linked to %v, want %v", link.GroupID, g.ID)
	}
	ok, err := svc.Resolver.IsMember(ctx, u.ID, link.RoomID)
	if err != nil || !ok {
		t.Errorf("IsMember = %v, %v; want true", ok, err)
	}
}

func TestNew_WiresGroupMetaEvents(t *testing.T) {
	svc, fx := newServices(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Old Title")
	room := fx.CreateLinkedRoom(ctx, g.ID, models.RoomStatusActive, time.Now().AddDate(0, 1, 0))

	if err := svc.Bus.Publish(ctx, events.NewGroupMetaChanged(g.ID, events.KeyTitle, "New Title")); err != nil {
		t.Fatalf("Publish(title) failed: %v", err)
	}
	if err := svc.Bus.Publish(ctx, events.NewGroupMetaChanged(g.ID, events.KeyStatus, models.GroupStatusCompleted)); err != nil {
		t.Fatalf("Publish(status) failed: %v", err)
	}

	got, err := svc.Rooms.GetByID(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "New Title" {
		t.Errorf("name = %q, want New Title", got.Name)
	}
	if got.Status != models.RoomStatusExpired {
		t.Errorf("status = %q, want expired", got.Status)
	}
}

func TestApplySettings(t *testing.T) {
	svc, _ := newServices(t)

	cfg := svc.ApplySettings(models.ChatSettings{ExpiryAction: "delete", DefaultExpiryDays: 7})
	if cfg.ExpiryAction != lifecycle.ActionDelete {
		t.Errorf("action = %q, want delete", cfg.ExpiryAction)
	}
	if cfg.DefaultExpiryDays != 7 {
		t.Errorf("days = %d, want 7", cfg.DefaultExpiryDays)
	}

	want := time.Now().UTC().AddDate(0, 0, 7)
	got := svc.Registry.DefaultExpiry()
	if got.Year() != want.Year() || got.YearDay() != want.YearDay() {
		t.Errorf("DefaultExpiry = %v, want day of %v", got, want)
	}

	// Cleared settings fall back to the configured values.
	cfg = svc.ApplySettings(models.ChatSettings{})
	if cfg.ExpiryAction != lifecycle.ActionArchive || cfg.DefaultExpiryDays != 30 {
		t.Errorf("cleared settings: %+v", cfg)
	}
	if svc.Config() != cfg {
		t.Errorf("Config() = %+v, want %+v", svc.Config(), cfg)
	}
}
