package enrollments_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/therapyrooms/internal/app/chat"
	"github.com/dalemusser/therapyrooms/internal/app/chat/lifecycle"
	"github.com/dalemusser/therapyrooms/internal/app/features/enrollments"
	uierrors "github.com/dalemusser/therapyrooms/internal/app/features/errors"
	"github.com/dalemusser/therapyrooms/internal/app/system/auth"
	"github.com/dalemusser/therapyrooms/internal/app/system/indexes"
	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"github.com/dalemusser/therapyrooms/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*enrollments.Handler, *chat.Services, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	svc, err := chat.New(db, chat.Options{
		ProviderKind: "native",
		EmbedBaseURL: "https://chat.example.com",
		Lifecycle:    lifecycle.Config{ExpiryAction: "archive", DefaultExpiryDays: 30},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("chat.New failed: %v", err)
	}
	h := enrollments.NewHandler(svc.Bus, svc.Enrollment, svc.Registry, svc.Provider, zap.NewNop())
	return h, svc, testutil.NewFixtures(t, db)
}

func as(req *http.Request, id primitive.ObjectID, role string) *http.Request {
	return auth.WithTestUser(req, &auth.SessionUser{ID: id.Hex(), Role: role})
}

func TestHandleEnroll_Self(t *testing.T) {
	h, svc, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Wednesday")
	u := fx.CreateClient(ctx, "Robin", "robin@example.com")

	req := as(httptest.NewRequest("POST", "/enrollments", strings.NewReader(`{"group_id":"`+g.ID.Hex()+`"}`)), u.ID, "client")
	rec := httptest.NewRecorder()
	h.HandleEnroll(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var resp struct {
		GroupID string `json:"group_id"`
		RoomID  string `json:"room_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp.GroupID != g.ID.Hex() {
		t.Errorf("group_id = %q", resp.GroupID)
	}
	roomID, err := primitive.ObjectIDFromHex(resp.RoomID)
	if err != nil {
		t.Fatalf("room_id %q: %v", resp.RoomID, err)
	}
	if ok, err := svc.Resolver.IsMember(ctx, u.ID, roomID); err != nil || !ok {
		t.Errorf("IsMember = %v, %v", ok, err)
	}
}

func TestHandleEnroll_Permissions(t *testing.T) {
	h, _, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Thursday")
	client := fx.CreateClient(ctx, "Sam", "sam@example.com")
	other := fx.CreateClient(ctx, "Jo", "jo@example.com")
	therapist := fx.CreateUser(ctx, "Dr. Lee", "lee@example.com", "therapist")

	body := `{"group_id":"` + g.ID.Hex() + `","user_id":"` + other.ID.Hex() + `"}`

	rec := httptest.NewRecorder()
	h.HandleEnroll(rec, as(httptest.NewRequest("POST", "/enrollments", strings.NewReader(body)), client.ID, "client"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("client enrolling another user: expected status %d, got %d", http.StatusForbidden, rec.Code)
	}

	rec = httptest.NewRecorder()
	h.HandleEnroll(rec, as(httptest.NewRequest("POST", "/enrollments", strings.NewReader(body)), therapist.ID, "therapist"))
	if rec.Code != http.StatusOK {
		t.Errorf("therapist enrolling a client: expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestHandleEnroll_Errors(t *testing.T) {
	h, _, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	closed := fx.CreateGroup(ctx, "Closed")
	fx.CreateLinkedRoom(ctx, closed.ID, models.RoomStatusExpired, time.Now().AddDate(0, 0, -1))
	u := fx.CreateClient(ctx, "Kit", "kit@example.com")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad group id", `{"group_id":"xyz"}`, http.StatusBadRequest},
		{"missing group id", `{}`, http.StatusBadRequest},
		{"unknown group", `{"group_id":"` + primitive.NewObjectID().Hex() + `"}`, http.StatusNotFound},
		{"closed room", `{"group_id":"` + closed.ID.Hex() + `"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandleEnroll(rec, as(httptest.NewRequest("POST", "/enrollments", strings.NewReader(tt.body)), u.ID, "client"))
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleEnroll_AlreadyLinkedToClosedRoom(t *testing.T) {
	h, svc, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Finished")
	u := fx.CreateClient(ctx, "Ash", "ash@example.com")
	body := `{"group_id":"` + g.ID.Hex() + `"}`

	rec := httptest.NewRecorder()
	h.HandleEnroll(rec, as(httptest.NewRequest("POST", "/enrollments", strings.NewReader(body)), u.ID, "client"))
	if rec.Code != http.StatusOK {
		t.Fatalf("first enroll: expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if err := svc.Lifecycle.ManuallyExpire(ctx, g.ID, "archive"); err != nil {
		t.Fatalf("ManuallyExpire failed: %v", err)
	}

	rec = httptest.NewRecorder()
	h.HandleEnroll(rec, as(httptest.NewRequest("POST", "/enrollments", strings.NewReader(body)), u.ID, "client"))
	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d: %s", http.StatusConflict, rec.Code, rec.Body.String())
	}
}

func TestHandleUnenroll(t *testing.T) {
	h, svc, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Friday")
	u := fx.CreateClient(ctx, "Pat", "pat@example.com")
	roomID, err := svc.Enrollment.Enroll(ctx, u.ID, g.ID)
	if err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}

	req := httptest.NewRequest("DELETE", "/enrollments/"+u.ID.Hex()+"/"+g.ID.Hex(), nil)
	req = testutil.WithChiURLParams(as(req, primitive.NewObjectID(), "admin"), "userID", u.ID.Hex(), "groupID", g.ID.Hex())
	rec := httptest.NewRecorder()
	h.HandleUnenroll(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d: %s", http.StatusNoContent, rec.Code, rec.Body.String())
	}
	if ok, _ := svc.Resolver.IsMember(ctx, u.ID, roomID); ok {
		t.Error("user is still a member")
	}
	if _, err := svc.Enrollment.Current(ctx, u.ID); err == nil {
		t.Error("expected the enrollment link to be cleared")
	}
}

func TestHandleUnenroll_BadIDs(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest("DELETE", "/enrollments/x/y", nil)
	req = testutil.WithChiURLParams(req, "userID", "x", "groupID", "y")
	rec := httptest.NewRecorder()
	h.HandleUnenroll(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestServeMine(t *testing.T) {
	h, svc, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Saturday")
	u := fx.CreateClient(ctx, "Ash", "ash@example.com")
	stranger := fx.CreateClient(ctx, "Lone", "lone@example.com")
	roomID, err := svc.Enrollment.Enroll(ctx, u.ID, g.ID)
	if err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}

	type mine struct {
		Available bool   `json:"available"`
		Message   string `json:"message"`
		RoomID    string `json:"room_id"`
		EmbedURL  string `json:"embed_url"`
	}
	get := func(id primitive.ObjectID) mine {
		t.Helper()
		rec := httptest.NewRecorder()
		h.ServeMine(rec, as(httptest.NewRequest("GET", "/enrollments/me", nil), id, "client"))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var m mine
		if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
			t.Fatalf("bad response: %v", err)
		}
		return m
	}

	m := get(u.ID)
	if !m.Available || m.RoomID != roomID.Hex() {
		t.Errorf("enrolled user: %+v", m)
	}
	if m.EmbedURL != "https://chat.example.com/rooms/"+roomID.Hex() {
		t.Errorf("embed_url = %q", m.EmbedURL)
	}

	if m := get(stranger.ID); m.Available || m.Message != uierrors.NotAvailable {
		t.Errorf("unenrolled user: %+v", m)
	}

	if err := svc.Lifecycle.ManuallyExpire(ctx, g.ID, ""); err != nil {
		t.Fatalf("ManuallyExpire failed: %v", err)
	}
	if m := get(u.ID); m.Available {
		t.Errorf("expired room should not be available: %+v", m)
	}
}
