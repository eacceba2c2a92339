// internal/app/features/enrollments/enroll.go
package enrollments

import (
	"errors"
	"net/http"

	"github.com/dalemusser/therapyrooms/internal/app/chat/chaterr"
	uierrors "github.com/dalemusser/therapyrooms/internal/app/features/errors"
	"github.com/dalemusser/therapyrooms/internal/app/system/authz"
	"github.com/dalemusser/therapyrooms/internal/app/system/events"
	"github.com/dalemusser/therapyrooms/internal/app/system/formutil"
	"github.com/dalemusser/therapyrooms/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type enrollInput struct {
	GroupID string `json:"group_id" validate:"required,objectid" label:"Group"`
	// UserID defaults to the signed-in user. Only staff may name someone else.
	UserID string `json:"user_id" validate:"omitempty,objectid" label:"User"`
}

type enrollmentVM struct {
	UserID  string `json:"user_id"`
	GroupID string `json:"group_id"`
	RoomID  string `json:"room_id"`
}

// HandleEnroll registers a user into a group. The request is published as
// an EnrollmentRequested event; moving the user out of a previous group is
// handled by its subscriber.
func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Write(w, http.StatusUnauthorized, "unauthorized", "Sign in first.")
		return
	}

	var in enrollInput
	if !formutil.Decode(w, r, &in) {
		return
	}
	gid, _ := primitive.ObjectIDFromHex(in.GroupID)
	target := uid
	if in.UserID != "" {
		target, _ = primitive.ObjectIDFromHex(in.UserID)
	}
	if !authz.CanManageEnrollment(r, target) {
		uierrors.NewHandler().Forbidden(w, r)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "enroll")
	defer cancel()

	if err := h.Bus.Publish(ctx, events.NewEnrollmentRequested(target, gid)); err != nil {
		uierrors.FromChat(w, r, h.Log, err)
		return
	}

	link, err := h.Enrollments.Current(ctx, target)
	if err != nil {
		uierrors.FromChat(w, r, h.Log, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, enrollmentVM{
		UserID:  target.Hex(),
		GroupID: link.GroupID.Hex(),
		RoomID:  link.RoomID.Hex(),
	})
}

// HandleUnenroll removes a user from a group's room and clears the link.
func (h *Handler) HandleUnenroll(w http.ResponseWriter, r *http.Request) {
	userID, err1 := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	groupID, err2 := primitive.ObjectIDFromHex(chi.URLParam(r, "groupID"))
	if err := errors.Join(err1, err2); err != nil {
		uierrors.BadRequest(w, "Bad user or group id.")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "unenroll")
	defer cancel()

	if err := h.Enrollments.Unenroll(ctx, userID, groupID); err != nil {
		uierrors.FromChat(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type myRoomVM struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
	GroupID   string `json:"group_id,omitempty"`
	RoomID    string `json:"room_id,omitempty"`
	RoomName  string `json:"room_name,omitempty"`
	EmbedURL  string `json:"embed_url,omitempty"`
}

// ServeMine returns the signed-in user's chat room. Any failure to resolve
// it degrades to the "not available" message.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Write(w, http.StatusUnauthorized, "unauthorized", "Sign in first.")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load my room")
	defer cancel()

	unavailable := myRoomVM{Message: uierrors.NotAvailable}

	link, err := h.Enrollments.Current(ctx, uid)
	if err != nil {
		if !errors.Is(err, chaterr.ErrNotFound) {
			h.Log.Warn("my room: enrollment lookup failed", zap.String("user_id", uid.Hex()), zap.Error(err))
		}
		uierrors.WriteJSON(w, http.StatusOK, unavailable)
		return
	}
	room, err := h.Rooms.GetRoom(ctx, link.GroupID)
	if err != nil {
		if !errors.Is(err, chaterr.ErrNotFound) {
			h.Log.Warn("my room: room lookup failed",
				zap.String("user_id", uid.Hex()),
				zap.String("group_id", link.GroupID.Hex()),
				zap.Error(err))
		}
		uierrors.WriteJSON(w, http.StatusOK, unavailable)
		return
	}
	if !room.IsOpen() {
		uierrors.WriteJSON(w, http.StatusOK, unavailable)
		return
	}

	vm := myRoomVM{
		Available: true,
		GroupID:   link.GroupID.Hex(),
		RoomID:    room.ID.Hex(),
		RoomName:  room.Name,
	}
	if h.Embed != nil {
		vm.EmbedURL = h.Embed.RoomURL(room.ID)
	}
	uierrors.WriteJSON(w, http.StatusOK, vm)
}
