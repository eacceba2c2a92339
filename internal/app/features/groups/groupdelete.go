// internal/app/features/groups/groupdelete.go
package groups

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/therapyrooms/internal/app/chat/chaterr"
	uierrors "github.com/dalemusser/therapyrooms/internal/app/features/errors"
	"github.com/dalemusser/therapyrooms/internal/app/system/authz"
	"github.com/dalemusser/therapyrooms/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// HandleDeleteGroup deletes a group. Its chat room goes first, together
// with the room's members and the enrollment links that point at it.
func (h *Handler) HandleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Write(w, http.StatusUnauthorized, "unauthorized", "Sign in first.")
		return
	}
	gid, ok := groupID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete group")
	defer cancel()

	g, err := h.Groups.GetByID(ctx, gid)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.Write(w, http.StatusNotFound, "not_found", "Group not found.")
			return
		}
		h.Log.Error("load group failed", zap.String("group_id", gid.Hex()), zap.Error(err))
		uierrors.Write(w, http.StatusServiceUnavailable, "storage", "A database error occurred.")
		return
	}

	room, err := h.Rooms.GetRoom(ctx, gid)
	switch {
	case err == nil:
		if derr := h.Lifecycle.Delete(ctx, room.ID, gid); derr != nil && !errors.Is(derr, chaterr.ErrNotFound) {
			uierrors.FromChat(w, r, h.Log, derr)
			return
		}
	case errors.Is(err, chaterr.ErrNotFound), errors.Is(err, chaterr.ErrIntegrity):
		if errors.Is(err, chaterr.ErrIntegrity) {
			h.Log.Warn("delete group: room link broken; deleting by back link",
				zap.String("group_id", gid.Hex()),
				zap.Error(err))
		}
		if !h.deleteBackLinkedRoom(ctx, w, r, gid) {
			return
		}
	default:
		uierrors.FromChat(w, r, h.Log, err)
		return
	}

	if _, err := h.Links.DeleteByGroup(ctx, gid); err != nil {
		h.Log.Error("delete group: enrollment links", zap.String("group_id", gid.Hex()), zap.Error(err))
		uierrors.Write(w, http.StatusServiceUnavailable, "storage", "Delete failed.")
		return
	}
	if _, err := h.Groups.Delete(ctx, gid); err != nil {
		h.Log.Error("delete group failed", zap.String("group_id", gid.Hex()), zap.Error(err))
		uierrors.Write(w, http.StatusServiceUnavailable, "storage", "Delete failed.")
		return
	}

	h.Audit.GroupDeleted(ctx, r, uid, gid, g.Title)
	w.WriteHeader(http.StatusNoContent)
}

// deleteBackLinkedRoom removes a room whose group_id still names gid when
// the group has no usable link of its own. A room linked from gid but owned
// by another group is left alone.
func (h *Handler) deleteBackLinkedRoom(ctx context.Context, w http.ResponseWriter, r *http.Request, gid primitive.ObjectID) bool {
	room, err := h.BackLinks.GetByGroup(ctx, gid)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return true
		}
		h.Log.Error("delete group: find room by back link", zap.String("group_id", gid.Hex()), zap.Error(err))
		uierrors.Write(w, http.StatusServiceUnavailable, "storage", "Delete failed.")
		return false
	}
	if err := h.Lifecycle.Delete(ctx, room.ID, gid); err != nil && !errors.Is(err, chaterr.ErrNotFound) {
		uierrors.FromChat(w, r, h.Log, err)
		return false
	}
	return true
}
