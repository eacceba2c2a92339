// internal/app/features/chatadmin/actions.go
package chatadmin

import (
	"net/http"
	"strings"

	"github.com/dalemusser/therapyrooms/internal/app/chat/lifecycle"
	uierrors "github.com/dalemusser/therapyrooms/internal/app/features/errors"
	"github.com/dalemusser/therapyrooms/internal/app/system/formutil"
	"github.com/dalemusser/therapyrooms/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type expireInput struct {
	Action string `json:"action" validate:"omitempty,expiryaction" label:"Action"`
}

type extendInput struct {
	Date string `json:"date" validate:"required,chatdate" label:"Date"`
}

// HandleArchive closes the group's room, keeping its history.
func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	gid, ok := groupID(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "archive chat room")
	defer cancel()

	room, err := h.Rooms.GetRoom(ctx, gid)
	if err != nil {
		uierrors.FromChat(w, r, h.Log, err)
		return
	}
	if err := h.Lifecycle.Archive(ctx, room.ID, gid); err != nil {
		uierrors.FromChat(w, r, h.Log, err)
		return
	}
	h.writeRoom(ctx, w, r, gid)
}

// HandleReactivate reopens an archived or expired room.
func (h *Handler) HandleReactivate(w http.ResponseWriter, r *http.Request) {
	gid, ok := groupID(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "reactivate chat room")
	defer cancel()

	if err := h.Lifecycle.Reactivate(ctx, gid); err != nil {
		uierrors.FromChat(w, r, h.Log, err)
		return
	}
	h.writeRoom(ctx, w, r, gid)
}

// HandleDelete removes the room and its memberships. The group stays.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	gid, ok := groupID(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete chat room")
	defer cancel()

	room, err := h.Rooms.GetRoom(ctx, gid)
	if err != nil {
		uierrors.FromChat(w, r, h.Log, err)
		return
	}
	if err := h.Lifecycle.Delete(ctx, room.ID, gid); err != nil {
		uierrors.FromChat(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleExpire applies an expiry action now, as the sweep would. An empty
// action uses the configured one.
func (h *Handler) HandleExpire(w http.ResponseWriter, r *http.Request) {
	gid, ok := groupID(w, r)
	if !ok {
		return
	}
	var in expireInput
	if !formutil.Decode(w, r, &in) {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "expire chat room")
	defer cancel()

	action := strings.ToLower(strings.TrimSpace(in.Action))
	if err := h.Lifecycle.ManuallyExpire(ctx, gid, action); err != nil {
		uierrors.FromChat(w, r, h.Log, err)
		return
	}
	// A deleted room has nothing left to show.
	if _, err := h.Rooms.GetRoom(ctx, gid); err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeRoom(ctx, w, r, gid)
}

// HandleExtend moves the room's expiry date, reopening an expired room.
func (h *Handler) HandleExtend(w http.ResponseWriter, r *http.Request) {
	gid, ok := groupID(w, r)
	if !ok {
		return
	}
	var in extendInput
	if !formutil.Decode(w, r, &in) {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "extend chat room")
	defer cancel()

	if _, err := h.Lifecycle.ExtendExpiry(ctx, gid, in.Date); err != nil {
		uierrors.FromChat(w, r, h.Log, err)
		return
	}
	h.writeRoom(ctx, w, r, gid)
}

// HandleSweep runs the expiry sweep now and reports what it did.
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Sweep(), h.Log, "manual expiry sweep")
	defer cancel()

	res, err := h.Lifecycle.RunExpirySweep(ctx, h.now())
	if err != nil {
		uierrors.FromChat(w, r, h.Log, err)
		return
	}
	h.Log.Info("manual expiry sweep",
		zap.String("run_id", res.RunID),
		zap.Int("closed", res.Closed))
	uierrors.WriteJSON(w, http.StatusOK, res)
}

var _ Lifecycle = (*lifecycle.Manager)(nil)
