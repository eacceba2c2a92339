// internal/app/features/groups/groupedit.go
package groups

import (
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/therapyrooms/internal/app/features/errors"
	groupstore "github.com/dalemusser/therapyrooms/internal/app/store/groups"
	"github.com/dalemusser/therapyrooms/internal/app/system/authz"
	"github.com/dalemusser/therapyrooms/internal/app/system/events"
	"github.com/dalemusser/therapyrooms/internal/app/system/formutil"
	"github.com/dalemusser/therapyrooms/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// editGroupInput is a partial update: absent fields are left alone.
type editGroupInput struct {
	Title          *string `json:"title" validate:"omitempty,min=1,max=200" label:"Title"`
	Status         *string `json:"status" validate:"omitempty,groupstatus" label:"Status"`
	IssueTag       *string `json:"issue_tag" validate:"omitempty,max=100" label:"Issue tag"`
	Gender         *string `json:"gender" validate:"omitempty,max=50" label:"Gender"`
	Capacity       *int    `json:"capacity" validate:"omitempty,min=0,max=1000" label:"Capacity"`
	StartDate      *string `json:"start_date" validate:"omitempty,chatdate" label:"Start date"`
	EndDate        *string `json:"end_date" validate:"omitempty,chatdate" label:"End date"`
	ChatExpiryDate *string `json:"chat_expiry_date" validate:"omitempty,chatdate" label:"Chat expiry date"`
}

// HandleEditGroup applies a partial update, then publishes one
// GroupMetaChanged per attribute the chat room follows (title, status,
// chat expiry date) so the room catches up.
func (h *Handler) HandleEditGroup(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Write(w, http.StatusUnauthorized, "unauthorized", "Sign in first.")
		return
	}
	gid, ok := groupID(w, r)
	if !ok {
		return
	}

	var in editGroupInput
	if !formutil.Decode(w, r, &in) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "edit group")
	defer cancel()

	old, err := h.Groups.GetByID(ctx, gid)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.Write(w, http.StatusNotFound, "not_found", "Group not found.")
			return
		}
		h.Log.Error("load group failed", zap.String("group_id", gid.Hex()), zap.Error(err))
		uierrors.Write(w, http.StatusServiceUnavailable, "storage", "A database error occurred.")
		return
	}

	upd := groupstore.InfoUpdate{
		Title:    formutil.Trimmed(in.Title),
		IssueTag: formutil.Trimmed(in.IssueTag),
		Gender:   formutil.Trimmed(in.Gender),
		Capacity: in.Capacity,
	}
	if in.Status != nil {
		s := strings.ToLower(strings.TrimSpace(*in.Status))
		upd.Status = &s
	}
	if in.StartDate != nil {
		upd.StartDate = optionalDate(*in.StartDate, h.Loc)
	}
	if in.EndDate != nil {
		upd.EndDate = optionalDate(*in.EndDate, h.Loc)
	}

	if err := h.Groups.UpdateInfo(ctx, gid, upd); err != nil {
		switch {
		case errors.Is(err, groupstore.ErrDuplicateGroupTitle):
			uierrors.Write(w, http.StatusConflict, "duplicate", "A session group with that title already exists.")
		case errors.Is(err, mongo.ErrNoDocuments):
			uierrors.Write(w, http.StatusNotFound, "not_found", "Group not found.")
		default:
			h.Log.Error("update group failed", zap.String("group_id", gid.Hex()), zap.Error(err))
			uierrors.Write(w, http.StatusServiceUnavailable, "storage", "Failed to update group.")
		}
		return
	}

	var changed []events.GroupMetaChanged
	var fields []string
	if upd.Title != nil && *upd.Title != old.Title {
		changed = append(changed, events.NewGroupMetaChanged(gid, events.KeyTitle, *upd.Title))
		fields = append(fields, events.KeyTitle)
	}
	if upd.Status != nil && *upd.Status != old.Status {
		changed = append(changed, events.NewGroupMetaChanged(gid, events.KeyStatus, *upd.Status))
		fields = append(fields, events.KeyStatus)
	}
	if in.ChatExpiryDate != nil {
		changed = append(changed, events.NewGroupMetaChanged(gid, events.KeyChatExpiryDate, strings.TrimSpace(*in.ChatExpiryDate)))
		fields = append(fields, events.KeyChatExpiryDate)
	}
	for _, f := range []struct {
		name string
		set  bool
	}{
		{"issue_tag", upd.IssueTag != nil},
		{"gender", upd.Gender != nil},
		{"capacity", upd.Capacity != nil},
		{"start_date", upd.StartDate != nil},
		{"end_date", upd.EndDate != nil},
	} {
		if f.set {
			fields = append(fields, f.name)
		}
	}

	h.Audit.GroupUpdated(ctx, r, uid, gid, strings.Join(fields, ","))

	for _, ev := range changed {
		if err := h.Bus.Publish(ctx, ev); err != nil {
			// The group is saved; report why its room did not follow.
			uierrors.FromChat(w, r, h.Log, err)
			return
		}
	}

	g, err := h.Groups.GetByID(ctx, gid)
	if err != nil {
		h.Log.Error("reload group failed", zap.String("group_id", gid.Hex()), zap.Error(err))
		uierrors.Write(w, http.StatusServiceUnavailable, "storage", "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, h.view(ctx, g))
}
