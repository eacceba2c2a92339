// internal/app/features/groups/groupnew.go
package groups

import (
	"errors"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/therapyrooms/internal/app/features/errors"
	groupstore "github.com/dalemusser/therapyrooms/internal/app/store/groups"
	"github.com/dalemusser/therapyrooms/internal/app/system/authz"
	"github.com/dalemusser/therapyrooms/internal/app/system/dateparse"
	"github.com/dalemusser/therapyrooms/internal/app/system/formutil"
	"github.com/dalemusser/therapyrooms/internal/app/system/timeouts"
	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"go.uber.org/zap"
)

type createGroupInput struct {
	Title          string `json:"title" validate:"required,max=200" label:"Title"`
	Kind           string `json:"kind" validate:"omitempty,groupkind" label:"Kind"`
	Status         string `json:"status" validate:"omitempty,groupstatus" label:"Status"`
	IssueTag       string `json:"issue_tag" validate:"max=100" label:"Issue tag"`
	Gender         string `json:"gender" validate:"max=50" label:"Gender"`
	Capacity       int    `json:"capacity" validate:"min=0,max=1000" label:"Capacity"`
	StartDate      string `json:"start_date" validate:"omitempty,chatdate" label:"Start date"`
	EndDate        string `json:"end_date" validate:"omitempty,chatdate" label:"End date"`
	ChatExpiryDate string `json:"chat_expiry_date" validate:"omitempty,chatdate" label:"Chat expiry date"`
}

// optionalDate parses s in loc; "" gives nil. s has already been validated.
func optionalDate(s string, loc *time.Location) *time.Time {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	t, err := dateparse.Parse(s, loc)
	if err != nil {
		return nil
	}
	return &t
}

// HandleCreateGroup creates a session group. An active group gets its chat
// room straight away; chat_expiry_date overrides the default room expiry.
func (h *Handler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.Write(w, http.StatusUnauthorized, "unauthorized", "Sign in first.")
		return
	}

	var in createGroupInput
	if !formutil.Decode(w, r, &in) {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create group")
	defer cancel()

	g, err := h.Groups.Create(ctx, models.SessionGroup{
		Title:       strings.TrimSpace(in.Title),
		Kind:        strings.ToLower(strings.TrimSpace(in.Kind)),
		Status:      strings.ToLower(strings.TrimSpace(in.Status)),
		IssueTag:    strings.TrimSpace(in.IssueTag),
		Gender:      strings.TrimSpace(in.Gender),
		Capacity:    in.Capacity,
		StartDate:   optionalDate(in.StartDate, h.Loc),
		EndDate:     optionalDate(in.EndDate, h.Loc),
		CreatedByID: &uid,
	})
	if err != nil {
		if errors.Is(err, groupstore.ErrDuplicateGroupTitle) {
			uierrors.Write(w, http.StatusConflict, "duplicate", "A session group with that title already exists.")
			return
		}
		h.Log.Error("create group failed", zap.Error(err))
		uierrors.Write(w, http.StatusServiceUnavailable, "storage", "Failed to create group.")
		return
	}

	h.Audit.GroupCreated(ctx, r, uid, g.ID, g.Title)

	if g.Status == models.GroupStatusActive {
		roomID, err := h.Rooms.GetOrCreateRoom(ctx, g.ID, g.Title, "", &uid, optionalDate(in.ChatExpiryDate, h.Loc))
		if err != nil {
			// The group stands without a room; enrollment creates one later.
			h.Log.Warn("create group: chat room not created",
				zap.String("group_id", g.ID.Hex()),
				zap.Error(err))
		} else {
			g.ChatRoomID = &roomID
		}
	}

	uierrors.WriteJSON(w, http.StatusCreated, h.view(ctx, g))
}
