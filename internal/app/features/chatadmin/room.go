// internal/app/features/chatadmin/room.go
package chatadmin

import (
	"context"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/therapyrooms/internal/app/features/errors"
	"github.com/dalemusser/therapyrooms/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memberVM struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type roomVM struct {
	GroupID     string     `json:"group_id"`
	RoomID      string     `json:"room_id"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	ExpiresAt   time.Time  `json:"expires_at"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
	EmbedURL    string     `json:"embed_url,omitempty"`
	MemberCount int        `json:"member_count"`
	Members     []memberVM `json:"members"`
}

func groupID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "Bad group id.")
		return primitive.NilObjectID, false
	}
	return id, true
}

// ServeRoom returns the group's room: status, expiry, members and the
// embeddable address.
func (h *Handler) ServeRoom(w http.ResponseWriter, r *http.Request) {
	gid, ok := groupID(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "load chat room")
	defer cancel()
	h.writeRoom(ctx, w, r, gid)
}

// writeRoom loads and writes the room view for gid.
func (h *Handler) writeRoom(ctx context.Context, w http.ResponseWriter, r *http.Request, gid primitive.ObjectID) {
	room, err := h.Rooms.GetRoom(ctx, gid)
	if err != nil {
		uierrors.FromChat(w, r, h.Log, err)
		return
	}
	ids, err := h.Members.ListMembers(ctx, room.ID)
	if err != nil {
		uierrors.FromChat(w, r, h.Log, err)
		return
	}

	known := map[primitive.ObjectID]memberVM{}
	if len(ids) > 0 {
		users, err := h.Users.GetByIDs(ctx, ids)
		if err != nil {
			// Ids alone are still useful.
			h.Log.Warn("chat room: member details unavailable",
				zap.String("room_id", room.ID.Hex()),
				zap.Error(err))
		}
		for _, u := range users {
			known[u.ID] = memberVM{ID: u.ID.Hex(), Name: u.FullName, Email: u.Email}
		}
	}
	members := make([]memberVM, 0, len(ids))
	for _, id := range ids {
		m, ok := known[id]
		if !ok {
			m = memberVM{ID: id.Hex()}
		}
		members = append(members, m)
	}

	vm := roomVM{
		GroupID:     gid.Hex(),
		RoomID:      room.ID.Hex(),
		Name:        room.Name,
		Status:      room.Status,
		ExpiresAt:   room.ExpiresAt,
		ArchivedAt:  room.ArchivedAt,
		MemberCount: len(members),
		Members:     members,
	}
	if h.Embed != nil {
		vm.EmbedURL = h.Embed.RoomURL(room.ID)
	}
	uierrors.WriteJSON(w, http.StatusOK, vm)
}
