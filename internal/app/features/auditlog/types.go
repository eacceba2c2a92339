// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/therapyrooms/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// listItem is one audit event as returned by GET /chat/audit.
type listItem struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	GroupID       string            `json:"group_id,omitempty"`
	RoomID        string            `json:"room_id,omitempty"`
	UserID        string            `json:"user_id,omitempty"`
	UserName      string            `json:"user_name,omitempty"`
	ActorID       string            `json:"actor_id,omitempty"`
	ActorName     string            `json:"actor_name,omitempty"`
	IP            string            `json:"ip,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	Total      int64      `json:"total"`
	TotalPages int        `json:"total_pages"`
	Events     []listItem `json:"events"`
}

func hexOrEmpty(id *primitive.ObjectID) string {
	if id == nil {
		return ""
	}
	return id.Hex()
}

func toItem(e audit.Event, names map[primitive.ObjectID]string) listItem {
	it := listItem{
		ID:            e.ID.Hex(),
		Timestamp:     e.Timestamp,
		Category:      e.Category,
		EventType:     e.EventType,
		GroupID:       hexOrEmpty(e.GroupID),
		RoomID:        hexOrEmpty(e.RoomID),
		UserID:        hexOrEmpty(e.UserID),
		ActorID:       hexOrEmpty(e.ActorID),
		IP:            e.IP,
		Success:       e.Success,
		FailureReason: e.FailureReason,
		Details:       e.Details,
	}
	if e.UserID != nil {
		it.UserName = names[*e.UserID]
	}
	if e.ActorID != nil {
		it.ActorName = names[*e.ActorID]
	}
	return it
}
