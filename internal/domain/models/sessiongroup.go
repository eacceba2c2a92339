// internal/domain/models/sessiongroup.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session group kinds.
const (
	GroupKindTherapy = "therapy"
	GroupKindRetreat = "retreat"
)

// Session group statuses.
const (
	GroupStatusActive    = "active"
	GroupStatusInactive  = "inactive"
	GroupStatusCompleted = "completed"
)

// SessionGroup is a cohort of users sharing a scheduled program.
//
// NOTE:
//   - The chat room link is stored on both sides: ChatRoomID here and
//     ChatRoom.GroupID on the room. The two must always agree.
//   - ChatExpired / ChatDeleted are display flags set by the room lifecycle;
//     they are never the source of truth for the room status.
type SessionGroup struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Title    string             `bson:"title" json:"title"`
	TitleCI  string             `bson:"title_ci" json:"title_ci"`
	Kind     string             `bson:"kind" json:"kind"`
	Status   string             `bson:"status" json:"status"`
	IssueTag string             `bson:"issue_tag,omitempty" json:"issue_tag,omitempty"`
	Gender   string             `bson:"gender,omitempty" json:"gender,omitempty"`
	Capacity int                `bson:"capacity" json:"capacity"`

	StartDate *time.Time `bson:"start_date,omitempty" json:"start_date,omitempty"`
	EndDate   *time.Time `bson:"end_date,omitempty" json:"end_date,omitempty"`

	CreatedByID *primitive.ObjectID `bson:"created_by_id,omitempty" json:"created_by_id,omitempty"`

	ChatRoomID     *primitive.ObjectID `bson:"chat_room_id,omitempty" json:"chat_room_id,omitempty"`
	ChatExpired    bool                `bson:"chat_expired" json:"chat_expired"`
	ChatDeleted    bool                `bson:"chat_deleted" json:"chat_deleted"`
	ChatArchivedAt *time.Time          `bson:"chat_archived_at,omitempty" json:"chat_archived_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
