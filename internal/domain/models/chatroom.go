// internal/domain/models/chatroom.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat room statuses.
const (
	RoomStatusActive   = "active"
	RoomStatusArchived = "archived"
	RoomStatusExpired  = "expired"
)

// ChatRoom is the messaging channel bound 1:1 to a SessionGroup.
//
// Membership is not authoritative on any single field. MemberIDs (the list
// attached to the room) and MembersJSON (a JSON-encoded id list written by
// older integrations) are two of the three shapes; the third lives in the
// room_members collection. Readers must union all of them.
type ChatRoom struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	GroupID     primitive.ObjectID  `bson:"group_id" json:"group_id"`
	Name        string              `bson:"name" json:"name"`
	Description string              `bson:"description" json:"description"`
	Status      string              `bson:"status" json:"status"`
	ExpiresAt   time.Time           `bson:"expires_at" json:"expires_at"`
	CreatorID   *primitive.ObjectID `bson:"creator_id,omitempty" json:"creator_id,omitempty"`
	ArchivedAt  *time.Time          `bson:"archived_at,omitempty" json:"archived_at,omitempty"`

	MemberIDs   []primitive.ObjectID `bson:"member_ids,omitempty" json:"-"`
	MembersJSON string               `bson:"members_json,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsOpen reports whether users may still join the room.
func (r ChatRoom) IsOpen() bool {
	return r.Status == RoomStatusActive
}
