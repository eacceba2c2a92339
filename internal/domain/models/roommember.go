// internal/domain/models/roommember.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Room member sources. Each names the write channel that produced the record.
const (
	MemberSourceNative      = "native"      // messaging provider's own join
	MemberSourceParticipant = "participant" // provider participant table
	MemberSourceRecipient   = "recipient"   // generic recipient table
)

// RoomMember is the one-record-per-user membership shape.
// At most one document per (room_id, user_id, source).
type RoomMember struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RoomID   primitive.ObjectID `bson:"room_id" json:"room_id"`
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	Source   string             `bson:"source" json:"source"`
	JoinedAt time.Time          `bson:"joined_at" json:"joined_at"`
}
