// internal/domain/models/enrollment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EnrollmentLink records the session group (and its room) a user is currently
// enrolled in. Exactly one document per user_id.
type EnrollmentLink struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	GroupID    primitive.ObjectID `bson:"group_id" json:"group_id"`
	RoomID     primitive.ObjectID `bson:"room_id" json:"room_id"`
	EnrolledAt time.Time          `bson:"enrolled_at" json:"enrolled_at"`
}
