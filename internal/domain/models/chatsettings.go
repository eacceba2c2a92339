// internal/domain/models/chatsettings.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatSettings holds the admin-editable chat options. There is a single
// document in the chat_settings collection; zero values mean "use the
// configured default".
type ChatSettings struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`

	ExpiryAction      string `bson:"expiry_action,omitempty" json:"expiry_action,omitempty"` // archive | delete
	DefaultExpiryDays int    `bson:"default_expiry_days,omitempty" json:"default_expiry_days,omitempty"`
	NotifyEmail       string `bson:"notify_email,omitempty" json:"notify_email,omitempty"`

	UpdatedAt   *time.Time          `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
	UpdatedByID *primitive.ObjectID `bson:"updated_by_id,omitempty" json:"updated_by_id,omitempty"`
}
