// Package chaterr defines the error kinds shared by the chat room registry,
// membership resolver, lifecycle manager and enrollment service.
//
// Callers compare with errors.Is; the core wraps these with context
// (room/group ids) using fmt.Errorf("...: %w").
package chaterr

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound means no room, group or enrollment link exists.
	ErrNotFound = errors.New("not found")

	// ErrInvalidDate means a date string matched none of the accepted formats.
	ErrInvalidDate = errors.New("invalid date")

	// ErrStorage means a write to the persistence layer did not apply.
	ErrStorage = errors.New("storage failure")

	// ErrAlreadyExists means a room is already linked to the group. The
	// registry treats it as success; it is exported for stores.
	ErrAlreadyExists = errors.New("already exists")

	// ErrIntegrity means the group→room and room→group links disagree.
	ErrIntegrity = errors.New("group/room link integrity violation")

	// ErrRoomClosed means the room is archived or expired and cannot be joined.
	ErrRoomClosed = errors.New("chat room is closed")
)

// FromMongo maps mongo.ErrNoDocuments to ErrNotFound and leaves other errors
// untouched.
func FromMongo(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
