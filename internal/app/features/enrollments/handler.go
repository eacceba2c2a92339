// internal/app/features/enrollments/handler.go
package enrollments

import (
	"context"

	"github.com/dalemusser/therapyrooms/internal/app/system/events"
	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Enrollments reads and removes enrollments. Joins go through the bus.
type Enrollments interface {
	Unenroll(ctx context.Context, userID, groupID primitive.ObjectID) error
	Current(ctx context.Context, userID primitive.ObjectID) (models.EnrollmentLink, error)
}

// RoomLookup resolves a group's room.
type RoomLookup interface {
	GetRoom(ctx context.Context, groupID primitive.ObjectID) (models.ChatRoom, error)
}

// Embedder yields the embeddable address of a room.
type Embedder interface {
	RoomURL(roomID primitive.ObjectID) string
}

// Handler serves enrollment requests.
type Handler struct {
	Bus         *events.Bus
	Enrollments Enrollments
	Rooms       RoomLookup
	Embed       Embedder
	Log         *zap.Logger
}

// NewHandler constructs an enrollments Handler.
func NewHandler(bus *events.Bus, enrollments Enrollments, rooms RoomLookup, embed Embedder, logger *zap.Logger) *Handler {
	return &Handler{
		Bus:         bus,
		Enrollments: enrollments,
		Rooms:       rooms,
		Embed:       embed,
		Log:         logger,
	}
}
