// Package membership answers "who is in this room" when membership may be
// recorded in any of several storage shapes.
//
// Reads go through every Representation and union the results. Writes go
// through exactly one Channel: the first in order that accepts the write.
// Removal clears every Representation.
package membership

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dalemusser/therapyrooms/internal/app/chat/chaterr"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Shape names a storage representation of membership.
type Shape string

const (
	// ShapeList is an id list attached to the room record.
	ShapeList Shape = "list"
	// ShapeRecord is one record per (room, user).
	ShapeRecord Shape = "record"
	// ShapeJSON is a JSON-encoded id list attached to the room record.
	ShapeJSON Shape = "json"
)

// ErrChannelUnavailable is returned by a Channel that does not apply in the
// current deployment. The resolver moves on to the next channel.
var ErrChannelUnavailable = errors.New("membership channel unavailable")

// Representation reads and clears one storage shape.
type Representation interface {
	Shape() Shape
	List(ctx context.Context, roomID primitive.ObjectID) ([]primitive.ObjectID, error)
	Contains(ctx context.Context, roomID, userID primitive.ObjectID) (bool, error)
	Remove(ctx context.Context, roomID, userID primitive.ObjectID) error
}

// Channel writes a new membership through one mechanism.
type Channel interface {
	Name() string
	Add(ctx context.Context, roomID, userID primitive.ObjectID) error
}

// Resolver reconciles the representations into one member set.
type Resolver struct {
	reps     []Representation
	channels []Channel
	log      *zap.Logger
}

// NewResolver creates a Resolver. channels are tried in the given order.
func NewResolver(reps []Representation, channels []Channel, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{reps: reps, channels: channels, log: logger}
}

// ListMembers returns the deduplicated union of every representation,
// sorted by id. A representation that fails is logged and skipped; if all
// of them fail the result is ErrStorage.
func (r *Resolver) ListMembers(ctx context.Context, roomID primitive.ObjectID) ([]primitive.ObjectID, error) {
	seen := make(map[primitive.ObjectID]struct{})
	failed := 0
	for _, rep := range r.reps {
		ids, err := rep.List(ctx, roomID)
		if err != nil {
			failed++
			r.log.Warn("membership representation unreadable",
				zap.String("shape", string(rep.Shape())),
				zap.String("room_id", roomID.Hex()),
				zap.Error(err))
			continue
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}
	if len(r.reps) > 0 && failed == len(r.reps) {
		return nil, fmt.Errorf("list members of %s: %w", roomID.Hex(), chaterr.ErrStorage)
	}

	out := make([]primitive.ObjectID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out, nil
}

// IsMember reports whether userID appears in any representation. It stops
// at the first representation that contains the user.
func (r *Resolver) IsMember(ctx context.Context, userID, roomID primitive.ObjectID) (bool, error) {
	failed := 0
	for _, rep := range r.reps {
		ok, err := rep.Contains(ctx, roomID, userID)
		if err != nil {
			failed++
			r.log.Warn("membership representation unreadable",
				zap.String("shape", string(rep.Shape())),
				zap.String("room_id", roomID.Hex()),
				zap.Error(err))
			continue
		}
		if ok {
			return true, nil
		}
	}
	if len(r.reps) > 0 && failed == len(r.reps) {
		return false, fmt.Errorf("check member of %s: %w", roomID.Hex(), chaterr.ErrStorage)
	}
	return false, nil
}

// AddMember writes userID through the first channel that accepts it and
// returns that channel's name. An existing member is left alone and the
// returned name is empty.
func (r *Resolver) AddMember(ctx context.Context, userID, roomID primitive.ObjectID) (string, error) {
	if ok, err := r.IsMember(ctx, userID, roomID); err == nil && ok {
		return "", nil
	}

	for _, ch := range r.channels {
		err := ch.Add(ctx, roomID, userID)
		if err == nil {
			r.log.Debug("member added",
				zap.String("channel", ch.Name()),
				zap.String("room_id", roomID.Hex()),
				zap.String("user_id", userID.Hex()))
			return ch.Name(), nil
		}
		if !errors.Is(err, ErrChannelUnavailable) {
			r.log.Warn("membership channel failed; trying next",
				zap.String("channel", ch.Name()),
				zap.String("room_id", roomID.Hex()),
				zap.String("user_id", userID.Hex()),
				zap.Error(err))
		}
	}
	return "", fmt.Errorf("add %s to %s: no channel accepted the write: %w", userID.Hex(), roomID.Hex(), chaterr.ErrStorage)
}

// RemoveMember clears userID from every representation. Every
// representation is attempted; any failure is reported as ErrStorage.
func (r *Resolver) RemoveMember(ctx context.Context, userID, roomID primitive.ObjectID) error {
	var errs []error
	for _, rep := range r.reps {
		if err := rep.Remove(ctx, roomID, userID); err != nil {
			r.log.Warn("membership removal failed",
				zap.String("shape", string(rep.Shape())),
				zap.String("room_id", roomID.Hex()),
				zap.String("user_id", userID.Hex()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", rep.Shape(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("remove %s from %s: %w: %w", userID.Hex(), roomID.Hex(), chaterr.ErrStorage, errors.Join(errs...))
	}
	return nil
}
