package membership

import (
	"context"
	"errors"

	chatroomstore "github.com/dalemusser/therapyrooms/internal/app/store/chatrooms"
	roommemberstore "github.com/dalemusser/therapyrooms/internal/app/store/roommembers"
	"github.com/dalemusser/therapyrooms/internal/app/system/chatprovider"
	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// NewMongo wires the three stored shapes and the write channels in their
// fixed order: provider join, participant record, recipient record, room
// list.
func NewMongo(rooms *chatroomstore.Store, members *roommemberstore.Store, provider chatprovider.Provider, logger *zap.Logger) *Resolver {
	reps := []Representation{
		ListRep{Rooms: rooms},
		RecordRep{Members: members},
		JSONRep{Rooms: rooms},
	}
	_, native := provider.(*chatprovider.Native)
	channels := []Channel{
		ProviderChannel{Provider: provider},
		RecordChannel{Members: members, Source: models.MemberSourceParticipant, Enabled: native},
		RecordChannel{Members: members, Source: models.MemberSourceRecipient, Enabled: true},
		ListChannel{Rooms: rooms},
	}
	return NewResolver(reps, channels, logger)
}

/* -------------------------------------------------------------------------- */
/* Representations                                                            */
/* -------------------------------------------------------------------------- */

// ListRep reads chat_rooms.member_ids.
type ListRep struct {
	Rooms *chatroomstore.Store
}

func (ListRep) Shape() Shape { return ShapeList }

func (r ListRep) List(ctx context.Context, roomID primitive.ObjectID) ([]primitive.ObjectID, error) {
	ids, err := r.Rooms.ListMembers(ctx, roomID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	return ids, err
}

func (r ListRep) Contains(ctx context.Context, roomID, userID primitive.ObjectID) (bool, error) {
	return r.Rooms.HasListedMember(ctx, roomID, userID)
}

func (r ListRep) Remove(ctx context.Context, roomID, userID primitive.ObjectID) error {
	_, err := r.Rooms.RemoveListedMember(ctx, roomID, userID)
	return err
}

// RecordRep reads room_members, whatever the record's source.
type RecordRep struct {
	Members *roommemberstore.Store
}

func (RecordRep) Shape() Shape { return ShapeRecord }

func (r RecordRep) List(ctx context.Context, roomID primitive.ObjectID) ([]primitive.ObjectID, error) {
	recs, err := r.Members.ListByRoom(ctx, roomID, "")
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.UserID)
	}
	return ids, nil
}

func (r RecordRep) Contains(ctx context.Context, roomID, userID primitive.ObjectID) (bool, error) {
	return r.Members.Exists(ctx, roomID, userID)
}

func (r RecordRep) Remove(ctx context.Context, roomID, userID primitive.ObjectID) error {
	_, err := r.Members.Remove(ctx, roomID, userID)
	return err
}

// JSONRep reads chat_rooms.members_json.
type JSONRep struct {
	Rooms *chatroomstore.Store
}

// jsonRewriteAttempts bounds retries when another writer changes the blob
// between our read and write.
const jsonRewriteAttempts = 3

func (JSONRep) Shape() Shape { return ShapeJSON }

func (r JSONRep) List(ctx context.Context, roomID primitive.ObjectID) ([]primitive.ObjectID, error) {
	ids, _, err := r.Rooms.JSONMembers(ctx, roomID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	return ids, err
}

func (r JSONRep) Contains(ctx context.Context, roomID, userID primitive.ObjectID) (bool, error) {
	ids, err := r.List(ctx, roomID)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r JSONRep) Remove(ctx context.Context, roomID, userID primitive.ObjectID) error {
	var err error
	for attempt := 0; attempt < jsonRewriteAttempts; attempt++ {
		var ids []primitive.ObjectID
		var prev string
		ids, prev, err = r.Rooms.JSONMembers(ctx, roomID)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		if err != nil {
			return err
		}

		kept := ids[:0]
		found := false
		for _, id := range ids {
			if id == userID {
				found = true
				continue
			}
			kept = append(kept, id)
		}
		if !found {
			return nil
		}

		err = r.Rooms.ReplaceJSONMembers(ctx, roomID, prev, kept)
		if !errors.Is(err, chatroomstore.ErrConcurrentUpdate) {
			return err
		}
	}
	return err
}

/* -------------------------------------------------------------------------- */
/* Channels                                                                   */
/* -------------------------------------------------------------------------- */

// ProviderChannel joins through the messaging product itself.
type ProviderChannel struct {
	Provider chatprovider.Provider
}

func (ProviderChannel) Name() string { return "provider" }

func (c ProviderChannel) Add(ctx context.Context, roomID, userID primitive.ObjectID) error {
	err := c.Provider.JoinRoom(ctx, roomID, userID)
	if errors.Is(err, chatprovider.ErrUnsupported) {
		return ErrChannelUnavailable
	}
	return err
}

// RecordChannel writes a room_members record with a fixed source. The
// participant table only exists alongside the native provider, so it can
// be disabled.
type RecordChannel struct {
	Members *roommemberstore.Store
	Source  string
	Enabled bool
}

func (c RecordChannel) Name() string { return c.Source }

func (c RecordChannel) Add(ctx context.Context, roomID, userID primitive.ObjectID) error {
	if !c.Enabled {
		return ErrChannelUnavailable
	}
	return c.Members.Add(ctx, roomID, userID, c.Source)
}

// ListChannel appends to the room's own member list. It is the last resort.
type ListChannel struct {
	Rooms *chatroomstore.Store
}

func (ListChannel) Name() string { return "list" }

func (c ListChannel) Add(ctx context.Context, roomID, userID primitive.ObjectID) error {
	return c.Rooms.AddListedMember(ctx, roomID, userID)
}
