// Package chatprovider adapts the group messaging product that actually hosts
// the chat rooms.
package chatprovider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	roommemberstore "github.com/dalemusser/therapyrooms/internal/app/store/roommembers"
	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrUnsupported means the provider has no native join; callers fall back
// to their own membership records.
var ErrUnsupported = errors.New("chat provider has no native join")

// Provider names accepted by New.
const (
	KindNative = "native"
	KindNone   = "none"
)

// Provider is the external messaging product.
type Provider interface {
	Name() string
	// JoinRoom adds userID to roomID using the product's own participant model.
	JoinRoom(ctx context.Context, roomID, userID primitive.ObjectID) error
	// RoomURL is the embeddable address of the room, or "" when none is configured.
	RoomURL(roomID primitive.ObjectID) string
}

// New returns the provider named kind.
func New(kind string, members *roommemberstore.Store, embedBaseURL string) (Provider, error) {
	base := strings.TrimRight(strings.TrimSpace(embedBaseURL), "/")
	if base != "" {
		if _, err := url.ParseRequestURI(base); err != nil {
			return nil, fmt.Errorf("chat embed base url: %w", err)
		}
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindNative, "":
		if members == nil {
			return nil, errors.New("native chat provider needs a room member store")
		}
		return &Native{members: members, base: base}, nil
	case KindNone:
		return &None{base: base}, nil
	default:
		return nil, fmt.Errorf("unknown chat provider %q (want native or none)", kind)
	}
}

func roomURL(base string, roomID primitive.ObjectID) string {
	if base == "" {
		return ""
	}
	return base + "/rooms/" + roomID.Hex()
}

// Native writes to the product's participant table, which lives alongside
// the other room_members records with source "native".
type Native struct {
	members *roommemberstore.Store
	base    string
}

func (p *Native) Name() string { return KindNative }

func (p *Native) JoinRoom(ctx context.Context, roomID, userID primitive.ObjectID) error {
	return p.members.Add(ctx, roomID, userID, models.MemberSourceNative)
}

func (p *Native) RoomURL(roomID primitive.ObjectID) string { return roomURL(p.base, roomID) }

// None is used when the messaging product offers no join API.
type None struct {
	base string
}

func (p *None) Name() string { return KindNone }

func (p *None) JoinRoom(context.Context, primitive.ObjectID, primitive.ObjectID) error {
	return ErrUnsupported
}

func (p *None) RoomURL(roomID primitive.ObjectID) string { return roomURL(p.base, roomID) }
