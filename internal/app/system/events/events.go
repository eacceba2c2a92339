// Package events is a small synchronous dispatcher connecting group edits and
// registrations to the chat services.
package events

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Event names.
const (
	NameEnrollmentRequested = "enrollment.requested"
	NameGroupMetaChanged    = "group.meta_changed"
)

// Keys carried by GroupMetaChanged that the chat sync reacts to.
const (
	KeyTitle          = "title"
	KeyStatus         = "status"
	KeyChatExpiryDate = "chat_expiry_date"
)

// Event is anything the bus can carry.
type Event interface {
	EventName() string
	EventID() string
}

// EnrollmentRequested is published when a registration assigns a user to a group.
type EnrollmentRequested struct {
	ID      string
	UserID  primitive.ObjectID
	GroupID primitive.ObjectID
}

func (e EnrollmentRequested) EventName() string { return NameEnrollmentRequested }
func (e EnrollmentRequested) EventID() string   { return e.ID }

// NewEnrollmentRequested builds the event with a fresh id.
func NewEnrollmentRequested(userID, groupID primitive.ObjectID) EnrollmentRequested {
	return EnrollmentRequested{ID: uuid.NewString(), UserID: userID, GroupID: groupID}
}

// GroupMetaChanged is published for each group attribute that changed on save.
type GroupMetaChanged struct {
	ID      string
	GroupID primitive.ObjectID
	Key     string
	Value   string
}

func (e GroupMetaChanged) EventName() string { return NameGroupMetaChanged }
func (e GroupMetaChanged) EventID() string   { return e.ID }

// NewGroupMetaChanged builds the event with a fresh id.
func NewGroupMetaChanged(groupID primitive.ObjectID, key, value string) GroupMetaChanged {
	return GroupMetaChanged{ID: uuid.NewString(), GroupID: groupID, Key: key, Value: value}
}

// Handler consumes one event.
type Handler func(ctx context.Context, ev Event) error

// Bus delivers each published event to every handler subscribed to its name,
// in subscription order, on the publisher's goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *zap.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{handlers: make(map[string][]Handler), log: logger}
}

// Subscribe registers h for events named name.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish runs every handler for ev. A failing handler does not stop the
// rest; all errors are joined and returned.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	hs := append([]Handler(nil), b.handlers[ev.EventName()]...)
	b.mu.RUnlock()

	if len(hs) == 0 {
		b.log.Debug("event has no subscribers",
			zap.String("event", ev.EventName()),
			zap.String("event_id", ev.EventID()))
		return nil
	}

	var errs []error
	for _, h := range hs {
		if err := h(ctx, ev); err != nil {
			b.log.Warn("event handler failed",
				zap.String("event", ev.EventName()),
				zap.String("event_id", ev.EventID()),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
