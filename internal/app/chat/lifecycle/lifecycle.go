// Package lifecycle moves chat rooms between active and closed states: the
// scheduled expiry sweep, manual archive/delete, expiry extension and
// reactivation.
//
// Every transition is a conditional update on the room's current status.
// That guard is the only coordination between a sweep and concurrent manual
// actions; a transition that lost the race changes nothing and is not an
// error.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/therapyrooms/internal/app/chat/chaterr"
	"github.com/dalemusser/therapyrooms/internal/app/store/audit"
	"github.com/dalemusser/therapyrooms/internal/app/system/auditlog"
	"github.com/dalemusser/therapyrooms/internal/app/system/auth"
	"github.com/dalemusser/therapyrooms/internal/app/system/dateparse"
	"github.com/dalemusser/therapyrooms/internal/app/system/mailer"
	"github.com/dalemusser/therapyrooms/internal/app/system/notify"
	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Expiry actions.
const (
	ActionArchive = "archive"
	ActionDelete  = "delete"
)

// Triggers recorded on audit events and notices.
const (
	TriggerSweep  = "sweep"
	TriggerManual = "manual"
)

// ErrBadAction is returned for an expiry action other than archive or delete.
var ErrBadAction = errors.New(`expiry action must be "archive" or "delete"`)

// NormalizeAction lowercases and validates an expiry action. Empty means
// archive.
func NormalizeAction(action string) (string, error) {
	switch a := strings.ToLower(strings.TrimSpace(action)); a {
	case "":
		return ActionArchive, nil
	case ActionArchive, ActionDelete:
		return a, nil
	default:
		return "", fmt.Errorf("%q: %w", action, ErrBadAction)
	}
}

// Config holds the site-wide chat settings the manager acts on.
type Config struct {
	ExpiryAction      string
	DefaultExpiryDays int
	Location          *time.Location
	// NotifyEmail receives lifecycle notices. Empty means every active admin.
	NotifyEmail string
	SiteName    string
}

// GroupStore is the subset of the session group store the manager writes.
type GroupStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.SessionGroup, error)
	UnlinkRoom(ctx context.Context, groupID, roomID primitive.ObjectID) error
	MarkChatExpired(ctx context.Context, groupID primitive.ObjectID, at time.Time) error
	ClearChatExpired(ctx context.Context, groupID primitive.ObjectID) error
	MarkChatDeleted(ctx context.Context, groupID primitive.ObjectID) error
}

// RoomStore is the subset of the chat room store the manager writes.
type RoomStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.ChatRoom, error)
	ListExpiring(ctx context.Context, before time.Time) ([]models.ChatRoom, error)
	Transition(ctx context.Context, id primitive.ObjectID, from []string, to string, archivedAt *time.Time) (bool, error)
	SetExpiry(ctx context.Context, id primitive.ObjectID, expiresAt time.Time) error
	DeleteIfStatus(ctx context.Context, id primitive.ObjectID, statuses ...string) (int64, error)
}

// RoomLookup resolves a group's room, checking both halves of the link.
type RoomLookup interface {
	GetRoom(ctx context.Context, groupID primitive.ObjectID) (models.ChatRoom, error)
}

// MemberStore removes the per-user membership records of a deleted room.
type MemberStore interface {
	DeleteByRoom(ctx context.Context, roomID primitive.ObjectID) (int64, error)
}

// LinkStore removes the enrollment links pointing at a deleted room's group.
type LinkStore interface {
	DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error)
}

// Recipients lists notification addresses by role.
type Recipients interface {
	EmailsByRole(ctx context.Context, role string) ([]string, error)
}

// Deps are the collaborators of a Manager.
type Deps struct {
	Groups     GroupStore
	Rooms      RoomStore
	Lookup     RoomLookup
	Members    MemberStore
	Links      LinkStore
	Recipients Recipients
	Notifier   notify.Notifier
	Audit      *auditlog.Logger
	Log        *zap.Logger
}

// Manager applies lifecycle transitions.
type Manager struct {
	d Deps

	mu  sync.RWMutex
	cfg Config

	now func() time.Time
}

// New creates a Manager.
func New(d Deps, cfg Config) *Manager {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Notifier == nil {
		d.Notifier = notify.LogNotifier{Log: d.Log}
	}
	m := &Manager{d: d, now: time.Now}
	m.SetConfig(cfg)
	return m
}

// SetConfig replaces the settings. It is called when staff save new chat
// settings.
func (m *Manager) SetConfig(cfg Config) {
	if a, err := NormalizeAction(cfg.ExpiryAction); err == nil {
		cfg.ExpiryAction = a
	} else {
		m.d.Log.Warn("unknown expiry action; using archive", zap.String("action", cfg.ExpiryAction))
		cfg.ExpiryAction = ActionArchive
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

// Config returns the current settings.
func (m *Manager) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, chaterr.ErrStorage, err)
}

/* -------------------------------------------------------------------------- */
/* Sweep                                                                      */
/* -------------------------------------------------------------------------- */

// SweepResult summarises one sweep run.
type SweepResult struct {
	RunID    string `json:"run_id"`
	Action   string `json:"action"`
	Examined int    `json:"examined"`
	Closed   int    `json:"closed"`
	Failed   int    `json:"failed"`
}

// RunExpirySweep applies the configured expiry action to every active room
// whose expiry date is on or before today. A room that fails is logged and
// the sweep moves on. Running it again is a no-op for rooms already closed.
func (m *Manager) RunExpirySweep(ctx context.Context, today time.Time) (SweepResult, error) {
	cfg := m.Config()
	res := SweepResult{RunID: uuid.NewString(), Action: cfg.ExpiryAction}
	log := m.d.Log.With(zap.String("run_id", res.RunID), zap.String("action", res.Action))

	cutoff := dateparse.EndOfDay(today, cfg.Location)
	rooms, err := m.d.Rooms.ListExpiring(ctx, cutoff)
	if err != nil {
		log.Error("expiry sweep: list rooms failed", zap.Error(err))
		return res, storageErr("list expiring rooms", err)
	}
	res.Examined = len(rooms)

	for i, room := range rooms {
		if ctx.Err() != nil {
			log.Warn("expiry sweep interrupted", zap.Int("remaining", len(rooms)-i), zap.Error(ctx.Err()))
			res.Failed += len(rooms) - i
			break
		}
		changed, err := m.expire(ctx, cfg, room, cfg.ExpiryAction, TriggerSweep, []string{models.RoomStatusActive})
		switch {
		case err != nil:
			res.Failed++
			log.Error("expiry sweep: room failed",
				zap.String("room_id", room.ID.Hex()),
				zap.String("group_id", room.GroupID.Hex()),
				zap.Error(err))
		case changed:
			res.Closed++
		}
	}

	log.Info("expiry sweep complete",
		zap.Int("examined", res.Examined),
		zap.Int("closed", res.Closed),
		zap.Int("failed", res.Failed))
	m.d.Audit.SweepCompleted(ctx, res.RunID, res.Examined, res.Closed, res.Failed)
	return res, nil
}

// expire applies action to room. It reports whether this call made the
// transition; false with a nil error means another caller already did.
func (m *Manager) expire(ctx context.Context, cfg Config, room models.ChatRoom, action, trigger string, from []string) (bool, error) {
	if action == ActionDelete {
		return m.deleteRoom(ctx, cfg, room, trigger, from)
	}
	return m.archiveRoom(ctx, cfg, room, trigger)
}

/* -------------------------------------------------------------------------- */
/* Archive                                                                    */
/* -------------------------------------------------------------------------- */

// Archive closes the room without removing it. The room's status becomes
// expired, archived_at is stamped and the group is flagged. A room that is
// not active is left alone.
func (m *Manager) Archive(ctx context.Context, roomID, groupID primitive.ObjectID) error {
	room, err := m.roomByID(ctx, roomID, groupID)
	if err != nil {
		return err
	}
	_, err = m.archiveRoom(ctx, m.Config(), room, TriggerManual)
	return err
}

func (m *Manager) archiveRoom(ctx context.Context, cfg Config, room models.ChatRoom, trigger string) (bool, error) {
	at := m.now().UTC()
	changed, err := m.d.Rooms.Transition(ctx, room.ID, []string{models.RoomStatusActive}, models.RoomStatusExpired, &at)
	if err != nil {
		m.d.Audit.RoomActionFailed(ctx, audit.EventRoomArchived, room.GroupID, room.ID, err.Error())
		return false, storageErr("archive room", err)
	}
	if !changed {
		return false, nil
	}

	if err := m.d.Groups.MarkChatExpired(ctx, room.GroupID, at); err != nil {
		m.d.Log.Warn("room archived but group flag not set",
			zap.String("room_id", room.ID.Hex()),
			zap.String("group_id", room.GroupID.Hex()),
			zap.Error(err))
	}

	m.d.Log.Info("chat room archived",
		zap.String("room_id", room.ID.Hex()),
		zap.String("group_id", room.GroupID.Hex()),
		zap.String("trigger", trigger))
	m.d.Audit.RoomArchived(ctx, room.GroupID, room.ID, trigger)
	m.notify(ctx, cfg, room, "archived", trigger, at)
	return true, nil
}

/* -------------------------------------------------------------------------- */
/* Delete                                                                     */
/* -------------------------------------------------------------------------- */

// Delete permanently removes the room, its membership records and the
// enrollment links into it. The group's link is cleared and the group is
// flagged as deleted. Any status may be deleted.
func (m *Manager) Delete(ctx context.Context, roomID, groupID primitive.ObjectID) error {
	room, err := m.roomByID(ctx, roomID, groupID)
	if err != nil {
		return err
	}
	changed, err := m.deleteRoom(ctx, m.Config(), room, TriggerManual, nil)
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("room %s: %w", roomID.Hex(), chaterr.ErrNotFound)
	}
	return nil
}

// deleteRoom removes room while its status is one of from (any status when
// from is empty). Cleanup of the records around the room is attempted in
// full even when a step fails.
func (m *Manager) deleteRoom(ctx context.Context, cfg Config, room models.ChatRoom, trigger string, from []string) (bool, error) {
	if len(from) == 0 {
		from = []string{models.RoomStatusActive, models.RoomStatusArchived, models.RoomStatusExpired}
	}
	n, err := m.d.Rooms.DeleteIfStatus(ctx, room.ID, from...)
	if err != nil {
		m.d.Audit.RoomActionFailed(ctx, audit.EventRoomDeleted, room.GroupID, room.ID, err.Error())
		return false, storageErr("delete room", err)
	}
	if n == 0 {
		return false, nil
	}

	var errs []error
	if _, err := m.d.Members.DeleteByRoom(ctx, room.ID); err != nil {
		errs = append(errs, fmt.Errorf("member records: %w", err))
	}
	if err := m.d.Groups.UnlinkRoom(ctx, room.GroupID, room.ID); err != nil {
		errs = append(errs, fmt.Errorf("group link: %w", err))
	}
	if err := m.d.Groups.MarkChatDeleted(ctx, room.GroupID); err != nil {
		errs = append(errs, fmt.Errorf("group flag: %w", err))
	}
	if _, err := m.d.Links.DeleteByGroup(ctx, room.GroupID); err != nil {
		errs = append(errs, fmt.Errorf("enrollment links: %w", err))
	}

	at := m.now().UTC()
	m.d.Log.Info("chat room deleted",
		zap.String("room_id", room.ID.Hex()),
		zap.String("group_id", room.GroupID.Hex()),
		zap.String("trigger", trigger))
	m.d.Audit.RoomDeleted(ctx, room.GroupID, room.ID, trigger)
	m.notify(ctx, cfg, room, "deleted", trigger, at)

	if len(errs) > 0 {
		return true, storageErr("clean up deleted room", errors.Join(errs...))
	}
	return true, nil
}

/* -------------------------------------------------------------------------- */
/* Manual per-group actions                                                   */
/* -------------------------------------------------------------------------- */

// ExtendExpiry sets a new expiry date on the group's room. An expired room
// is reopened and the group's expired flag cleared. date accepts the
// formats of dateparse.Parse; an unparsable date changes nothing.
func (m *Manager) ExtendExpiry(ctx context.Context, groupID primitive.ObjectID, date string) (time.Time, error) {
	room, err := m.d.Lookup.GetRoom(ctx, groupID)
	if err != nil {
		return time.Time{}, err
	}
	cfg := m.Config()
	expiresAt, err := dateparse.Parse(date, cfg.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("extend expiry of group %s to %q: %w", groupID.Hex(), date, chaterr.ErrInvalidDate)
	}

	if err := m.d.Rooms.SetExpiry(ctx, room.ID, expiresAt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return time.Time{}, fmt.Errorf("room %s: %w", room.ID.Hex(), chaterr.ErrNotFound)
		}
		m.d.Audit.RoomActionFailed(ctx, audit.EventRoomExpiryExtended, groupID, room.ID, err.Error())
		return time.Time{}, storageErr("set expiry", err)
	}
	m.d.Audit.RoomExpiryExtended(ctx, groupID, room.ID, expiresAt)

	if room.Status == models.RoomStatusExpired {
		if err := m.reopen(ctx, room, []string{models.RoomStatusExpired}); err != nil {
			return expiresAt, err
		}
	}

	m.d.Log.Info("chat room expiry extended",
		zap.String("room_id", room.ID.Hex()),
		zap.String("group_id", groupID.Hex()),
		zap.Time("expires_at", expiresAt))
	return expiresAt, nil
}

// ManuallyExpire applies an expiry action to one group's room now, exactly
// as the sweep would. An empty action means the configured one.
func (m *Manager) ManuallyExpire(ctx context.Context, groupID primitive.ObjectID, action string) error {
	cfg := m.Config()
	if action == "" {
		action = cfg.ExpiryAction
	}
	action, err := NormalizeAction(action)
	if err != nil {
		return err
	}
	room, err := m.d.Lookup.GetRoom(ctx, groupID)
	if err != nil {
		return err
	}
	_, err = m.expire(ctx, cfg, room, action, TriggerManual, []string{models.RoomStatusActive})
	return err
}

// Reactivate reopens an archived or expired room. The expiry date is not
// changed; a room already past it will be closed by the next sweep unless
// its expiry is extended too.
func (m *Manager) Reactivate(ctx context.Context, groupID primitive.ObjectID) error {
	room, err := m.d.Lookup.GetRoom(ctx, groupID)
	if err != nil {
		return err
	}
	return m.reopen(ctx, room, []string{models.RoomStatusArchived, models.RoomStatusExpired})
}

func (m *Manager) reopen(ctx context.Context, room models.ChatRoom, from []string) error {
	changed, err := m.d.Rooms.Transition(ctx, room.ID, from, models.RoomStatusActive, nil)
	if err != nil {
		m.d.Audit.RoomActionFailed(ctx, audit.EventRoomReactivated, room.GroupID, room.ID, err.Error())
		return storageErr("reactivate room", err)
	}
	if !changed {
		return nil
	}
	if err := m.d.Groups.ClearChatExpired(ctx, room.GroupID); err != nil {
		return storageErr("clear group expired flag", err)
	}
	m.d.Log.Info("chat room reactivated",
		zap.String("room_id", room.ID.Hex()),
		zap.String("group_id", room.GroupID.Hex()))
	m.d.Audit.RoomReactivated(ctx, room.GroupID, room.ID)
	return nil
}

func (m *Manager) roomByID(ctx context.Context, roomID, groupID primitive.ObjectID) (models.ChatRoom, error) {
	room, err := m.d.Rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ChatRoom{}, fmt.Errorf("room %s: %w", roomID.Hex(), chaterr.ErrNotFound)
		}
		return models.ChatRoom{}, storageErr("load room", err)
	}
	if room.GroupID != groupID {
		return models.ChatRoom{}, fmt.Errorf("room %s belongs to group %s, not %s: %w",
			roomID.Hex(), room.GroupID.Hex(), groupID.Hex(), chaterr.ErrIntegrity)
	}
	return room, nil
}

/* -------------------------------------------------------------------------- */
/* Notices                                                                    */
/* -------------------------------------------------------------------------- */

// notify sends the lifecycle notice to staff. Delivery is the notifier's
// business; nothing here can fail the transition.
func (m *Manager) notify(ctx context.Context, cfg Config, room models.ChatRoom, action, trigger string, at time.Time) {
	to := m.recipients(ctx, cfg)
	if len(to) == 0 {
		m.d.Log.Debug("no recipients for chat room notice", zap.String("room_id", room.ID.Hex()))
		return
	}

	title := room.Name
	if g, err := m.d.Groups.GetByID(ctx, room.GroupID); err == nil && g.Title != "" {
		title = g.Title
	}
	site := cfg.SiteName
	if site == "" {
		site = "Therapy Rooms"
	}
	email := mailer.BuildRoomNotice(mailer.RoomNoticeData{
		SiteName:   site,
		GroupTitle: title,
		RoomName:   room.Name,
		Action:     action,
		When:       at.In(cfg.Location).Format("January 2, 2006"),
		Trigger:    trigger,
	})
	for _, addr := range to {
		m.d.Notifier.Notify(ctx, notify.Message{
			To:      addr,
			Subject: email.Subject,
			Text:    email.TextBody,
			HTML:    email.HTMLBody,
		})
	}
}

func (m *Manager) recipients(ctx context.Context, cfg Config) []string {
	if addr := strings.TrimSpace(cfg.NotifyEmail); addr != "" {
		return []string{addr}
	}
	if m.d.Recipients == nil {
		return nil
	}
	emails, err := m.d.Recipients.EmailsByRole(ctx, auth.RoleAdmin)
	if err != nil {
		m.d.Log.Warn("could not load admin emails for chat room notice", zap.Error(err))
		return nil
	}
	return emails
}
