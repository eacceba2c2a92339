// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/therapyrooms/internal/app/store/audit"
	"github.com/dalemusser/therapyrooms/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Chat controls logging for room lifecycle and enrollment events.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Chat string
	// Admin controls logging for admin action events (group CRUD, chat settings).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

type actorKey struct{}

// WithActor returns a context that attributes audit events to actorID.
// Services that do not receive an actor explicitly read it from here.
func WithActor(ctx context.Context, actorID primitive.ObjectID) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFrom returns the actor stored by WithActor, or nil.
func ActorFrom(ctx context.Context) *primitive.ObjectID {
	if id, ok := ctx.Value(actorKey{}).(primitive.ObjectID); ok {
		return &id
	}
	return nil
}

// ActorMiddleware attributes every audit event of a request to the
// signed-in user. Mount it after the session loader.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, ok := auth.CurrentUser(r); ok {
			if id, err := primitive.ObjectIDFromHex(u.ID); err == nil {
				r = r.WithContext(WithActor(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}

	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.GroupID != nil {
		fields = append(fields, zap.String("group_id", event.GroupID.Hex()))
	}
	if event.RoomID != nil {
		fields = append(fields, zap.String("room_id", event.RoomID.Hex()))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryChat:
		setting = l.config.Chat
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = "all"
	}
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if event.ActorID == nil {
		event.ActorID = ActorFrom(ctx)
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Chat Room Events ---

// RoomCreated logs the creation of a group's chat room.
func (l *Logger) RoomCreated(ctx context.Context, groupID, roomID primitive.ObjectID, expiresAt time.Time) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryChat,
		EventType: audit.EventRoomCreated,
		GroupID:   &groupID,
		RoomID:    &roomID,
		Success:   true,
		Details: map[string]string{
			"expires_at": expiresAt.Format("2006-01-02"),
		},
	})
}

// RoomArchived logs a room moving to the expired status. trigger is "sweep"
// or "manual".
func (l *Logger) RoomArchived(ctx context.Context, groupID, roomID primitive.ObjectID, trigger string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryChat,
		EventType: audit.EventRoomArchived,
		GroupID:   &groupID,
		RoomID:    &roomID,
		Success:   true,
		Details:   map[string]string{"trigger": trigger},
	})
}

// RoomDeleted logs the removal of a room.
func (l *Logger) RoomDeleted(ctx context.Context, groupID, roomID primitive.ObjectID, trigger string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryChat,
		EventType: audit.EventRoomDeleted,
		GroupID:   &groupID,
		RoomID:    &roomID,
		Success:   true,
		Details:   map[string]string{"trigger": trigger},
	})
}

// RoomReactivated logs a closed room being reopened.
func (l *Logger) RoomReactivated(ctx context.Context, groupID, roomID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryChat,
		EventType: audit.EventRoomReactivated,
		GroupID:   &groupID,
		RoomID:    &roomID,
		Success:   true,
	})
}

// RoomExpiryExtended logs a new expiry date for a room.
func (l *Logger) RoomExpiryExtended(ctx context.Context, groupID, roomID primitive.ObjectID, expiresAt time.Time) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryChat,
		EventType: audit.EventRoomExpiryExtended,
		GroupID:   &groupID,
		RoomID:    &roomID,
		Success:   true,
		Details: map[string]string{
			"expires_at": expiresAt.Format("2006-01-02"),
		},
	})
}

// RoomActionFailed logs a lifecycle action that could not be applied to a room.
func (l *Logger) RoomActionFailed(ctx context.Context, eventType string, groupID, roomID primitive.ObjectID, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryChat,
		EventType:     eventType,
		GroupID:       &groupID,
		RoomID:        &roomID,
		Success:       false,
		FailureReason: reason,
	})
}

// SweepCompleted logs the summary of an expiry sweep.
func (l *Logger) SweepCompleted(ctx context.Context, runID string, examined, closed, failed int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryChat,
		EventType: audit.EventRoomSweepCompleted,
		Success:   failed == 0,
		Details: map[string]string{
			"run_id":   runID,
			"examined": strconv.Itoa(examined),
			"closed":   strconv.Itoa(closed),
			"failed":   strconv.Itoa(failed),
		},
	})
}

// --- Enrollment Events ---

// MemberEnrolled logs a user being added to a group's room.
func (l *Logger) MemberEnrolled(ctx context.Context, userID, groupID, roomID primitive.ObjectID, channel string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryChat,
		EventType: audit.EventMemberEnrolled,
		UserID:    &userID,
		GroupID:   &groupID,
		RoomID:    &roomID,
		Success:   true,
		Details:   map[string]string{"channel": channel},
	})
}

// MemberUnenrolled logs a user being removed from a group's room.
func (l *Logger) MemberUnenrolled(ctx context.Context, userID, groupID, roomID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryChat,
		EventType: audit.EventMemberUnenrolled,
		UserID:    &userID,
		GroupID:   &groupID,
		RoomID:    &roomID,
		Success:   true,
	})
}

// MemberGroupChanged logs a user moving between groups. fromGroupID is nil
// when the user had no previous group.
func (l *Logger) MemberGroupChanged(ctx context.Context, userID primitive.ObjectID, fromGroupID *primitive.ObjectID, toGroupID primitive.ObjectID, success bool, reason string) {
	details := map[string]string{"to_group_id": toGroupID.Hex()}
	if fromGroupID != nil {
		details["from_group_id"] = fromGroupID.Hex()
	}
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryChat,
		EventType:     audit.EventMemberGroupChanged,
		UserID:        &userID,
		GroupID:       &toGroupID,
		Success:       success,
		FailureReason: reason,
		Details:       details,
	})
}

// --- Admin Events ---

// GroupCreated logs creation of a session group.
func (l *Logger) GroupCreated(ctx context.Context, r *http.Request, actorID, groupID primitive.ObjectID, title string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventGroupCreated,
		ActorID:   &actorID,
		GroupID:   &groupID,
		IP:        getClientIP(r),
		Success:   true,
		Details:   map[string]string{"title": title},
	})
}

// GroupUpdated logs a change to a session group. fields lists the changed fields.
func (l *Logger) GroupUpdated(ctx context.Context, r *http.Request, actorID, groupID primitive.ObjectID, fields string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventGroupUpdated,
		ActorID:   &actorID,
		GroupID:   &groupID,
		IP:        getClientIP(r),
		Success:   true,
		Details:   map[string]string{"fields": fields},
	})
}

// GroupDeleted logs deletion of a session group.
func (l *Logger) GroupDeleted(ctx context.Context, r *http.Request, actorID, groupID primitive.ObjectID, title string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventGroupDeleted,
		ActorID:   &actorID,
		GroupID:   &groupID,
		IP:        getClientIP(r),
		Success:   true,
		Details:   map[string]string{"title": title},
	})
}

// ChatSettingsUpdated logs a change to the chat settings.
func (l *Logger) ChatSettingsUpdated(ctx context.Context, r *http.Request, actorID primitive.ObjectID, expiryAction string, defaultDays int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventChatSettingsUpdated,
		ActorID:   &actorID,
		IP:        getClientIP(r),
		Success:   true,
		Details: map[string]string{
			"expiry_action":       expiryAction,
			"default_expiry_days": strconv.Itoa(defaultDays),
		},
	})
}
