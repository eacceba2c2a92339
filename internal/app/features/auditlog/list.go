// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strconv"
	"strings"

	uierrors "github.com/dalemusser/therapyrooms/internal/app/features/errors"
	"github.com/dalemusser/therapyrooms/internal/app/store/audit"
	"github.com/dalemusser/therapyrooms/internal/app/system/dateparse"
	"github.com/dalemusser/therapyrooms/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const pageSize = 50

// ServeList handles GET /chat/audit.
//
// Query parameters (all optional): category, event_type, group_id, room_id,
// user_id, start_date, end_date (YYYY-MM-DD, inclusive, UTC) and page.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}

	filter := audit.QueryFilter{
		Category:  strings.TrimSpace(q.Get("category")),
		EventType: strings.TrimSpace(q.Get("event_type")),
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}

	ids := []struct {
		param string
		dst   **primitive.ObjectID
	}{
		{"group_id", &filter.GroupID},
		{"room_id", &filter.RoomID},
		{"user_id", &filter.UserID},
	}
	for _, f := range ids {
		raw := strings.TrimSpace(q.Get(f.param))
		if raw == "" {
			continue
		}
		oid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			uierrors.BadRequest(w, f.param+" is not a valid id.")
			return
		}
		*f.dst = &oid
	}

	if raw := q.Get("start_date"); strings.TrimSpace(raw) != "" {
		t, err := dateparse.Parse(raw, nil)
		if err != nil {
			uierrors.BadRequest(w, "start_date is not a valid date.")
			return
		}
		filter.StartTime = &t
	}
	if raw := q.Get("end_date"); strings.TrimSpace(raw) != "" {
		t, err := dateparse.Parse(raw, nil)
		if err != nil {
			uierrors.BadRequest(w, "end_date is not a valid date.")
			return
		}
		end := dateparse.EndOfDay(t, nil).Add(-1)
		filter.EndTime = &end
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		h.Log.Error("failed to query audit events", zap.Error(err))
		uierrors.Write(w, http.StatusServiceUnavailable, "storage", "Audit events are unavailable.")
		return
	}
	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		h.Log.Error("failed to count audit events", zap.Error(err))
		uierrors.Write(w, http.StatusServiceUnavailable, "storage", "Audit events are unavailable.")
		return
	}

	names := h.resolveNames(r, events)

	resp := listResponse{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int((total + pageSize - 1) / pageSize),
		Events:     make([]listItem, 0, len(events)),
	}
	if resp.TotalPages == 0 {
		resp.TotalPages = 1
	}
	for _, e := range events {
		resp.Events = append(resp.Events, toItem(e, names))
	}
	uierrors.WriteJSON(w, http.StatusOK, resp)
}

// resolveNames batch-loads display names for actors and subjects. Failures
// only cost the names.
func (h *Handler) resolveNames(r *http.Request, events []audit.Event) map[primitive.ObjectID]string {
	names := make(map[primitive.ObjectID]string)
	if h.Users == nil {
		return names
	}

	seen := make(map[primitive.ObjectID]struct{})
	var ids []primitive.ObjectID
	add := func(id *primitive.ObjectID) {
		if id == nil {
			return
		}
		if _, ok := seen[*id]; ok {
			return
		}
		seen[*id] = struct{}{}
		ids = append(ids, *id)
	}
	for _, e := range events {
		add(e.ActorID)
		add(e.UserID)
	}
	if len(ids) == 0 {
		return names
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "audit log names")
	defer cancel()
	users, err := h.Users.GetByIDs(ctx, ids)
	if err != nil {
		h.Log.Warn("failed to fetch user names for audit log", zap.Error(err))
		return names
	}
	for _, u := range users {
		names[u.ID] = u.FullName
	}
	return names
}
