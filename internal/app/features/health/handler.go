package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/therapyrooms/internal/app/system/timeouts"
	"github.com/dalemusser/therapyrooms/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// RoomCounter reports how many chat rooms are in a status.
type RoomCounter interface {
	CountByStatus(ctx context.Context, status string) (int64, error)
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client *mongo.Client
	Rooms  RoomCounter
	Log    *zap.Logger
}

// NewHandler constructs a health Handler. rooms may be nil, in which case
// room counts are omitted.
func NewHandler(client *mongo.Client, rooms RoomCounter, logger *zap.Logger) *Handler {
	return &Handler{
		Client: client,
		Rooms:  rooms,
		Log:    logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string      `json:"status"`
	Database string      `json:"database"`
	Message  string      `json:"message,omitempty"`
	Error    string      `json:"error,omitempty"`
	Rooms    *roomCounts `json:"rooms,omitempty"`
}

type roomCounts struct {
	Active   int64 `json:"active"`
	Expired  int64 `json:"expired"`
	Archived int64 `json:"archived"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "rooms":{"active":4,"expired":1,"archived":0} }
//
// On DB failure: 503 and
//
//	{ "status":"error", "message":"Database unavailable", "error":"…"}
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	// Room counts are informational; a failed count leaves them out.
	if h.Rooms != nil {
		var c roomCounts
		var err error
		if c.Active, err = h.Rooms.CountByStatus(ctx, models.RoomStatusActive); err == nil {
			if c.Expired, err = h.Rooms.CountByStatus(ctx, models.RoomStatusExpired); err == nil {
				c.Archived, err = h.Rooms.CountByStatus(ctx, models.RoomStatusArchived)
			}
		}
		if err != nil {
			h.Log.Warn("health-check: room counts unavailable", zap.Error(err))
		} else {
			resp.Rooms = &c
		}
	}

	_ = json.NewEncoder(w).Encode(resp)
}
