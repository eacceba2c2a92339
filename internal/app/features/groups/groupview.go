// internal/app/features/groups/groupview.go
package groups

import (
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/therapyrooms/internal/app/features/errors"
	"github.com/dalemusser/therapyrooms/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// groupID reads the {id} URL parameter, answering 400 when it is malformed.
func groupID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "Bad group id.")
		return primitive.NilObjectID, false
	}
	return id, true
}

// ServeGroup returns one group with its chat room summary.
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	gid, ok := groupID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load group")
	defer cancel()

	g, err := h.Groups.GetByID(ctx, gid)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.Write(w, http.StatusNotFound, "not_found", "Group not found.")
			return
		}
		h.Log.Error("load group failed", zap.String("group_id", gid.Hex()), zap.Error(err))
		uierrors.Write(w, http.StatusServiceUnavailable, "storage", "A database error occurred.")
		return
	}

	uierrors.WriteJSON(w, http.StatusOK, h.view(ctx, g))
}
