// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/therapyrooms/internal/app/chat/chaterr"
	"github.com/dalemusser/therapyrooms/internal/app/system/auth"
	"go.uber.org/zap"
)

// NotAvailable is what members see when their room cannot be resolved.
const NotAvailable = "Your group chat is not available right now."

// body is the JSON shape of every error response.
type body struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Write writes an error body. code is a short machine-readable token.
func Write(w http.ResponseWriter, status int, code, msg string) {
	WriteJSON(w, status, body{Error: code, Message: msg})
}

// BadRequest writes a 400 with msg.
func BadRequest(w http.ResponseWriter, msg string) {
	Write(w, http.StatusBadRequest, "bad_request", msg)
}

// FromChat maps a chat core error to a status code. Storage and unknown
// failures are logged; the rest are the caller's mistake and are not.
func FromChat(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	switch {
	case stderrors.Is(err, chaterr.ErrNotFound):
		Write(w, http.StatusNotFound, "not_found", "Not found.")
	case stderrors.Is(err, chaterr.ErrInvalidDate):
		Write(w, http.StatusBadRequest, "invalid_date", "The date could not be understood. Use a form like 2026-03-01.")
	case stderrors.Is(err, chaterr.ErrRoomClosed):
		Write(w, http.StatusConflict, "room_closed", "This group's chat room is closed.")
	case stderrors.Is(err, chaterr.ErrIntegrity):
		log.Error("chat link integrity violation", zap.String("path", r.URL.Path), zap.Error(err))
		Write(w, http.StatusConflict, "integrity", "The group and its chat room disagree. An administrator must repair the link.")
	case stderrors.Is(err, chaterr.ErrStorage):
		log.Error("chat storage failure", zap.String("path", r.URL.Path), zap.Error(err))
		Write(w, http.StatusServiceUnavailable, "storage", "A database error occurred.")
	default:
		log.Error("unexpected chat error", zap.String("path", r.URL.Path), zap.Error(err))
		Write(w, http.StatusInternalServerError, "internal", "Something went wrong.")
	}
}

// Handler serves the fallback error endpoints.
// No DB needed.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound is the router's fallback for unknown paths.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	Write(w, http.StatusNotFound, "not_found", "No such endpoint.")
}

// MethodNotAllowed is the router's fallback for a known path with the
// wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Write(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed.")
}

// Forbidden reports an access error, naming the signed-in user's role.
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	msg := "You don't have permission to do that."
	if u, ok := auth.CurrentUser(r); ok {
		msg = "Your role (" + u.Role + ") does not have permission to do that."
	}
	Write(w, http.StatusForbidden, "forbidden", msg)
}
