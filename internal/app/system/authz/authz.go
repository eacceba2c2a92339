// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/therapyrooms/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false. ok=true always means a valid ObjectID.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session: fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == auth.RoleAdmin
}

// IsTherapist reports whether the current request's user is a therapist.
func IsTherapist(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == auth.RoleTherapist
}

// IsClient reports whether the current request's user is a client.
func IsClient(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == auth.RoleClient
}

// CanManageEnrollment reports whether the current user may change the
// enrollment of userID. Staff may change anyone's; clients only their own.
func CanManageEnrollment(r *http.Request, userID primitive.ObjectID) bool {
	_, _, uid, ok := UserCtx(r)
	if !ok {
		return false
	}
	return IsStaff(r) || uid == userID
}
