// internal/app/system/authz/roles.go
package authz

import (
	"net/http"
	"slices"
	"strings"

	"github.com/dalemusser/therapyrooms/internal/app/system/auth"
)

// HasAnyRole reports whether the signed-in user holds one of roles.
// It is false for anonymous requests.
func HasAnyRole(r *http.Request, roles ...string) bool {
	role, _, _, ok := UserCtx(r)
	if !ok {
		return false
	}
	return slices.ContainsFunc(roles, func(want string) bool {
		return role == strings.ToLower(strings.TrimSpace(want))
	})
}

// HasRole is HasAnyRole for a single role.
func HasRole(r *http.Request, role string) bool {
	return HasAnyRole(r, role)
}

// IsStaff reports whether the user is an admin or a therapist.
func IsStaff(r *http.Request) bool {
	return HasAnyRole(r, auth.RoleAdmin, auth.RoleTherapist)
}

// Role returns the current user's role (lowercased) and whether a user is present.
func Role(r *http.Request) (string, bool) {
	role, _, _, ok := UserCtx(r)
	return role, ok
}
