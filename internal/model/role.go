package model

import "strings"

// Role is a user role. The set is closed: adding a role means adding a
// constant here and a migration widening the users.role column check.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleStoreManager Role = "store_manager"
	RoleStaff        Role = "staff"
)

// Roles lists every supported role.
var Roles = []Role{RoleAdmin, RoleStoreManager, RoleStaff}

// ParseRole normalizes s and reports whether it names a supported role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Valid returns true when r is one of the supported roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// RoleNames joins Roles for user-facing messages.
func RoleNames() string {
	names := make([]string, len(Roles))
	for i, r := range Roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

// RequiresStore reports whether users with this role must belong to a store.
func (r Role) RequiresStore() bool { return r != RoleAdmin }

// Authorize reports whether u holds one of the allowed roles. A nil user
// or an empty allowed set is always denied.
func Authorize(u *User, allowed ...Role) bool {
	if u == nil {
		return false
	}
	for _, r := range allowed {
		if u.Role == r {
			return true
		}
	}
	return false
}
