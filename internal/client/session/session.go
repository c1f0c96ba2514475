// Package session holds the client's belief about the current identity
// and persists it across one of two storage tiers.
package session

import "time"

// Role is the closed set of principal roles. A role is assigned at
// registration and never changes for the lifetime of a session.
type Role string

const (
	RoleConsumer Role = "consumer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleConsumer, RoleVendor, RoleAdmin:
		return true
	}
	return false
}

// DashboardPath returns the role's own dashboard route.
func (r Role) DashboardPath() string {
	switch r {
	case RoleAdmin:
		return "/admin/dashboard"
	case RoleVendor:
		return "/vendor/dashboard"
	default:
		return "/user/dashboard"
	}
}

// Identity is an authenticated principal as returned by the backend.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Session is the client-side auth state. Authenticated is true iff
// Identity is present and the last load or verification succeeded.
// Loading gates reads of Authenticated: while true, consumers must not
// act on the authenticated flag.
type Session struct {
	Identity      *Identity
	Authenticated bool
	Loading       bool
	LastError     string
}

// New returns the initial session: anonymous and still loading, until
// the persisted identity has been resolved once.
func New() Session {
	return Session{Loading: true}
}
