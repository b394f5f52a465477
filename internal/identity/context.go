// Package identity carries the authenticated caller through request context.
package identity

import "context"

// Role is the application role attached to a profile.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RoleIntern  Role = "intern"
	RolePatient Role = "patient"
)

// Valid reports whether the role is one of the known application roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleIntern, RolePatient:
		return true
	}
	return false
}

// Session identifies the authenticated caller for the duration of a request.
// The role here comes from the verified token and is advisory; authorization
// decisions re-check the profiles table server-side.
type Session struct {
	UserID string
	Role   Role
}

type ctxKey string

const sessionKey ctxKey = "jeevansetu.session"

// WithSession stores the caller session in context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext extracts the caller session if present.
func SessionFromContext(ctx context.Context) (Session, bool) {
	val := ctx.Value(sessionKey)
	if val == nil {
		return Session{}, false
	}
	s, ok := val.(Session)
	return s, ok && s.UserID != ""
}
