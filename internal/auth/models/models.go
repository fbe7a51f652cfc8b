package models

import (
	"time"

	id "marketplace/pkg/domain"
)

// Role gates capability sets. It is fixed at registration; there is no role
// promotion flow.
type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleSeller Role = "SELLER"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleSeller
}

// User is the primary identity. PasswordHash is a bcrypt hash and never
// leaves this package's consumers in responses.
type User struct {
	ID           id.UserID
	Email        string
	FirstName    string
	LastName     string
	Role         Role
	PasswordHash string
	Phone        string
	Address      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is one issued credential. The token column is the lookup key;
// verification rotates the token in place (sliding expiration), so a session
// row survives rotation while the token value changes.
type Session struct {
	ID        id.SessionID
	Token     string
	UserID    id.UserID
	Role      Role
	Device    string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Identity is the result of authenticating a request: the resolved user, the
// session that backed it, and the rotated token the client should use next.
type Identity struct {
	UserID    id.UserID
	Role      Role
	SessionID id.SessionID
	Token     string
	ExpiresAt time.Time
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
	Role      Role
	Phone     string
	Address   string
}

// LoginResult pairs the sanitized user with the issued token.
type LoginResult struct {
	User  *User
	Token string
}
