package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRole is returned when a profile carries a role we do not serve.
var ErrUnknownRole = errors.New("unknown role")

// Role selects between the farmer and administrator views.
type Role string

const (
	RoleFarmer Role = "farmer"
	RoleAdmin  Role = "admin"
)

// ParseRole resolves a stored role string. An empty role defaults to farmer.
func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(RoleFarmer):
		return RoleFarmer, nil
	case string(RoleAdmin), "administrator":
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
}

// Profile is the per-user record kept next to the auth provider's account.
type Profile struct {
	ID       string `bson:"_id" json:"id"`
	FullName string `bson:"full_name" json:"full_name"`
	Phone    string `bson:"phone,omitempty" json:"phone,omitempty"`
	Role     string `bson:"role" json:"role"`
}

// Session is resolved once per request and carried to every consumer.
type Session struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the session sees the whole fleet.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// SessionFor builds a Session from a profile.
func SessionFor(p Profile) (Session, error) {
	role, err := ParseRole(p.Role)
	if err != nil {
		return Session{}, err
	}
	return Session{UserID: p.ID, Role: role}, nil
}
