package account

import (
	"strings"
	"time"
)

// Status is the approval state of an account, owned by the hosted service
type Status string

const (
	// StatusUnknown means the status could not be read
	StatusUnknown   Status = ""
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusRejected  Status = "rejected"
)

// Role is the administrative role assigned to an account
type Role string

const (
	RoleNone       Role = ""
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
)

// ParseStatus normalizes a raw status value. Unknown values are kept as-is so
// the gate can treat them as a pass-through.
func ParseStatus(raw string) Status {
	return Status(strings.ToLower(strings.TrimSpace(raw)))
}

// ParseRole normalizes a raw role value
func ParseRole(raw string) Role {
	return Role(strings.ToLower(strings.TrimSpace(raw)))
}

// Known reports whether the status is one of the four defined states
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusActive, StatusSuspended, StatusRejected:
		return true
	}
	return false
}

// Identity is the stable user record attached to a session
type Identity struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

// Session is a read-only copy of the bearer credential issued by the hosted service
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         Identity  `json:"user"`
}

// Expired reports whether the access token is expired, or will be within margin
func (s *Session) Expired(now time.Time, margin time.Duration) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(margin).Before(s.ExpiresAt)
}

// Clone returns a copy that callers may keep without sharing memory
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
