package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims represents the decoded, verified session claims
type AuthClaims interface {
	Subject() string
	UserID() string
	Email() string
	Name() string
	Role() string
	IsAdmin() bool
	Expires() time.Time
	IssuedAt() time.Time
}

// SessionClaims is the concrete implementation of AuthClaims. The payload is
// intentionally small: identity attributes only. Role and suspension state in
// the claims are advisory; the session gate re-reads them from the accounts
// table on every request.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID          string `json:"uid,omitempty"`
	AccountEmail string `json:"email,omitempty"`
	DisplayName  string `json:"name,omitempty"`
	AccountRole  string `json:"role,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*SessionClaims)(nil)

// Subject returns the subject claim
func (c *SessionClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the account ID
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Email returns the account email at mint time
func (c *SessionClaims) Email() string {
	return c.AccountEmail
}

// Name returns the display name at mint time
func (c *SessionClaims) Name() string {
	return c.DisplayName
}

// Role returns the global role at mint time
func (c *SessionClaims) Role() string {
	return c.AccountRole
}

// IsAdmin reports whether the role claim is the admin role. Advisory only,
// the gate trusts the live account row instead.
func (c *SessionClaims) IsAdmin() bool {
	return c.AccountRole == RoleAdmin
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
