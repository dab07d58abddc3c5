package session

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of a signed-in account
type Identity interface {
	ID() string
	Email() string
	Name() string
	Role() string
}

// Authenticator holds methods to deal with sign-in and session resolution
type Authenticator interface {
	SignIn(ctx context.Context, profile ExternalProfile) (string, error)
	SessionFromToken(token string) (AuthClaims, error)
	IdentityFromClaims(ctx context.Context, claims AuthClaims) (Identity, error)
}

// Config holds session options
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() time.Duration
	GetCookieName() string
	GetCookieDomain() string
	GetCookieSecure() bool
	GetIssuer() string
	GetAudience() []string
	GetAllowedEmailDomains() []string
	GetSupportContact() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
