package session

import "strings"

// SessionResolver turns a raw cookie value into verified claims. Every
// failure falls in exactly one of three buckets: no token at all, a token
// past its expiry, or a token that fails verification for any other reason.
type SessionResolver interface {
	Resolve(raw string) (AuthClaims, error)
}

// Resolver is the default SessionResolver backed by a TokenService
type Resolver struct {
	tokens TokenService
}

// NewResolver creates a SessionResolver on top of the given token service
func NewResolver(tokens TokenService) *Resolver {
	return &Resolver{tokens: tokens}
}

// Resolve verifies a raw token value. An absent or blank value is reported
// as ErrNoSessionToken so callers can distinguish "never signed in" from
// "signed in with a bad token".
func (r *Resolver) Resolve(raw string) (AuthClaims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrNoSessionToken
	}
	return r.tokens.Validate(raw)
}
