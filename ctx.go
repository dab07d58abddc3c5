package session

import (
	"context"

	"github.com/goliatone/go-router"

	"github.com/bruinmarket/go-session/middleware/sessionware"
)

var principalCtxKey = &contextKey{"principal"}

type contextKey struct {
	name string
}

// WithPrincipal sets the Principal in the given context
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// PrincipalFromContext finds the Principal from the standard context
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	raw, ok := ctx.Value(principalCtxKey).(*Principal)
	return raw, ok
}

// RouterPrincipal extracts the Principal from the router context
func RouterPrincipal(ctx router.Context, key ...string) (*Principal, bool) {
	k := ""
	if len(key) > 0 {
		k = key[0]
	}
	return sessionware.PrincipalFromLocals(ctx, k)
}

// CanEdit is a convenience check against the principal in the standard
// context. Handlers that need an error value reject with ErrNotOwner when
// this reports false.
func CanEdit(ctx context.Context, ownerID string) bool {
	p, ok := PrincipalFromContext(ctx)
	return ok && p.CanEdit(ownerID)
}

// CanDelete is a convenience check against the principal in the standard
// context. Handlers that need an error value reject with ErrNotOwner when
// this reports false.
func CanDelete(ctx context.Context, ownerID string) bool {
	p, ok := PrincipalFromContext(ctx)
	return ok && p.CanDelete(ownerID)
}
