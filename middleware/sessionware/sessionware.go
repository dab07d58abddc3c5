package sessionware

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

const (
	// DefaultCookieName is the session cookie consulted when none is configured
	DefaultCookieName = "session_token"
	// DefaultContextKey is the router locals key the Principal is stored under
	DefaultContextKey = "principal"
)

// AdminRole is the role string granted moderation powers
const AdminRole = "admin"

var (
	// ErrMissingSession is returned when the request carries no session cookie
	ErrMissingSession = errors.New("no session token found", errors.CategoryAuth).
				WithTextCode("SESSION_MISSING").
				WithCode(errors.CodeUnauthorized)
	// ErrAccountGone is returned when valid claims reference a vanished account
	ErrAccountGone = errors.New("account no longer exists", errors.CategoryAuth).
			WithTextCode("ACCOUNT_NOT_FOUND").
			WithCode(errors.CodeUnauthorized)
	// ErrSuspended is returned when the live account row is suspended
	ErrSuspended = errors.New("this account has been suspended", errors.CategoryAuthz).
			WithTextCode("ACCOUNT_SUSPENDED").
			WithCode(errors.CodeForbidden)
	// ErrAdminRequired is returned by RequireAdmin for non-admin principals
	ErrAdminRequired = errors.New("administrator access required", errors.CategoryAuthz).
				WithTextCode("ADMIN_REQUIRED").
				WithCode(errors.CodeForbidden)
)

// Claims interface for verified session claims without import cycles.
// This mirrors the AuthClaims interface from the session package.
type Claims interface {
	UserID() string
	Email() string
	Name() string
	Role() string
}

// SessionResolver interface for resolving raw cookie values without import
// cycles. This mirrors the SessionResolver interface from the session package.
type SessionResolver interface {
	Resolve(raw string) (Claims, error)
}

// Account is the live account snapshot the gate authorizes against. Role and
// suspension always come from here, never from the token claims.
type Account struct {
	ID        string
	Email     string
	Name      string
	Role      string
	Suspended bool
}

// AccountSource fetches the current account row for a verified user ID.
// A missing account is reported as (nil, nil) so the gate can distinguish
// an orphaned credential (401) from a store fault (500).
type AccountSource interface {
	FindAccount(ctx context.Context, userID string) (*Account, error)
}

// Logger interface for gate diagnostics without import cycles
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Principal is the authenticated caller attached to the request. Built from
// the fresh account row, so a role change or suspension takes effect on the
// very next request.
type Principal struct {
	ID    string
	Email string
	Name  string
	Role  string
}

// IsAdmin reports whether the principal holds the admin role
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == AdminRole
}

// Owns reports whether the principal is the owner of a resource
func (p *Principal) Owns(ownerID string) bool {
	return p != nil && ownerID != "" && p.ID == ownerID
}

// CanEdit reports whether the principal may modify a resource owned by
// ownerID. Editing is owner-only: admins moderate by removal, they do not
// alter other people's listings.
func (p *Principal) CanEdit(ownerID string) bool {
	return p.Owns(ownerID)
}

// CanDelete reports whether the principal may remove a resource owned by
// ownerID. Owners and admins both may.
func (p *Principal) CanDelete(ownerID string) bool {
	return p.Owns(ownerID) || p.IsAdmin()
}

type Config struct {
	// Filter skips the gate entirely when it returns true
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
	// CookieName is the only token source; header and query lookups are
	// deliberately not supported
	CookieName string
	ContextKey string
	// Optional attaches a Principal when the session checks out but never
	// rejects the request
	Optional bool
	// Resolver is required for session resolution
	Resolver SessionResolver
	// Accounts is required for the live account re-check
	Accounts AccountSource
	// SuspensionMessage overrides the body of suspension rejections, e.g. to
	// name a support contact
	SuspensionMessage string

	// ContextEnricher is an optional function to propagate the Principal to
	// the standard Go context. If provided, it will be called after the gate
	// admits the request.
	ContextEnricher func(c context.Context, p *Principal) context.Context

	Logger Logger
}

// New creates the session gate middleware. Every request passes through the
// same sequence: cookie extract, claim verification, live account fetch,
// suspension check, principal attach.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw := ctx.Cookies(cfg.CookieName, "")
			if raw == "" {
				return cfg.fail(ctx, ErrMissingSession)
			}

			claims, err := cfg.Resolver.Resolve(raw)
			if err != nil {
				return cfg.fail(ctx, err)
			}

			account, err := cfg.Accounts.FindAccount(ctx.Context(), claims.UserID())
			if err != nil {
				cfg.Logger.Error("session gate account lookup failed: %v", err)
				return cfg.fail(ctx, errors.Wrap(err, errors.CategoryInternal, "account lookup failed").
					WithCode(errors.CodeInternal))
			}

			if account == nil {
				// valid signature, vanished account: an orphaned credential,
				// worth a warning but still just an unauthenticated request
				cfg.Logger.Warn("session gate rejected orphaned credential for account %s", claims.UserID())
				return cfg.fail(ctx, ErrAccountGone)
			}

			if account.Suspended {
				return cfg.fail(ctx, cfg.suspendedError())
			}

			principal := &Principal{
				ID:    account.ID,
				Email: account.Email,
				Name:  account.Name,
				Role:  account.Role,
			}

			ctx.Locals(cfg.ContextKey, principal)

			if cfg.ContextEnricher != nil {
				stdCtx := ctx.Context()
				ctx.SetContext(cfg.ContextEnricher(stdCtx, principal))
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

// RequireAdmin creates a role policy middleware. It must run after the gate:
// it reads the Principal the gate attached and rejects non-admins.
func RequireAdmin(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := getPolicyConfig(config...)
		return func(ctx router.Context) error {
			principal, ok := PrincipalFromLocals(ctx, cfg.ContextKey)
			if !ok {
				return cfg.ErrorHandler(ctx, ErrMissingSession)
			}

			if !principal.IsAdmin() {
				return cfg.ErrorHandler(ctx, ErrAdminRequired)
			}

			return ctx.Next()
		}
	}
}

// PrincipalFromLocals extracts the Principal the gate attached to the request
func PrincipalFromLocals(ctx router.Context, key string) (*Principal, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	principal, ok := raw.(*Principal)
	return principal, ok
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Resolver == nil {
		panic("SESSION: gate middleware configuration: Resolver is required.")
	}

	if cfg.Accounts == nil {
		panic("SESSION: gate middleware configuration: Accounts is required.")
	}

	cfg = getPolicyConfig(cfg)

	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}

	return cfg
}

func getPolicyConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = DefaultErrorHandler
	}

	return cfg
}

// DefaultErrorHandler renders gate failures as JSON envelopes, mapping the
// error's code to the HTTP status.
func DefaultErrorHandler(c router.Context, err error) error {
	var rich *errors.Error
	if errors.As(err, &rich) {
		status := int(rich.Code)
		if status < 400 {
			status = router.StatusUnauthorized
		}
		payload := map[string]any{
			"message": rich.Message,
		}
		if rich.TextCode != "" {
			payload["text_code"] = rich.TextCode
		}
		return c.JSON(status, map[string]any{"error": payload})
	}

	return c.JSON(router.StatusUnauthorized, map[string]any{
		"error": map[string]any{"message": "invalid or expired session"},
	})
}

func (cfg *Config) fail(ctx router.Context, err error) error {
	if cfg.Optional {
		return ctx.Next()
	}
	return cfg.ErrorHandler(ctx, err)
}

func (cfg *Config) suspendedError() error {
	if cfg.SuspensionMessage == "" {
		return ErrSuspended
	}
	return errors.New(cfg.SuspensionMessage, errors.CategoryAuthz).
		WithTextCode(ErrSuspended.TextCode).
		WithCode(errors.CodeForbidden)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
