package session

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"

	"github.com/bruinmarket/go-session/middleware/sessionware"
)

// RouteAuthenticator wires the session gate and the cookie lifecycle into
// HTTP routes.
type RouteAuthenticator struct {
	auth           *Auther
	repo           RepositoryManager
	cfg            Config
	cookieDuration time.Duration
	Logger         Logger
	ErrorHandler   func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther *Auther, repo RepositoryManager, cfg Config) (*RouteAuthenticator, error) {
	cookieDuration := DefaultTokenTTL
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = cfg.GetTokenExpiration()
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		repo:           repo,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// SessionGate builds the session middleware for protected routes. With
// optional set, a valid session still attaches a Principal but failures pass
// the request through anonymously.
func (a *RouteAuthenticator) SessionGate(optional bool) router.MiddlewareFunc {
	return sessionware.New(a.gateConfig(optional))
}

// AdminGate builds the role policy middleware. Mount it after SessionGate.
func (a *RouteAuthenticator) AdminGate() router.MiddlewareFunc {
	return sessionware.RequireAdmin(sessionware.Config{
		ErrorHandler: a.ErrorHandler,
	})
}

func (a *RouteAuthenticator) gateConfig(optional bool) sessionware.Config {
	return sessionware.Config{
		CookieName:        a.cfg.GetCookieName(),
		Optional:          optional,
		Resolver:          resolverAdapter{resolver: a.auth.Resolver()},
		Accounts:          accountSourceAdapter{accounts: a.repo.Accounts()},
		SuspensionMessage: a.suspensionMessage(),
		ErrorHandler:      a.ErrorHandler,
		Logger:            a.Logger,
		ContextEnricher: func(ctx context.Context, p *sessionware.Principal) context.Context {
			return WithPrincipal(ctx, p)
		},
	}
}

// CompleteSignIn finishes a sign-in for a verified external profile and sets
// the session cookie.
func (a *RouteAuthenticator) CompleteSignIn(ctx router.Context, profile ExternalProfile) error {
	token, err := a.auth.SignIn(ctx.Context(), profile)
	if err != nil {
		a.Logger.Error("CompleteSignIn error: %s", err)
		return err
	}

	a.setCookieToken(ctx, token, a.cookieDuration)
	return nil
}

// Logout clears the session cookie. Idempotent: logging out without a
// session is still a success.
func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.cfg.GetCookieName())
}

func (a *RouteAuthenticator) suspensionMessage() string {
	if contact := a.cfg.GetSupportContact(); contact != "" {
		return fmt.Sprintf("this account has been suspended, contact %s", contact)
	}
	return ""
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetCookieName(),
		Value:    val,
		Domain:   a.cfg.GetCookieDomain(),
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Domain:   a.cfg.GetCookieDomain(),
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Session error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	status := int(richErr.Code)
	if status < 400 {
		status = router.StatusInternalServerError
	}

	payload := map[string]any{
		"message": richErr.Message,
	}
	if richErr.TextCode != "" {
		payload["text_code"] = richErr.TextCode
	}

	return c.JSON(status, map[string]any{"error": payload})
}

// resolverAdapter bridges the root SessionResolver into the middleware's
// mirrored interface.
type resolverAdapter struct {
	resolver SessionResolver
}

func (r resolverAdapter) Resolve(raw string) (sessionware.Claims, error) {
	claims, err := r.resolver.Resolve(raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// accountSourceAdapter maps repository lookups into the gate's three-way
// contract: account, (nil, nil) for missing, error for store faults.
type accountSourceAdapter struct {
	accounts Accounts
}

func (a accountSourceAdapter) FindAccount(ctx context.Context, userID string) (*sessionware.Account, error) {
	record, err := a.accounts.GetByIdentifier(ctx, userID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	return &sessionware.Account{
		ID:        record.ID.String(),
		Email:     record.Email,
		Name:      record.Name,
		Role:      record.Role,
		Suspended: record.IsSuspended,
	}, nil
}
