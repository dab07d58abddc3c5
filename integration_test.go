package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	session "github.com/bruinmarket/go-session"
	"github.com/bruinmarket/go-session/middleware/sessionware"
)

func newTestRouteAuth(t *testing.T) (*session.RouteAuthenticator, session.RepositoryManager) {
	t.Helper()

	cfg := newTestConfig()
	repo := session.NewRepositoryManager(setupAccountsDB(t))

	auther, err := session.NewAuthenticator(repo, cfg)
	require.NoError(t, err)
	auther.WithLogger(testLogger{})

	routeAuth, err := session.NewHTTPAuthenticator(auther, repo, cfg)
	require.NoError(t, err)
	routeAuth.Logger = testLogger{}

	// surface raw errors so tests can assert on the typed failure instead of
	// the rendered JSON envelope
	routeAuth.ErrorHandler = func(c router.Context, err error) error {
		return err
	}

	return routeAuth, repo
}

func signedInCookie(t *testing.T, routeAuth *session.RouteAuthenticator, email string) string {
	t.Helper()

	ctx := NewMockContext()
	err := routeAuth.CompleteSignIn(ctx, session.ExternalProfile{
		Subject:       "google-oauth2|" + email,
		Email:         email,
		EmailVerified: true,
		Name:          "Joe Bruin",
	})
	require.NoError(t, err)

	require.Len(t, ctx.SetCookies, 1)
	cookie := ctx.SetCookies[0]
	assert.Equal(t, "session_token", cookie.Name)
	assert.True(t, cookie.HTTPOnly)
	assert.True(t, cookie.Expires.After(time.Now()))
	require.NotEmpty(t, cookie.Value)

	return cookie.Value
}

func TestSessionLifecycle(t *testing.T) {
	routeAuth, repo := newTestRouteAuth(t)
	next := func(c router.Context) error { return c.Next() }

	token := signedInCookie(t, routeAuth, "student@ucla.edu")

	t.Run("gate admits the signed-in session", func(t *testing.T) {
		ctx := NewMockContext()
		ctx.CookiesM["session_token"] = token

		err := routeAuth.SessionGate(false)(next)(ctx)

		require.NoError(t, err)
		assert.True(t, ctx.NextCalled)

		principal, ok := session.RouterPrincipal(ctx)
		require.True(t, ok)
		assert.Equal(t, "student@ucla.edu", principal.Email)
		assert.Equal(t, session.RoleUser, principal.Role)

		// the enriched standard context carries the principal too
		fromCtx, ok := session.PrincipalFromContext(ctx.Context())
		require.True(t, ok)
		assert.Equal(t, principal.ID, fromCtx.ID)
	})

	t.Run("gate rejects a request without a cookie", func(t *testing.T) {
		ctx := NewMockContext()

		err := routeAuth.SessionGate(false)(next)(ctx)

		assert.ErrorIs(t, err, sessionware.ErrMissingSession)
		assert.False(t, ctx.NextCalled)
	})

	t.Run("gate rejects a tampered cookie", func(t *testing.T) {
		ctx := NewMockContext()
		ctx.CookiesM["session_token"] = token + "x"

		err := routeAuth.SessionGate(false)(next)(ctx)

		assert.Error(t, err)
		assert.True(t, session.IsMalformedError(err))
	})

	t.Run("suspension kills the session on the next request", func(t *testing.T) {
		moderator := session.ActorRef{ID: "admin-1", Role: session.RoleAdmin}

		account, err := repo.Accounts().GetByEmail(context.Background(), "student@ucla.edu")
		require.NoError(t, err)
		_, err = repo.Accounts().Suspend(context.Background(), moderator, account)
		require.NoError(t, err)

		req := NewMockContext()
		req.CookiesM["session_token"] = token

		gateErr := routeAuth.SessionGate(false)(next)(req)

		require.Error(t, gateErr)
		var rich *errors.Error
		require.True(t, errors.As(gateErr, &rich))
		assert.Equal(t, sessionware.ErrSuspended.TextCode, rich.TextCode)
		assert.False(t, req.NextCalled)

		_, err = repo.Accounts().Reinstate(context.Background(), moderator, account)
		require.NoError(t, err)
	})

	t.Run("optional gate passes anonymous requests through", func(t *testing.T) {
		ctx := NewMockContext()

		err := routeAuth.SessionGate(true)(next)(ctx)

		require.NoError(t, err)
		assert.True(t, ctx.NextCalled)
		_, ok := session.RouterPrincipal(ctx)
		assert.False(t, ok)
	})

	t.Run("admin gate blocks regular members", func(t *testing.T) {
		ctx := NewMockContext()
		ctx.CookiesM["session_token"] = token

		require.NoError(t, routeAuth.SessionGate(false)(next)(ctx))
		require.True(t, ctx.NextCalled)

		// the gate admitted and attached a principal; the role policy runs next
		ctx.NextCalled = false
		err := routeAuth.AdminGate()(next)(ctx)

		assert.ErrorIs(t, err, sessionware.ErrAdminRequired)
		assert.False(t, ctx.NextCalled)
	})

	t.Run("logout expires the cookie", func(t *testing.T) {
		ctx := NewMockContext()

		routeAuth.Logout(ctx)

		require.Len(t, ctx.SetCookies, 1)
		cookie := ctx.SetCookies[0]
		assert.Equal(t, "session_token", cookie.Name)
		assert.Empty(t, cookie.Value)
		assert.True(t, cookie.Expires.Before(time.Now()))
	})
}

func TestSessionController(t *testing.T) {
	routeAuth, _ := newTestRouteAuth(t)
	controller := session.NewSessionController(routeAuth,
		session.WithControllerLogger(testLogger{}),
	)

	t.Run("sign-in completion sets the cookie and reports created", func(t *testing.T) {
		ctx := NewMockContext()
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*session.SignInCompletePayload)
			payload.Subject = "google-oauth2|controller-1"
			payload.Email = "controller@ucla.edu"
			payload.EmailVerified = true
			payload.Name = "Controller Bruin"
		}).Return(nil)

		err := controller.SignInComplete(ctx)

		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, ctx.JSONStatus)
		assert.Len(t, ctx.SetCookies, 1)
	})

	t.Run("invalid payload is a bad request", func(t *testing.T) {
		ctx := NewMockContext()
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*session.SignInCompletePayload)
			payload.Email = "not-an-email"
		}).Return(nil)

		err := controller.SignInComplete(ctx)

		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, ctx.JSONStatus)
		assert.Empty(t, ctx.SetCookies)
	})

	t.Run("rejected sign-in surfaces through the error handler", func(t *testing.T) {
		ctx := NewMockContext()
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*session.SignInCompletePayload)
			payload.Subject = "google-oauth2|controller-2"
			payload.Email = "outsider@gmail.com"
			payload.EmailVerified = true
			payload.Name = "Outsider"
		}).Return(nil)

		err := controller.SignInComplete(ctx)

		assert.ErrorIs(t, err, session.ErrEmailDomainNotAllowed)
		assert.Empty(t, ctx.SetCookies)
	})

	t.Run("current session renders the principal", func(t *testing.T) {
		ctx := NewMockContext()
		ctx.LocalsM["principal"] = &session.Principal{
			ID:    "acc-1",
			Email: "controller@ucla.edu",
			Name:  "Controller Bruin",
			Role:  session.RoleUser,
		}

		err := controller.CurrentSession(ctx)

		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, ctx.JSONStatus)

		body, ok := ctx.JSONBody.(map[string]any)
		require.True(t, ok)
		payload, ok := body["session"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "controller@ucla.edu", payload["email"])
	})

	t.Run("current session without a principal is unauthorized", func(t *testing.T) {
		ctx := NewMockContext()

		err := controller.CurrentSession(ctx)

		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, ctx.JSONStatus)
	})

	t.Run("logout responds ok and clears the cookie", func(t *testing.T) {
		ctx := NewMockContext()

		err := controller.LogOut(ctx)

		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, ctx.JSONStatus)
		require.Len(t, ctx.SetCookies, 1)
		assert.True(t, ctx.SetCookies[0].Expires.Before(time.Now()))
	})
}
