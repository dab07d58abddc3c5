package session

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// SessionControllerRoutes names the mounted paths
type SessionControllerRoutes struct {
	SignIn  string
	Session string
	Logout  string
}

// SessionController serves the JSON session endpoints: sign-in completion,
// current-session info, and logout.
type SessionController struct {
	Debug        bool
	Logger       Logger
	Auther       *RouteAuthenticator
	Routes       *SessionControllerRoutes
	ErrorHandler router.ErrorHandler
}

type SessionControllerOption func(*SessionController) *SessionController

func WithControllerLogger(logger Logger) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		c.Logger = logger
		return c
	}
}

func WithControllerDebug(debug bool) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		c.Debug = debug
		return c
	}
}

func NewSessionController(auther *RouteAuthenticator, opts ...SessionControllerOption) *SessionController {
	c := &SessionController{
		Logger: defLogger{},
		Auther: auther,
		Routes: &SessionControllerRoutes{
			SignIn:  "/session",
			Session: "/session",
			Logout:  "/logout",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in session controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.Auther.ErrorHandler
	}

	return c
}

// RegisterRoutes mounts the session endpoints on the given group
func (a *SessionController) RegisterRoutes(group RouteRegistrar) {
	group.Post(a.Routes.SignIn, a.SignInComplete)
	group.Get(a.Routes.Session, a.CurrentSession, a.Auther.SessionGate(false))
	group.Get(a.Routes.Logout, a.LogOut)
	group.Post(a.Routes.Logout, a.LogOut)
}

// SignInCompletePayload is the verified profile delivered by the OAuth
// callback handler
type SignInCompletePayload struct {
	Subject       string `form:"subject" json:"subject"`
	Email         string `form:"email" json:"email"`
	EmailVerified bool   `form:"email_verified" json:"email_verified"`
	Name          string `form:"name" json:"name"`
	AvatarURL     string `form:"avatar_url" json:"avatar_url"`
	Phone         string `form:"phone_number" json:"phone_number"`
}

// Validate will run validation rules
func (r SignInCompletePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Subject, validation.Required),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
	)
}

// SignInComplete finishes a sign-in and sets the session cookie
func (a *SessionController) SignInComplete(ctx router.Context) error {
	payload := new(SignInCompletePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("sign-in parse payload: ", "error", err)
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"error": map[string]any{"message": "failed to parse payload"},
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("sign-in validate payload: ", "error", err)
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"error": map[string]any{"message": err.Error()},
		})
	}

	if a.Debug {
		a.Logger.Debug("sign-in payload: %s", print.MaybePrettyJSON(payload))
	}

	profile := ExternalProfile{
		Subject:       payload.Subject,
		Email:         payload.Email,
		EmailVerified: payload.EmailVerified,
		Name:          payload.Name,
		AvatarURL:     payload.AvatarURL,
		Phone:         payload.Phone,
	}

	if err := a.Auther.CompleteSignIn(ctx, profile); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, map[string]any{
		"status": "signed_in",
	})
}

// CurrentSession returns the principal the gate attached. Mounted behind
// SessionGate, so reaching the handler without one is a server bug.
func (a *SessionController) CurrentSession(ctx router.Context) error {
	principal, ok := RouterPrincipal(ctx)
	if !ok {
		return ctx.JSON(fiber.StatusUnauthorized, map[string]any{
			"error": map[string]any{"message": "no active session"},
		})
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"session": map[string]any{
			"id":    principal.ID,
			"email": principal.Email,
			"name":  principal.Name,
			"role":  principal.Role,
		},
	})
}

// LogOut clears the session cookie. Safe to call without a session.
func (a *SessionController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.JSON(fiber.StatusOK, map[string]any{
		"status": "signed_out",
	})
}
