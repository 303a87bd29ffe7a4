package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
)

// SessionRevoker drops a session credential from the valid-token set.
type SessionRevoker interface {
	Revoke(token string)
}

// Controller exposes the authentication endpoints over fiber: POST /login,
// POST /logout, GET /user and POST /register, speaking the session cookie
// contract from session.go.
type Controller struct {
	Debug    bool
	Logger   Logger
	Provider IdentityProvider
	Sessions SessionValidator
	Revoker  SessionRevoker
	Routes   RouteConfig
}

// ControllerOption customizes controller construction.
type ControllerOption func(*Controller) *Controller

// WithControllerProvider sets the identity provider collaborator.
func WithControllerProvider(provider IdentityProvider) ControllerOption {
	return func(c *Controller) *Controller {
		c.Provider = provider
		return c
	}
}

// WithControllerSessions sets the session validator used by GET /user.
func WithControllerSessions(sessions SessionValidator) ControllerOption {
	return func(c *Controller) *Controller {
		c.Sessions = sessions
		return c
	}
}

// WithControllerRevoker sets the revoker consulted on logout.
func WithControllerRevoker(revoker SessionRevoker) ControllerOption {
	return func(c *Controller) *Controller {
		c.Revoker = revoker
		return c
	}
}

// WithControllerRoutes overrides the shared route configuration.
func WithControllerRoutes(routes RouteConfig) ControllerOption {
	return func(c *Controller) *Controller {
		c.Routes = routes
		return c
	}
}

// WithControllerLogger overrides the controller logger.
func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// NewController builds a controller. Provider and Sessions are mandatory.
func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger: defLogger{},
		Routes: DefaultRouteConfig(),
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Provider == nil {
		panic("Missing IdentityProvider in auth controller...")
	}

	if c.Sessions == nil {
		panic("Missing SessionValidator in auth controller...")
	}

	return c
}

// RegisterRoutes mounts the auth endpoints on the app.
func (a *Controller) RegisterRoutes(app fiber.Router) {
	app.Post(a.Routes.LoginPath, a.LoginPost)
	app.Post("/logout", a.LogoutPost)
	app.Get("/user", a.UserGet)
	app.Post(a.Routes.RegisterPath, a.RegisterPost)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *Controller) LoginPost(ctx *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := ctx.BodyParser(payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	sess, err := a.Provider.SignIn(ctx.UserContext(), payload.Email, payload.Password)
	if err != nil {
		if IsInvalidCredentials(err) {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": errorMessage(err),
			})
		}

		a.Logger.Error("login provider error: %v", err)
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": errorMessage(ErrProviderUnavailable),
		})
	}

	ctx.Cookie(sess.Credential.Cookie())

	return ctx.JSON(fiber.Map{"success": true})
}

// LogoutPost revokes the presented credential and clears the cookie. A
// provider-side sign-out failure is recorded but never blocks the local
// clearing.
func (a *Controller) LogoutPost(ctx *fiber.Ctx) error {
	if token := ctx.Cookies(SessionCookieName); token != "" && a.Revoker != nil {
		a.Revoker.Revoke(token)
	}

	if err := a.Provider.SignOut(ctx.UserContext()); err != nil {
		a.Logger.Warn("provider sign-out failed: %v", err)
	}

	ctx.Cookie(ExpiredSessionCookie())

	return ctx.JSON(fiber.Map{"success": true})
}

// UserGet returns the profile of the session's user, or null when no valid
// session cookie is presented.
func (a *Controller) UserGet(ctx *fiber.Ctx) error {
	token := ctx.Cookies(SessionCookieName)
	if token == "" {
		return ctx.JSON(nil)
	}

	user, err := a.Sessions.Validate(ctx.UserContext(), token)
	if err != nil {
		if !IsSessionInvalid(err) {
			a.Logger.Error("session validation error: %v", err)
		}
		return ctx.JSON(nil)
	}

	return ctx.JSON(user)
}

// RegisterRequest payload
type RegisterRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 72)),
	)
}

func (a *Controller) RegisterPost(ctx *fiber.Ctx) error {
	payload := new(RegisterRequest)

	if err := ctx.BodyParser(payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	sess, err := a.Provider.SignUp(ctx.UserContext(), payload.Email, payload.Password)
	if err != nil {
		if IsEmailTaken(err) {
			return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": errorMessage(err),
			})
		}

		a.Logger.Error("registration provider error: %v", err)
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": errorMessage(ErrProviderUnavailable),
		})
	}

	ctx.Cookie(sess.Credential.Cookie())

	return ctx.JSON(fiber.Map{"success": true})
}
