package auth

import (
	"github.com/gofiber/fiber/v2"
)

// Middleware turns the guard into a fiber handler for page routes. The auth
// state is rehydrated per request from the session cookie; denied requests
// are redirected to the path the guard names.
func (g *RouteGuard) Middleware(sessions SessionValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st := State{Role: RoleUnknown}

		if token := c.Cookies(SessionCookieName); token != "" {
			if user, err := sessions.Validate(c.UserContext(), token); err == nil {
				st.Identity = user
				st.Role = user.Role
			}
		}

		decision := g.Evaluate(c.Path(), st)
		if decision.Allowed {
			return c.Next()
		}

		return c.Redirect(decision.Redirect, fiber.StatusSeeOther)
	}
}
