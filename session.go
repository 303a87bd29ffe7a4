package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	// SessionCookieName is the cookie carrying the session credential.
	SessionCookieName = "session_token"
	// SessionCookiePath scopes the cookie to the whole site.
	SessionCookiePath = "/"
	// SessionMaxAge is the credential lifetime issued on login: 7 days.
	SessionMaxAge = 7 * 24 * time.Hour
)

// SessionCredential is the opaque token proving an authenticated session
// plus its expiry. The value is never readable by non-privileged code; the
// cookie transporting it is HTTP-only.
type SessionCredential struct {
	Token     string
	ExpiresAt time.Time
}

// Valid reports whether the credential holds a token that has not expired
// at the given instant.
func (c SessionCredential) Valid(now time.Time) bool {
	return c.Token != "" && now.Before(c.ExpiresAt)
}

// Cookie renders the credential as its transport cookie: HTTP-only,
// site-wide path, max-age matching the credential lifetime.
func (c SessionCredential) Cookie() *fiber.Cookie {
	return &fiber.Cookie{
		Name:     SessionCookieName,
		Value:    c.Token,
		Path:     SessionCookiePath,
		MaxAge:   int(SessionMaxAge.Seconds()),
		Expires:  c.ExpiresAt,
		HTTPOnly: true,
		SameSite: "Lax",
	}
}

// ExpiredSessionCookie is the revocation form of the session cookie: empty
// value, immediate expiry, so the client drops the credential.
func ExpiredSessionCookie() *fiber.Cookie {
	return &fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     SessionCookiePath,
		MaxAge:   -1,
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		SameSite: "Lax",
	}
}
