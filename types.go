package auth

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

// ProviderSession is what an identity provider hands back after a
// successful credential operation: the authenticated user plus the
// session credential proving it.
type ProviderSession struct {
	User       *User
	Credential SessionCredential
}

// IdentityProvider is the external collaborator that authenticates
// credentials, issues and revokes sessions, and notifies on auth-state
// changes. Implementations live under provider/.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*ProviderSession, error)
	SignUp(ctx context.Context, email, password string) (*ProviderSession, error)
	SignOut(ctx context.Context) error

	// OnAuthStateChange registers a callback invoked on every auth-state
	// transition (sign in, sign out, token refresh, session expiry). A nil
	// session means the session has ended. The returned function removes
	// the registration.
	OnAuthStateChange(fn func(session *ProviderSession)) (unsubscribe func())
}

// RoleResolver maps an authenticated user identity to an application role.
// A missing row is reported through a not-found error, never invented.
type RoleResolver interface {
	GetRole(ctx context.Context, userID string) (Role, error)
}

// SessionValidator resolves a raw session token to the user it belongs to.
// Both the TokenStore and hosted providers satisfy it.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*User, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

// nowFunc is the injectable clock shared by components that care about time.
type nowFunc func() time.Time
