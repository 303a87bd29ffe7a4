// Package local implements auth.IdentityProvider on top of the users
// repository and the server-issued session token store. It is the
// deployment variant where this application is its own trust boundary: no
// external identity service, opaque tokens validated against the live
// token set.
package local

import (
	"context"
	"sync"

	auth "github.com/coachkit/go-auth"
	goerrors "github.com/goliatone/go-errors"
)

// Provider verifies credentials against the users table and issues session
// credentials through the token store. Auth-state change notifications fan
// out to every registered subscriber, so an auth.Store wired to this
// provider observes sign-ins and sign-outs from any client of the same
// provider instance.
type Provider struct {
	users  auth.Users
	tokens *auth.TokenStore
	logger auth.Logger

	mu      sync.Mutex
	subs    map[int]func(*auth.ProviderSession)
	nextSub int
	current *auth.ProviderSession
}

var _ auth.IdentityProvider = (*Provider)(nil)

// Option customizes provider construction.
type Option func(*Provider)

// WithLogger overrides the provider logger.
func WithLogger(logger auth.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New returns a provider over the given collaborators.
func New(users auth.Users, tokens *auth.TokenStore, opts ...Option) *Provider {
	p := &Provider{
		users:  users,
		tokens: tokens,
		logger: noopLogger{},
		subs:   map[int]func(*auth.ProviderSession){},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// SignIn verifies the credential pair and issues a fresh session. A missing
// account and a wrong password are indistinguishable to the caller.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*auth.ProviderSession, error) {
	user, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account during sign-in")
	}

	if err := auth.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		p.logger.Debug("sign-in rejected for %s", email)
		return nil, auth.ErrInvalidCredentials
	}

	cred, err := p.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	sess := &auth.ProviderSession{User: user, Credential: cred}

	p.mu.Lock()
	p.current = sess
	p.mu.Unlock()

	p.notify(sess)

	return sess, nil
}

// SignUp creates the account and signs it in.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*auth.ProviderSession, error) {
	if _, err := p.users.GetByEmail(ctx, email); err == nil {
		return nil, auth.ErrEmailTaken
	} else if !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check account during sign-up")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user, err := p.users.Create(ctx, &auth.User{
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	cred, err := p.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	sess := &auth.ProviderSession{User: user, Credential: cred}

	p.mu.Lock()
	p.current = sess
	p.mu.Unlock()

	p.notify(sess)

	return sess, nil
}

// SignOut revokes the session established through this provider instance
// and notifies subscribers that the session ended.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	cur := p.current
	p.current = nil
	p.mu.Unlock()

	if cur != nil {
		p.tokens.Revoke(cur.Credential.Token)
		p.logger.Debug("session revoked for user %s", cur.User.ID)
	}

	p.notify(nil)

	return nil
}

// OnAuthStateChange registers a change subscriber.
func (p *Provider) OnAuthStateChange(fn func(session *auth.ProviderSession)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

func (p *Provider) notify(sess *auth.ProviderSession) {
	p.mu.Lock()
	fns := make([]func(*auth.ProviderSession), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(sess)
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
