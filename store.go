package auth

import (
	"context"
	"sync"
)

// Store is the auth state store: the single owner of the State aggregate.
// It wraps an IdentityProvider for credential operations and a RoleResolver
// for authorization data, and converges two independent change signals (the
// provider's push notifications and identity snapshots applied by the host)
// to the same state.
//
// All transitions are serialized under one mutex, so a later-arriving
// notification is applied after, never instead of, an earlier one. Role
// lookups are tagged with the identity epoch they were issued for and
// results for a superseded epoch are discarded, which keeps a slow lookup
// for a previous user from overwriting the role of the current one.
type Store struct {
	provider IdentityProvider
	roles    RoleResolver
	logger   Logger

	mu           sync.Mutex
	state        State
	epoch        uint64
	listeners    map[int]func(State)
	nextListener int
	unsubscribe  func()
}

// StoreOption customizes store construction.
type StoreOption func(*Store)

// WithStoreLogger overrides the logger used by the store.
func WithStoreLogger(logger Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore returns a store in the anonymous state. Collaborators are passed
// in explicitly; the store never reaches into ambient context for them.
func NewStore(provider IdentityProvider, roles RoleResolver, opts ...StoreOption) *Store {
	s := &Store{
		provider:  provider,
		roles:     roles,
		logger:    defLogger{},
		listeners: map[int]func(State){},
		state:     State{Role: RoleUnknown},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Current returns a copy of the state aggregate.
func (s *Store) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers a listener invoked on every state transition, and once
// immediately with the current state. Listeners run while the store applies
// the transition and must not call back into the store. The returned
// function removes the registration.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	snapshot := s.state.clone()
	s.mu.Unlock()

	fn(snapshot)

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Initialize wires the store to the identity provider's change
// notifications. Calling it again is a no-op. Close undoes the wiring.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.mu.Unlock()
		return
	}
	// reserve the slot so concurrent Initialize calls don't double-wire
	s.unsubscribe = func() {}
	s.mu.Unlock()

	unsub := s.provider.OnAuthStateChange(func(sess *ProviderSession) {
		s.handleProviderChange(ctx, sess)
	})

	s.mu.Lock()
	s.unsubscribe = unsub
	s.mu.Unlock()
}

// Close removes the provider subscription. The store keeps its last state.
func (s *Store) Close() {
	s.mu.Lock()
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Login authenticates the email/password pair against the identity
// provider. On success the identity is established and the role resolution
// is kicked off for it. Provider failures never propagate to the caller:
// they populate the error message of the state and Login reports false.
func (s *Store) Login(ctx context.Context, email, password string) bool {
	return s.authenticate(ctx, email, password, s.provider.SignIn)
}

// Register creates an account with the identity provider. It shares the
// Login contract; whether the account still needs email confirmation is the
// provider's concern.
func (s *Store) Register(ctx context.Context, email, password string) bool {
	return s.authenticate(ctx, email, password, s.provider.SignUp)
}

func (s *Store) authenticate(ctx context.Context, email, password string, op func(context.Context, string, string) (*ProviderSession, error)) bool {
	if email == "" || password == "" {
		s.setError(errorMessage(ErrInvalidCredentials))
		return false
	}

	s.beginOp()

	sess, err := op(ctx, email, password)
	if err == nil && (sess == nil || sess.User == nil) {
		err = ErrProviderUnavailable
	}
	if err != nil {
		s.logger.Error("authentication failed: %v", err)
		s.endOp(errorMessage(err))
		return false
	}

	epoch, changed := s.adoptIdentity(sess.User)
	s.endOp("")

	if changed {
		go s.resolveRole(ctx, epoch, sess.User)
	}

	return true
}

// Logout signs the session out at the provider and clears the local
// identity regardless of the provider outcome. A user must never be stuck
// appearing authenticated after requesting logout, so a provider-side
// failure is recorded as an error but does not block the local clearing.
func (s *Store) Logout(ctx context.Context) bool {
	s.beginOp()

	err := s.provider.SignOut(ctx)
	if err != nil {
		s.logger.Warn("provider sign-out failed, clearing local state anyway: %v", err)
	}

	s.mu.Lock()
	s.epoch++
	s.state.Identity = nil
	s.state.Role = RoleUnknown
	s.state.Loading = false
	s.state.Err = errorMessage(err)
	s.notifyLocked()
	s.mu.Unlock()

	return err == nil
}

// FetchRole resolves the role for the given identity if it is still the
// current one. It is idempotent and safe to re-invoke on every identity
// change.
func (s *Store) FetchRole(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	s.mu.Lock()
	if !s.state.Identity.SameIdentity(user) {
		s.mu.Unlock()
		return
	}
	epoch := s.epoch
	s.mu.Unlock()

	s.resolveRole(ctx, epoch, user)
}

// ApplySnapshot applies the current value of the externally cached identity
// reference. A nil user clears the state; a changed identity re-enters role
// resolution. Applying the same identity again keeps the resolved role.
func (s *Store) ApplySnapshot(ctx context.Context, user *User) {
	if user == nil {
		s.clearIdentity("")
		return
	}

	epoch, changed := s.adoptIdentity(user)
	if changed {
		go s.resolveRole(ctx, epoch, user)
	}
}

func (s *Store) handleProviderChange(ctx context.Context, sess *ProviderSession) {
	if sess == nil || sess.User == nil {
		// session ended elsewhere: expiry, or sign-out from another client
		s.clearIdentity("")
		return
	}

	epoch, changed := s.adoptIdentity(sess.User)
	if changed {
		go s.resolveRole(ctx, epoch, sess.User)
	}
}

// adoptIdentity installs the given user as the current identity. A new
// identity bumps the epoch and resets the role to unknown so a previous
// session's role can never leak into the new one. Re-adopting the same
// identity only refreshes the cached profile copy.
func (s *Store) adoptIdentity(user *User) (epoch uint64, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Identity.SameIdentity(user) {
		s.state.Identity = user.Clone()
		s.notifyLocked()
		return s.epoch, false
	}

	s.epoch++
	s.state.Identity = user.Clone()
	s.state.Role = RoleUnknown
	s.notifyLocked()
	return s.epoch, true
}

func (s *Store) clearIdentity(errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.state.Identity = nil
	s.state.Role = RoleUnknown
	s.state.Err = errMsg
	s.notifyLocked()
}

// resolveRole performs the role lookup issued for the given epoch and
// discards the result when the identity has changed since.
func (s *Store) resolveRole(ctx context.Context, epoch uint64, user *User) {
	role, err := s.roles.GetRole(ctx, user.ID.String())

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		s.logger.Debug("discarding role result for superseded identity %s", user.ID)
		return
	}

	switch {
	case err == nil:
		if !role.IsValid() {
			role = RoleUnknown
		}
		s.state.Role = role
	case IsRoleNotFound(err):
		// a missing row is a defined empty result, not an error
		s.state.Role = RoleUnknown
	default:
		s.logger.Error("role lookup for user %s failed: %v", user.ID, err)
		s.state.Role = RoleUnknown
		s.state.Err = errorMessage(err)
	}

	s.notifyLocked()
}

func (s *Store) beginOp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = true
	s.state.Err = ""
	s.notifyLocked()
}

func (s *Store) endOp(errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false
	s.state.Err = errMsg
	s.notifyLocked()
}

func (s *Store) setError(errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Err = errMsg
	s.notifyLocked()
}

func (s *Store) notifyLocked() {
	if len(s.listeners) == 0 {
		return
	}
	snapshot := s.state.clone()
	for _, fn := range s.listeners {
		fn(snapshot)
	}
}
