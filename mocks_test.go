package auth_test

import (
	"context"
	"sync"

	auth "github.com/coachkit/go-auth"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// mockProvider implements auth.IdentityProvider with pluggable behavior and
// lets tests emit auth-state change notifications.
type mockProvider struct {
	mu      sync.Mutex
	signIn  func(ctx context.Context, email, password string) (*auth.ProviderSession, error)
	signUp  func(ctx context.Context, email, password string) (*auth.ProviderSession, error)
	signOut func(ctx context.Context) error
	subs    map[int]func(*auth.ProviderSession)
	nextSub int

	signInCalls  int
	signOutCalls int
}

func newMockProvider() *mockProvider {
	return &mockProvider{subs: map[int]func(*auth.ProviderSession){}}
}

func (m *mockProvider) SignIn(ctx context.Context, email, password string) (*auth.ProviderSession, error) {
	m.mu.Lock()
	m.signInCalls++
	fn := m.signIn
	m.mu.Unlock()

	if fn == nil {
		return nil, auth.ErrInvalidCredentials
	}
	return fn(ctx, email, password)
}

func (m *mockProvider) SignUp(ctx context.Context, email, password string) (*auth.ProviderSession, error) {
	m.mu.Lock()
	fn := m.signUp
	m.mu.Unlock()

	if fn == nil {
		return nil, auth.ErrInvalidCredentials
	}
	return fn(ctx, email, password)
}

func (m *mockProvider) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.signOutCalls++
	fn := m.signOut
	m.mu.Unlock()

	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (m *mockProvider) OnAuthStateChange(fn func(session *auth.ProviderSession)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// emit pushes a change notification to every subscriber, the way a provider
// reports a login/logout from another client.
func (m *mockProvider) emit(sess *auth.ProviderSession) {
	m.mu.Lock()
	fns := make([]func(*auth.ProviderSession), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(sess)
	}
}

func (m *mockProvider) subscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// mockResolver implements auth.RoleResolver.
type mockResolver struct {
	mu      sync.Mutex
	getRole func(ctx context.Context, userID string) (auth.Role, error)
	calls   int
}

func (m *mockResolver) GetRole(ctx context.Context, userID string) (auth.Role, error) {
	m.mu.Lock()
	m.calls++
	fn := m.getRole
	m.mu.Unlock()

	if fn == nil {
		return auth.RoleUnknown, auth.ErrRoleNotFound
	}
	return fn(ctx, userID)
}

func (m *mockResolver) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// memoryUsers is an in-memory auth.Users for controller and provider tests.
type memoryUsers struct {
	mu      sync.Mutex
	byEmail map[string]*auth.User
	byID    map[uuid.UUID]*auth.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{
		byEmail: map[string]*auth.User{},
		byID:    map[uuid.UUID]*auth.User{},
	}
}

func (m *memoryUsers) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user, ok := m.byID[id]; ok {
		return user.Clone(), nil
	}
	return nil, goerrors.New("user not found", goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound)
}

func (m *memoryUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user, ok := m.byEmail[email]; ok {
		return user.Clone(), nil
	}
	return nil, goerrors.New("user not found", goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound)
}

func (m *memoryUsers) Create(ctx context.Context, user *auth.User) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = auth.RoleClient
	}
	m.byEmail[user.Email] = user
	m.byID[user.ID] = user
	return user.Clone(), nil
}

// testUser builds a deterministic user fixture.
func testUser(email string, role auth.Role) *auth.User {
	return &auth.User{
		ID:    uuid.New(),
		Email: email,
		Role:  role,
	}
}

func sessionFor(user *auth.User) *auth.ProviderSession {
	return &auth.ProviderSession{
		User:       user,
		Credential: auth.SessionCredential{Token: "tok-" + user.ID.String()},
	}
}
