package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const tokenBytes = 32

// TokenStore is the server-trust session store: it issues opaque session
// credentials, validates them against the current valid-token set and
// revokes them. Validation is a pure lookup with a constant-time compare;
// no session data about a user survives revocation.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]tokenEntry
	ttl    time.Duration
	now    nowFunc
	logger Logger
}

type tokenEntry struct {
	user      *User
	expiresAt time.Time
}

// TokenStoreOption customizes token store construction.
type TokenStoreOption func(*TokenStore)

// WithTokenTTL overrides the issued credential lifetime.
func WithTokenTTL(ttl time.Duration) TokenStoreOption {
	return func(ts *TokenStore) {
		if ttl > 0 {
			ts.ttl = ttl
		}
	}
}

// WithTokenClock injects a custom clock (useful for tests).
func WithTokenClock(clock func() time.Time) TokenStoreOption {
	return func(ts *TokenStore) {
		if clock != nil {
			ts.now = clock
		}
	}
}

// WithTokenLogger overrides the logger used by the store.
func WithTokenLogger(logger Logger) TokenStoreOption {
	return func(ts *TokenStore) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// NewTokenStore returns an empty token store with the default 7 day TTL.
func NewTokenStore(opts ...TokenStoreOption) *TokenStore {
	ts := &TokenStore{
		tokens: map[string]tokenEntry{},
		ttl:    SessionMaxAge,
		now:    time.Now,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts
}

// Issue mints a fresh opaque credential for the user and adds it to the
// valid-token set.
func (ts *TokenStore) Issue(user *User) (SessionCredential, error) {
	if user == nil {
		return SessionCredential{}, goerrors.New("cannot issue session for absent user", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return SessionCredential{}, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to generate session token")
	}
	token := hex.EncodeToString(buf)

	ts.mu.Lock()
	defer ts.mu.Unlock()

	cred := SessionCredential{
		Token:     token,
		ExpiresAt: ts.now().Add(ts.ttl),
	}
	ts.tokens[token] = tokenEntry{
		user:      user.Clone(),
		expiresAt: cred.ExpiresAt,
	}

	return cred, nil
}

// Validate resolves a raw token to the user it was issued for. The lookup
// compares the candidate against every live token in constant time, so the
// scan does not leak how much of a prefix matched. Expired entries are
// dropped on the way.
func (ts *TokenStore) Validate(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := ts.now()
	candidate := []byte(token)

	for stored, entry := range ts.tokens {
		if subtle.ConstantTimeCompare(candidate, []byte(stored)) != 1 {
			continue
		}
		if now.After(entry.expiresAt) {
			delete(ts.tokens, stored)
			return nil, ErrSessionExpired
		}
		return entry.user.Clone(), nil
	}

	return nil, ErrSessionNotFound
}

// Revoke drops the token from the valid-token set.
func (ts *TokenStore) Revoke(token string) {
	if token == "" {
		return
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	delete(ts.tokens, token)
}

// RevokeUser drops every live token issued for the user, e.g. when the
// session ends from another device.
func (ts *TokenStore) RevokeUser(userID uuid.UUID) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for token, entry := range ts.tokens {
		if entry.user != nil && entry.user.ID == userID {
			delete(ts.tokens, token)
		}
	}
}

// PurgeExpired sweeps expired entries and reports how many were dropped.
func (ts *TokenStore) PurgeExpired() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := ts.now()
	dropped := 0
	for token, entry := range ts.tokens {
		if now.After(entry.expiresAt) {
			delete(ts.tokens, token)
			dropped++
		}
	}

	if dropped > 0 {
		ts.logger.Debug("purged %d expired sessions", dropped)
	}

	return dropped
}

// Len reports the number of live tokens.
func (ts *TokenStore) Len() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.tokens)
}
