package auth_test

import (
	"context"
	"testing"
	"time"

	auth "github.com/coachkit/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStoreIssueAndValidate(t *testing.T) {
	ts := auth.NewTokenStore()
	user := testUser("alice@example.com", auth.RoleClient)

	cred, err := ts.Issue(user)
	require.NoError(t, err)
	require.NotEmpty(t, cred.Token)
	assert.True(t, cred.Valid(time.Now()))

	got, err := ts.Validate(context.Background(), cred.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, user.Email, got.Email)
}

func TestTokenStoreIssueRequiresUser(t *testing.T) {
	ts := auth.NewTokenStore()

	_, err := ts.Issue(nil)
	require.Error(t, err)
	assert.Equal(t, 0, ts.Len())
}

func TestTokenStoreIssuesDistinctTokens(t *testing.T) {
	ts := auth.NewTokenStore()
	user := testUser("alice@example.com", auth.RoleClient)

	a, err := ts.Issue(user)
	require.NoError(t, err)
	b, err := ts.Issue(user)
	require.NoError(t, err)

	assert.NotEqual(t, a.Token, b.Token)
	assert.Equal(t, 2, ts.Len())
}

func TestTokenStoreRejectsUnknownToken(t *testing.T) {
	ts := auth.NewTokenStore()
	user := testUser("alice@example.com", auth.RoleClient)

	_, err := ts.Issue(user)
	require.NoError(t, err)

	_, err = ts.Validate(context.Background(), "not-a-real-token")
	assert.True(t, auth.IsSessionInvalid(err))

	_, err = ts.Validate(context.Background(), "")
	assert.True(t, auth.IsSessionInvalid(err))
}

func TestTokenStoreExpiryIsEnforced(t *testing.T) {
	now := time.Now()
	clock := &now
	ts := auth.NewTokenStore(
		auth.WithTokenTTL(time.Minute),
		auth.WithTokenClock(func() time.Time { return *clock }),
	)

	cred, err := ts.Issue(testUser("alice@example.com", auth.RoleClient))
	require.NoError(t, err)

	_, err = ts.Validate(context.Background(), cred.Token)
	require.NoError(t, err)

	later := now.Add(2 * time.Minute)
	clock = &later

	_, err = ts.Validate(context.Background(), cred.Token)
	assert.True(t, auth.IsSessionInvalid(err))

	// Expired entries are dropped during validation.
	assert.Equal(t, 0, ts.Len())
}

func TestTokenStoreRevoke(t *testing.T) {
	ts := auth.NewTokenStore()
	cred, err := ts.Issue(testUser("alice@example.com", auth.RoleClient))
	require.NoError(t, err)

	ts.Revoke(cred.Token)

	_, err = ts.Validate(context.Background(), cred.Token)
	assert.True(t, auth.IsSessionInvalid(err))
	assert.Equal(t, 0, ts.Len())
}

func TestTokenStoreRevokeUserDropsEverySession(t *testing.T) {
	ts := auth.NewTokenStore()
	alice := testUser("alice@example.com", auth.RoleClient)
	bob := testUser("bob@example.com", auth.RoleClient)

	a1, err := ts.Issue(alice)
	require.NoError(t, err)
	a2, err := ts.Issue(alice)
	require.NoError(t, err)
	b1, err := ts.Issue(bob)
	require.NoError(t, err)

	ts.RevokeUser(alice.ID)

	_, err = ts.Validate(context.Background(), a1.Token)
	assert.True(t, auth.IsSessionInvalid(err))
	_, err = ts.Validate(context.Background(), a2.Token)
	assert.True(t, auth.IsSessionInvalid(err))

	got, err := ts.Validate(context.Background(), b1.Token)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)
}

func TestTokenStorePurgeExpired(t *testing.T) {
	now := time.Now()
	clock := &now
	ts := auth.NewTokenStore(
		auth.WithTokenTTL(time.Minute),
		auth.WithTokenClock(func() time.Time { return *clock }),
	)

	_, err := ts.Issue(testUser("alice@example.com", auth.RoleClient))
	require.NoError(t, err)
	_, err = ts.Issue(testUser("bob@example.com", auth.RoleClient))
	require.NoError(t, err)

	assert.Equal(t, 0, ts.PurgeExpired())

	later := now.Add(2 * time.Minute)
	clock = &later

	assert.Equal(t, 2, ts.PurgeExpired())
	assert.Equal(t, 0, ts.Len())
}

func TestTokenStoreValidationReturnsACopy(t *testing.T) {
	ts := auth.NewTokenStore()
	user := testUser("alice@example.com", auth.RoleClient)

	cred, err := ts.Issue(user)
	require.NoError(t, err)

	first, err := ts.Validate(context.Background(), cred.Token)
	require.NoError(t, err)
	first.Email = "mutated@example.com"

	second, err := ts.Validate(context.Background(), cred.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", second.Email)
}
