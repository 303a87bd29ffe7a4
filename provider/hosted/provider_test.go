package hosted_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	auth "github.com/coachkit/go-auth"
	"github.com/coachkit/go-auth/provider/hosted"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKID    = "test-key"
	testIssuer = "https://id.coach.ch"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

func testConfig(baseURL string) hosted.Config {
	return hosted.Config{
		BaseURL: baseURL,
		Issuer:  testIssuer,
		SigningKeys: map[string]hosted.SigningKey{
			testKID: {Algorithm: "HS256", Key: testSigningKey},
		},
	}
}

func signToken(t *testing.T, claims hosted.SessionClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = testKID

	signed, err := token.SignedString(testSigningKey)
	require.NoError(t, err)
	return signed
}

func sessionClaims(userID uuid.UUID, email string, expires time.Time) hosted.SessionClaims {
	return hosted.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Email: email,
		Role:  "staff",
	}
}

func TestTokenValidatorAcceptsSignedToken(t *testing.T) {
	validator, err := hosted.NewTokenValidator(testConfig("https://id.coach.ch"))
	require.NoError(t, err)
	defer validator.Close()

	userID := uuid.New()
	signed := signToken(t, sessionClaims(userID, "coach@example.com", time.Now().Add(time.Hour)))

	claims, err := validator.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "coach@example.com", claims.Email)
	assert.Equal(t, "staff", claims.Role)
}

func TestTokenValidatorRejectsExpiredToken(t *testing.T) {
	validator, err := hosted.NewTokenValidator(testConfig("https://id.coach.ch"))
	require.NoError(t, err)
	defer validator.Close()

	signed := signToken(t, sessionClaims(uuid.New(), "coach@example.com", time.Now().Add(-time.Hour)))

	_, err = validator.Validate(signed)
	assert.True(t, auth.IsSessionInvalid(err))
}

func TestTokenValidatorRejectsWrongIssuer(t *testing.T) {
	validator, err := hosted.NewTokenValidator(testConfig("https://id.coach.ch"))
	require.NoError(t, err)
	defer validator.Close()

	claims := sessionClaims(uuid.New(), "coach@example.com", time.Now().Add(time.Hour))
	claims.Issuer = "https://attacker.example.com"

	_, err = validator.Validate(signToken(t, claims))
	assert.Error(t, err)
}

func TestTokenValidatorRejectsTamperedToken(t *testing.T) {
	validator, err := hosted.NewTokenValidator(testConfig("https://id.coach.ch"))
	require.NoError(t, err)
	defer validator.Close()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims(uuid.New(), "coach@example.com", time.Now().Add(time.Hour)))
	token.Header["kid"] = testKID
	signed, err := token.SignedString([]byte("another-key-entirely-not-the-one"))
	require.NoError(t, err)

	_, err = validator.Validate(signed)
	assert.Error(t, err)
}

func TestNewRequiresKeyMaterial(t *testing.T) {
	_, err := hosted.New(hosted.Config{BaseURL: "https://id.coach.ch"})
	assert.Error(t, err)

	_, err = hosted.New(hosted.Config{
		SigningKeys: map[string]hosted.SigningKey{
			testKID: {Algorithm: "HS256", Key: testSigningKey},
		},
	})
	assert.Error(t, err)
}

// identityServiceStub fakes the credential endpoints of the identity
// service.
func identityServiceStub(t *testing.T, userID uuid.UUID) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/token":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

			if body["email"] != "test@coach.ch" || body["password"] != "test123" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid credentials"})
				return
			}

			signed := signToken(t, sessionClaims(userID, body["email"], time.Now().Add(time.Hour)))
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": signed,
				"expires_in":   3600,
			})
		case "/v1/signup":
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": "email taken"})
		case "/v1/revoke":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestSignInAgainstIdentityService(t *testing.T) {
	userID := uuid.New()
	srv := identityServiceStub(t, userID)
	defer srv.Close()

	provider, err := hosted.New(testConfig(srv.URL))
	require.NoError(t, err)
	defer provider.Close()

	sess, err := provider.SignIn(context.Background(), "test@coach.ch", "test123")
	require.NoError(t, err)
	require.NotNil(t, sess.User)
	assert.Equal(t, userID, sess.User.ID)
	assert.Equal(t, auth.RoleStaff, sess.User.Role)
	assert.NotEmpty(t, sess.Credential.Token)

	// The issued token round-trips through the session validator.
	user, err := provider.Validate(context.Background(), sess.Credential.Token)
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
}

func TestSignInRejectionMapsToInvalidCredentials(t *testing.T) {
	srv := identityServiceStub(t, uuid.New())
	defer srv.Close()

	provider, err := hosted.New(testConfig(srv.URL))
	require.NoError(t, err)
	defer provider.Close()

	_, err = provider.SignIn(context.Background(), "test@coach.ch", "wrong")
	assert.True(t, auth.IsInvalidCredentials(err))
}

func TestSignUpConflictMapsToEmailTaken(t *testing.T) {
	srv := identityServiceStub(t, uuid.New())
	defer srv.Close()

	provider, err := hosted.New(testConfig(srv.URL))
	require.NoError(t, err)
	defer provider.Close()

	_, err = provider.SignUp(context.Background(), "test@coach.ch", "secret1")
	assert.True(t, auth.IsEmailTaken(err))
}

func TestSignOutRevokesAndNotifies(t *testing.T) {
	srv := identityServiceStub(t, uuid.New())
	defer srv.Close()

	provider, err := hosted.New(testConfig(srv.URL))
	require.NoError(t, err)
	defer provider.Close()

	var events []*auth.ProviderSession
	unsubscribe := provider.OnAuthStateChange(func(sess *auth.ProviderSession) {
		events = append(events, sess)
	})
	defer unsubscribe()

	_, err = provider.SignIn(context.Background(), "test@coach.ch", "test123")
	require.NoError(t, err)

	require.NoError(t, provider.SignOut(context.Background()))

	require.Len(t, events, 2)
	assert.NotNil(t, events[0])
	assert.Nil(t, events[1])
}
