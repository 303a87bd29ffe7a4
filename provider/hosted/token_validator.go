package hosted

import (
	"errors"
	"fmt"

	"github.com/MicahParks/keyfunc/v2"
	auth "github.com/coachkit/go-auth"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SessionClaims are the claims the identity service places in its session
// tokens.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// SigningKey is a statically configured verification key.
type SigningKey struct {
	// Algorithm is the JWA name, e.g. RS256 or HS256.
	Algorithm string
	Key       any
}

// TokenValidator validates identity-service JWTs, either against a remote
// JWK Set or against statically configured keys.
type TokenValidator struct {
	keyfunc  jwt.Keyfunc
	issuer   string
	audience string
	jwks     *keyfunc.JWKS
}

// NewTokenValidator builds a validator from the provider configuration.
func NewTokenValidator(cfg Config) (*TokenValidator, error) {
	v := &TokenValidator{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}

	switch {
	case cfg.JWKSetURL != "":
		opts := keyfunc.Options{
			RefreshInterval: cfg.RefreshInterval,
		}
		jwks, err := keyfunc.Get(cfg.JWKSetURL, opts)
		if err != nil {
			return nil, fmt.Errorf("hosted: failed to load JWK Set from %s: %w", cfg.JWKSetURL, err)
		}
		v.jwks = jwks
		v.keyfunc = jwks.Keyfunc
	case len(cfg.SigningKeys) > 0:
		given := make(map[string]keyfunc.GivenKey, len(cfg.SigningKeys))
		for kid, key := range cfg.SigningKeys {
			given[kid] = keyfunc.NewGivenCustom(key.Key, keyfunc.GivenKeyOptions{
				Algorithm: key.Algorithm,
			})
		}
		v.keyfunc = keyfunc.NewGiven(given).Keyfunc
	default:
		return nil, fmt.Errorf("hosted: either JWKSetURL or SigningKeys is required")
	}

	return v, nil
}

// Close stops the background JWK Set refresh, when one is running.
func (v *TokenValidator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// Validate parses and verifies the token and returns its claims.
func (v *TokenValidator) Validate(tokenString string) (*SessionClaims, error) {
	opts := []jwt.ParserOption{}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := new(SessionClaims)
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyfunc, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, auth.ErrSessionExpired
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "invalid session token").
			WithCode(goerrors.CodeUnauthorized)
	}

	if !token.Valid {
		return nil, auth.ErrSessionNotFound
	}

	return claims, nil
}

// userFromClaims maps token claims to the cached identity copy.
func userFromClaims(claims *SessionClaims) (*auth.User, error) {
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "session token subject is not a user id").
			WithCode(goerrors.CodeUnauthorized)
	}

	role, _ := auth.ParseRole(claims.Role)

	return &auth.User{
		ID:        id,
		Email:     claims.Email,
		Role:      role,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
	}, nil
}
