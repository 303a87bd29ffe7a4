// Package hosted implements auth.IdentityProvider as a client for an
// external identity service that authenticates credentials and issues JWT
// session tokens. Tokens are verified locally against the service's keys,
// so GET /user style rehydration does not round-trip to the service.
//
// This is the alternative to provider/local; a deployment wires exactly one
// of the two.
package hosted

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	auth "github.com/coachkit/go-auth"
	goerrors "github.com/goliatone/go-errors"
)

// Config configures the identity service client.
type Config struct {
	// BaseURL of the identity service, e.g. https://id.example.com.
	BaseURL string

	// Issuer and Audience expected in session tokens. Empty values skip the
	// respective check.
	Issuer   string
	Audience string

	// JWKSetURL is the service's JWK Set endpoint. Takes precedence over
	// SigningKeys.
	JWKSetURL string

	// SigningKeys are statically configured verification keys by kid.
	SigningKeys map[string]SigningKey

	// RefreshInterval for the remote JWK Set cache.
	RefreshInterval time.Duration

	// HTTPClient overrides the default client with its 10s timeout.
	HTTPClient *http.Client
}

// Provider is the identity service client.
type Provider struct {
	cfg       Config
	http      *http.Client
	validator *TokenValidator
	logger    auth.Logger

	mu      sync.Mutex
	subs    map[int]func(*auth.ProviderSession)
	nextSub int
	current string
}

var (
	_ auth.IdentityProvider = (*Provider)(nil)
	_ auth.SessionValidator = (*Provider)(nil)
)

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

// New builds the client and its token validator.
func New(cfg Config, opts ...Option) (*Provider, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("hosted: base URL is required")
	}

	validator, err := NewTokenValidator(cfg)
	if err != nil {
		return nil, err
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	p := &Provider{
		cfg:       cfg,
		http:      client,
		validator: validator,
		logger:    noopLogger{},
		subs:      map[int]func(*auth.ProviderSession){},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p, nil
}

// Close releases the validator's background resources.
func (p *Provider) Close() {
	p.validator.Close()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Error       string `json:"error,omitempty"`
}

// SignIn exchanges the credential pair for a session token.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*auth.ProviderSession, error) {
	return p.credentialExchange(ctx, "/v1/token", email, password)
}

// SignUp creates the account at the identity service and signs it in.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*auth.ProviderSession, error) {
	return p.credentialExchange(ctx, "/v1/signup", email, password)
}

func (p *Provider) credentialExchange(ctx context.Context, path, email, password string) (*auth.ProviderSession, error) {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode credential request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build credential request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := p.http.Do(req)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "identity provider unavailable").
			WithTextCode("PROVIDER_UNAVAILABLE")
	}
	defer res.Body.Close()

	var payload tokenResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unreadable identity provider response")
	}

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, auth.ErrInvalidCredentials
	case http.StatusConflict:
		return nil, auth.ErrEmailTaken
	default:
		p.logger.Error("unexpected identity provider response %d: %s", res.StatusCode, payload.Error)
		return nil, goerrors.New(
			fmt.Sprintf("identity provider returned %d: %s", res.StatusCode, payload.Error),
			goerrors.CategoryInternal,
		).WithTextCode("PROVIDER_UNAVAILABLE")
	}

	claims, err := p.validator.Validate(payload.AccessToken)
	if err != nil {
		return nil, err
	}

	user, err := userFromClaims(claims)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	sess := &auth.ProviderSession{
		User: user,
		Credential: auth.SessionCredential{
			Token:     payload.AccessToken,
			ExpiresAt: expiresAt,
		},
	}

	p.mu.Lock()
	p.current = payload.AccessToken
	p.mu.Unlock()

	p.notify(sess)

	return sess, nil
}

// SignOut revokes the current session token at the identity service. The
// local session ends and subscribers are notified regardless of the
// revocation outcome; callers decide whether to surface the error.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	token := p.current
	p.current = ""
	p.mu.Unlock()

	defer p.notify(nil)

	if token == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/revoke", nil)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build revocation request")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := p.http.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "identity provider unavailable").
			WithTextCode("PROVIDER_UNAVAILABLE")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusNoContent {
		return goerrors.New(
			fmt.Sprintf("identity provider returned %d on revocation", res.StatusCode),
			goerrors.CategoryInternal,
		)
	}

	return nil
}

// Validate resolves a raw session token to the user it belongs to,
// verifying it locally against the service's keys.
func (p *Provider) Validate(ctx context.Context, token string) (*auth.User, error) {
	claims, err := p.validator.Validate(token)
	if err != nil {
		return nil, err
	}
	return userFromClaims(claims)
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
