package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	// DefaultEndpoint is the production Salesforce login host. Sandbox
	// orgs authenticate against https://test.salesforce.com instead.
	DefaultEndpoint = "https://login.salesforce.com"

	// TokenPath is the OAuth2 token endpoint path on the login host.
	TokenPath = "/services/oauth2/token"

	// DefaultTimeout is the HTTP timeout for token requests.
	DefaultTimeout = 30 * time.Second
)

// Grant identifies an OAuth2 grant flow.
type Grant string

const (
	// GrantPassword is the resource owner password credentials flow.
	GrantPassword Grant = "password"

	// GrantRefresh exchanges a previously issued refresh token.
	GrantRefresh Grant = "refresh"
)

// Environment variables consumed by FromEnv.
const (
	EnvEndpoint     = "FONDAT_SALESFORCE_ENDPOINT"
	EnvClientID     = "FONDAT_SALESFORCE_CLIENT_ID"
	EnvClientSecret = "FONDAT_SALESFORCE_CLIENT_SECRET"
	EnvUsername     = "FONDAT_SALESFORCE_USERNAME"
	EnvPassword     = "FONDAT_SALESFORCE_PASSWORD"
	EnvRefreshToken = "FONDAT_SALESFORCE_REFRESH_TOKEN"
)

// ErrMissingCredential indicates a required Config field is empty.
var ErrMissingCredential = errors.New("oauth: missing credential")

// TokenError is an error response from the token endpoint.
type TokenError struct {
	StatusCode  int
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *TokenError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("oauth: token request failed: %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("oauth: token request failed with status %d", e.StatusCode)
}

// Authenticator obtains a token from Salesforce.
type Authenticator interface {
	Authenticate(ctx context.Context) (*Token, error)
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context) (*Token, error)

// Authenticate implements Authenticator.
func (f AuthenticatorFunc) Authenticate(ctx context.Context) (*Token, error) {
	return f(ctx)
}

// Config holds the parameters for a grant flow. Endpoint defaults to
// the production login host. HTTPClient defaults to a client with
// DefaultTimeout.
type Config struct {
	Endpoint     string
	ClientID     string
	ClientSecret string

	// Username and Password are required for the password flow only.
	Username string
	Password string

	// RefreshToken is required for the refresh flow only.
	RefreshToken string

	HTTPClient *http.Client
}

func (c Config) endpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return strings.TrimSuffix(c.Endpoint, "/")
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: DefaultTimeout}
}

func (c Config) require(fields map[string]string) error {
	for name, value := range fields {
		if value == "" {
			return fmt.Errorf("%w: %s", ErrMissingCredential, name)
		}
	}
	return nil
}

// Password returns an authenticator for the password grant flow.
func Password(cfg Config) (Authenticator, error) {
	err := cfg.require(map[string]string{
		"client_id":     cfg.ClientID,
		"client_secret": cfg.ClientSecret,
		"username":      cfg.Username,
		"password":      cfg.Password,
	})
	if err != nil {
		return nil, err
	}
	return AuthenticatorFunc(func(ctx context.Context) (*Token, error) {
		return requestToken(ctx, cfg, url.Values{
			"grant_type":    {"password"},
			"client_id":     {cfg.ClientID},
			"client_secret": {cfg.ClientSecret},
			"username":      {cfg.Username},
			"password":      {cfg.Password},
		})
	}), nil
}

// Refresh returns an authenticator for the refresh token grant flow.
func Refresh(cfg Config) (Authenticator, error) {
	err := cfg.require(map[string]string{
		"client_id":     cfg.ClientID,
		"client_secret": cfg.ClientSecret,
		"refresh_token": cfg.RefreshToken,
	})
	if err != nil {
		return nil, err
	}
	return AuthenticatorFunc(func(ctx context.Context) (*Token, error) {
		return requestToken(ctx, cfg, url.Values{
			"grant_type":    {"refresh_token"},
			"client_id":     {cfg.ClientID},
			"client_secret": {cfg.ClientSecret},
			"refresh_token": {cfg.RefreshToken},
		})
	}), nil
}

// FromEnv builds a Config for the given grant from the
// FONDAT_SALESFORCE_* environment variables. Variables required by the
// other grant are ignored; a variable required by the requested grant
// that is unset is an error.
func FromEnv(grant Grant) (Config, error) {
	cfg := Config{
		Endpoint:     os.Getenv(EnvEndpoint),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
	}

	required := []string{EnvClientID, EnvClientSecret}
	switch grant {
	case GrantPassword:
		cfg.Username = os.Getenv(EnvUsername)
		cfg.Password = os.Getenv(EnvPassword)
		required = append(required, EnvUsername, EnvPassword)
	case GrantRefresh:
		cfg.RefreshToken = os.Getenv(EnvRefreshToken)
		required = append(required, EnvRefreshToken)
	default:
		return Config{}, fmt.Errorf("oauth: unknown grant %q", grant)
	}

	for _, name := range required {
		if os.Getenv(name) == "" {
			return Config{}, fmt.Errorf("%w: environment variable %s", ErrMissingCredential, name)
		}
	}
	return cfg, nil
}

// NewAuthenticator returns the authenticator for the given grant and
// config.
func NewAuthenticator(grant Grant, cfg Config) (Authenticator, error) {
	switch grant {
	case GrantPassword:
		return Password(cfg)
	case GrantRefresh:
		return Refresh(cfg)
	default:
		return nil, fmt.Errorf("oauth: unknown grant %q", grant)
	}
}

// requestToken POSTs a form-encoded grant to the token endpoint and
// decodes the token or the OAuth error body.
func requestToken(ctx context.Context, cfg Config, form url.Values) (*Token, error) {
	tokenURL := cfg.endpoint() + TokenPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := cfg.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		tokenErr := &TokenError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(tokenErr); err != nil || tokenErr.Code == "" {
			return nil, &TokenError{StatusCode: resp.StatusCode}
		}
		return nil, tokenErr
	}

	var token Token
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" || token.InstanceURL == "" {
		return nil, errors.New("oauth: token response missing access_token or instance_url")
	}
	return &token, nil
}
