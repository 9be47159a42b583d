package oauth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuthorizePath is the OAuth2 authorization endpoint path on the login
// host.
const AuthorizePath = "/services/oauth2/authorize"

// callbackPath is the loopback redirect path.
const callbackPath = "/callback"

// WebConfig holds the parameters for the authorization code flow with
// PKCE. This is the interactive flow an operator runs once to obtain a
// refresh token for the refresh grant.
type WebConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string

	// Scopes requested from the org. Defaults to "api refresh_token"
	// so the resulting token can be refreshed offline.
	Scopes []string

	HTTPClient *http.Client
}

func (c WebConfig) scopes() []string {
	if len(c.Scopes) == 0 {
		return []string{"api", "refresh_token"}
	}
	return c.Scopes
}

// GenerateVerifier returns a new random PKCE code verifier.
func GenerateVerifier() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ChallengeS256 derives the S256 code challenge from a verifier.
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// BuildAuthURL constructs the authorization URL the operator opens in a
// browser.
func BuildAuthURL(cfg WebConfig, redirectURI, state, codeChallenge string) string {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	params := url.Values{
		"response_type":         {"code"},
		"client_id":             {cfg.ClientID},
		"redirect_uri":          {redirectURI},
		"scope":                 {strings.Join(cfg.scopes(), " ")},
		"state":                 {state},
		"code_challenge":        {codeChallenge},
		"code_challenge_method": {"S256"},
	}
	return strings.TrimSuffix(endpoint, "/") + AuthorizePath + "?" + params.Encode()
}

// ExchangeCode exchanges an authorization code for a token using the
// PKCE code verifier.
func ExchangeCode(ctx context.Context, cfg WebConfig, code, redirectURI, verifier string) (*Token, error) {
	return requestToken(ctx, Config{
		Endpoint:     cfg.Endpoint,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		HTTPClient:   cfg.HTTPClient,
	}, url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {cfg.ClientID},
		"client_secret": {cfg.ClientSecret},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"code_verifier": {verifier},
	})
}

// CallbackServer receives the authorization code on a loopback
// address.
type CallbackServer struct {
	mu            sync.Mutex
	expectedState string
	codeChan      chan string
	errChan       chan error
	server        *http.Server
	listener      net.Listener
}

// NewCallbackServer creates a callback server expecting the given
// state parameter.
func NewCallbackServer(expectedState string) *CallbackServer {
	return &CallbackServer{
		expectedState: expectedState,
		codeChan:      make(chan string, 1),
		errChan:       make(chan error, 1),
	}
}

// Start listens on a random loopback port and serves the callback
// handler.
func (s *CallbackServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, s.handleCallback)
	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case s.errChan <- err:
			default:
			}
		}
	}()

	return nil
}

// RedirectURI returns the loopback redirect URI for the running
// server.
func (s *CallbackServer) RedirectURI() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return "http://" + s.listener.Addr().String() + callbackPath
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		desc := query.Get("error_description")
		s.fail(w, fmt.Errorf("oauth: authorization denied: %s: %s", errParam, desc),
			"Authorization failed: "+html.EscapeString(desc))
		return
	}

	if state := query.Get("state"); state != s.expectedState {
		s.fail(w, fmt.Errorf("oauth: state mismatch"), "Authorization failed: invalid state parameter")
		return
	}

	code := query.Get("code")
	if code == "" {
		s.fail(w, fmt.Errorf("oauth: no authorization code received"), "Authorization failed: no code received")
		return
	}

	select {
	case s.codeChan <- code:
	default:
	}

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, "<html><body><h2>Authorization successful</h2><p>You can close this window.</p></body></html>")
}

func (s *CallbackServer) fail(w http.ResponseWriter, err error, message string) {
	select {
	case s.errChan <- err:
	default:
	}
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, "<html><body><h2>%s</h2></body></html>", message)
}

// WaitForCode blocks until the authorization code arrives, an error is
// reported, or the context is done.
func (s *CallbackServer) WaitForCode(ctx context.Context) (string, error) {
	select {
	case code := <-s.codeChan:
		return code, nil
	case err := <-s.errChan:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("oauth: waiting for authorization callback: %w", ctx.Err())
	}
}

// Stop shuts down the callback server.
func (s *CallbackServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Authorize runs the full interactive flow: starts the loopback
// server, returns the URL the operator must open, and waits for the
// redirect before exchanging the code. The notify callback receives
// the authorization URL once the server is listening.
func Authorize(ctx context.Context, cfg WebConfig, notify func(authURL string)) (*Token, error) {
	verifier, err := GenerateVerifier()
	if err != nil {
		return nil, err
	}
	state := uuid.NewString()

	server := NewCallbackServer(state)
	if err := server.Start(); err != nil {
		return nil, err
	}
	defer func() { _ = server.Stop() }()

	redirectURI := server.RedirectURI()
	if notify != nil {
		notify(BuildAuthURL(cfg, redirectURI, state, ChallengeS256(verifier)))
	}

	code, err := server.WaitForCode(ctx)
	if err != nil {
		return nil, err
	}
	return ExchangeCode(ctx, cfg, code, redirectURI, verifier)
}
