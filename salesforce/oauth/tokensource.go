package oauth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// cacheTTL is how long a token is served from cache. Salesforce does
// not report token lifetime in the response; org session policies
// commonly allow two hours, so a conservative TTL is used and a 401
// from the API forces a refresh regardless.
const cacheTTL = 30 * time.Minute

// tokenSource adapts an Authenticator to oauth2.TokenSource so the
// client can be plugged into anything that speaks x/oauth2.
type tokenSource struct {
	ctx  context.Context
	auth Authenticator

	mu     sync.RWMutex
	token  *Token
	expiry time.Time
}

// TokenSource returns an oauth2.TokenSource backed by the
// authenticator. Tokens are cached until cacheTTL elapses.
func TokenSource(ctx context.Context, auth Authenticator) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, auth: auth}
}

// Token implements oauth2.TokenSource.
func (s *tokenSource) Token() (*oauth2.Token, error) {
	// Fast path: cached token under read lock.
	s.mu.RLock()
	if s.token != nil && time.Now().Before(s.expiry) {
		token := s.token
		s.mu.RUnlock()
		return convert(token), nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring the write lock.
	if s.token != nil && time.Now().Before(s.expiry) {
		return convert(s.token), nil
	}

	token, err := s.auth.Authenticate(s.ctx)
	if err != nil {
		return nil, err
	}
	s.token = token
	s.expiry = time.Now().Add(cacheTTL)
	return convert(token), nil
}

func convert(t *Token) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
	}
}
