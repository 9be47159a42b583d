package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeS256(t *testing.T) {
	// Vector from RFC 7636 appendix B.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", ChallengeS256(verifier))
}

func TestGenerateVerifier(t *testing.T) {
	first, err := GenerateVerifier()
	require.NoError(t, err)
	second, err := GenerateVerifier()
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
	// Must be URL-safe without padding.
	assert.NotContains(t, first, "=")
	assert.NotContains(t, first, "+")
	assert.NotContains(t, first, "/")
}

func TestBuildAuthURL(t *testing.T) {
	cfg := WebConfig{
		Endpoint: "https://test.salesforce.com",
		ClientID: "client-id",
	}

	raw := BuildAuthURL(cfg, "http://127.0.0.1:9999/callback", "state-1", "challenge-1")

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "test.salesforce.com", parsed.Host)
	assert.Equal(t, AuthorizePath, parsed.Path)

	query := parsed.Query()
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, "http://127.0.0.1:9999/callback", query.Get("redirect_uri"))
	assert.Equal(t, "api refresh_token", query.Get("scope"))
	assert.Equal(t, "state-1", query.Get("state"))
	assert.Equal(t, "challenge-1", query.Get("code_challenge"))
	assert.Equal(t, "S256", query.Get("code_challenge_method"))
}

func TestCallbackServer(t *testing.T) {
	callback := func(t *testing.T, server *CallbackServer, params url.Values) {
		t.Helper()
		resp, err := http.Get(server.RedirectURI() + "?" + params.Encode())
		require.NoError(t, err)
		resp.Body.Close()
	}

	t.Run("delivers the code", func(t *testing.T) {
		server := NewCallbackServer("state-1")
		require.NoError(t, server.Start())
		defer server.Stop()

		callback(t, server, url.Values{"state": {"state-1"}, "code": {"auth-code"}})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		code, err := server.WaitForCode(ctx)

		require.NoError(t, err)
		assert.Equal(t, "auth-code", code)
	})

	t.Run("rejects a state mismatch", func(t *testing.T) {
		server := NewCallbackServer("state-1")
		require.NoError(t, server.Start())
		defer server.Stop()

		callback(t, server, url.Values{"state": {"evil"}, "code": {"auth-code"}})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := server.WaitForCode(ctx)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "state mismatch")
	})

	t.Run("reports an authorization error", func(t *testing.T) {
		server := NewCallbackServer("state-1")
		require.NoError(t, server.Start())
		defer server.Stop()

		callback(t, server, url.Values{
			"error":             {"access_denied"},
			"error_description": {"end-user denied authorization"},
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := server.WaitForCode(ctx)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "access_denied")
	})

	t.Run("honours context cancellation", func(t *testing.T) {
		server := NewCallbackServer("state-1")
		require.NoError(t, server.Start())
		defer server.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := server.WaitForCode(ctx)

		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestAuthorize(t *testing.T) {
	t.Run("runs the full loopback flow", func(t *testing.T) {
		tokenServer, form := newTokenServer(t, func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, tokenBody)
		})
		cfg := WebConfig{
			Endpoint:     tokenServer.URL,
			ClientID:     "client-id",
			ClientSecret: "client-secret",
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Play the browser: follow the auth URL's redirect_uri directly
		// with the expected state and a canned code.
		token, err := Authorize(ctx, cfg, func(authURL string) {
			parsed, err := url.Parse(authURL)
			require.NoError(t, err)
			query := parsed.Query()
			assert.True(t, strings.HasSuffix(parsed.Path, AuthorizePath))
			assert.NotEmpty(t, query.Get("code_challenge"))

			redirect := query.Get("redirect_uri") + "?" + url.Values{
				"state": {query.Get("state")},
				"code":  {"auth-code"},
			}.Encode()
			go func() {
				resp, err := http.Get(redirect)
				if err == nil {
					resp.Body.Close()
				}
			}()
		})

		require.NoError(t, err)
		assert.Equal(t, "00Dxx!AR8AQP0j", token.AccessToken)
		assert.Equal(t, "authorization_code", (*form)["grant_type"][0])
		assert.Equal(t, "auth-code", (*form)["code"][0])
		assert.NotEmpty(t, (*form)["code_verifier"][0])
	})
}
