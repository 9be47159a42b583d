// Package salesforce is a client for the Salesforce REST API.
//
// A Client authenticates lazily through an oauth.Authenticator, issues
// requests against the org's instance URL, and retries exactly once
// with a fresh token when a request is rejected as unauthorized.
package salesforce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/fondat/salesforce-go/salesforce/oauth"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// Request describes one REST API call. Path is relative to the org's
// instance URL. Body, when non-nil, is JSON-encoded.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Params url.Values
	Body   any
}

// Client is a Salesforce API client.
type Client struct {
	httpClient *http.Client
	version    string
	auth       oauth.Authenticator
	limiter    *RateLimiter

	mu        sync.Mutex
	token     *oauth.Token
	resources map[string]string
}

// New creates a client for the given API version (e.g. "57.0") using a
// default HTTP client.
func New(auth oauth.Authenticator, version string) *Client {
	return NewWithHTTPClient(auth, version, &http.Client{Timeout: DefaultTimeout})
}

// NewWithHTTPClient creates a client with a caller-supplied
// http.Client.
func NewWithHTTPClient(auth oauth.Authenticator, version string, httpClient *http.Client) *Client {
	return &Client{
		httpClient: httpClient,
		version:    version,
		auth:       auth,
		limiter:    NewRateLimiter(),
	}
}

// Version returns the API version the client was created with.
func (c *Client) Version() string {
	return c.version
}

// RateLimiter returns the client's rate limiter for external
// inspection.
func (c *Client) RateLimiter() *RateLimiter {
	return c.limiter
}

// InstanceURL returns the org's instance URL, authenticating if no
// token is held yet.
func (c *Client) InstanceURL(ctx context.Context) (string, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return "", err
	}
	return token.InstanceURL, nil
}

// getToken returns the cached token, authenticating on first use.
func (c *Client) getToken(ctx context.Context) (*oauth.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != nil {
		return c.token, nil
	}
	token, err := c.auth.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	c.token = token
	return token, nil
}

// invalidateToken drops the cached token so the next request
// re-authenticates.
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}

// Do performs a request. On success the response is returned with its
// body open; the caller must close it. A 401 response invalidates the
// cached token and the request is retried once with a fresh one.
func (c *Client) Do(ctx context.Context, req Request) (*http.Response, error) {
	for attempt := 0; attempt < 2; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		token, err := c.getToken(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := c.send(ctx, token, req)
		if err != nil {
			return nil, err
		}

		c.limiter.UpdateFromResponse(resp)

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode <= 299:
			return resp, nil
		case resp.StatusCode == http.StatusUnauthorized:
			apiErr := apiErrorFromResponse(resp)
			resp.Body.Close()
			c.invalidateToken()
			if attempt == 0 {
				continue
			}
			return nil, apiErr
		case resp.StatusCode >= 400 && resp.StatusCode <= 599:
			apiErr := apiErrorFromResponse(resp)
			resp.Body.Close()
			return nil, apiErr
		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			return nil, fmt.Errorf("salesforce: unexpected response %d: %s", resp.StatusCode, body)
		}
	}
	// Unreachable: the loop always returns.
	return nil, nil
}

// send builds and issues one HTTP request.
func (c *Client) send(ctx context.Context, token *oauth.Token, req Request) (*http.Response, error) {
	rawURL := token.InstanceURL + req.Path
	if len(req.Params) > 0 {
		rawURL += "?" + req.Params.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Compression is left to the transport, which negotiates gzip and
	// decompresses transparently.
	httpReq.Header.Set("Accept", "application/json")
	for name, values := range req.Header {
		httpReq.Header[name] = values
	}
	httpReq.Header.Set("Authorization", "Bearer "+token.AccessToken)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	return resp, nil
}

// DoJSON performs a request and decodes the JSON response body into
// out. A nil out discards the body.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
