// Package oauth obtains Salesforce OAuth2 access tokens.
//
// Two mutually exclusive grant flows are supported: password and
// refresh token. Selecting between them is the caller's decision; the
// package never infers one from the other.
package oauth

import (
	"strconv"
	"time"
)

// Token is the response from the Salesforce token endpoint.
type Token struct {
	// AccessToken is the bearer token for API requests.
	AccessToken string `json:"access_token"`

	// InstanceURL is the org's API host. All REST requests are made
	// against this host, not the login endpoint.
	InstanceURL string `json:"instance_url"`

	// ID is the identity URL of the authenticated user.
	ID string `json:"id"`

	// TokenType is the token type, normally "Bearer".
	TokenType string `json:"token_type"`

	// IssuedAt is the issue time in milliseconds since the Unix epoch,
	// as a decimal string.
	IssuedAt string `json:"issued_at"`

	// Signature is the HMAC over id+issued_at, signed with the
	// consumer secret.
	Signature string `json:"signature"`

	// RefreshToken is present only when the grant yields one (web
	// server flow with refresh_token scope).
	RefreshToken string `json:"refresh_token,omitempty"`

	// Scope lists the granted scopes, space separated.
	Scope string `json:"scope,omitempty"`
}

// IssuedAtTime parses the IssuedAt field. Returns the zero time if the
// field is absent or malformed.
func (t *Token) IssuedAtTime() time.Time {
	ms, err := strconv.ParseInt(t.IssuedAt, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
