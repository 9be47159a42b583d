package bulk

import (
	"context"
	"errors"
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fondat/salesforce-go/salesforce"
	"github.com/fondat/salesforce-go/salesforce/oauth"
)

// authFlag mirrors the live-org flag in the salesforce package; each
// test binary registers its own copy.
var authFlag = flag.String("auth", string(oauth.GrantPassword), "grant flow for live-org tests: password|refresh")

func newLiveClient(t *testing.T) *salesforce.Client {
	t.Helper()

	grant := oauth.Grant(*authFlag)
	cfg, err := oauth.FromEnv(grant)
	if errors.Is(err, oauth.ErrMissingCredential) {
		t.Skipf("live-org credentials not configured: %v", err)
	}
	require.NoError(t, err)

	auth, err := oauth.NewAuthenticator(grant, cfg)
	require.NoError(t, err)
	return salesforce.New(auth, "57.0")
}

func TestLiveBulkQuery(t *testing.T) {
	client := newLiveClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	meta, err := client.SObjects().Describe(ctx, "Account")
	require.NoError(t, err)

	q, err := NewQuery(client, meta, Options{
		Fields:      []string{"Id", "Name"},
		Limit:       10,
		WaitTimeout: 4 * time.Minute,
	})
	require.NoError(t, err)

	rows, err := q.Open(ctx)
	require.NoError(t, err)
	defer rows.Close()

	count := 0
	for rows.Next(ctx) {
		row := rows.Row()
		assert.NotEmpty(t, row["Id"])
		count++
	}
	require.NoError(t, rows.Err())
	assert.LessOrEqual(t, count, 10)
	assert.Equal(t, []string{"Id", "Name"}, rows.Header())
}
