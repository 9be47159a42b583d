package salesforce

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newOrgClient wires a client to a fake org serving resource discovery
// plus whatever routes the test registers on the mux.
func newOrgClient(t *testing.T, configure func(mux *http.ServeMux)) *Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /services/data/v57.0", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{
			"sobjects": "/services/data/v57.0/sobjects",
			"query": "/services/data/v57.0/query",
			"limits": "/services/data/v57.0/limits",
			"jobs": "/services/data/v57.0/jobs"
		}`)
	})
	if configure != nil {
		configure(mux)
	}

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	auth := &fakeAuthenticator{
		instanceURL: server.URL,
		tokens:      []string{"token-1", "token-2"},
	}
	return New(auth, "57.0")
}

func TestClient_Versions(t *testing.T) {
	t.Run("lists available versions", func(t *testing.T) {
		client := newOrgClient(t, func(mux *http.ServeMux) {
			mux.HandleFunc("GET /services/data", func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `[
					{"label":"Spring '23","url":"/services/data/v57.0","version":"57.0"},
					{"label":"Summer '23","url":"/services/data/v58.0","version":"58.0"}
				]`)
			})
		})

		versions, err := client.Versions(context.Background())

		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, "57.0", versions[0].Version)
		assert.Equal(t, "Spring '23", versions[0].Label)
	})
}

func TestClient_Resources(t *testing.T) {
	t.Run("fetches the discovery map once", func(t *testing.T) {
		var hits atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("GET /services/data/v57.0", func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			fmt.Fprint(w, `{"sobjects":"/services/data/v57.0/sobjects"}`)
		})
		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)
		auth := &fakeAuthenticator{instanceURL: server.URL, tokens: []string{"t"}}
		client := New(auth, "57.0")

		first, err := client.Resources(context.Background())
		require.NoError(t, err)
		second, err := client.Resources(context.Background())
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, int32(1), hits.Load())
	})
}

func TestClient_Path(t *testing.T) {
	t.Run("resolves a known resource", func(t *testing.T) {
		client := newOrgClient(t, nil)

		path, err := client.Path(context.Background(), "sobjects")

		require.NoError(t, err)
		assert.Equal(t, "/services/data/v57.0/sobjects", path)
	})

	t.Run("reports unknown resources", func(t *testing.T) {
		client := newOrgClient(t, nil)

		_, err := client.Path(context.Background(), "tooling")

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrResourceNotFound)
		assert.True(t, IsNotFound(err))
	})
}
