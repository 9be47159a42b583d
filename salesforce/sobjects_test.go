package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// accountDescribe is a pared-down describe payload for the Account
// sObject, served by the fake org in these tests.
const accountDescribe = `{
	"name": "Account",
	"label": "Account",
	"queryable": true,
	"keyPrefix": "001",
	"fields": [
		{"name": "Id", "type": "id", "label": "Account ID"},
		{"name": "Name", "type": "string", "label": "Account Name"},
		{"name": "BillingAddress", "type": "address", "label": "Billing Address"}
	],
	"urls": {
		"sobject": "/services/data/v57.0/sobjects/Account",
		"describe": "/services/data/v57.0/sobjects/Account/describe",
		"rowTemplate": "/services/data/v57.0/sobjects/Account/{ID}"
	}
}`

func withAccountDescribe(mux *http.ServeMux) {
	mux.HandleFunc("GET /services/data/v57.0/sobjects/Account/describe",
		func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, accountDescribe)
		})
}

func TestSObjectsResource_List(t *testing.T) {
	t.Run("returns the global describe", func(t *testing.T) {
		client := newOrgClient(t, func(mux *http.ServeMux) {
			mux.HandleFunc("GET /services/data/v57.0/sobjects/", func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `{
					"encoding": "UTF-8",
					"maxBatchSize": 200,
					"sobjects": [
						{"name": "Account", "label": "Account", "queryable": true},
						{"name": "Contact", "label": "Contact", "queryable": true}
					]
				}`)
			})
		})

		result, err := client.SObjects().List(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "UTF-8", result.Encoding)
		require.Len(t, result.SObjects, 2)
		assert.Equal(t, "Account", result.SObjects[0].Name)
		assert.True(t, result.SObjects[1].Queryable)
	})
}

func TestSObjectsResource_Describe(t *testing.T) {
	t.Run("returns field metadata", func(t *testing.T) {
		client := newOrgClient(t, withAccountDescribe)

		meta, err := client.SObjects().Describe(context.Background(), "Account")

		require.NoError(t, err)
		assert.Equal(t, "Account", meta.Name)
		assert.Equal(t, "001", meta.KeyPrefix)
		require.NotNil(t, meta.Field("Name"))
		assert.False(t, meta.Field("Name").Type.Compound())
		require.NotNil(t, meta.Field("BillingAddress"))
		assert.True(t, meta.Field("BillingAddress").Type.Compound())
		assert.Nil(t, meta.Field("NoSuchField"))
	})

	t.Run("rejects a case-insensitive name match", func(t *testing.T) {
		client := newOrgClient(t, func(mux *http.ServeMux) {
			// Salesforce resolves "account" to Account; the caller asked
			// for a name that does not exist as spelled.
			mux.HandleFunc("GET /services/data/v57.0/sobjects/account/describe",
				func(w http.ResponseWriter, _ *http.Request) {
					fmt.Fprint(w, accountDescribe)
				})
		})

		_, err := client.SObjects().Describe(context.Background(), "account")

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSObjectNotFound)
	})

	t.Run("propagates a 404", func(t *testing.T) {
		client := newOrgClient(t, func(mux *http.ServeMux) {
			mux.HandleFunc("GET /services/data/v57.0/sobjects/Bogus/describe",
				func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusNotFound)
					fmt.Fprint(w, `[{"message":"The requested resource does not exist","errorCode":"NOT_FOUND"}]`)
				})
		})

		_, err := client.SObjects().Describe(context.Background(), "Bogus")

		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})
}

func TestSObjectDataResource(t *testing.T) {
	newAccountData := func(t *testing.T, configure func(mux *http.ServeMux)) *SObjectDataResource {
		t.Helper()
		client := newOrgClient(t, func(mux *http.ServeMux) {
			withAccountDescribe(mux)
			if configure != nil {
				configure(mux)
			}
		})
		data, err := client.SObjects().Data(context.Background(), "Account")
		require.NoError(t, err)
		return data
	}

	t.Run("get resolves the row template", func(t *testing.T) {
		data := newAccountData(t, func(mux *http.ServeMux) {
			mux.HandleFunc("GET /services/data/v57.0/sobjects/Account/001xx000003DGb0AAG",
				func(w http.ResponseWriter, _ *http.Request) {
					fmt.Fprint(w, `{"Id":"001xx000003DGb0AAG","Name":"Acme"}`)
				})
		})

		record, err := data.Get(context.Background(), "001xx000003DGb0AAG")

		require.NoError(t, err)
		assert.Equal(t, "001xx000003DGb0AAG", record.ID())
		assert.Equal(t, "Acme", record["Name"])
	})

	t.Run("get into a typed struct", func(t *testing.T) {
		data := newAccountData(t, func(mux *http.ServeMux) {
			mux.HandleFunc("GET /services/data/v57.0/sobjects/Account/001A",
				func(w http.ResponseWriter, _ *http.Request) {
					fmt.Fprint(w, `{"Id":"001A","Name":"Acme"}`)
				})
		})

		var account struct {
			ID   string `json:"Id"`
			Name string `json:"Name"`
		}
		err := data.GetInto(context.Background(), "001A", &account)

		require.NoError(t, err)
		assert.Equal(t, "Acme", account.Name)
	})

	t.Run("create posts fields and returns the id", func(t *testing.T) {
		data := newAccountData(t, func(mux *http.ServeMux) {
			mux.HandleFunc("POST /services/data/v57.0/sobjects/Account/",
				func(w http.ResponseWriter, r *http.Request) {
					body, _ := io.ReadAll(r.Body)
					var fields map[string]any
					require.NoError(t, json.Unmarshal(body, &fields))
					assert.Equal(t, "Acme", fields["Name"])
					w.WriteHeader(http.StatusCreated)
					fmt.Fprint(w, `{"id":"001B","success":true,"errors":[]}`)
				})
		})

		id, err := data.Create(context.Background(), Record{"Name": "Acme"})

		require.NoError(t, err)
		assert.Equal(t, "001B", id)
	})

	t.Run("create surfaces a reported failure", func(t *testing.T) {
		data := newAccountData(t, func(mux *http.ServeMux) {
			mux.HandleFunc("POST /services/data/v57.0/sobjects/Account/",
				func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusCreated)
					fmt.Fprint(w, `{"id":"","success":false,"errors":["duplicate value"]}`)
				})
		})

		_, err := data.Create(context.Background(), Record{"Name": "Acme"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate value")
	})

	t.Run("update patches the record", func(t *testing.T) {
		var patched bool
		data := newAccountData(t, func(mux *http.ServeMux) {
			mux.HandleFunc("PATCH /services/data/v57.0/sobjects/Account/001C",
				func(w http.ResponseWriter, r *http.Request) {
					body, _ := io.ReadAll(r.Body)
					assert.JSONEq(t, `{"Name":"Acme Corp"}`, string(body))
					patched = true
					w.WriteHeader(http.StatusNoContent)
				})
		})

		err := data.Update(context.Background(), "001C", Record{"Name": "Acme Corp"})

		require.NoError(t, err)
		assert.True(t, patched)
	})

	t.Run("delete removes the record", func(t *testing.T) {
		var deleted bool
		data := newAccountData(t, func(mux *http.ServeMux) {
			mux.HandleFunc("DELETE /services/data/v57.0/sobjects/Account/001D",
				func(w http.ResponseWriter, _ *http.Request) {
					deleted = true
					w.WriteHeader(http.StatusNoContent)
				})
		})

		err := data.Delete(context.Background(), "001D")

		require.NoError(t, err)
		assert.True(t, deleted)
	})
}
