package salesforce

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitsResource_Get(t *testing.T) {
	t.Run("returns all org limits", func(t *testing.T) {
		client := newOrgClient(t, func(mux *http.ServeMux) {
			mux.HandleFunc("GET /services/data/v57.0/limits/", func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `{
					"DailyApiRequests": {"Max": 15000, "Remaining": 14800},
					"DataStorageMB": {"Max": 1024, "Remaining": 900}
				}`)
			})
		})

		limits, err := client.Limits().Get(context.Background())

		require.NoError(t, err)
		require.Contains(t, limits, "DailyApiRequests")
		assert.Equal(t, 15000, limits["DailyApiRequests"].Max)
		assert.Equal(t, 14800, limits["DailyApiRequests"].Remaining)
		assert.Equal(t, 900, limits["DataStorageMB"].Remaining)
	})
}

func TestLimitsResource_RecordCount(t *testing.T) {
	t.Run("maps counts by sObject name", func(t *testing.T) {
		client := newOrgClient(t, func(mux *http.ServeMux) {
			mux.HandleFunc("GET /services/data/v57.0/limits/recordCount", func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Account,Contact", r.URL.Query().Get("sObjects"))
				fmt.Fprint(w, `{
					"sObjectCounts": [
						{"count": 12, "name": "Account"},
						{"count": 34, "name": "Contact"}
					]
				}`)
			})
		})

		counts, err := client.Limits().RecordCount(context.Background(), []string{"Account", "Contact"})

		require.NoError(t, err)
		assert.Equal(t, map[string]int{"Account": 12, "Contact": 34}, counts)
	})
}
