package oauth

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_IssuedAtTime(t *testing.T) {
	t.Run("parses epoch milliseconds", func(t *testing.T) {
		var token Token
		require.NoError(t, json.Unmarshal([]byte(tokenBody), &token))

		issued := token.IssuedAtTime()
		assert.Equal(t, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), issued.UTC())
	})

	t.Run("zero time when absent", func(t *testing.T) {
		token := Token{}
		assert.True(t, token.IssuedAtTime().IsZero())
	})
}
