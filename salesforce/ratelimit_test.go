package salesforce

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLimitInfo(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantUsed  int
		wantLimit int
		wantOK    bool
	}{
		{
			name:      "simple usage",
			value:     "api-usage=18/15000",
			wantUsed:  18,
			wantLimit: 15000,
			wantOK:    true,
		},
		{
			name:      "multiple entries",
			value:     "per-app-api-usage=1/500,api-usage=42/15000",
			wantUsed:  42,
			wantLimit: 15000,
			wantOK:    true,
		},
		{
			name:   "empty header",
			value:  "",
			wantOK: false,
		},
		{
			name:   "malformed counts",
			value:  "api-usage=abc/def",
			wantOK: false,
		},
		{
			name:   "missing slash",
			value:  "api-usage=18",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			used, limit, ok := parseLimitInfo(tt.value)

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantUsed, used)
				assert.Equal(t, tt.wantLimit, limit)
			}
		})
	}
}

func TestRateLimiter_UpdateFromResponse(t *testing.T) {
	t.Run("tracks usage from header", func(t *testing.T) {
		limiter := NewRateLimiter()
		resp := &http.Response{Header: http.Header{}}
		resp.Header.Set(HeaderLimitInfo, "api-usage=100/15000")

		limiter.UpdateFromResponse(resp)

		assert.Equal(t, 100, limiter.Used())
		assert.Equal(t, 15000, limiter.Limit())
		assert.Equal(t, 14900, limiter.Remaining())
	})

	t.Run("ignores responses without the header", func(t *testing.T) {
		limiter := NewRateLimiter()

		limiter.UpdateFromResponse(&http.Response{Header: http.Header{}})
		limiter.UpdateFromResponse(nil)

		assert.Equal(t, 0, limiter.Limit())
		assert.Equal(t, -1, limiter.Remaining())
	})
}

func TestRateLimiter_Wait(t *testing.T) {
	t.Run("allows requests when usage is unknown", func(t *testing.T) {
		limiter := NewRateLimiter()

		err := limiter.Wait(context.Background())

		assert.NoError(t, err)
	})

	t.Run("allows requests with budget available", func(t *testing.T) {
		limiter := NewRateLimiter()
		resp := &http.Response{Header: http.Header{}}
		resp.Header.Set(HeaderLimitInfo, "api-usage=100/15000")
		limiter.UpdateFromResponse(resp)

		err := limiter.Wait(context.Background())

		assert.NoError(t, err)
	})

	t.Run("refuses requests when budget is down to the buffer", func(t *testing.T) {
		limiter := NewRateLimiter()
		resp := &http.Response{Header: http.Header{}}
		resp.Header.Set(HeaderLimitInfo, "api-usage=14950/15000")
		limiter.UpdateFromResponse(resp)

		err := limiter.Wait(context.Background())

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAPIBudgetExhausted)
		assert.True(t, IsRateLimited(err))
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		limiter := NewRateLimiter()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// Drain the initial burst so the bucket must wait.
		_ = limiter.Wait(context.Background())
		err := limiter.Wait(ctx)

		assert.Error(t, err)
	})
}
