package salesforce

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

const (
	// ProactiveRate is the proactive throttle rate in requests per
	// second. Salesforce enforces a rolling 24-hour allocation rather
	// than a per-second limit; the bucket only smooths bursts.
	ProactiveRate = 5.0

	// MinBuffer is the minimum remaining daily requests before calls
	// are refused.
	MinBuffer = 100

	// HeaderLimitInfo carries the org's API usage, e.g.
	// "api-usage=18/15000".
	HeaderLimitInfo = "Sforce-Limit-Info"
)

// RateLimiter throttles API calls proactively with a token bucket and
// reactively from the Sforce-Limit-Info response header. Unlike
// per-hour limits there is no reset timestamp to wait for, so an
// exhausted daily budget surfaces as an error instead of a sleep.
type RateLimiter struct {
	mu        sync.Mutex
	used      int
	limit     int // 0 until the first response header is seen
	bucket    *rate.Limiter
	minBuffer int
}

// NewRateLimiter creates a rate limiter with proactive throttling.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		bucket:    rate.NewLimiter(rate.Limit(ProactiveRate), 1),
		minBuffer: MinBuffer,
	}
}

// Wait blocks until it is safe to make a request. Returns
// ErrAPIBudgetExhausted when the org's remaining allocation is below
// the reserve buffer.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	used, limit := r.used, r.limit
	r.mu.Unlock()

	if limit > 0 && limit-used < r.minBuffer {
		return fmt.Errorf("%w: %d/%d used", ErrAPIBudgetExhausted, used, limit)
	}
	return nil
}

// UpdateFromResponse updates usage state from the Sforce-Limit-Info
// response header.
func (r *RateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}
	used, limit, ok := parseLimitInfo(resp.Header.Get(HeaderLimitInfo))
	if !ok {
		return
	}

	r.mu.Lock()
	r.used = used
	r.limit = limit
	r.mu.Unlock()
}

// Used returns the last reported daily API request count.
func (r *RateLimiter) Used() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.used
}

// Limit returns the last reported daily API request allocation, or 0
// if no response has been seen yet.
func (r *RateLimiter) Limit() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limit
}

// Remaining returns the remaining daily allocation, or -1 when
// unknown.
func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.limit == 0 {
		return -1
	}
	return r.limit - r.used
}

// parseLimitInfo extracts used/limit from a Sforce-Limit-Info value.
// The header may carry several comma-separated entries; only
// "api-usage" is tracked.
func parseLimitInfo(value string) (used, limit int, ok bool) {
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		rest, found := strings.CutPrefix(entry, "api-usage=")
		if !found {
			continue
		}
		usedStr, limitStr, found := strings.Cut(rest, "/")
		if !found {
			return 0, 0, false
		}
		used, err := strconv.Atoi(usedStr)
		if err != nil {
			return 0, 0, false
		}
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, false
		}
		return used, limit, true
	}
	return 0, 0, false
}
