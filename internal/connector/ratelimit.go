package connector

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// githubHourlyQuota is the authenticated API quota (5000/hour).
	githubHourlyQuota = 5000

	// proactiveRate throttles below the quota (~1.2 req/sec = 4320/hr).
	proactiveRate = 1.2

	// minBuffer is the remaining-request floor before waiting for reset.
	minBuffer = 100

	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateLimit     = "X-RateLimit-Limit"
	headerRateReset     = "X-RateLimit-Reset"
)

// rateLimiter combines proactive token-bucket throttling with reactive
// tracking of the API's own quota headers. The bucket keeps request rate
// sustainable; the header state stops us from burning the last of the
// quota other tooling may need.
type rateLimiter struct {
	mu        sync.Mutex
	remaining int
	limit     int
	resetTime time.Time
	bucket    *rate.Limiter
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		remaining: githubHourlyQuota,
		limit:     githubHourlyQuota,
		bucket:    rate.NewLimiter(rate.Limit(proactiveRate), 1),
	}
}

// wait blocks until a request may be sent.
func (r *rateLimiter) wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	remaining := r.remaining
	resetTime := r.resetTime
	r.mu.Unlock()

	if remaining < minBuffer && time.Now().Before(resetTime) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(resetTime)):
		}
	}
	return nil
}

// update reads quota state from response headers.
func (r *rateLimiter) update(resp *http.Response) {
	if resp == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if v := resp.Header.Get(headerRateRemaining); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			r.remaining = n
		}
	}
	if v := resp.Header.Get(headerRateLimit); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			r.limit = n
		}
	}
	if v := resp.Header.Get(headerRateReset); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			r.resetTime = time.Unix(n, 0)
		}
	}
}
