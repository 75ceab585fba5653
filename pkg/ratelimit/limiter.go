package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter paces outbound requests to a site
type Limiter interface {
	// Allow reports whether a request may proceed right now, consuming a token if so
	Allow() bool
	// Wait blocks until a request may proceed or ctx ends
	Wait(ctx context.Context) error
}

// TokenBucket is a Limiter refilled at a steady rate up to a burst capacity
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket allows requestsPerSecond on average with bursts of up to burst.
// A non-positive rate disables limiting.
func NewTokenBucket(requestsPerSecond float64, burst int) *TokenBucket {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{limiter: rate.NewLimiter(limit, burst)}
}

func (tb *TokenBucket) Allow() bool {
	return tb.limiter.Allow()
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.limiter.Wait(ctx)
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
