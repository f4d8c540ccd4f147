package ratelimit

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// Limiter implements a token bucket rate limiter shared by all requests
// against one upstream.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a new rate limiter with the specified rate (requests per second).
// The burst equals the rate, rounded up, with a minimum of one.
func New(rps float64) *Limiter {
	if rps <= 0 {
		rps = 1.0
	}
	burst := int(math.Ceil(rps))
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a token is available or context is cancelled
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may proceed right now without waiting.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
