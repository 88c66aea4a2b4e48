package lightup

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// NewRateLimiter creates a token bucket holding maxTokens tokens that gains
// one token every refillRate.
func NewRateLimiter(maxTokens int, refillRate time.Duration) *rate.Limiter {
	if maxTokens < 1 {
		maxTokens = 1
	}
	return rate.NewLimiter(rate.Every(refillRate), maxTokens)
}

// WithRateLimiter paces attempts with a token bucket. Every attempt, retries
// included, waits for a token before it is sent.
func WithRateLimiter(maxTokens int, refillRate time.Duration) Option {
	return func(c *Client) {
		c.rateLimiter = NewRateLimiter(maxTokens, refillRate)
	}
}

// WithLimiter installs an existing limiter, which may be shared between clients.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.rateLimiter = l
	}
}

// waitRateLimit blocks until the limiter grants a token or ctx ends.
func (c *Client) waitRateLimit(ctx context.Context) error {
	if c.rateLimiter == nil {
		return nil
	}
	return c.rateLimiter.Wait(ctx)
}
