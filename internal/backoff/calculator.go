package backoff

import (
	"time"

	cbackoff "github.com/cenkalti/backoff/v5"
)

// Calculator binds a Strategy to fixed delay parameters.
type Calculator struct {
	strategy Strategy
	initial  time.Duration
	max      time.Duration
	jitter   float64
}

// NewCalculator creates a calculator. A nil strategy selects ExponentialStrategy.
func NewCalculator(strategy Strategy, initial, max time.Duration, jitter float64) *Calculator {
	if strategy == nil {
		strategy = ExponentialStrategy{}
	}
	return &Calculator{
		strategy: strategy,
		initial:  initial,
		max:      max,
		jitter:   jitter,
	}
}

// Sequence returns a new delay sequence; the n-th call to NextBackOff yields
// the delay that follows failed attempt n-1.
func (c *Calculator) Sequence() cbackoff.BackOff {
	return c.strategy.NewBackOff(c.initial, c.max, c.jitter)
}

// Calculate returns the delay that follows the given 0-based attempt.
func (c *Calculator) Calculate(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	seq := c.Sequence()
	var d time.Duration
	for i := 0; i <= attempt; i++ {
		d = seq.NextBackOff()
	}
	return d
}

// Strategy returns the strategy used by this calculator.
func (c *Calculator) Strategy() Strategy {
	return c.strategy
}
