package backoff

import (
	"math"
	"math/rand"
	"time"

	cbackoff "github.com/cenkalti/backoff/v5"
)

// Unbounded is used as the interval ceiling when no maximum delay is configured.
const Unbounded = time.Duration(math.MaxInt64)

// Strategy builds a fresh delay sequence for one logical request.
// Sequences are stateful and must not be shared between requests.
type Strategy interface {
	NewBackOff(initial, max time.Duration, jitter float64) cbackoff.BackOff
}

// ExponentialStrategy doubles the delay after every attempt without jitter:
// initial, 2*initial, 4*initial, ...
type ExponentialStrategy struct{}

// NewBackOff implements Strategy.
func (ExponentialStrategy) NewBackOff(initial, max time.Duration, _ float64) cbackoff.BackOff {
	return newExponential(initial, max, 0)
}

// ExponentialJitterStrategy doubles the delay and randomizes each interval by
// the jitter factor in both directions.
type ExponentialJitterStrategy struct{}

// NewBackOff implements Strategy.
func (ExponentialJitterStrategy) NewBackOff(initial, max time.Duration, jitter float64) cbackoff.BackOff {
	return newExponential(initial, max, clampJitter(jitter))
}

func newExponential(initial, max time.Duration, randomization float64) *cbackoff.ExponentialBackOff {
	if max <= 0 {
		max = Unbounded
	}
	b := &cbackoff.ExponentialBackOff{
		InitialInterval:     initial,
		RandomizationFactor: randomization,
		Multiplier:          2,
		MaxInterval:         max,
	}
	b.Reset()
	return b
}

// DecorrelatedJitterStrategy implements decorrelated jitter as described in
// https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter/:
// the first delay is the initial value, each following delay is drawn from
// [initial, min(max, previous*3)].
type DecorrelatedJitterStrategy struct{}

// NewBackOff implements Strategy.
func (DecorrelatedJitterStrategy) NewBackOff(initial, max time.Duration, _ float64) cbackoff.BackOff {
	if max <= 0 {
		max = Unbounded
	}
	return &decorrelated{initial: initial, max: max}
}

type decorrelated struct {
	initial  time.Duration
	max      time.Duration
	previous time.Duration
}

func (d *decorrelated) NextBackOff() time.Duration {
	if d.previous == 0 {
		d.previous = d.initial
		return d.previous
	}

	base := float64(d.initial)
	upper := float64(d.previous) * 3
	if upper > float64(d.max) || upper < 0 {
		upper = float64(d.max)
	}
	if upper < base {
		upper = base
	}

	next := time.Duration(base + rand.Float64()*(upper-base))
	if next < 0 || next > d.max {
		next = d.max
	}
	d.previous = next
	return next
}

func (d *decorrelated) Reset() {
	d.previous = 0
}

// clampJitter ensures jitter is within valid bounds [0, 1].
func clampJitter(jitter float64) float64 {
	if jitter < 0 {
		return 0
	}
	if jitter > 1 {
		return 1
	}
	return jitter
}
