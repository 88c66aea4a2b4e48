package lightup

import (
	"context"
	"errors"
	"time"

	cbackoff "github.com/cenkalti/backoff/v5"

	internalbackoff "github.com/WaelHoury/lightup/internal/backoff"
)

// BackoffStrategy selects the delay sequence used between retries.
type BackoffStrategy int

const (
	// Exponential waits RetryDelay * 2^attempt with no jitter.
	Exponential BackoffStrategy = iota
	// ExponentialJitter randomizes each exponential interval by the jitter factor.
	ExponentialJitter
	// DecorrelatedJitter draws each delay from [RetryDelay, previous*3].
	DecorrelatedJitter
)

func (s BackoffStrategy) String() string {
	switch s {
	case ExponentialJitter:
		return "ExponentialJitter"
	case DecorrelatedJitter:
		return "DecorrelatedJitter"
	default:
		return "Exponential"
	}
}

func (s BackoffStrategy) internal() internalbackoff.Strategy {
	switch s {
	case ExponentialJitter:
		return internalbackoff.ExponentialJitterStrategy{}
	case DecorrelatedJitter:
		return internalbackoff.DecorrelatedJitterStrategy{}
	default:
		return internalbackoff.ExponentialStrategy{}
	}
}

// AttemptFunc performs one attempt (0-based) with the given configuration.
type AttemptFunc func(ctx context.Context, cfg *Config, attempt int) (*Response, error)

// RetryHook is called before sleeping ahead of retry number attempt.
type RetryHook func(ctx context.Context, cfg *Config, attempt int, delay time.Duration, err error)

// RetryController decides retry eligibility and drives the attempt loop.
type RetryController struct {
	strategy BackoffStrategy
	jitter   float64
	sleep    func(ctx context.Context, d time.Duration) error
	onRetry  RetryHook
}

// NewRetryController creates a controller using the given strategy.
func NewRetryController(strategy BackoffStrategy, jitter float64) *RetryController {
	return &RetryController{
		strategy: strategy,
		jitter:   jitter,
		sleep:    sleepContext,
	}
}

// ShouldRetry reports whether a failed attempt may be retried. origin is the
// configuration the request started with: requests started from a
// configuration already flagged IsRetry are never retried, which keeps
// re-issued requests from building nested retry chains. URL and encoding
// failures are not retried since every attempt would fail the same way.
func (rc *RetryController) ShouldRetry(attempt, maxRetries int, origin *Config, err error) bool {
	if attempt >= maxRetries {
		return false
	}

	var clientErr *ClientError
	if !errors.As(err, &clientErr) || clientErr.Config == nil {
		return false
	}
	if origin != nil && origin.IsRetry {
		return false
	}

	switch clientErr.Type {
	case ErrorTypeURL, ErrorTypeEncoding:
		return false
	default:
		return true
	}
}

// Delay returns the wait that follows failed attempt number attempt.
func (rc *RetryController) Delay(cfg *Config, attempt int) time.Duration {
	return rc.calculator(cfg).Calculate(attempt)
}

func (rc *RetryController) calculator(cfg *Config) *internalbackoff.Calculator {
	return internalbackoff.NewCalculator(rc.strategy.internal(), cfg.RetryDelay, cfg.MaxRetryDelay, rc.jitter)
}

// Do runs attempt until it succeeds or the failure is not eligible for a
// retry. Each retry works on a clone of the previous configuration with
// IsRetry set. The returned error carries the last attempt's configuration.
func (rc *RetryController) Do(ctx context.Context, cfg *Config, attempt AttemptFunc) (*Response, error) {
	seq := rc.calculator(cfg).Sequence()
	current := cfg

	for n := 0; ; n++ {
		resp, err := attempt(ctx, current, n)
		if err == nil {
			return resp, nil
		}

		if !rc.ShouldRetry(n, cfg.MaxRetries, cfg, err) {
			return nil, withAttempt(err, current, n, cfg.MaxRetries)
		}

		delay := seq.NextBackOff()
		if delay == cbackoff.Stop {
			return nil, withAttempt(err, current, n, cfg.MaxRetries)
		}
		if rc.onRetry != nil {
			rc.onRetry(ctx, current, n+1, delay, err)
		}
		if sleepErr := rc.sleep(ctx, delay); sleepErr != nil {
			return nil, withAttempt(err, current, n, cfg.MaxRetries)
		}

		next := current.Clone()
		next.IsRetry = true
		current = next
	}
}

// sleepContext waits for d or until ctx ends.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
