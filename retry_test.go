package lightup

import (
	"context"
	"errors"
	"testing"
	"time"
)

func failingAttempts(failures int, err func(cfg *Config) error) (AttemptFunc, *[]*Config) {
	var seen []*Config
	return func(_ context.Context, cfg *Config, attempt int) (*Response, error) {
		seen = append(seen, cfg)
		if attempt < failures {
			return nil, err(cfg)
		}
		return &Response{Status: 200, Config: cfg}, nil
	}, &seen
}

func networkErrFor(cfg *Config) error {
	return newNetworkError(cfg, errConnRefused, nil)
}

func TestRetryControllerSucceedsAfterMaxRetries(t *testing.T) {
	rc := NewRetryController(Exponential, 0)
	rec := &sleepRecorder{}
	rc.sleep = rec.sleep

	cfg := DefaultConfig()
	cfg.MaxRetries = 3
	cfg.RetryDelay = 10 * time.Millisecond

	attempt, seen := failingAttempts(3, networkErrFor)
	resp, err := rc.Do(context.Background(), cfg, attempt)
	if err != nil {
		t.Fatalf(unexpectedErrMsg, err)
	}
	if resp.Status != 200 {
		t.Errorf(expectedStatusMsg, 200, resp.Status)
	}
	if len(*seen) != 4 {
		t.Fatalf("Expected 4 attempts, got %d", len(*seen))
	}

	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}
	delays := rec.Delays()
	if len(delays) != len(want) {
		t.Fatalf("Expected delays %v, got %v", want, delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d: expected %v, got %v", i, want[i], delays[i])
		}
	}

	if (*seen)[0].IsRetry {
		t.Error("Expected first attempt to use the original configuration")
	}
	for i, c := range (*seen)[1:] {
		if !c.IsRetry {
			t.Errorf("Expected retry %d to be flagged IsRetry", i+1)
		}
		if c == cfg {
			t.Errorf("Expected retry %d to work on a clone", i+1)
		}
	}
	if cfg.IsRetry {
		t.Error("Expected original configuration to stay unflagged")
	}
}

func TestRetryControllerExhaustsRetries(t *testing.T) {
	rc := NewRetryController(Exponential, 0)
	rc.sleep = (&sleepRecorder{}).sleep

	cfg := DefaultConfig()
	cfg.MaxRetries = 2
	cfg.RetryDelay = time.Millisecond

	attempt, seen := failingAttempts(100, networkErrFor)
	_, err := rc.Do(context.Background(), cfg, attempt)
	if err == nil {
		t.Fatal(expectedErrMsg)
	}
	if len(*seen) != 3 {
		t.Errorf("Expected 1 attempt plus 2 retries, got %d attempts", len(*seen))
	}

	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf(expectedClientErrMsg, err)
	}
	if clientErr.Config == nil {
		t.Fatal("Expected final error to carry a configuration")
	}
	if clientErr.Config != (*seen)[2] {
		t.Error("Expected final error to carry the last attempt's configuration")
	}
	if clientErr.Attempt != 2 || clientErr.MaxRetries != 2 {
		t.Errorf("Expected attempt 2/2, got %d/%d", clientErr.Attempt, clientErr.MaxRetries)
	}
}

func TestRetryControllerZeroRetries(t *testing.T) {
	rc := NewRetryController(Exponential, 0)
	rc.sleep = (&sleepRecorder{}).sleep

	cfg := DefaultConfig()
	cfg.MaxRetries = 0

	attempt, seen := failingAttempts(1, networkErrFor)
	if _, err := rc.Do(context.Background(), cfg, attempt); err == nil {
		t.Fatal(expectedErrMsg)
	}
	if len(*seen) != 1 {
		t.Errorf("Expected a single attempt, got %d", len(*seen))
	}
}

func TestRetryControllerShouldRetry(t *testing.T) {
	rc := NewRetryController(Exponential, 0)
	cfg := DefaultConfig()
	retried := cfg.Clone()
	retried.IsRetry = true

	tests := []struct {
		name       string
		attempt    int
		maxRetries int
		origin     *Config
		err        error
		want       bool
	}{
		{"network error", 0, 3, cfg, newNetworkError(cfg, nil, nil), true},
		{"timeout error", 1, 3, cfg, newTimeoutError(cfg, nil, nil), true},
		{"status error", 2, 3, cfg, newHTTPStatusError(cfg, &Response{Status: 503}), true},
		{"attempts exhausted", 3, 3, cfg, newNetworkError(cfg, nil, nil), false},
		{"no retries configured", 0, 0, cfg, newNetworkError(cfg, nil, nil), false},
		{"error without config", 0, 3, cfg, newNetworkError(nil, nil, nil), false},
		{"plain error", 0, 3, cfg, errors.New("plain"), false},
		{"origin already a retry", 0, 3, retried, newNetworkError(retried, nil, nil), false},
		{"invalid url", 0, 3, cfg, newURLError(cfg, nil), false},
		{"encoding failure", 0, 3, cfg, newEncodingError(cfg, nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rc.ShouldRetry(tt.attempt, tt.maxRetries, tt.origin, tt.err); got != tt.want {
				t.Errorf("ShouldRetry() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryControllerMaxRetryDelay(t *testing.T) {
	rc := NewRetryController(Exponential, 0)
	cfg := DefaultConfig()
	cfg.RetryDelay = 100 * time.Millisecond
	cfg.MaxRetryDelay = 250 * time.Millisecond

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 250 * time.Millisecond, 250 * time.Millisecond}
	for attempt, w := range want {
		if got := rc.Delay(cfg, attempt); got != w {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, w)
		}
	}
}

func TestRetryControllerStopsWhenContextEnds(t *testing.T) {
	rc := NewRetryController(Exponential, 0)
	ctx, cancel := context.WithCancel(context.Background())
	rc.sleep = func(context.Context, time.Duration) error {
		cancel()
		return ctx.Err()
	}

	cfg := DefaultConfig()
	cfg.MaxRetries = 5

	attempt, seen := failingAttempts(100, networkErrFor)
	_, err := rc.Do(ctx, cfg, attempt)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("Expected the last attempt error, got %v", err)
	}
	if len(*seen) != 1 {
		t.Errorf("Expected no attempt after cancellation, got %d attempts", len(*seen))
	}
}

func TestRetryControllerPreservesCallbacks(t *testing.T) {
	rc := NewRetryController(Exponential, 0)
	rc.sleep = (&sleepRecorder{}).sleep

	var uploads int
	cfg := DefaultConfig()
	cfg.MaxRetries = 2
	cfg.OnUploadProgress = func(ProgressEvent) { uploads++ }

	attempt, seen := failingAttempts(2, networkErrFor)
	if _, err := rc.Do(context.Background(), cfg, attempt); err != nil {
		t.Fatalf(unexpectedErrMsg, err)
	}
	for i, c := range *seen {
		if c.OnUploadProgress == nil {
			t.Fatalf("Expected attempt %d to keep the upload callback", i)
		}
		c.OnUploadProgress(ProgressEvent{})
	}
	if uploads != 3 {
		t.Errorf("Expected 3 callback invocations, got %d", uploads)
	}
}

func TestRetryControllerHook(t *testing.T) {
	rc := NewRetryController(Exponential, 0)
	rc.sleep = (&sleepRecorder{}).sleep

	var attempts []int
	rc.onRetry = func(_ context.Context, _ *Config, attempt int, _ time.Duration, err error) {
		if err == nil {
			t.Error("Expected hook to receive the failure")
		}
		attempts = append(attempts, attempt)
	}

	cfg := DefaultConfig()
	cfg.MaxRetries = 3
	attempt, _ := failingAttempts(2, networkErrFor)
	if _, err := rc.Do(context.Background(), cfg, attempt); err != nil {
		t.Fatalf(unexpectedErrMsg, err)
	}
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("Expected retry numbers [1 2], got %v", attempts)
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf(unexpectedErrMsg, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestBackoffStrategyString(t *testing.T) {
	tests := map[BackoffStrategy]string{
		Exponential:        "Exponential",
		ExponentialJitter:  "ExponentialJitter",
		DecorrelatedJitter: "DecorrelatedJitter",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("Expected %q, got %q", want, s.String())
		}
	}
}
