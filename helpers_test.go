package lightup

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"
)

const (
	testBaseURL          = "https://api.example.com"
	expectedErrMsg       = "Expected error, got nil"
	unexpectedErrMsg     = "Unexpected error: %v"
	expectedStatusMsg    = "Expected status %d, got %d"
	expectedCallsMsg     = "Expected %d transport calls, got %d"
	expectedClientErrMsg = "Expected *ClientError, got %T"
)

// fakeTransport records every request and answers through handler.
type fakeTransport struct {
	mu      sync.Mutex
	calls   []*TransportRequest
	handler func(n int, req *TransportRequest) (*TransportResponse, error)
}

func newFakeTransport(handler func(n int, req *TransportRequest) (*TransportResponse, error)) *fakeTransport {
	return &fakeTransport{handler: handler}
}

func (f *fakeTransport) Send(_ context.Context, req *TransportRequest) (*TransportResponse, error) {
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.handler(n, req)
}

func (f *fakeTransport) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeTransport) Call(n int) *TransportRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[n]
}

func jsonResponse(status int, body string) *TransportResponse {
	return &TransportResponse{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       []byte(body),
	}
}

func okTransport() *fakeTransport {
	return newFakeTransport(func(int, *TransportRequest) (*TransportResponse, error) {
		return jsonResponse(http.StatusOK, `{"ok":true}`), nil
	})
}

func networkFailure() error {
	return &TransportError{Kind: KindNetwork, Err: errConnRefused}
}

type staticError string

func (e staticError) Error() string { return string(e) }

const errConnRefused = staticError("connection refused")

// sleepRecorder replaces the retry sleep so tests run without waiting.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// newTestClient builds a client on transport with instant retries.
func newTestClient(t *testing.T, transport Transport, opts ...Option) (*Client, *sleepRecorder) {
	t.Helper()
	all := append([]Option{WithTransport(transport), WithBaseURL(testBaseURL)}, opts...)
	client := New(all...)
	if !client.IsValid() {
		t.Fatalf("client configuration invalid: %v", client.ValidationError())
	}
	rec := &sleepRecorder{}
	client.retry.sleep = rec.sleep
	return client, rec
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
