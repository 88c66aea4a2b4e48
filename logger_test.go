package lightup

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestSimpleLoggerLevels(t *testing.T) {
	logger := NewSimpleLogger()

	logger.Debug("debug message")
	logger.Info("info message", "key", "value")
	logger.Warn("warn message")
	logger.Error("error message", "count", 1)
}

func TestZerologLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf))

	logger.Info("Scheduling retry", "requestID", "abc", "attempt", 2)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "Scheduling retry" || entry["level"] != "info" {
		t.Errorf("Unexpected entry %v", entry)
	}
	if entry["requestID"] != "abc" || entry["attempt"] != float64(2) {
		t.Errorf("Expected key/value fields, got %v", entry)
	}
}

func TestZerologLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))

	logger.Debug("hidden")
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected lower levels to be dropped, got %q", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("Expected warn output, got %q", buf.String())
	}
}

func TestDefaultDebugConfig(t *testing.T) {
	cfg := DefaultDebugConfig()
	if cfg.Enabled {
		t.Error("Expected debug to be disabled by default")
	}
	if !cfg.LogRequests || !cfg.LogRetries || !cfg.LogQueue {
		t.Error("Expected every category to be selected")
	}
	if cfg.RequestIDGen == nil || cfg.RequestIDGen() == cfg.RequestIDGen() {
		t.Error("Expected unique request ids")
	}
}

// captureLogger records messages for assertions.
type captureLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *captureLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, level+":"+msg)
}

func (l *captureLogger) Debug(msg string, _ ...any) { l.record("debug", msg) }
func (l *captureLogger) Info(msg string, _ ...any)  { l.record("info", msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.record("warn", msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.record("error", msg) }

func (l *captureLogger) has(entry string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if m == entry {
			return true
		}
	}
	return false
}

func TestClientDebugLogging(t *testing.T) {
	transport := newFakeTransport(func(n int, _ *TransportRequest) (*TransportResponse, error) {
		if n == 0 {
			return nil, networkFailure()
		}
		return jsonResponse(http.StatusOK, `{}`), nil
	})
	logger := &captureLogger{}
	client, _ := newTestClient(t, transport, WithDebug(), WithLogger(logger), WithMaxRetries(1))

	if _, err := client.Get(context.Background(), "/logged"); err != nil {
		t.Fatalf(unexpectedErrMsg, err)
	}

	for _, want := range []string{"debug:Request queued", "debug:Sending request", "info:Scheduling retry", "debug:Response received"} {
		if !logger.has(want) {
			t.Errorf("Expected log entry %q, got %v", want, logger.messages)
		}
	}
}

func TestClientDebugLoggingDisabledCategory(t *testing.T) {
	logger := &captureLogger{}
	cfg := DefaultDebugConfig()
	cfg.Enabled = true
	cfg.LogQueue = false
	client, _ := newTestClient(t, okTransport(), WithDebugConfig(cfg), WithLogger(logger))

	if _, err := client.Get(context.Background(), "/"); err != nil {
		t.Fatalf(unexpectedErrMsg, err)
	}
	if logger.has("debug:Request queued") {
		t.Error("Expected queue logging to be suppressed")
	}
	if !logger.has("debug:Sending request") {
		t.Error("Expected request logging to stay on")
	}
}
