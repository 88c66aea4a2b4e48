package lightup

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Logger receives debug output as a message plus alternating key/value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// DebugConfig selects which parts of the pipeline are logged.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogRetries   bool
	LogQueue     bool
	RequestIDGen func() string
}

// DefaultDebugConfig returns a disabled configuration with every category
// selected, so enabling it logs everything.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:      false,
		LogRequests:  true,
		LogRetries:   true,
		LogQueue:     true,
		RequestIDGen: uuid.NewString,
	}
}

// ZerologLogger adapts a zerolog.Logger to Logger.
type ZerologLogger struct {
	zlog zerolog.Logger
}

var _ Logger = (*ZerologLogger)(nil)

// NewZerologLogger wraps l.
func NewZerologLogger(l zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{zlog: l}
}

// NewSimpleLogger writes human readable debug output to stderr.
func NewSimpleLogger() *ZerologLogger {
	l := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Str("component", "lightup").Logger().Level(zerolog.DebugLevel)
	return &ZerologLogger{zlog: l}
}

func (l *ZerologLogger) Debug(msg string, keysAndValues ...any) {
	l.log(l.zlog.Debug(), msg, keysAndValues)
}

func (l *ZerologLogger) Info(msg string, keysAndValues ...any) {
	l.log(l.zlog.Info(), msg, keysAndValues)
}

func (l *ZerologLogger) Warn(msg string, keysAndValues ...any) {
	l.log(l.zlog.Warn(), msg, keysAndValues)
}

func (l *ZerologLogger) Error(msg string, keysAndValues ...any) {
	l.log(l.zlog.Error(), msg, keysAndValues)
}

func (l *ZerologLogger) log(event *zerolog.Event, msg string, keysAndValues []any) {
	if len(keysAndValues) > 0 {
		event = event.Fields(keysAndValues)
	}
	event.Msg(msg)
}

// debugEnabled reports whether output for a category should be produced.
func (c *Client) debugEnabled(category bool) bool {
	return c.debug != nil && c.debug.Enabled && category && c.logger != nil
}

func (c *Client) newRequestID() string {
	if c.debug != nil && c.debug.RequestIDGen != nil {
		return c.debug.RequestIDGen()
	}
	return uuid.NewString()
}
