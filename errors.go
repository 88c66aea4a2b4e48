package lightup

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error types reported in ClientError.Type.
const (
	ErrorTypeNetwork     = "Network"
	ErrorTypeTimeout     = "Timeout"
	ErrorTypeAbort       = "Abort"
	ErrorTypeHTTPStatus  = "HTTPStatus"
	ErrorTypeURL         = "URL"
	ErrorTypeEncoding    = "Encoding"
	ErrorTypeInterceptor = "Interceptor"
	ErrorTypeValidation  = "Validation"
)

// CodeConnAborted is set on timeout and abort errors.
const CodeConnAborted = "ECONNABORTED"

// Sentinels for errors.Is. They match any ClientError of the same type.
var (
	ErrNetwork     = &ClientError{Type: ErrorTypeNetwork}
	ErrTimeout     = &ClientError{Type: ErrorTypeTimeout}
	ErrAborted     = &ClientError{Type: ErrorTypeAbort}
	ErrHTTPStatus  = &ClientError{Type: ErrorTypeHTTPStatus}
	ErrInvalidURL  = &ClientError{Type: ErrorTypeURL}
	ErrEncoding    = &ClientError{Type: ErrorTypeEncoding}
	ErrInterceptor = &ClientError{Type: ErrorTypeInterceptor}
)

// ClientError is the error returned by every Client request. Config is the
// configuration of the last attempt; Response is set for status failures.
type ClientError struct {
	Type    string
	Message string
	Code    string
	Cause   error

	Config   *Config
	Request  *http.Request
	Response *Response

	RequestID  string
	Method     string
	URL        string
	Attempt    int
	MaxRetries int
	Timestamp  time.Time
}

// Error implements error interface.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	if e.Attempt > 0 {
		msg = fmt.Sprintf("%s (attempt %d/%d)", msg, e.Attempt, e.MaxRetries)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*ClientError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// StatusCode returns the response status, or 0 when no response was received.
func (e *ClientError) StatusCode() int {
	if e == nil || e.Response == nil {
		return 0
	}
	return e.Response.Status
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *ClientError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.Code != "" {
		info += fmt.Sprintf("Code: %s\n", e.Code)
	}
	if e.RequestID != "" {
		info += fmt.Sprintf("Request ID: %s\n", e.RequestID)
	}
	if e.Method != "" {
		info += fmt.Sprintf("Method: %s\n", e.Method)
	}
	if e.URL != "" {
		info += fmt.Sprintf("URL: %s\n", e.URL)
	}
	if status := e.StatusCode(); status > 0 {
		info += fmt.Sprintf("Status Code: %d\n", status)
	}
	if e.Attempt > 0 {
		info += fmt.Sprintf("Attempt: %d/%d\n", e.Attempt, e.MaxRetries)
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}

// IsTransient reports whether err is a failure the retry controller would
// act on: network, timeout, abort and status failures.
func IsTransient(err error) bool {
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		return false
	}
	switch clientErr.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeAbort, ErrorTypeHTTPStatus:
		return true
	default:
		return false
	}
}

func newClientError(errorType, message string, cfg *Config, cause error) *ClientError {
	e := &ClientError{
		Type:      errorType,
		Message:   message,
		Cause:     cause,
		Config:    cfg,
		Timestamp: time.Now(),
	}
	if cfg != nil {
		e.Method = cfg.Method
		e.URL = cfg.URL
	}
	return e
}

func newNetworkError(cfg *Config, cause error, req *http.Request) *ClientError {
	e := newClientError(ErrorTypeNetwork, "Network Error", cfg, cause)
	e.Request = req
	return e
}

func newTimeoutError(cfg *Config, cause error, req *http.Request) *ClientError {
	var timeout time.Duration
	if cfg != nil {
		timeout = cfg.Timeout
	}
	e := newClientError(ErrorTypeTimeout, fmt.Sprintf("Timeout of %dms exceeded", timeout.Milliseconds()), cfg, cause)
	e.Code = CodeConnAborted
	e.Request = req
	return e
}

func newAbortError(cfg *Config, cause error, req *http.Request) *ClientError {
	e := newClientError(ErrorTypeAbort, "Request aborted", cfg, cause)
	e.Code = CodeConnAborted
	e.Request = req
	return e
}

func newHTTPStatusError(cfg *Config, resp *Response) *ClientError {
	e := newClientError(ErrorTypeHTTPStatus, fmt.Sprintf("Request failed with status code %d", resp.Status), cfg, nil)
	e.Response = resp
	e.Request = resp.Request
	return e
}

func newURLError(cfg *Config, cause error) *ClientError {
	return newClientError(ErrorTypeURL, "Invalid URL", cfg, cause)
}

func newEncodingError(cfg *Config, cause error) *ClientError {
	return newClientError(ErrorTypeEncoding, "request body could not be encoded", cfg, cause)
}

func newInterceptorError(cfg *Config, stage string, cause error) *ClientError {
	return newClientError(ErrorTypeInterceptor, stage+" interceptor failed", cfg, cause)
}

// withAttempt returns a copy of err carrying the attempt counters, and cfg
// when err has no configuration yet. Errors that are not ClientErrors are
// returned unchanged.
func withAttempt(err error, cfg *Config, attempt, maxRetries int) error {
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		return err
	}
	cp := *clientErr
	if cp.Config == nil {
		cp.Config = cfg
	}
	cp.Attempt = attempt
	cp.MaxRetries = maxRetries
	return &cp
}
