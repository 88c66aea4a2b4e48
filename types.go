package lightup

import (
	"context"
	"net/http"
	"time"
)

// ResponseType selects how a response body is exposed in Response.Data.
type ResponseType string

const (
	// ResponseTypeJSON decodes bodies served as application/json and falls
	// back to the raw text when decoding fails.
	ResponseTypeJSON ResponseType = "json"
	// ResponseTypeText always exposes the body as a string.
	ResponseTypeText ResponseType = "text"
	// ResponseTypeBytes always exposes the body as a []byte.
	ResponseTypeBytes ResponseType = "bytes"
)

// ProgressEvent reports how many body bytes were transferred so far.
// Total is -1 when the length is unknown.
type ProgressEvent struct {
	Loaded int64
	Total  int64
}

// ProgressFunc receives upload or download progress events.
type ProgressFunc func(ProgressEvent)

// TransportRequest is a fully resolved request handed to a Transport.
type TransportRequest struct {
	Method             string
	URL                string
	Header             http.Header
	Body               []byte
	Timeout            time.Duration
	OnUploadProgress   ProgressFunc
	OnDownloadProgress ProgressFunc
}

// TransportResponse is the raw outcome of a single HTTP exchange.
// When RawHeader is set it takes precedence over Header.
type TransportResponse struct {
	StatusCode int
	Status     string
	Header     http.Header
	RawHeader  string
	Body       []byte
	Request    *http.Request
}

// Transport performs one HTTP exchange. Implementations enforce
// TransportRequest.Timeout and report failures as *TransportError.
type Transport interface {
	Send(ctx context.Context, req *TransportRequest) (*TransportResponse, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *TransportRequest) (*TransportResponse, error)

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, req *TransportRequest) (*TransportResponse, error) {
	return f(ctx, req)
}

// TransportErrorKind classifies transport level failures.
type TransportErrorKind int

const (
	KindNetwork TransportErrorKind = iota
	KindTimeout
	KindAbort
)

func (k TransportErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindAbort:
		return "abort"
	default:
		return "network"
	}
}

// TransportError is returned by a Transport when no response was produced.
// Request is the request that was being sent, when one was built.
type TransportError struct {
	Kind    TransportErrorKind
	Err     error
	Request *http.Request
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "transport " + e.Kind.String() + " error"
	}
	return "transport " + e.Kind.String() + " error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Option configures a Client.
type Option func(*Client)

// RequestOption overlays per-call settings on a copy of the client defaults.
type RequestOption func(*Config)

// Plugin receives the client once, synchronously, when passed to Client.Use.
type Plugin func(*Client)
