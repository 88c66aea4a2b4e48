package lightup

import (
	"net/http"
	"strings"
)

// Response is the settled outcome of a request.
type Response struct {
	// Data is the body shaped by the configured ResponseType: decoded JSON
	// (map[string]any, []any, float64, ...), a string, or a []byte.
	Data any
	// Body is the raw body as received.
	Body []byte

	Status     int
	StatusText string
	// Headers holds response headers with lower-cased keys.
	Headers map[string]string

	Config  *Config
	Request *http.Request
}

// Header returns the value of a response header, matched case-insensitively.
func (r *Response) Header(key string) string {
	if r == nil {
		return ""
	}
	if v, ok := r.Headers[key]; ok {
		return v
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func buildResponse(cfg *Config, tr *TransportResponse) *Response {
	headers := responseHeaders(tr)
	statusText := tr.Status
	if statusText == "" {
		statusText = http.StatusText(tr.StatusCode)
	}
	return &Response{
		Data:       decodeData(cfg.ResponseType, headers["content-type"], tr.Body),
		Body:       tr.Body,
		Status:     tr.StatusCode,
		StatusText: statusText,
		Headers:    headers,
		Config:     cfg,
		Request:    tr.Request,
	}
}
