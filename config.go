package lightup

import (
	"net/http"
	"net/url"
	"time"
)

// Config holds the settings threaded through one request. The client keeps a
// default Config; every call works on its own merged copy.
//
// Headers use http.Header semantics: keys are matched case-insensitively and
// transmitted in canonical form.
type Config struct {
	BaseURL string
	URL     string
	Method  string
	Timeout time.Duration
	Headers http.Header
	Params  url.Values
	Data    any

	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	// MaxConcurrentRequests is read from the client defaults when the client
	// is built. Per-call values are ignored.
	MaxConcurrentRequests int

	ResponseType   ResponseType
	ValidateStatus func(status int) bool

	OnUploadProgress   ProgressFunc
	OnDownloadProgress ProgressFunc

	// IsRetry marks a configuration built for a retried attempt. A request
	// started from a flagged configuration is sent once and never retried.
	IsRetry bool
}

// DefaultValidateStatus accepts 2xx status codes.
func DefaultValidateStatus(status int) bool {
	return status >= 200 && status < 300
}

// DefaultConfig returns the built-in client defaults.
func DefaultConfig() *Config {
	return &Config{
		Method:                http.MethodGet,
		Timeout:               5 * time.Second,
		Headers:               http.Header{},
		MaxRetries:            3,
		RetryDelay:            time.Second,
		MaxConcurrentRequests: 10,
		ResponseType:          ResponseTypeJSON,
		ValidateStatus:        DefaultValidateStatus,
	}
}

// Clone returns a field-wise copy. Header and param maps are copied, function
// fields are shared and Data is copied shallowly.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Headers = c.Headers.Clone()
	if c.Params != nil {
		cp.Params = make(url.Values, len(c.Params))
		for k, vs := range c.Params {
			cp.Params[k] = append([]string(nil), vs...)
		}
	}
	return &cp
}

// mergeConfig builds the per-call configuration from defaults and call options.
func mergeConfig(defaults *Config, opts []RequestOption) *Config {
	cfg := defaults.Clone()
	if cfg.Headers == nil {
		cfg.Headers = http.Header{}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithURL sets the request URL, resolved against BaseURL when relative.
func WithURL(u string) RequestOption {
	return func(c *Config) {
		c.URL = u
	}
}

// WithMethod sets the HTTP method.
func WithMethod(method string) RequestOption {
	return func(c *Config) {
		c.Method = method
	}
}

// WithData sets the request body value.
func WithData(data any) RequestOption {
	return func(c *Config) {
		c.Data = data
	}
}

// WithParams adds query parameters to the request URL.
func WithParams(params url.Values) RequestOption {
	return func(c *Config) {
		if c.Params == nil {
			c.Params = url.Values{}
		}
		for k, vs := range params {
			for _, v := range vs {
				c.Params.Add(k, v)
			}
		}
	}
}

// WithRequestHeader sets a single header for this call.
func WithRequestHeader(key, value string) RequestOption {
	return func(c *Config) {
		c.Headers.Set(key, value)
	}
}

// WithRequestHeaders sets several headers for this call.
func WithRequestHeaders(headers map[string]string) RequestOption {
	return func(c *Config) {
		for k, v := range headers {
			c.Headers.Set(k, v)
		}
	}
}

// WithRequestTimeout overrides the per-attempt timeout.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithRequestMaxRetries overrides the retry count. Zero disables retries.
func WithRequestMaxRetries(n int) RequestOption {
	return func(c *Config) {
		c.MaxRetries = n
	}
}

// WithRequestRetryDelay overrides the base backoff delay.
func WithRequestRetryDelay(d time.Duration) RequestOption {
	return func(c *Config) {
		c.RetryDelay = d
	}
}

// WithRequestResponseType overrides how the body is exposed.
func WithRequestResponseType(rt ResponseType) RequestOption {
	return func(c *Config) {
		c.ResponseType = rt
	}
}

// WithRequestValidateStatus overrides the status predicate.
func WithRequestValidateStatus(fn func(status int) bool) RequestOption {
	return func(c *Config) {
		c.ValidateStatus = fn
	}
}

// WithUploadProgress registers an upload progress callback.
func WithUploadProgress(fn ProgressFunc) RequestOption {
	return func(c *Config) {
		c.OnUploadProgress = fn
	}
}

// WithDownloadProgress registers a download progress callback.
func WithDownloadProgress(fn ProgressFunc) RequestOption {
	return func(c *Config) {
		c.OnDownloadProgress = fn
	}
}

// AsRetry flags the call as a retried request so it is dispatched once.
// Useful from response interceptors that re-issue a failed request.
func AsRetry() RequestOption {
	return func(c *Config) {
		c.IsRetry = true
	}
}

// WithConfig overlays every non-zero field of overlay. Headers and params are
// merged key-wise with overlay winning. Zero values inherit the defaults; use
// the dedicated options to set an explicit zero such as no retries.
func WithConfig(overlay Config) RequestOption {
	return func(c *Config) {
		if overlay.BaseURL != "" {
			c.BaseURL = overlay.BaseURL
		}
		if overlay.URL != "" {
			c.URL = overlay.URL
		}
		if overlay.Method != "" {
			c.Method = overlay.Method
		}
		if overlay.Timeout > 0 {
			c.Timeout = overlay.Timeout
		}
		for k, vs := range overlay.Headers {
			c.Headers[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
		}
		if len(overlay.Params) > 0 {
			WithParams(overlay.Params)(c)
		}
		if overlay.Data != nil {
			c.Data = overlay.Data
		}
		if overlay.MaxRetries > 0 {
			c.MaxRetries = overlay.MaxRetries
		}
		if overlay.RetryDelay > 0 {
			c.RetryDelay = overlay.RetryDelay
		}
		if overlay.MaxRetryDelay > 0 {
			c.MaxRetryDelay = overlay.MaxRetryDelay
		}
		if overlay.ResponseType != "" {
			c.ResponseType = overlay.ResponseType
		}
		if overlay.ValidateStatus != nil {
			c.ValidateStatus = overlay.ValidateStatus
		}
		if overlay.OnUploadProgress != nil {
			c.OnUploadProgress = overlay.OnUploadProgress
		}
		if overlay.OnDownloadProgress != nil {
			c.OnDownloadProgress = overlay.OnDownloadProgress
		}
		if overlay.IsRetry {
			c.IsRetry = true
		}
	}
}
