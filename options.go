package lightup

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// WithBaseURL sets the URL relative request URLs are resolved against.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.defaults.BaseURL = baseURL
	}
}

// WithTimeout sets the per-attempt timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.defaults.Timeout = d
	}
}

// WithHeaders sets default headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		for k, v := range headers {
			c.defaults.Headers.Set(k, v)
		}
	}
}

// WithHeader sets a single default header.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.defaults.Headers.Set(key, value)
	}
}

// WithMaxRetries sets the maximum number of retry attempts
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.defaults.MaxRetries = n
	}
}

// WithRetryDelay sets the base backoff delay
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.defaults.RetryDelay = d
	}
}

// WithMaxRetryDelay caps each backoff delay. Zero leaves delays uncapped.
func WithMaxRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.defaults.MaxRetryDelay = d
	}
}

// WithMaxConcurrentRequests sets how many requests may be dispatched at once.
func WithMaxConcurrentRequests(n int) Option {
	return func(c *Client) {
		c.defaults.MaxConcurrentRequests = n
	}
}

// WithResponseType sets how response bodies are exposed.
func WithResponseType(rt ResponseType) Option {
	return func(c *Client) {
		c.defaults.ResponseType = rt
	}
}

// WithValidateStatus sets the default status predicate.
func WithValidateStatus(fn func(status int) bool) Option {
	return func(c *Client) {
		c.defaults.ValidateStatus = fn
	}
}

// WithBackoffStrategy selects the delay sequence between retries
func WithBackoffStrategy(strategy BackoffStrategy) Option {
	return func(c *Client) {
		c.backoffStrategy = strategy
	}
}

// WithJitter sets the jitter factor for jittered strategies (0.0 to 1.0)
func WithJitter(f float64) Option {
	return func(c *Client) {
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		c.jitter = f
	}
}

// WithTransport sets the Transport that performs HTTP exchanges
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithHTTPClient sends requests with a custom *http.Client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.transport = NewHTTPTransport(client)
	}
}

// WithMetrics enables Prometheus metrics collection
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithDebug enables debug logging with default configuration
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithLogger sets a custom logger for debug output
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithZerolog logs debug output through l
func WithZerolog(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = NewZerologLogger(l)
	}
}

// WithSimpleLogger enables debug logging with a console logger on stderr
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// ValidateConfiguration validates the client configuration and returns an error if invalid
func (c *Client) ValidateConfiguration() error {
	var problems []string

	problems = append(problems, c.validateRetryConfig()...)
	problems = append(problems, c.validateDispatchConfig()...)
	problems = append(problems, c.validateRateLimiterConfig()...)
	problems = append(problems, c.validateDebugConfig()...)
	problems = append(problems, c.validateExtremeValues()...)

	if len(problems) > 0 {
		return &ClientError{
			Type:      ErrorTypeValidation,
			Message:   "configuration validation failed",
			Cause:     fmt.Errorf("validation errors: %v", problems),
			Timestamp: time.Now(),
		}
	}

	return nil
}

// validateRetryConfig validates retry-related configuration
func (c *Client) validateRetryConfig() []string {
	var problems []string
	d := c.defaults

	if d.MaxRetries < 0 {
		problems = append(problems, "maxRetries must be non-negative")
	}
	if d.RetryDelay < 0 {
		problems = append(problems, "retryDelay must be non-negative")
	}
	if d.MaxRetryDelay < 0 {
		problems = append(problems, "maxRetryDelay must be non-negative")
	}
	if d.MaxRetryDelay > 0 && d.MaxRetryDelay < d.RetryDelay {
		problems = append(problems, "maxRetryDelay must be greater than or equal to retryDelay")
	}
	if c.jitter < 0 || c.jitter > 1 {
		problems = append(problems, "jitter must be between 0 and 1 (will be clamped automatically)")
	}

	return problems
}

// validateDispatchConfig validates queue and transport configuration
func (c *Client) validateDispatchConfig() []string {
	var problems []string
	d := c.defaults

	if d.MaxConcurrentRequests < 1 {
		problems = append(problems, "maxConcurrentRequests must be at least 1")
	}
	if d.Timeout < 0 {
		problems = append(problems, "timeout must be non-negative")
	}
	if c.transport == nil {
		problems = append(problems, "transport cannot be nil")
	}
	if d.BaseURL != "" {
		if _, err := buildFullURL(d.BaseURL, "", nil); err != nil {
			problems = append(problems, fmt.Sprintf("baseURL is invalid: %v", err))
		}
	}

	return problems
}

// validateRateLimiterConfig validates rate limiter configuration
func (c *Client) validateRateLimiterConfig() []string {
	var problems []string

	if c.rateLimiter != nil {
		if c.rateLimiter.Burst() <= 0 {
			problems = append(problems, "rateLimiter burst must be positive")
		}
		if c.rateLimiter.Limit() <= 0 {
			problems = append(problems, "rateLimiter rate must be positive")
		}
	}

	return problems
}

// validateDebugConfig validates debug configuration
func (c *Client) validateDebugConfig() []string {
	var problems []string

	if c.debug != nil && c.debug.Enabled {
		if c.debug.RequestIDGen == nil {
			problems = append(problems, "debug RequestIDGen must be set when debug is enabled")
		}
		if c.logger == nil {
			problems = append(problems, "logger must be set when debug is enabled")
		}
	}

	return problems
}

// validateExtremeValues validates that configuration values are within reasonable bounds
func (c *Client) validateExtremeValues() []string {
	var problems []string
	d := c.defaults

	if d.MaxRetries > 100 {
		problems = append(problems, "maxRetries > 100 may cause excessive resource usage")
	}
	if d.RetryDelay > 10*time.Minute {
		problems = append(problems, "retryDelay > 10m may cause very long delays")
	}
	if d.Timeout > 10*time.Minute {
		problems = append(problems, "timeout > 10m may cause requests to hang for too long")
	}
	if d.MaxConcurrentRequests > 10000 {
		problems = append(problems, "maxConcurrentRequests > 10000 may exhaust connections")
	}

	return problems
}
