package lightup

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

var (
	errNilConfig   = errors.New("request interceptor returned a nil config")
	errNilResponse = errors.New("response interceptor returned a nil response")
)

// Client sends requests through a request interceptor chain, a FIFO dispatch
// queue that bounds concurrency, a retry controller wrapped around the
// Transport, and a response interceptor chain. It is safe for concurrent use.
type Client struct {
	mu       sync.RWMutex
	defaults *Config

	interceptors *Interceptors
	queue        *dispatchQueue
	retry        *RetryController
	transport    Transport
	rateLimiter  *rate.Limiter

	backoffStrategy BackoffStrategy
	jitter          float64

	metrics    *MetricsCollector
	debug      *DebugConfig
	logger     Logger
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator

	validationError error
}

// QueueStats is a snapshot of the dispatch queue.
type QueueStats struct {
	Active  int
	Pending int
	Limit   int
}

// New constructs a Client using the provided functional options. A best effort
// validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	client := &Client{
		defaults:        DefaultConfig(),
		interceptors:    &Interceptors{},
		backoffStrategy: Exponential,
		jitter:          0.1,
		debug:           DefaultDebugConfig(),
		tracer:          defaultTracer(),
	}

	for _, option := range options {
		if option != nil {
			option(client)
		}
	}

	if client.transport == nil {
		client.transport = NewHTTPTransport(nil)
	}
	if client.debug == nil {
		client.debug = DefaultDebugConfig()
	}
	client.queue = newDispatchQueue(client.defaults.MaxConcurrentRequests, client.metrics)
	client.retry = NewRetryController(client.backoffStrategy, client.jitter)
	client.retry.onRetry = client.onRetry

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

type requestIDKey struct{}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Request sends one logical request built from the client defaults overlaid
// with opts. Request interceptors complete before dispatch, and dispatch,
// retries included, completes before response interceptors run.
func (c *Client) Request(ctx context.Context, opts ...RequestOption) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.RLock()
	cfg := mergeConfig(c.defaults, opts)
	c.mu.RUnlock()

	requestID := c.newRequestID()
	ctx = context.WithValue(ctx, requestIDKey{}, requestID)
	ctx, span := c.startSpan(ctx, cfg, requestID)

	resp, err := c.run(ctx, cfg)
	endSpan(span, resp, err)
	return resp, err
}

func (c *Client) run(ctx context.Context, cfg *Config) (*Response, error) {
	sent, err := c.interceptors.Request.Apply(ctx, cfg, nil)

	var resp *Response
	switch {
	case err != nil:
		err = asClientError(cfg, "request", err)
	case sent == nil:
		err = newInterceptorError(cfg, "request", errNilConfig)
	default:
		cfg = sent
		resp, err = c.dispatch(ctx, sent)
	}

	resp, err = c.interceptors.Response.Apply(ctx, resp, err)
	if err == nil && resp == nil {
		err = newInterceptorError(cfg, "response", errNilResponse)
	}
	if err != nil {
		return nil, c.finishError(ctx, cfg, err)
	}
	return resp, nil
}

// dispatch waits for a queue slot and then runs the retry loop.
func (c *Client) dispatch(ctx context.Context, cfg *Config) (*Response, error) {
	if c.debugEnabled(c.debug.LogQueue) {
		c.logger.Debug("Request queued", "requestID", requestIDFromContext(ctx),
			"active", c.queue.Active(), "pending", c.queue.Pending(), "limit", c.queue.Limit())
	}

	resp, err := c.queue.enqueue(ctx, cfg, c.execute)

	var clientErr *ClientError
	if err != nil && !errors.As(err, &clientErr) {
		err = contextError(cfg, err, nil)
	}
	return resp, err
}

// execute encodes the body once and retries attempts with that payload.
func (c *Client) execute(ctx context.Context, cfg *Config) (*Response, error) {
	body, contentType, err := encodeBody(cfg)
	if err != nil {
		return nil, newEncodingError(cfg, err)
	}

	return c.retry.Do(ctx, cfg, func(ctx context.Context, cfg *Config, attempt int) (*Response, error) {
		return c.attempt(ctx, cfg, attempt, body, contentType)
	})
}

// attempt performs a single Transport exchange and validates the status.
func (c *Client) attempt(ctx context.Context, cfg *Config, n int, body []byte, contentType string) (*Response, error) {
	if err := c.waitRateLimit(ctx); err != nil {
		return nil, contextError(cfg, err, nil)
	}

	fullURL, err := buildFullURL(cfg.BaseURL, cfg.URL, cfg.Params)
	if err != nil {
		return nil, newURLError(cfg, err)
	}

	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = http.MethodGet
	}
	header := cfg.Headers.Clone()
	if header == nil {
		header = http.Header{}
	}
	if contentType != "" && header.Get("Content-Type") == "" {
		header.Set("Content-Type", contentType)
	}
	if header.Get("User-Agent") == "" {
		header.Set("User-Agent", UserAgent())
	}
	c.injectTraceContext(ctx, header)

	req := &TransportRequest{
		Method:             method,
		URL:                fullURL,
		Header:             header,
		Body:               body,
		Timeout:            cfg.Timeout,
		OnUploadProgress:   cfg.OnUploadProgress,
		OnDownloadProgress: cfg.OnDownloadProgress,
	}

	endpoint := endpointOf(fullURL)
	if c.debugEnabled(c.debug.LogRequests) {
		c.logger.Debug("Sending request", "requestID", requestIDFromContext(ctx),
			"method", method, "url", fullURL, "attempt", n, "retry", cfg.IsRetry)
	}

	c.metrics.RecordRequestStart(method, endpoint)
	start := time.Now()
	tr, err := c.transport.Send(ctx, req)
	duration := time.Since(start)
	c.metrics.RecordRequestEnd(method, endpoint)

	if err != nil {
		c.metrics.RecordRequest(method, endpoint, 0, duration)
		return nil, transportFailure(cfg, err)
	}
	c.metrics.RecordRequest(method, endpoint, tr.StatusCode, duration)

	resp := buildResponse(cfg, tr)
	if c.debugEnabled(c.debug.LogRequests) {
		c.logger.Debug("Response received", "requestID", requestIDFromContext(ctx),
			"status", resp.Status, "duration", duration)
	}
	if !c.validateStatus(cfg)(resp.Status) {
		return nil, newHTTPStatusError(cfg, resp)
	}
	return resp, nil
}

func (c *Client) validateStatus(cfg *Config) func(int) bool {
	if cfg.ValidateStatus != nil {
		return cfg.ValidateStatus
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.defaults.ValidateStatus != nil {
		return c.defaults.ValidateStatus
	}
	return func(int) bool { return true }
}

func (c *Client) onRetry(ctx context.Context, cfg *Config, attempt int, delay time.Duration, err error) {
	method := strings.ToUpper(cfg.Method)
	endpoint := "unknown"
	if full, urlErr := buildFullURL(cfg.BaseURL, cfg.URL, nil); urlErr == nil {
		endpoint = endpointOf(full)
	}

	c.metrics.RecordRetry(method, endpoint, attempt)
	retryEvent(trace.SpanFromContext(ctx), attempt, delay, err)

	if c.debugEnabled(c.debug.LogRetries) {
		c.logger.Info("Scheduling retry", "requestID", requestIDFromContext(ctx),
			"attempt", attempt, "maxRetries", cfg.MaxRetries, "backoff", delay, "error", err.Error())
	}
}

// finishError attaches the request id and records the failure.
func (c *Client) finishError(ctx context.Context, cfg *Config, err error) error {
	clientErr := asClientError(cfg, "response", err)
	if clientErr.RequestID == "" {
		cp := *clientErr
		cp.RequestID = requestIDFromContext(ctx)
		clientErr = &cp
	}

	endpoint := "unknown"
	if clientErr.Config != nil {
		if full, urlErr := buildFullURL(clientErr.Config.BaseURL, clientErr.Config.URL, nil); urlErr == nil {
			endpoint = endpointOf(full)
		}
	}
	c.metrics.RecordError(clientErr.Type, strings.ToUpper(clientErr.Method), endpoint)

	if c.debugEnabled(c.debug.LogRequests) {
		c.logger.Error("Request failed", "requestID", clientErr.RequestID,
			"type", clientErr.Type, "status", clientErr.StatusCode(), "error", clientErr.Error())
	}
	return clientErr
}

// asClientError returns err as a *ClientError, wrapping foreign errors as
// interceptor failures of the given stage.
func asClientError(cfg *Config, stage string, err error) *ClientError {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		if clientErr.Config == nil {
			cp := *clientErr
			cp.Config = cfg
			return &cp
		}
		return clientErr
	}
	return newInterceptorError(cfg, stage, err)
}

func transportFailure(cfg *Config, err error) *ClientError {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		switch transportErr.Kind {
		case KindTimeout:
			return newTimeoutError(cfg, transportErr.Err, transportErr.Request)
		case KindAbort:
			return newAbortError(cfg, transportErr.Err, transportErr.Request)
		default:
			return newNetworkError(cfg, transportErr.Err, transportErr.Request)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return contextError(cfg, err, nil)
	}
	return newNetworkError(cfg, err, nil)
}

// contextError maps a cancellation or deadline to an abort or timeout error.
func contextError(cfg *Config, err error, req *http.Request) *ClientError {
	if errors.Is(err, context.Canceled) {
		return newAbortError(cfg, err, req)
	}
	return newTimeoutError(cfg, err, req)
}

func endpointOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}

	var builder strings.Builder
	builder.WriteString(u.Host)
	if u.Path != "" && u.Path != "/" {
		builder.WriteString(u.Path)
	} else {
		builder.WriteByte('/')
	}
	return builder.String()
}

func (c *Client) verb(ctx context.Context, method, u string, opts []RequestOption, extra ...RequestOption) (*Response, error) {
	all := make([]RequestOption, 0, len(opts)+len(extra)+2)
	all = append(all, opts...)
	all = append(all, extra...)
	all = append(all, WithMethod(method), WithURL(u))
	return c.Request(ctx, all...)
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.verb(ctx, http.MethodGet, url, opts)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.verb(ctx, http.MethodDelete, url, opts)
}

// Head sends a HEAD request.
func (c *Client) Head(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.verb(ctx, http.MethodHead, url, opts)
}

// Options sends an OPTIONS request.
func (c *Client) Options(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.verb(ctx, http.MethodOptions, url, opts)
}

// Post sends a POST request with data as the body.
func (c *Client) Post(ctx context.Context, url string, data any, opts ...RequestOption) (*Response, error) {
	return c.verb(ctx, http.MethodPost, url, opts, WithData(data))
}

// Put sends a PUT request with data as the body.
func (c *Client) Put(ctx context.Context, url string, data any, opts ...RequestOption) (*Response, error) {
	return c.verb(ctx, http.MethodPut, url, opts, WithData(data))
}

// Patch sends a PATCH request with data as the body.
func (c *Client) Patch(ctx context.Context, url string, data any, opts ...RequestOption) (*Response, error) {
	return c.verb(ctx, http.MethodPatch, url, opts, WithData(data))
}

// AddRequestInterceptor registers a handler pair on the request chain and
// returns its id for Interceptors().Request.Eject.
func (c *Client) AddRequestInterceptor(fulfilled FulfilledFunc[*Config], rejected RejectedFunc[*Config]) int {
	return c.interceptors.Request.Use(fulfilled, rejected)
}

// AddResponseInterceptor registers a handler pair on the response chain and
// returns its id for Interceptors().Response.Eject.
func (c *Client) AddResponseInterceptor(fulfilled FulfilledFunc[*Response], rejected RejectedFunc[*Response]) int {
	return c.interceptors.Response.Use(fulfilled, rejected)
}

// Interceptors exposes both interceptor chains.
func (c *Client) Interceptors() *Interceptors {
	return c.interceptors
}

// SetDefaultHeader sets a header on the defaults. Requests already merged
// keep their own copy.
func (c *Client) SetDefaultHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.defaults.Headers == nil {
		c.defaults.Headers = http.Header{}
	}
	c.defaults.Headers.Set(key, value)
}

// SetAuthToken sets a bearer Authorization header on the defaults.
func (c *Client) SetAuthToken(token string) {
	c.SetDefaultHeader("Authorization", "Bearer "+token)
}

// SetBasicAuth sets a basic Authorization header on the defaults.
func (c *Client) SetBasicAuth(username, password string) {
	credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	c.SetDefaultHeader("Authorization", "Basic "+credentials)
}

// Defaults returns an independent copy of the default configuration.
func (c *Client) Defaults() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return *c.defaults.Clone()
}

// Use calls plugin once with the client and returns the client.
func (c *Client) Use(plugin Plugin) *Client {
	if plugin != nil {
		plugin(c)
	}
	return c
}

// QueueStats returns the current dispatch queue occupancy.
func (c *Client) QueueStats() QueueStats {
	return QueueStats{
		Active:  c.queue.Active(),
		Pending: c.queue.Pending(),
		Limit:   c.queue.Limit(),
	}
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}
