// Package lightup provides an HTTP client built around a small request pipeline:
//
//   - Request and response interceptor chains with stable, ejectable ids
//   - A FIFO dispatch queue that bounds the number of in-flight requests
//   - Retries with exponential backoff (optionally jittered or capped)
//   - JSON, form and raw request bodies, JSON response decoding and jq queries
//   - Prometheus metrics, OpenTelemetry spans and zerolog debug logging
//
// A request flows through the client like this: the per-call options are
// merged over the client defaults, the request interceptors run in order,
// the request waits for a dispatch slot, the Transport is called until it
// succeeds or retries are exhausted, and finally the response interceptors
// run in order. Response interceptors also see failures on their rejected
// branch and may recover them.
//
// Typical usage:
//
//	client := lightup.New(
//	    lightup.WithBaseURL("https://api.example.com"),
//	    lightup.WithMaxRetries(3),
//	    lightup.WithRetryDelay(200*time.Millisecond),
//	    lightup.WithMaxConcurrentRequests(4),
//	)
//	client.SetAuthToken(token)
//	resp, err := client.Get(ctx, "/users", lightup.WithParams(url.Values{"page": {"2"}}))
//
// Every error returned by a request is a *ClientError carrying the
// configuration of the last attempt. Use errors.Is with ErrTimeout,
// ErrHTTPStatus and the other sentinels to branch on the failure kind.
package lightup
