package lightup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
)

// HTTPTransport sends requests with a net/http client. Each Send applies
// TransportRequest.Timeout to that exchange only, so retried attempts get a
// fresh timeout window.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport wraps client; nil selects a pooled cleanhttp client.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
	}
	return &HTTPTransport{client: client}
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, req *TransportRequest) (*TransportResponse, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var body io.Reader
	if req.Body != nil {
		body = newProgressReader(bytes.NewReader(req.Body), int64(len(req.Body)), req.OnUploadProgress)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &TransportError{Kind: KindNetwork, Err: err}
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}
	if req.Body != nil {
		payload := req.Body
		httpReq.ContentLength = int64(len(payload))
		httpReq.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(payload)), nil
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(ctx, err, httpReq)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(newProgressReader(resp.Body, resp.ContentLength, req.OnDownloadProgress))
	if err != nil {
		return nil, classifyTransportError(ctx, err, httpReq)
	}

	return &TransportResponse{
		StatusCode: resp.StatusCode,
		Status:     statusText(resp),
		Header:     resp.Header,
		Body:       data,
		Request:    httpReq,
	}, nil
}

// statusText strips the numeric prefix from http.Response.Status.
func statusText(resp *http.Response) string {
	text := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	text = strings.TrimSpace(text)
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func classifyTransportError(ctx context.Context, err error, req *http.Request) *TransportError {
	kind := KindNetwork
	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		kind = KindAbort
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}
	return &TransportError{Kind: kind, Err: err, Request: req}
}

type progressReader struct {
	r      io.Reader
	total  int64
	loaded int64
	fn     ProgressFunc
}

func newProgressReader(r io.Reader, total int64, fn ProgressFunc) io.Reader {
	if fn == nil {
		return r
	}
	return &progressReader{r: r, total: total, fn: fn}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		p.fn(ProgressEvent{Loaded: p.loaded, Total: p.total})
	}
	return n, err
}
