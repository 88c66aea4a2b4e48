package lightup

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/WaelHoury/lightup"

// WithTracerProvider sets the provider used for client spans. By default the
// global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName, trace.WithInstrumentationVersion(Version))
		}
	}
}

// WithPropagator sets the propagator that injects trace context into
// outgoing headers. By default the global propagator is used.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(c *Client) {
		c.propagator = p
	}
}

func defaultTracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(tracerName, trace.WithInstrumentationVersion(Version))
}

// startSpan opens the client span covering one logical request, retries included.
func (c *Client) startSpan(ctx context.Context, cfg *Config, requestID string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "HTTP "+cfg.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", cfg.Method),
			attribute.String("url.full", cfg.URL),
			attribute.String("lightup.request_id", requestID),
			attribute.Int("lightup.max_retries", cfg.MaxRetries),
		),
	)
}

func endSpan(span trace.Span, resp *Response, err error) {
	if resp != nil {
		span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))
	}
	if err != nil {
		var clientErr *ClientError
		if errors.As(err, &clientErr) {
			span.SetAttributes(attribute.String("error.type", clientErr.Type))
			if status := clientErr.StatusCode(); status > 0 {
				span.SetAttributes(attribute.Int("http.response.status_code", status))
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func retryEvent(span trace.Span, attempt int, delay time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.Int("attempt", attempt),
		attribute.Int64("delay_ms", delay.Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error", err.Error()))
	}
	span.AddEvent("retry", trace.WithAttributes(attrs...))
}

// injectTraceContext writes the active span context into h.
func (c *Client) injectTraceContext(ctx context.Context, h http.Header) {
	p := c.propagator
	if p == nil {
		p = otel.GetTextMapPropagator()
	}
	p.Inject(ctx, propagation.HeaderCarrier(h))
}
