package lightup

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the request pipeline.
// All methods are no-ops on a nil collector. It is safe for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	queueActive  prometheus.Gauge
	queuePending prometheus.Gauge
	queueWait    prometheus.Histogram

	retriesTotal *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec

	registry prometheus.Registerer
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using supplied registerer.
// When the registerer already holds lightup metrics, for example from another
// client, the registered collectors are reused.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	// Unregistered factory; registration happens in register.
	factory := promauto.With(nil)

	mc := &MetricsCollector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lightup_requests_total",
				Help: "Total number of HTTP attempts made",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lightup_request_duration_seconds",
				Help:    "Duration of HTTP attempts in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lightup_requests_in_flight",
				Help: "Number of HTTP attempts currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		queueActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "lightup_queue_active",
				Help: "Number of requests holding a dispatch slot",
			},
		),
		queuePending: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "lightup_queue_pending",
				Help: "Number of requests waiting for a dispatch slot",
			},
		),
		queueWait: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lightup_queue_wait_seconds",
				Help:    "Time spent waiting for a dispatch slot",
				Buckets: prometheus.DefBuckets,
			},
		),
		retriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lightup_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"method", "endpoint", "attempt"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lightup_errors_total",
				Help: "Total number of errors returned to callers",
			},
			[]string{"type", "method", "endpoint"},
		),
		registry: registry,
	}

	if registry != nil {
		mc.requestsTotal = register(registry, mc.requestsTotal)
		mc.requestDuration = register(registry, mc.requestDuration)
		mc.requestsInFlight = register(registry, mc.requestsInFlight)
		mc.queueActive = register(registry, mc.queueActive)
		mc.queuePending = register(registry, mc.queuePending)
		mc.queueWait = register(registry, mc.queueWait)
		mc.retriesTotal = register(registry, mc.retriesTotal)
		mc.errorsTotal = register(registry, mc.errorsTotal)
	}
	return mc
}

// register adds c to reg, returning the collector already registered under
// the same descriptor if there is one.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	err := reg.Register(c)
	if err == nil {
		return c
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}
	panic(err)
}

// RecordRequest records attempt count and duration.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}

	statusCodeStr := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, statusCodeStr, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, statusCodeStr, endpoint).Observe(duration.Seconds())
}

// RecordRequestStart increments in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd decrements in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordQueueState sets the dispatch queue gauges.
func (mc *MetricsCollector) RecordQueueState(active, pending int) {
	if mc == nil {
		return
	}

	mc.queueActive.Set(float64(active))
	mc.queuePending.Set(float64(pending))
}

// RecordQueueWait observes how long a request waited for its slot.
func (mc *MetricsCollector) RecordQueueWait(wait time.Duration) {
	if mc == nil {
		return
	}

	mc.queueWait.Observe(wait.Seconds())
}

// RecordRetry increments retry counter for an attempt.
func (mc *MetricsCollector) RecordRetry(method, endpoint string, attempt int) {
	if mc == nil {
		return
	}

	mc.retriesTotal.WithLabelValues(method, endpoint, strconv.Itoa(attempt)).Inc()
}

// RecordError increments error counter by type.
func (mc *MetricsCollector) RecordError(errorType, method, endpoint string) {
	if mc == nil {
		return
	}

	mc.errorsTotal.WithLabelValues(errorType, method, endpoint).Inc()
}

// GetRegistry exposes the underlying prometheus registry, or nil when the
// collector was built on a registerer that is not a *prometheus.Registry.
func (mc *MetricsCollector) GetRegistry() *prometheus.Registry {
	if mc == nil {
		return nil
	}
	reg, _ := mc.registry.(*prometheus.Registry)
	return reg
}
