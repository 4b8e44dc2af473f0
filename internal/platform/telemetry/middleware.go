package telemetry

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quote-revisions/internal/platform/logging"
)

const (
	instrumentationName = "github.com/jsamuelsen/quote-revisions/telemetry"

	// HeaderTraceID carries the trace ID back to the caller.
	HeaderTraceID = "X-Trace-ID"

	probePrefix    = "/-/"
	unmatchedRoute = "unmatched"
)

func isProbe(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, probePrefix)
}

func route(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}

	return unmatchedRoute
}

// Tracing starts a server span per request, named "METHOD /route", using
// the global tracer provider. Probes are not traced.
func Tracing(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName,
		otelgin.WithGinFilter(func(c *gin.Context) bool { return !isProbe(c) }),
		otelgin.WithSpanNameFormatter(func(c *gin.Context) string {
			return c.Request.Method + " " + route(c)
		}),
	)
}

// TraceContext echoes the active trace ID in HeaderTraceID and adds
// trace_id and span_id to the request logger. It must run inside the span,
// i.e. after Tracing.
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		sc := trace.SpanContextFromContext(c.Request.Context())
		if sc.HasTraceID() {
			c.Header(HeaderTraceID, sc.TraceID().String())

			ctx := logging.With(c.Request.Context(),
				slog.String("trace_id", sc.TraceID().String()),
				slog.String("span_id", sc.SpanID().String()),
			)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()
	}
}

// HTTPMetrics are the Prometheus request metrics served on /-/metrics.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewHTTPMetrics registers the request metrics with reg. Registering twice
// with the same reg reuses the first collectors.
func NewHTTPMetrics(reg prometheus.Registerer) (*HTTPMetrics, error) {
	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quote_revisions",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "API requests by method, route and status.",
	}, []string{"method", "route", "status"}))
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "quote_revisions",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "API request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"}))
	if err != nil {
		return nil, err
	}

	inFlight, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "quote_revisions",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "API requests being served.",
	}))
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{requests: requests, duration: duration, inFlight: inFlight}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing, nil
		}
	}

	return c, err
}

// Middleware records every non-probe request. Routes are the gin patterns,
// so IDs in paths do not explode label cardinality.
func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isProbe(c) {
			c.Next()
			return
		}

		m.inFlight.Inc()
		defer m.inFlight.Dec()

		start := time.Now()

		c.Next()

		r := route(c)
		m.requests.WithLabelValues(c.Request.Method, r, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, r).Observe(time.Since(start).Seconds())
	}
}
