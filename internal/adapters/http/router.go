package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/quote-revisions/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-revisions/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-revisions/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-revisions/internal/platform/config"
	"github.com/jsamuelsen/quote-revisions/internal/platform/telemetry"
)

// APIPrefix is the route group of the revision API.
const APIPrefix = "/api/v1"

// MessageNoRoute is returned for paths nothing is mounted on.
const MessageNoRoute = "no such endpoint"

// Routes lists what Mount puts on an engine. Nil handlers are skipped.
type Routes struct {
	Logger *slog.Logger

	// Auth names the gateway headers carrying subject, tenant and scopes.
	// Nil uses the middleware defaults.
	Auth *config.AuthConfig

	// ServiceName names the tracer.
	ServiceName string

	// Metrics records API requests. Nil registers them with the default
	// Prometheus registry, which /-/metrics serves.
	Metrics *telemetry.HTTPMetrics

	Health    *handlers.HealthHandler
	Revisions *handlers.RevisionHandler

	// RequestTimeout bounds each API request. Zero disables it.
	RequestTimeout time.Duration
}

// Mount installs the middleware chain and every route. The chain runs
// recovery first so a panic anywhere below still gets an error envelope,
// then assigns request and correlation IDs so the span, the request log and
// the audit events all carry them.
func (r Routes) Mount(engine *gin.Engine) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engine.Use(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
		telemetry.Tracing(r.ServiceName),
		telemetry.TraceContext(),
	)

	if metrics := r.httpMetrics(logger); metrics != nil {
		engine.Use(metrics.Middleware())
	}

	engine.Use(middleware.Logging(logger))

	engine.NoRoute(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusNotFound,
			dto.NewErrorResponse(dto.ErrorCodeNotFound, MessageNoRoute).WithTraceID(dto.GetTraceID(c)))
	})

	if r.Health != nil {
		r.Health.Register(engine)
	}

	if r.Revisions == nil {
		return
	}

	api := engine.Group(APIPrefix,
		middleware.RequestTimeout(r.RequestTimeout),
		middleware.RequireAuth(r.Auth),
		middleware.RequireTenant(r.Auth),
	)

	r.Revisions.RegisterRevisionRoutes(api, middleware.RequireExport(r.Auth))
}

func (r Routes) httpMetrics(logger *slog.Logger) *telemetry.HTTPMetrics {
	if r.Metrics != nil {
		return r.Metrics
	}

	metrics, err := telemetry.NewHTTPMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Warn("http metrics disabled", slog.Any("error", err))
		return nil
	}

	return metrics
}
