// Package handlers holds the gin handlers for the revision API and the /-/ probes.
package handlers

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

// ProbePrefix is the route group for probes, build info and metrics.
const ProbePrefix = "/-"

// BuildInfo identifies the running binary. Values come from ldflags.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

// NewBuildInfo fills in the toolchain version.
func NewBuildInfo(version, commit, buildTime string) BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}
}

// HealthHandler serves the probe endpoints. It never touches the revision API.
type HealthHandler struct {
	registry ports.HealthRegistry
	build    BuildInfo
	metrics  http.Handler
}

// NewHealthHandler returns a handler reporting on registry. A nil registry
// reports healthy with no checks.
func NewHealthHandler(registry ports.HealthRegistry, build BuildInfo) *HealthHandler {
	return &HealthHandler{
		registry: registry,
		build:    build,
		metrics:  promhttp.Handler(),
	}
}

// Live answers as long as the process can serve HTTP.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type readyResponse struct {
	Status  ports.HealthStatus            `json:"status"`
	Version string                        `json:"version,omitempty"`
	Checks  map[string]*ports.CheckResult `json:"checks,omitempty"`
}

// Ready reports the store, audit sink and archive. Only an unhealthy result
// answers 503; a degraded service keeps receiving traffic because revisions
// still commit while audit delivery or exports are down.
func (h *HealthHandler) Ready(c *gin.Context) {
	resp := readyResponse{Status: ports.HealthStatusHealthy, Version: h.build.Version}

	if h.registry != nil {
		result := h.registry.CheckAll(c.Request.Context())
		resp.Status = result.Status
		resp.Checks = result.Checks
	}

	code := http.StatusOK
	if resp.Status == ports.HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(code, resp)
}

// Build returns the BuildInfo.
func (h *HealthHandler) Build(c *gin.Context) {
	c.JSON(http.StatusOK, h.build)
}

// Register mounts live, ready, build and metrics under ProbePrefix.
func (h *HealthHandler) Register(r gin.IRouter) {
	probes := r.Group(ProbePrefix)
	probes.GET("/live", h.Live)
	probes.GET("/ready", h.Ready)
	probes.GET("/build", h.Build)
	probes.GET("/metrics", gin.WrapH(h.metrics))
}
