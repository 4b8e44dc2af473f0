package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-revisions/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-revisions/internal/platform/logging"
)

// captureLogs returns a JSON logger and a function decoding the lines it wrote.
func captureLogs(t *testing.T) (*slog.Logger, func() []map[string]any) {
	t.Helper()

	var buf bytes.Buffer

	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	return logger, func() []map[string]any {
		var lines []map[string]any

		for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
			if line == "" {
				continue
			}

			var entry map[string]any
			require.NoError(t, json.Unmarshal([]byte(line), &entry))

			lines = append(lines, entry)
		}

		return lines
	}
}

// withLogger seeds the request context with logger, as the server does.
func withLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))
		c.Next()
	}
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		wantLevel string
		wantRoute string
	}{
		{name: "success", path: "/api/v1/quotes/q-1", status: http.StatusOK, wantLevel: "INFO", wantRoute: "/api/v1/quotes/:id"},
		{name: "client error", path: "/api/v1/quotes/q-1", status: http.StatusConflict, wantLevel: "WARN", wantRoute: "/api/v1/quotes/:id"},
		{name: "server error", path: "/api/v1/quotes/q-1", status: http.StatusServiceUnavailable, wantLevel: "ERROR", wantRoute: "/api/v1/quotes/:id"},
		{name: "unmatched route", path: "/api/v1/nope", status: http.StatusNotFound, wantLevel: "WARN", wantRoute: "unmatched"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, lines := captureLogs(t)

			router := gin.New()
			router.Use(withLogger(logger), RequestID(), Logging(logger))
			router.GET("/api/v1/quotes/:id", RequireAuth(nil), RequireTenant(nil), func(c *gin.Context) {
				c.Status(tt.status)
			})

			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			req.Header.Set("X-User-ID", "user-1")
			req.Header.Set("X-Tenant-ID", "tenant-a")
			req.Header.Set(HeaderRequestID, "req-1")

			serve(router, req)

			got := lines()
			require.Len(t, got, 1)

			entry := got[0]
			assert.Equal(t, "request completed", entry["msg"])
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, tt.wantRoute, entry["route"])
			assert.Equal(t, tt.path, entry["path"])
			assert.InDelta(t, tt.status, entry["status"], 0)
			assert.Equal(t, "req-1", entry["request_id"])

			if tt.wantRoute != "unmatched" {
				assert.Equal(t, "tenant-a", entry["tenant_id"], "tenant attrs added after Logging still appear")
				assert.Equal(t, "user-1", entry["user_id"])
			}
		})
	}
}

func TestLogging_SkipsProbes(t *testing.T) {
	logger, lines := captureLogs(t)

	router := gin.New()
	router.Use(withLogger(logger), Logging(logger))
	router.GET("/-/ready", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

	serve(router, httptest.NewRequest(http.MethodGet, "/-/ready", http.NoBody))

	assert.Empty(t, lines())
}

func TestLogging_FallsBackToGivenLogger(t *testing.T) {
	logger, lines := captureLogs(t)

	router := gin.New()
	router.Use(Logging(logger))
	router.GET("/api/v1/bundles/:id/members", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
		c.Status(http.StatusInternalServerError)
	})

	serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/bundles/b-1/members", http.NoBody))

	got := lines()
	require.Len(t, got, 1)
	assert.Equal(t, "ERROR", got[0]["level"])
	assert.Contains(t, got[0]["errors"], assert.AnError.Error())
}

func TestRecovery(t *testing.T) {
	logger, lines := captureLogs(t)

	router := gin.New()
	router.Use(Recovery(logger))
	router.POST("/api/v1/quotes/:id/activate", func(*gin.Context) {
		panic("nil revision")
	})

	c := httptest.NewRequest(http.MethodPost, "/api/v1/quotes/q-1/activate", http.NoBody)
	w := serve(router, c)

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrorCodeInternal, resp.Error.Code)
	assert.Equal(t, dto.MessageInternal, resp.Error.Message)
	assert.NotContains(t, w.Body.String(), "nil revision")

	got := lines()
	require.Len(t, got, 1)
	assert.Equal(t, "panic recovered", got[0]["msg"])
	assert.Equal(t, "nil revision", got[0]["panic"])
	assert.Equal(t, "/api/v1/quotes/:id/activate", got[0]["route"])
	assert.Contains(t, got[0]["stack"], "runtime/debug.Stack")
}

func TestRecovery_AfterBodyWritten(t *testing.T) {
	logger, _ := captureLogs(t)

	router := gin.New()
	router.Use(Recovery(logger))
	router.GET("/stream", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("late")
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/stream", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "partial", w.Body.String())
}

func TestRequestTimeout(t *testing.T) {
	t.Run("sets a deadline", func(t *testing.T) {
		var (
			deadline time.Time
			ok       bool
		)

		router := gin.New()
		router.Use(RequestTimeout(5 * time.Second))
		router.GET("/", func(c *gin.Context) {
			deadline, ok = c.Request.Context().Deadline()
		})

		serve(router, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(5*time.Second), deadline, time.Second)
	})

	t.Run("expired deadline answers 504", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestTimeout(time.Millisecond))
		router.GET("/api/v1/lineages/:rootId", func(c *gin.Context) {
			<-c.Request.Context().Done()
			dto.HandleError(c, c.Request.Context().Err())
		})

		w := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/lineages/q-1", http.NoBody))

		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrorCodeTimeout)
	})

	t.Run("disabled", func(t *testing.T) {
		var hasDeadline bool

		router := gin.New()
		router.Use(RequestTimeout(0))
		router.GET("/", func(c *gin.Context) {
			_, hasDeadline = c.Request.Context().Deadline()
		})

		serve(router, httptest.NewRequest(http.MethodGet, "/", http.NoBody).WithContext(context.Background()))

		assert.False(t, hasDeadline)
	})
}
