package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

// idRouter records what a handler behind RequestID and CorrelationID sees.
func idRouter(seen *ports.RequestInfo, fromGin *[2]string) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), CorrelationID())
	router.GET("/quotes/:id", func(c *gin.Context) {
		*seen = ports.RequestInfoFrom(c.Request.Context())
		fromGin[0], fromGin[1] = GetRequestID(c), GetCorrelationID(c)
		c.Status(http.StatusOK)
	})

	return router
}

func TestRequestAndCorrelationID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		requestID       string
		correlationID   string
		wantRequest     string
		wantCorrelation string
	}{
		{
			name:            "both supplied",
			requestID:       "req-1",
			correlationID:   "checkout-42",
			wantRequest:     "req-1",
			wantCorrelation: "checkout-42",
		},
		{
			name:            "correlation defaults to request",
			requestID:       "req-2",
			wantRequest:     "req-2",
			wantCorrelation: "req-2",
		},
		{
			name:          "malformed ids are replaced",
			requestID:     "req 3\n",
			correlationID: strings.Repeat("c", maxIDLength+1),
		},
		{
			name: "both generated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var (
				seen    ports.RequestInfo
				fromGin [2]string
			)

			req := httptest.NewRequest(http.MethodGet, "/quotes/q-1", http.NoBody)
			if tt.requestID != "" {
				req.Header.Set(HeaderRequestID, tt.requestID)
			}

			if tt.correlationID != "" {
				req.Header.Set(HeaderCorrelationID, tt.correlationID)
			}

			w := serve(idRouter(&seen, &fromGin), req)
			require.Equal(t, http.StatusOK, w.Code)

			if tt.wantRequest != "" {
				assert.Equal(t, tt.wantRequest, seen.RequestID)
			} else {
				_, err := uuid.Parse(seen.RequestID)
				assert.NoError(t, err, "generated request id %q", seen.RequestID)
			}

			if tt.wantCorrelation != "" {
				assert.Equal(t, tt.wantCorrelation, seen.CorrelationID)
			} else {
				assert.Equal(t, seen.RequestID, seen.CorrelationID)
			}

			assert.Equal(t, [2]string{seen.RequestID, seen.CorrelationID}, fromGin)
			assert.Equal(t, seen.RequestID, w.Header().Get(HeaderRequestID))
			assert.Equal(t, seen.CorrelationID, w.Header().Get(HeaderCorrelationID))
		})
	}
}

func TestCorrelationID_WithoutRequestID(t *testing.T) {
	t.Parallel()

	var info ports.RequestInfo

	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/", func(c *gin.Context) {
		info = ports.RequestInfoFrom(c.Request.Context())
	})

	serve(router, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Empty(t, info.RequestID)
	_, err := uuid.Parse(info.CorrelationID)
	assert.NoError(t, err)
}

func TestValidID(t *testing.T) {
	t.Parallel()

	assert.True(t, validID("3f0c2a9e-1b7d-4c55-9a10-5c1e2f7d8b90"))
	assert.True(t, validID("checkout:42/step-3"))
	assert.False(t, validID(""))
	assert.False(t, validID("has space"))
	assert.False(t, validID("tab\there"))
	assert.False(t, validID("bell\a"))
	assert.False(t, validID(strings.Repeat("x", maxIDLength+1)))
}
