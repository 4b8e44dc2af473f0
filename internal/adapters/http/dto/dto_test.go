package dto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-revisions/internal/domain"
	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestErrorResponse_JSONShape(t *testing.T) {
	resp := NewErrorResponseWithDetails(ErrorCodeValidation, "request validation failed",
		map[string]string{"customerId": "this field is required"}).WithTraceID("trace-1")

	body, err := json.Marshal(resp)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"error": {
			"code": "VALIDATION_ERROR",
			"message": "request validation failed",
			"details": {"customerId": "this field is required"}
		},
		"traceId": "trace-1"
	}`, string(body))

	body, err = json.Marshal(NewErrorResponse(ErrorCodeNotFound, MessageNotAccessible))
	require.NoError(t, err)
	assert.NotContains(t, string(body), "details")
	assert.NotContains(t, string(body), "traceId")
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
		wantDetails map[string]string
	}{
		{
			name:        "missing revision",
			err:         domain.NewNotFoundError("quote revision", "rev-1"),
			wantStatus:  http.StatusNotFound,
			wantCode:    ErrorCodeNotFound,
			wantMessage: MessageNotAccessible,
		},
		{
			name:        "other tenant looks missing",
			err:         domain.NewForbiddenError("get revision", "revision belongs to another tenant"),
			wantStatus:  http.StatusNotFound,
			wantCode:    ErrorCodeNotFound,
			wantMessage: MessageNotAccessible,
		},
		{
			name:        "exhausted retries",
			err:         fmt.Errorf("activating: %w", domain.NewConflictError("quote revision", "version already taken")),
			wantStatus:  http.StatusConflict,
			wantCode:    ErrorCodeConflict,
			wantMessage: MessageRetry,
		},
		{
			name:        "bad seed field",
			err:         domain.NewInvalidInputError("tenantId", "is required"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    ErrorCodeValidation,
			wantMessage: "tenantId",
			wantDetails: map[string]string{"tenantId": "is required"},
		},
		{
			name:        "bundle rejected",
			err:         domain.NewInvalidBundleError("bundle-1", "container belongs to another tenant"),
			wantStatus:  http.StatusUnprocessableEntity,
			wantCode:    ErrorCodeInvalidBundle,
			wantMessage: "bundle-1",
		},
		{
			name:        "activating a closed revision",
			err:         domain.NewInvalidStateError("activate", "rev-1", domain.StatusAccepted),
			wantStatus:  http.StatusConflict,
			wantCode:    ErrorCodeInvalidState,
			wantMessage: MessageNotActivatable,
			wantDetails: map[string]string{"status": "ACCEPTED"},
		},
		{
			name:        "closing a closed revision",
			err:         domain.NewInvalidStateError("close", "rev-1", domain.StatusRejected),
			wantStatus:  http.StatusConflict,
			wantCode:    ErrorCodeInvalidState,
			wantMessage: "cannot close",
			wantDetails: map[string]string{"status": "REJECTED"},
		},
		{
			name:        "store unreachable",
			err:         domain.NewUnavailableError("database", "connection refused"),
			wantStatus:  http.StatusServiceUnavailable,
			wantCode:    ErrorCodeUnavailable,
			wantMessage: MessageUnavailable,
		},
		{
			name:        "request deadline",
			err:         fmt.Errorf("loading lineage: %w", context.DeadlineExceeded),
			wantStatus:  http.StatusGatewayTimeout,
			wantCode:    ErrorCodeTimeout,
			wantMessage: MessageTimeout,
		},
		{
			name:        "anything else",
			err:         errors.New("pq: relation does not exist"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    ErrorCodeInternal,
			wantMessage: MessageInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/quotes/rev-1", http.NoBody)
			c.Set("trace_id", "trace-1")

			HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.True(t, c.IsAborted())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Contains(t, resp.Error.Message, tt.wantMessage)
			assert.Equal(t, tt.wantDetails, resp.Error.Details)
			assert.Equal(t, "trace-1", resp.TraceID)
			assert.NotContains(t, w.Body.String(), "pq:", "internal detail stays in the log")
		})
	}
}

func TestGetTraceID(t *testing.T) {
	newContext := func(ctx context.Context) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", http.NoBody).WithContext(ctx)

		return c
	}

	t.Run("explicit value wins", func(t *testing.T) {
		c := newContext(ports.WithRequestInfo(context.Background(), ports.RequestInfo{RequestID: "req-1"}))
		c.Set("trace_id", "trace-1")

		assert.Equal(t, "trace-1", GetTraceID(c))
	})

	t.Run("falls back to the request id", func(t *testing.T) {
		c := newContext(ports.WithRequestInfo(context.Background(), ports.RequestInfo{RequestID: "req-1"}))

		assert.Equal(t, "req-1", GetTraceID(c))
	})

	t.Run("nothing known", func(t *testing.T) {
		assert.Empty(t, GetTraceID(newContext(context.Background())))
	})

	t.Run("no request", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		assert.Empty(t, GetTraceID(c))
	})
}

func TestValidator_IsShared(t *testing.T) {
	assert.Same(t, Validator(), Validator())
}

func TestValidate_BeginLineageRequest(t *testing.T) {
	valid := func() *BeginLineageRequest {
		return &BeginLineageRequest{CustomerID: "cust-1", TotalAmount: "1250.00", DiscountAmount: "-50"}
	}

	tests := []struct {
		name   string
		mutate func(r *BeginLineageRequest)
		want   map[string]string
	}{
		{
			name:   "valid",
			mutate: func(*BeginLineageRequest) {},
		},
		{
			name:   "customer missing",
			mutate: func(r *BeginLineageRequest) { r.CustomerID = "" },
			want:   map[string]string{"customerId": "this field is required"},
		},
		{
			name:   "customer blank",
			mutate: func(r *BeginLineageRequest) { r.CustomerID = "   " },
			want:   map[string]string{"customerId": "must not be empty"},
		},
		{
			name:   "amount not decimal",
			mutate: func(r *BeginLineageRequest) { r.TotalAmount = "12,50" },
			want:   map[string]string{"totalAmount": "must be a decimal number such as 1250.00"},
		},
		{
			name:   "title too long",
			mutate: func(r *BeginLineageRequest) { r.Title = strings.Repeat("x", 257) },
			want:   map[string]string{"title": "must be at most 256 characters"},
		},
		{
			name:   "blank bundle reference",
			mutate: func(r *BeginLineageRequest) { r.BundleID = new(string) },
			want:   map[string]string{"bundleId": "must not be empty"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)

			err := Validate(req)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, tt.want, ValidationErrors(err))
		})
	}
}

func TestValidate_NextVersionRequest(t *testing.T) {
	bad := "abc"
	ok := "99.5"

	require.NoError(t, Validate(&NextVersionRequest{}))
	require.NoError(t, Validate(&NextVersionRequest{FinalAmount: &ok}))

	err := Validate(&NextVersionRequest{FinalAmount: &bad})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, ValidationErrors(err), "finalAmount")
}

func TestBindAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{name: "valid", body: `{"customerId":"cust-1","totalAmount":"10"}`},
		{name: "not json", body: `{customerId}`, wantErr: ErrBinding},
		{name: "wrong type", body: `{"customerId":42}`, wantErr: ErrBinding},
		{name: "fails tags", body: `{"totalAmount":"10"}`, wantErr: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var req BeginLineageRequest

			err := BindAndValidate(c, &req)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, "cust-1", req.CustomerID)

				return
			}

			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidationErrors_NonValidatorError(t *testing.T) {
	assert.Empty(t, ValidationErrors(errors.New("boom")))
}

func TestValidationMessage_Bounds(t *testing.T) {
	type bounded struct {
		Code  string `json:"code"  validate:"min=3"`
		Count int    `json:"count" validate:"max=5"`
		Kind  string `json:"kind"  validate:"oneof=a b"`
		Any   string `json:"any"   validate:"email"`
	}

	err := Validate(&bounded{Code: "ab", Count: 6, Kind: "c", Any: "x"})
	require.Error(t, err)

	assert.Equal(t, map[string]string{
		"code":  "must be at least 3 characters",
		"count": "must be at most 5",
		"kind":  "must be one of: a b",
		"any":   "failed validation: email",
	}, ValidationErrors(err))
}
