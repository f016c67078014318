package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockops/backend/internal/domain/shared"
	"github.com/stockops/backend/internal/interfaces/http/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	t.Run("from context", func(t *testing.T) {
		c, _ := newTestContext(t)
		c.Set("request_id", "ctx-request-id")

		assert.Equal(t, "ctx-request-id", getRequestID(c))
	})

	t.Run("from header when context empty", func(t *testing.T) {
		c, _ := newTestContext(t)
		c.Request.Header.Set("X-Request-ID", "header-request-id")

		assert.Equal(t, "header-request-id", getRequestID(c))
	})

	t.Run("empty when not set", func(t *testing.T) {
		c, _ := newTestContext(t)

		assert.Equal(t, "", getRequestID(c))
	})
}

func TestGetOperatorID(t *testing.T) {
	t.Run("valid claims", func(t *testing.T) {
		c, _ := newTestContext(t)
		operatorID := uuid.New()
		c.Set("jwt_operator_id", operatorID.String())

		got, err := getOperatorID(c)
		require.NoError(t, err)
		assert.Equal(t, operatorID, got)
	})

	t.Run("missing claims", func(t *testing.T) {
		c, _ := newTestContext(t)

		_, err := getOperatorID(c)
		assert.Error(t, err)
	})

	t.Run("malformed operator ID", func(t *testing.T) {
		c, _ := newTestContext(t)
		c.Set("jwt_operator_id", "not-a-uuid")

		_, err := getOperatorID(c)
		assert.Error(t, err)
	})
}

func TestBaseHandlerSuccess(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(t)

	h.Success(c, gin.H{"value": 42})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}

func TestBaseHandlerHandleError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedBody string
	}{
		{
			name:         "not found",
			err:          shared.ErrNotFound,
			expectedCode: http.StatusNotFound,
			expectedBody: "NOT_FOUND",
		},
		{
			name:         "insufficient stock",
			err:          shared.ErrInsufficientStock,
			expectedCode: http.StatusUnprocessableEntity,
			expectedBody: "INSUFFICIENT_STOCK",
		},
		{
			name:         "allocation mismatch",
			err:          shared.ErrAllocationMismatch,
			expectedCode: http.StatusUnprocessableEntity,
			expectedBody: "ALLOCATION_MISMATCH",
		},
		{
			name:         "stale allocation",
			err:          shared.ErrStaleAllocation,
			expectedCode: http.StatusConflict,
			expectedBody: "STALE_ALLOCATION",
		},
		{
			name:         "wrapped domain error",
			err:          fmt.Errorf("saving sale: %w", shared.ErrAlreadyExists),
			expectedCode: http.StatusConflict,
			expectedBody: "ALREADY_EXISTS",
		},
		{
			name:         "validation error",
			err:          shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive"),
			expectedCode: http.StatusBadRequest,
			expectedBody: "INVALID_QUANTITY",
		},
		{
			name:         "unknown error becomes internal",
			err:          errors.New("connection reset"),
			expectedCode: http.StatusInternalServerError,
			expectedBody: "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext(t)

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.expectedCode, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.expectedBody, resp.Error.Code)
		})
	}
}

func TestBaseHandlerHandleErrorNil(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(t)

	h.HandleError(c, nil)

	assert.Empty(t, w.Body.Bytes())
}

func TestBaseHandlerHandleErrorIncludesRequestID(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(t)
	c.Set("request_id", "req-123")

	h.HandleError(c, shared.ErrNotFound)

	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "req-123", resp.Error.RequestID)
}
