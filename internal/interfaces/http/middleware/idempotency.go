package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stockops/backend/internal/infrastructure/cache"
	"github.com/stockops/backend/internal/interfaces/http/dto"
)

// IdempotencyKeyHeader is the header clients use to make mutating requests replay-safe
const IdempotencyKeyHeader = "Idempotency-Key"

// IdempotencyConfig holds configuration for the idempotency middleware
type IdempotencyConfig struct {
	Store  cache.IdempotencyStore
	TTL    time.Duration
	Logger *zap.Logger
}

// Idempotency rejects replays of mutating requests that carry an
// Idempotency-Key header already seen within the TTL window. Requests
// without the header pass through untouched; GET and other safe methods
// are never checked.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		// Scope the key by method and path so the same key can be reused
		// across different endpoints.
		scopedKey := c.Request.Method + ":" + c.Request.URL.Path + ":" + key

		fresh, err := cfg.Store.MarkProcessed(c.Request.Context(), scopedKey, cfg.TTL)
		if err != nil {
			// Fail open: a degraded idempotency store must not block writes
			if cfg.Logger != nil {
				cfg.Logger.Error("idempotency store unavailable",
					zap.Error(err),
					zap.String("path", c.Request.URL.Path),
				)
			}
			c.Next()
			return
		}

		if !fresh {
			requestID := c.GetString("request_id")
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponse(
				"DUPLICATE_REQUEST",
				"A request with this idempotency key has already been processed",
				requestID,
			))
			return
		}

		c.Next()
	}
}
