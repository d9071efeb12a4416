package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"freeshare/internal/observability"
)

// RequestIDKey is the gin context key holding the correlation id.
const RequestIDKey = "request_id"

// RequestID reuses the caller's X-Request-ID or mints one, and echoes it back.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := observability.RequestIDFromRequest(c.Request)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(observability.RequestIDHeader, id)
		c.Next()
	}
}
