package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"freeshare/internal/middleware"
	"freeshare/internal/models"
	"freeshare/internal/observability"
)

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(middleware.RequestIDKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader(observability.RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(middleware.RequestIDKey, requestID)
	return requestID
}

// userIDFromContext is empty for anonymous callers.
func userIDFromContext(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}

func userFromContext(c *gin.Context) (models.User, bool) {
	val, ok := c.Get(middleware.UserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}

// EventEmitter publishes domain events best effort.
type EventEmitter interface {
	Emit(ctx context.Context, eventType, requestID, userID string, payload any)
}

func emit(c *gin.Context, events EventEmitter, eventType string, payload any) {
	if events == nil {
		return
	}
	events.Emit(c.Request.Context(), eventType, requestIDFromContext(c), userIDFromContext(c), payload)
}
