package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"freeshare/internal/auth"
	"freeshare/internal/models"
)

// Context keys set by the auth middlewares.
const (
	UserIDKey = "userID"
	UserKey   = "user"
	TokenKey  = "token"
)

// SessionValidator resolves a bearer token to its user.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (models.User, error)
}

// RequireAuth rejects requests without a valid bearer session. Storage
// failures while validating are a 500, not a 401.
func RequireAuth(sessions SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
			return
		}

		user, err := sessions.ValidateSession(c.Request.Context(), token)
		if errors.Is(err, auth.ErrInvalidSession) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid session"})
			return
		}
		if err != nil {
			log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("validate session")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
			return
		}

		setIdentity(c, user, token)
		c.Next()
	}
}

// OptionalAuth attaches the caller's identity when a valid token is present
// and lets the request through either way.
func OptionalAuth(sessions SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := BearerToken(c.GetHeader("Authorization")); ok {
			user, err := sessions.ValidateSession(c.Request.Context(), token)
			switch {
			case err == nil:
				setIdentity(c, user, token)
			case !errors.Is(err, auth.ErrInvalidSession):
				log.Warn().Err(err).Msg("optional auth: validate session")
			}
		}
		c.Next()
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func setIdentity(c *gin.Context, user models.User, token string) {
	c.Set(UserIDKey, user.ID)
	c.Set(UserKey, user)
	c.Set(TokenKey, token)
}
