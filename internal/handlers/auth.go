package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"freeshare/internal/events"
	"freeshare/internal/middleware"
	"freeshare/internal/models"
	"freeshare/internal/oauth"
	"freeshare/internal/observability"
)

// AuthService is the session side of authentication.
type AuthService interface {
	RevokeSession(ctx context.Context, token string) error
	HandleOAuthCallback(ctx context.Context, provider string, profile models.OAuthProfile) (models.User, models.AuthSession, error)
	CreateDemoUser(ctx context.Context, name string) (models.User, models.AuthSession, error)
}

// OAuthFlow drives the provider redirect and code exchange.
type OAuthFlow interface {
	Enabled(p oauth.Provider) bool
	AuthURL(p oauth.Provider) (string, error)
	Exchange(ctx context.Context, p oauth.Provider, code, state string) (models.OAuthProfile, error)
}

// AuthHandler serves /api/auth.
type AuthHandler struct {
	auth        AuthService
	oauth       OAuthFlow
	events      EventEmitter
	frontendURL string
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(auth AuthService, flow OAuthFlow, events EventEmitter, frontendURL string) *AuthHandler {
	if frontendURL == "" {
		frontendURL = "/"
	}
	return &AuthHandler{
		auth:        auth,
		oauth:       flow,
		events:      events,
		frontendURL: frontendURL,
	}
}

type demoLoginRequest struct {
	Name string `json:"name" binding:"max=80"`
}

type loginResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Demo handles POST /api/auth/demo.
func (h *AuthHandler) Demo(c *gin.Context) {
	var req demoLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, validationMessage(err))
		return
	}
	name := strings.TrimSpace(req.Name)
	if len(name) < 2 {
		respondError(c, http.StatusBadRequest, "Name must be at least 2 characters")
		return
	}

	user, session, err := h.auth.CreateDemoUser(c.Request.Context(), name)
	if err != nil {
		internalError(c, err, "Failed to create demo user")
		return
	}

	c.Set(middleware.UserIDKey, user.ID)
	observability.IncLogin("demo")
	emit(c, h.events, events.SessionCreated, events.SessionPayload{Provider: "demo"})
	respond(c, http.StatusOK, loginResponse{User: user, Token: session.Token})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := userFromContext(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	respond(c, http.StatusOK, user)
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetString(middleware.TokenKey)
	if token != "" {
		if err := h.auth.RevokeSession(c.Request.Context(), token); err != nil {
			internalError(c, err, "Failed to log out")
			return
		}
		emit(c, h.events, events.SessionRevoked, events.SessionPayload{})
	}
	c.JSON(http.StatusOK, Envelope{Success: true})
}

// Redirect handles GET /api/auth/:provider.
func (h *AuthHandler) Redirect(c *gin.Context) {
	provider, ok := oauth.ParseProvider(c.Param("provider"))
	if !ok {
		respondError(c, http.StatusBadRequest, "Invalid provider")
		return
	}
	if !h.oauth.Enabled(provider) {
		respondError(c, http.StatusBadRequest, "Provider not configured")
		return
	}

	url, err := h.oauth.AuthURL(provider)
	if errors.Is(err, oauth.ErrProviderDisabled) {
		respondError(c, http.StatusBadRequest, "Provider not configured")
		return
	}
	if err != nil {
		internalError(c, err, "Failed to start login")
		return
	}
	c.Redirect(http.StatusFound, url)
}

// Callback handles the provider redirect back to us. Apple posts the
// result as a form, the others use the query string.
func (h *AuthHandler) Callback(c *gin.Context) {
	provider, ok := oauth.ParseProvider(c.Param("provider"))
	if !ok {
		respondError(c, http.StatusBadRequest, "Invalid provider")
		return
	}

	if reason := callbackParam(c, "error"); reason != "" {
		h.loginFailed(c, reason)
		return
	}

	code := callbackParam(c, "code")
	if code == "" {
		respondError(c, http.StatusBadRequest, "No code provided")
		return
	}

	ctx := c.Request.Context()
	profile, err := h.oauth.Exchange(ctx, provider, code, callbackParam(c, "state"))
	if err != nil {
		log.Warn().Err(err).Str("provider", string(provider)).Str("request_id", requestIDFromContext(c)).Msg("oauth exchange failed")
		h.loginFailed(c, loginFailureReason(err))
		return
	}

	user, session, err := h.auth.HandleOAuthCallback(ctx, string(provider), profile)
	if err != nil {
		log.Error().Err(err).Str("provider", string(provider)).Str("request_id", requestIDFromContext(c)).Msg("oauth login failed")
		h.loginFailed(c, "Could not sign you in")
		return
	}

	c.Set(middleware.UserIDKey, user.ID)
	observability.IncLogin(string(provider))
	emit(c, h.events, events.SessionCreated, events.SessionPayload{Provider: string(provider)})
	c.HTML(http.StatusOK, loginSuccessTemplate, gin.H{
		"StorageKey":  TokenStorageKey,
		"Token":       session.Token,
		"RedirectURL": h.frontendURL,
	})
}

func (h *AuthHandler) loginFailed(c *gin.Context, reason string) {
	c.HTML(http.StatusOK, loginFailedTemplate, gin.H{
		"Reason":  reason,
		"HomeURL": h.frontendURL,
	})
}

func loginFailureReason(err error) string {
	switch {
	case errors.Is(err, oauth.ErrInvalidState):
		return "Login session expired, please try again"
	case errors.Is(err, oauth.ErrProviderDisabled):
		return "Provider not configured"
	default:
		return "Could not sign you in"
	}
}

func callbackParam(c *gin.Context, key string) string {
	if v := c.Query(key); v != "" {
		return v
	}
	return c.PostForm(key)
}
