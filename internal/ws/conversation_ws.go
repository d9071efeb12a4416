package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"freeshare/internal/auth"
	"freeshare/internal/models"
	"freeshare/internal/observability"
)

// SessionValidator resolves a bearer token to its user.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (models.User, error)
}

// ParticipantChecker reports conversation membership.
type ParticipantChecker interface {
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
}

// ConversationWebSocketHandler handles conversation websocket connections.
type ConversationWebSocketHandler struct {
	hub           *Hub
	conversations ParticipantChecker
	sessions      SessionValidator
}

// NewConversationWebSocketHandler constructs a ConversationWebSocketHandler.
func NewConversationWebSocketHandler(hub *Hub, conversations ParticipantChecker, sessions SessionValidator) *ConversationWebSocketHandler {
	return &ConversationWebSocketHandler{hub: hub, conversations: conversations, sessions: sessions}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers the client. Browsers cannot
// set headers on websocket requests, so the token may come in the query.
func (h *ConversationWebSocketHandler) Handle(c *gin.Context) {
	conversationID := c.Param("id")

	ctx, span := otel.Tracer("freeshare/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.Query("token")
	if header := c.GetHeader("Authorization"); header != "" {
		if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			token = parts[1]
		}
	}

	user, err := h.sessions.ValidateSession(ctx, token)
	if errors.Is(err, auth.ErrInvalidSession) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid session"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("ws validate session")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
		return
	}

	member, err := h.conversations.IsParticipant(ctx, conversationID, user.ID)
	if err != nil || !member {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Conversation not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      user.ID,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(conversationID, conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	log.Debug().Str("conversation_id", conversationID).Str("conn_id", info.ConnID).Str("user_id", info.UserID).Msg("websocket connected")

	// the client only listens; reads detect disconnects
	go func() {
		defer func() {
			h.hub.RemoveClient(conversationID, conn)
			observability.DecWSActive()
			observability.IncWSEvent("ws_disconnect")
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("ws_error")
					log.Debug().Err(err).Str("conn_id", info.ConnID).Msg("websocket read error")
				}
				return
			}
		}
	}()
}
