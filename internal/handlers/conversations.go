package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"freeshare/internal/events"
	"freeshare/internal/models"
	"freeshare/internal/observability"
	"freeshare/internal/repositories"
)

// Broadcaster pushes conversation events to connected websocket clients.
type Broadcaster interface {
	BroadcastMessage(conversationID string, msg models.Message)
	BroadcastRead(conversationID, readerID string)
}

// ConversationHandler serves /api/conversations and /api/messages.
type ConversationHandler struct {
	conversations repositories.ConversationRepository
	items         repositories.ItemRepository
	users         repositories.UserRepository
	hub           Broadcaster
	events        EventEmitter
}

// NewConversationHandler builds a ConversationHandler. hub may be nil.
func NewConversationHandler(conversations repositories.ConversationRepository, items repositories.ItemRepository, users repositories.UserRepository, hub Broadcaster, events EventEmitter) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		items:         items,
		users:         users,
		hub:           hub,
		events:        events,
	}
}

// List handles GET /api/conversations.
func (h *ConversationHandler) List(c *gin.Context) {
	limit, offset, err := bindPage(c, models.DefaultPageSize)
	if err != nil {
		respondError(c, http.StatusBadRequest, queryMessage(err))
		return
	}

	convs, total, err := h.conversations.ListForUser(c.Request.Context(), userIDFromContext(c), limit, offset)
	if err != nil {
		internalError(c, err, "Failed to load conversations")
		return
	}
	respondPage(c, convs, models.NewPagination(total, limit, offset, len(convs)))
}

// Get handles GET /api/conversations/:id.
func (h *ConversationHandler) Get(c *gin.Context) {
	conv, err := h.conversations.FindByID(c.Request.Context(), c.Param("id"), userIDFromContext(c))
	if errors.Is(err, repositories.ErrConversationNotFound) {
		respondError(c, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		internalError(c, err, "Failed to load conversation")
		return
	}
	respond(c, http.StatusOK, conv)
}

// Create handles POST /api/conversations. Starting a conversation that
// already exists appends the message to it.
func (h *ConversationHandler) Create(c *gin.Context) {
	var req models.ConversationCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, createConversationMessage(err))
		return
	}
	content := strings.TrimSpace(req.InitialMessage)
	if content == "" {
		respondError(c, http.StatusBadRequest, "itemId, participantId, and initialMessage are required")
		return
	}

	ctx := c.Request.Context()
	userID := userIDFromContext(c)
	if req.ParticipantID == userID {
		respondError(c, http.StatusBadRequest, "Cannot start conversation with yourself")
		return
	}

	exists, err := h.items.Exists(ctx, req.ItemID)
	if err != nil {
		internalError(c, err, "Failed to start conversation")
		return
	}
	if !exists {
		respondError(c, http.StatusNotFound, "Item not found")
		return
	}

	if _, err := h.users.FindByID(ctx, req.ParticipantID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "User not found")
			return
		}
		internalError(c, err, "Failed to start conversation")
		return
	}

	conv, msg, created, err := h.conversations.CreateConversation(ctx, req.ItemID, userID, req.ParticipantID, content)
	if errors.Is(err, repositories.ErrSelfConversation) {
		respondError(c, http.StatusBadRequest, "Cannot start conversation with yourself")
		return
	}
	if err != nil {
		internalError(c, err, "Failed to start conversation")
		return
	}

	if created {
		emit(c, h.events, events.ConversationStarted, events.ConversationPayload{
			ConversationID: conv.ID,
			ItemID:         conv.ItemID,
			RecipientID:    req.ParticipantID,
		})
	}
	h.messageSent(c, msg)
	respond(c, http.StatusCreated, conv)
}

func createConversationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "required" {
		return "itemId, participantId, and initialMessage are required"
	}
	return validationMessage(err)
}

// Messages handles GET /api/conversations/:id/messages.
func (h *ConversationHandler) Messages(c *gin.Context) {
	limit, offset, err := bindPage(c, models.DefaultMessagePage)
	if err != nil {
		respondError(c, http.StatusBadRequest, queryMessage(err))
		return
	}

	msgs, total, err := h.conversations.ListMessages(c.Request.Context(), c.Param("id"), userIDFromContext(c), limit, offset)
	if errors.Is(err, repositories.ErrConversationNotFound) {
		respondError(c, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		internalError(c, err, "Failed to load messages")
		return
	}
	respondPage(c, msgs, models.NewPagination(total, limit, offset, len(msgs)))
}

// Send handles POST /api/conversations/:id/messages.
func (h *ConversationHandler) Send(c *gin.Context) {
	var req models.MessageCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, validationMessage(err))
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(c, http.StatusBadRequest, "Message content is required")
		return
	}

	msg, err := h.conversations.CreateMessage(c.Request.Context(), c.Param("id"), userIDFromContext(c), content)
	if errors.Is(err, repositories.ErrConversationNotFound) {
		respondError(c, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		internalError(c, err, "Failed to send message")
		return
	}

	h.messageSent(c, msg)
	respond(c, http.StatusCreated, msg)
}

func (h *ConversationHandler) messageSent(c *gin.Context, msg models.Message) {
	observability.IncMessageSent()
	if h.hub != nil {
		h.hub.BroadcastMessage(msg.ConversationID, msg)
	}
	emit(c, h.events, events.MessageSent, events.MessagePayload{
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		SenderID:       msg.SenderID,
	})
}

// MarkRead handles POST /api/conversations/:id/read.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	id := c.Param("id")
	userID := userIDFromContext(c)

	n, err := h.conversations.MarkRead(c.Request.Context(), id, userID)
	if errors.Is(err, repositories.ErrConversationNotFound) {
		respondError(c, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		internalError(c, err, "Failed to mark messages as read")
		return
	}

	if n > 0 && h.hub != nil {
		h.hub.BroadcastRead(id, userID)
	}
	c.JSON(http.StatusOK, Envelope{Success: true})
}

type unreadCountResponse struct {
	Count int `json:"count"`
}

// UnreadCount handles GET /api/messages/unread-count.
func (h *ConversationHandler) UnreadCount(c *gin.Context) {
	count, err := h.conversations.UnreadCount(c.Request.Context(), userIDFromContext(c))
	if err != nil {
		internalError(c, err, "Failed to count unread messages")
		return
	}
	respond(c, http.StatusOK, unreadCountResponse{Count: count})
}
