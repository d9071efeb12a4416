package events

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Event types published by the API.
const (
	SessionCreated      = "session.created"
	SessionRevoked      = "session.revoked"
	ItemCreated         = "item.created"
	ItemUpdated         = "item.updated"
	ItemDeleted         = "item.deleted"
	ConversationStarted = "conversation.started"
	MessageSent         = "message.sent"
)

// RoutingKeyPrefix namespaces every routing key on the exchange.
const RoutingKeyPrefix = "freeshare."

// Publisher delivers an encoded event under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// Emitter stamps events with service metadata and hands them to a Publisher.
type Emitter struct {
	publisher   Publisher
	service     string
	environment string
	now         func() time.Time
}

// Envelope is the versioned wire format of every published event.
type Envelope struct {
	SchemaVersion int     `json:"schema_version"`
	EventType     string  `json:"event_type"`
	OccurredAt    string  `json:"occurred_at"`
	Service       string  `json:"service"`
	Environment   string  `json:"environment"`
	RequestID     string  `json:"request_id"`
	UserID        *string `json:"user_id,omitempty"`
	Payload       any     `json:"payload"`
}

// SessionPayload accompanies session.created and session.revoked.
type SessionPayload struct {
	Provider string `json:"provider,omitempty"`
}

// ItemPayload accompanies the item.* events.
type ItemPayload struct {
	ItemID   string `json:"item_id"`
	Category string `json:"category,omitempty"`
	Status   string `json:"status,omitempty"`
}

// ConversationPayload accompanies conversation.started.
type ConversationPayload struct {
	ConversationID string `json:"conversation_id"`
	ItemID         string `json:"item_id"`
	RecipientID    string `json:"recipient_id"`
}

// MessagePayload accompanies message.sent.
type MessagePayload struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	SenderID       string `json:"sender_id"`
}

// NewEmitter returns an Emitter tagging events with service and environment.
func NewEmitter(publisher Publisher, service, environment string) *Emitter {
	return &Emitter{
		publisher:   publisher,
		service:     service,
		environment: environment,
		now:         time.Now,
	}
}

// Emit publishes eventType best effort. Failures are logged, never returned.
func (e *Emitter) Emit(ctx context.Context, eventType, requestID, userID string, payload any) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := Envelope{
		SchemaVersion: 1,
		EventType:     eventType,
		OccurredAt:    e.now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		Payload:       payload,
	}
	if userID != "" {
		envelope.UserID = &userID
	}

	if err := e.publisher.Publish(ctx, RoutingKeyPrefix+eventType, envelope); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Str("request_id", requestID).Msg("event publish failed")
	}
}
