package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"freeshare/internal/events"
	"freeshare/internal/observability"
)

const (
	ModeAMQP = "amqp"
	ModeNoop = "noop"

	dialTimeout = 5 * time.Second
)

// Broker publishes event envelopes to a topic exchange. When the broker is
// unreachable it degrades to a noop so the API keeps serving.
type Broker struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	reason   string
	now      func() time.Time
}

var _ events.Publisher = (*Broker)(nil)

// Connect dials amqpURL and declares a durable topic exchange. It never
// fails: any setup error yields a noop broker carrying the reason.
func Connect(amqpURL, exchange string) *Broker {
	b := &Broker{exchange: exchange, now: time.Now}
	if amqpURL == "" {
		b.reason = "empty amqp url"
		return b
	}

	conn, err := amqp.DialConfig(amqpURL, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
	if err != nil {
		b.reason = err.Error()
		return b
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		b.reason = err.Error()
		return b
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		b.reason = fmt.Sprintf("declare exchange %s: %v", exchange, err)
		return b
	}

	b.conn, b.ch = conn, ch
	return b
}

func (b *Broker) Mode() string {
	if b.ch == nil {
		return ModeNoop
	}
	return ModeAMQP
}

// Reason is empty unless the broker fell back to noop.
func (b *Broker) Reason() string {
	return b.reason
}

func (b *Broker) Publish(ctx context.Context, routingKey string, event any) error {
	envelope, isEnvelope := envelopeOf(event)
	if b.ch == nil {
		log.Debug().
			Str("routing_key", routingKey).
			Str("event_type", envelope.EventType).
			Str("request_id", envelope.RequestID).
			Msg("noop publish")
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    b.now(),
		MessageId:    uuid.NewString(),
		Body:         body,
	}
	if isEnvelope {
		decorate(ctx, &msg, envelope)
	}

	if err := b.ch.PublishWithContext(ctx, b.exchange, routingKey, false, false, msg); err != nil {
		observability.IncAMQPPublishError()
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func (b *Broker) Close() error {
	if b.ch != nil {
		_ = b.ch.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

// decorate copies envelope metadata onto AMQP properties so consumers can
// route and dedupe without decoding the body.
func decorate(ctx context.Context, msg *amqp.Publishing, envelope events.Envelope) {
	var userID string
	if envelope.UserID != nil {
		userID = *envelope.UserID
	}
	corr := observability.CorrelationFromContext(ctx, envelope.RequestID, userID)

	msg.Type = envelope.EventType
	msg.AppId = envelope.Service
	msg.CorrelationId = envelope.RequestID
	msg.Headers = amqp.Table{"schema_version": int32(envelope.SchemaVersion)}
	for key, value := range corr.Headers() {
		msg.Headers[key] = value
	}
}

func envelopeOf(event any) (events.Envelope, bool) {
	switch envelope := event.(type) {
	case events.Envelope:
		return envelope, true
	case *events.Envelope:
		if envelope != nil {
			return *envelope, true
		}
	}
	return events.Envelope{}, false
}
