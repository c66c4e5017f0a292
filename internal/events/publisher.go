package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/csdakkoni/ecommerce-sub000/pkg/correlation"
)

const (
	envelopeVersion       = 1
	defaultPublishTimeout = 10 * time.Second
)

type Type string

const (
	OrderPaymentInitiated Type = "order.payment_initiated"
	OrderPaid             Type = "order.paid"
	OrderPaymentFailed    Type = "order.payment_failed"
)

// OrderEvent is the payload of every order event.
type OrderEvent struct {
	OrderID        string `json:"orderId"`
	ConversationID string `json:"conversationId"`
	Provider       string `json:"provider,omitempty"`
	PaymentID      string `json:"paymentId,omitempty"`
	ErrorCode      string `json:"errorCode,omitempty"`
	Total          string `json:"total,omitempty"`
	Currency       string `json:"currency,omitempty"`
}

// Envelope wraps a payload with its identity and timestamp.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	EventType  Type            `json:"eventType"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// Publisher emits order events. Publishing is best effort; callers log
// failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, eventType Type, event OrderEvent) error
}

type topicPublisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// PubSubPublisher publishes enveloped order events to one topic.
type PubSubPublisher struct {
	topic topicPublisher
	ids   correlation.Generator
	now   func() time.Time
}

func NewPubSubPublisher(p *gcppubsub.Publisher, ids correlation.Generator) (*PubSubPublisher, error) {
	if p == nil {
		return nil, errors.New("pubsub publisher required")
	}
	return newPublisher(&gcpPublisher{Publisher: p}, ids), nil
}

func newPublisher(topic topicPublisher, ids correlation.Generator) *PubSubPublisher {
	if ids == nil {
		ids = correlation.NewGenerator()
	}
	return &PubSubPublisher{topic: topic, ids: ids, now: time.Now}
}

func (p *PubSubPublisher) Publish(ctx context.Context, eventType Type, event OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	envelope := Envelope{
		Version:    envelopeVersion,
		EventID:    p.ids.NewID(),
		EventType:  eventType,
		OccurredAt: p.now().UTC(),
		Data:       data,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", eventType, err)
	}

	msg := &gcppubsub.Message{
		Data: body,
		Attributes: map[string]string{
			"event_id":        envelope.EventID,
			"event_type":      string(eventType),
			"aggregate_type":  "order",
			"aggregate_id":    event.OrderID,
			"conversation_id": event.ConversationID,
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := p.topic.Publish(publishCtx, msg)
	if result == nil {
		return fmt.Errorf("publisher returned nil for %s", eventType)
	}
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// NopPublisher drops every event; used when publishing is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Type, OrderEvent) error { return nil }

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}
