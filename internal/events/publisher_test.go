package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/csdakkoni/ecommerce-sub000/pkg/correlation"
)

type fakeResult struct {
	id  string
	err error
}

func (r fakeResult) Get(context.Context) (string, error) { return r.id, r.err }

type fakeTopic struct {
	msgs []*gcppubsub.Message
	err  error
}

func (f *fakeTopic) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.msgs = append(f.msgs, msg)
	return fakeResult{id: "server-id", err: f.err}
}

func TestPublishWrapsEventInEnvelope(t *testing.T) {
	topic := &fakeTopic{}
	p := newPublisher(topic, correlation.GeneratorFunc(func() string { return "evt-1" }))
	p.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	err := p.Publish(context.Background(), OrderPaid, OrderEvent{OrderID: "o-1", ConversationID: "c-1", PaymentID: "pay-1"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(topic.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(topic.msgs))
	}
	msg := topic.msgs[0]
	if msg.Attributes["event_type"] != string(OrderPaid) || msg.Attributes["aggregate_id"] != "o-1" {
		t.Fatalf("unexpected attributes %+v", msg.Attributes)
	}

	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.EventID != "evt-1" || env.Version != envelopeVersion || !env.OccurredAt.Equal(p.now()) {
		t.Fatalf("unexpected envelope %+v", env)
	}
	var payload OrderEvent
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.PaymentID != "pay-1" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestPublishReturnsServerError(t *testing.T) {
	topic := &fakeTopic{err: errors.New("unavailable")}
	p := newPublisher(topic, nil)

	if err := p.Publish(context.Background(), OrderPaymentFailed, OrderEvent{OrderID: "o-1"}); err == nil {
		t.Fatal("expected publish error")
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.Publish(context.Background(), OrderPaid, OrderEvent{}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}
