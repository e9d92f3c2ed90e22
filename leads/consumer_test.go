package leads

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	amqp "github.com/rabbitmq/amqp091-go"

	"listing_engine/config"
	"listing_engine/models"
)

type fakeRouter struct{ got []string }

func (r *fakeRouter) Resolve(_ context.Context, mls string) models.AgentRouting {
	r.got = append(r.got, mls)
	if mls == "98765" {
		return models.AgentRouting{AgentEmail: "jane@example.com", AgentName: "Jane Doe", IsOwnListing: true}
	}
	return models.AgentRouting{AgentEmail: "info@example.com"}
}

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakePublisher struct {
	sent []published
	err  error
}

func (p *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{exchange, key, msg})
	return nil
}

var testCfg = config.LeadsConfig{Queue: "leads.submitted", Exchange: "leads", RoutingKey: "lead.routed"}

func newTestConsumer(router Router) *Consumer {
	c := NewConsumer(testCfg, router)
	c.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestProcess_PublishesRoutedLead(t *testing.T) {
	router := &fakeRouter{}
	pub := &fakePublisher{}
	c := newTestConsumer(router)

	d := amqp.Delivery{
		Body:    []byte(`{"lead_id":"L-1","mls_number":" 98765 ","name":"Sam","email":"sam@example.com"}`),
		Headers: amqp.Table{"x-trace-id": "trace-1"},
	}
	if err := c.Process(context.Background(), pub, d); err != nil {
		t.Fatalf("process: %v", err)
	}

	if diff := cmp.Diff([]string{"98765"}, router.got); diff != "" {
		t.Fatalf("resolve calls mismatch (-want +got):\n%s", diff)
	}
	if len(pub.sent) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(pub.sent))
	}
	sent := pub.sent[0]
	if sent.exchange != "leads" || sent.key != "lead.routed" {
		t.Fatalf("unexpected destination %s/%s", sent.exchange, sent.key)
	}
	if sent.msg.MessageId == "" || sent.msg.Headers["x-trace-id"] != "trace-1" {
		t.Fatalf("expected message id and propagated trace id, got %+v", sent.msg)
	}

	var got RoutedLead
	if err := json.Unmarshal(sent.msg.Body, &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	want := RoutedLead{
		Lead:     Lead{LeadID: "L-1", MLSNumber: "98765", Name: "Sam", Email: "sam@example.com"},
		Routing:  models.AgentRouting{AgentEmail: "jane@example.com", AgentName: "Jane Doe", IsOwnListing: true},
		RoutedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("routed lead mismatch (-want +got):\n%s", diff)
	}
}

func TestProcess_MalformedIsDropped(t *testing.T) {
	router := &fakeRouter{}
	pub := &fakePublisher{}

	err := newTestConsumer(router).Process(context.Background(), pub, amqp.Delivery{Body: []byte("{")})
	if !errors.Is(err, errMalformed) {
		t.Fatalf("expected malformed error, got %v", err)
	}
	if len(router.got) != 0 || len(pub.sent) != 0 {
		t.Fatalf("malformed lead must not be routed")
	}
}

func TestProcess_PublishFailureIsRetryable(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}

	err := newTestConsumer(&fakeRouter{}).Process(context.Background(), pub, amqp.Delivery{Body: []byte(`{"lead_id":"L-2"}`)})
	if err == nil || errors.Is(err, errMalformed) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}
