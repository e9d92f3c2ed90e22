package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"listing_engine/config"
	"listing_engine/logging"
	"listing_engine/models"
)

// Lead is a submitted inquiry as the website publishes it.
type Lead struct {
	LeadID    string `json:"lead_id"`
	MLSNumber string `json:"mls_number"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Message   string `json:"message,omitempty"`
}

// RoutedLead is published once a recipient has been resolved.
type RoutedLead struct {
	Lead
	Routing  models.AgentRouting `json:"routing"`
	RoutedAt time.Time           `json:"routed_at"`
}

type Router interface {
	Resolve(ctx context.Context, mlsNumber string) models.AgentRouting
}

// Publisher is the publishing half of *amqp.Channel.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

var errMalformed = errors.New("malformed lead")

// Consumer reads submitted leads, resolves their recipient and publishes
// the routed result.
type Consumer struct {
	cfg    config.LeadsConfig
	router Router
	log    *slog.Logger
	now    func() time.Time
}

func NewConsumer(cfg config.LeadsConfig, router Router) *Consumer {
	return &Consumer{
		cfg:    cfg,
		router: router,
		log:    logging.New("leads"),
		now:    time.Now,
	}
}

// Run consumes until ctx is done or the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	conn, err := amqp.Dial(c.cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := c.declare(ch); err != nil {
		return err
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, c.cfg.Queue, "listing-engine", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.cfg.Queue, err)
	}
	c.log.Info("consuming leads", "queue", c.cfg.Queue, "exchange", c.cfg.Exchange)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.settle(d, c.Process(ctx, ch, d))
		}
	}
}

func (c *Consumer) declare(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(c.cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", c.cfg.Exchange, err)
	}
	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.cfg.Queue, err)
	}
	return nil
}

// settle acks processed leads, drops malformed ones and requeues the rest.
func (c *Consumer) settle(d amqp.Delivery, err error) {
	var ackErr error
	switch {
	case err == nil:
		ackErr = d.Ack(false)
	case errors.Is(err, errMalformed):
		ackErr = d.Nack(false, false)
	default:
		ackErr = d.Nack(false, true)
	}
	if ackErr != nil {
		c.log.Warn("settle delivery", "delivery_tag", d.DeliveryTag, "error", ackErr)
	}
}

// Process routes one delivery and publishes the result through pub.
func (c *Consumer) Process(ctx context.Context, pub Publisher, d amqp.Delivery) error {
	traceID, _ := d.Headers["x-trace-id"].(string)
	if traceID == "" {
		traceID = uuid.New().String()
	}
	log := c.log.With("trace_id", traceID, "delivery_tag", d.DeliveryTag)

	var lead Lead
	if err := json.Unmarshal(d.Body, &lead); err != nil {
		log.Error("unmarshal lead, dropping", "error", err)
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	lead.MLSNumber = strings.TrimSpace(lead.MLSNumber)
	log = log.With("lead_id", lead.LeadID, "mls", lead.MLSNumber)

	routed := RoutedLead{
		Lead:     lead,
		Routing:  c.router.Resolve(ctx, lead.MLSNumber),
		RoutedAt: c.now().UTC(),
	}
	body, err := json.Marshal(routed)
	if err != nil {
		return fmt.Errorf("marshal routed lead: %w", err)
	}

	err = pub.PublishWithContext(ctx, c.cfg.Exchange, c.cfg.RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.New().String(),
		Timestamp:    routed.RoutedAt,
		Headers:      amqp.Table{"x-trace-id": traceID},
		Body:         body,
	})
	if err != nil {
		log.Warn("publish routed lead", "error", err)
		return fmt.Errorf("publish routed lead: %w", err)
	}

	log.Info("lead routed", "agent_email", routed.Routing.AgentEmail, "own_listing", routed.Routing.IsOwnListing)
	return nil
}
