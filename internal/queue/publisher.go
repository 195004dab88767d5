package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/railway-reservation/internal/config"
	"github.com/iliyamo/railway-reservation/internal/service"
)

// Publisher sends lifecycle events to a durable queue on the default
// exchange.  Each publish opens its own connection, so a broker outage
// never leaves a stale channel behind; the service logs and drops failed
// publishes.
type Publisher struct {
	url   string
	queue string
}

// NewPublisher returns a Publisher for the configured broker and queue.
func NewPublisher(cfg config.QueueConfig) *Publisher {
	return &Publisher{url: cfg.URL, queue: cfg.Name}
}

// Publish implements service.EventPublisher.
func (p *Publisher) Publish(ctx context.Context, event service.Event) error {
	payload := NewReservationEvent(event)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declareQueue(ch, p.queue); err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    payload.ID,
		Type:         payload.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	// default exchange, routing key = queue name
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// declareQueue is idempotent; the queue is durable so events survive a
// broker restart.
func declareQueue(ch *amqp.Channel, name string) error {
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare %s: %w", name, err)
	}
	return nil
}
