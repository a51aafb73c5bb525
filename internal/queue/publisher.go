// Package queue publishes notification records to RabbitMQ for
// downstream delivery (push, email, SMS). Publishing is fire-and-forget
// from the reservation core's perspective: failures are logged and
// returned but never interrupt the request flow.
package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"fleet/internal/domain"
)

const notificationQueue = "reservation.notifications"

// Publisher publishes notification records over an AMQP connection.
type Publisher struct {
	conn *amqp.Connection
}

// Dial connects to the broker at url and returns a Publisher.
func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn}, nil
}

// Close closes the underlying connection.
func (p *Publisher) Close() error {
	return p.conn.Close()
}

// PublishNotification publishes a notification record to the
// notification queue. Messages are persistent so they survive broker
// restarts; any error is logged and returned so callers can ignore it.
func (p *Publisher) PublishNotification(ctx context.Context, record *domain.NotificationRecord) error {
	ch, err := p.conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(notificationQueue, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(record)
	if err != nil {
		log.Printf("rabbitmq: marshal record failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", notificationQueue, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}

	return nil
}
