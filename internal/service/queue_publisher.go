// Package service coordinates purchases and the promoter backstage, and
// publishes domain events to the configured message broker.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/concert-ticketing/internal/logger"
	"github.com/iliyamo/concert-ticketing/internal/queue"
)

// EventPublisher delivers order events to downstream consumers.  Errors are
// logged and returned so callers can choose to ignore them without
// interrupting the purchase.
type EventPublisher interface {
	PublishOrderConfirmed(ctx context.Context, event queue.OrderConfirmedEvent) error
	Close() error
}

// RabbitPublisher publishes to the durable order.confirmed queue.  It dials
// per message, which keeps it free of connection state at the cost of a
// handshake per completed order.
type RabbitPublisher struct {
	url string
	log *logger.Logger
}

// NewRabbitPublisher returns a publisher for the broker at url.
func NewRabbitPublisher(url string, log *logger.Logger) *RabbitPublisher {
	return &RabbitPublisher{url: url, log: log}
}

// PublishOrderConfirmed publishes event as a persistent JSON message.
func (p *RabbitPublisher) PublishOrderConfirmed(ctx context.Context, event queue.OrderConfirmedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Error("RABBITMQ", fmt.Sprintf("dial failed: %v", err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Error("RABBITMQ", fmt.Sprintf("channel open failed: %v", err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		queue.OrderConfirmedQueue, // name
		true,                      // durable
		false,                     // autoDelete
		false,                     // exclusive
		false,                     // noWait
		nil,                       // args
	); err != nil {
		p.log.Error("RABBITMQ", fmt.Sprintf("queue declare failed: %v", err))
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.log.Error("RABBITMQ", fmt.Sprintf("marshal event failed: %v", err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    event.ConfirmationNumber,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",                        // default exchange
		queue.OrderConfirmedQueue, // routing key = queue name
		false,                     // mandatory
		false,                     // immediate
		pub,
	); err != nil {
		p.log.Error("RABBITMQ", fmt.Sprintf("publish failed: %v", err))
		return err
	}
	p.log.LogQueue("PUBLISHED", queue.OrderConfirmedQueue, event.ConfirmationNumber)
	return nil
}

// Close is a no-op; connections are per message.
func (p *RabbitPublisher) Close() error { return nil }

// LogPublisher only logs events.  It is used when EVENT_BROKER is "none".
type LogPublisher struct {
	log *logger.Logger
}

// NewLogPublisher returns a publisher writing to log.
func NewLogPublisher(log *logger.Logger) *LogPublisher { return &LogPublisher{log: log} }

func (p *LogPublisher) PublishOrderConfirmed(_ context.Context, event queue.OrderConfirmedEvent) error {
	p.log.LogQueue("SKIPPED", queue.OrderConfirmedQueue, fmt.Sprintf("%s for %s (no broker configured)", event.ConfirmationNumber, event.Email))
	return nil
}

func (p *LogPublisher) Close() error { return nil }
