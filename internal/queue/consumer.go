// Package queue contains the background consumer that listens to the
// order.confirmed queue and writes one confirmation line per order to
// logs/orders.log, standing in for the customer's confirmation email.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/concert-ticketing/internal/logger"
)

// StartOrderConsumer connects to RabbitMQ, declares the order.confirmed
// queue (durable), and starts consuming messages.  Each message is appended
// to dir/orders.log.  The function runs a reconnect loop and only returns
// when ctx is cancelled; processing errors are logged and the offending
// message is rejected so the server keeps running.
func StartOrderConsumer(ctx context.Context, url, dir string, log *logger.Logger) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("ORDER-CONSUMER", fmt.Sprintf("failed to dial broker: %v; retrying in %s", err, backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, dir, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("ORDER-CONSUMER", fmt.Sprintf("consume loop ended: %v; reconnecting", err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, dir string, log *logger.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("ORDER-CONSUMER", fmt.Sprintf("set QoS failed: %v", err))
	}

	if _, err := ch.QueueDeclare(OrderConfirmedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(OrderConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	log.LogQueue("CONSUMING", OrderConfirmedQueue, "waiting for order confirmations")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(dir, d.Body); err != nil {
				log.Error("ORDER-CONSUMER", fmt.Sprintf("handle message failed: %v", err))
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(dir string, body []byte) error {
	var ev OrderConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.ConfirmationNumber == "" || ev.Email == "" {
		return errors.New("event is missing confirmation number or email")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "orders.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(confirmationLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func confirmationLine(ev OrderConfirmedEvent) string {
	amount := decimal.New(ev.AmountCents, -2).StringFixed(2)
	return fmt.Sprintf("[%s] Order confirmed | confirmation=%s | email=%s | concert_id=%d | concert=\"%s\" | venue=\"%s, %s\" | date=%s | tickets=%d [%s] | amount=%s | card=****%s\n",
		ev.ConfirmedAt, ev.ConfirmationNumber, ev.Email, ev.ConcertID, ev.ConcertTitle, ev.Venue, ev.City,
		ev.ConcertDate, len(ev.TicketCodes), strings.Join(ev.TicketCodes, ","), amount, ev.CardLastFour)
}
