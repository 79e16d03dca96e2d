// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/iliyamo/concert-ticketing/internal/model"
)

// OrderConfirmedQueue is the RabbitMQ queue and Kafka topic name for
// OrderConfirmedEvent.
const OrderConfirmedQueue = "order.confirmed"

// OrderConfirmedEvent is published when a purchase completes.  It carries
// everything a confirmation notice needs so that consumers never have to
// query the primary database.
type OrderConfirmedEvent struct {
	OrderID            uint64   `json:"order_id"`
	ConfirmationNumber string   `json:"confirmation_number"`
	ConcertID          uint64   `json:"concert_id"`
	ConcertTitle       string   `json:"concert_title"`
	Venue              string   `json:"venue"`
	City               string   `json:"city"`
	ConcertDate        string   `json:"concert_date"`
	Email              string   `json:"email"`
	TicketCodes        []string `json:"ticket_codes"`
	AmountCents        int64    `json:"amount_cents"`
	CardLastFour       string   `json:"card_last_four"`
	ConfirmedAt        string   `json:"confirmed_at"`
}

// NewOrderConfirmedEvent builds the event for a freshly completed order.
func NewOrderConfirmedEvent(c *model.Concert, o *model.Order) OrderConfirmedEvent {
	codes := make([]string, 0, len(o.Tickets))
	for _, t := range o.Tickets {
		if t.Code != nil {
			codes = append(codes, *t.Code)
		}
	}
	return OrderConfirmedEvent{
		OrderID:            o.ID,
		ConfirmationNumber: o.ConfirmationNumber,
		ConcertID:          c.ID,
		ConcertTitle:       c.Title,
		Venue:              c.Venue,
		City:               c.City,
		ConcertDate:        c.Date.UTC().Format(time.RFC3339),
		Email:              o.Email,
		TicketCodes:        codes,
		AmountCents:        o.AmountCents,
		CardLastFour:       o.CardLastFour,
		ConfirmedAt:        time.Now().UTC().Format(time.RFC3339),
	}
}
