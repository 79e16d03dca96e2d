package model

import "time"

// Order is the durable record of a completed purchase.  Every ticket it
// references is SOLD and carries a unique admission code.  Cancelling an
// order returns its tickets to stock and removes the record.
//
// Fields:
//  ID                 – primary key identifier.
//  ConfirmationNumber – public, unguessable order reference.
//  ConcertID          – concert the tickets admit to.
//  Email              – purchaser's email address.
//  AmountCents        – amount charged in minor currency units.
//  CardLastFour       – last four digits of the card charged.
//  Tickets            – sold tickets with their codes.
//  CreatedAt          – creation timestamp.
type Order struct {
	ID                 uint64    // orders.id
	ConfirmationNumber string    // orders.confirmation_number
	ConcertID          uint64    // orders.concert_id
	Email              string    // orders.email
	AmountCents        int64     // orders.amount_cents
	CardLastFour       string    // orders.card_last_four
	Tickets            []Ticket  // tickets.order_id = orders.id
	CreatedAt          time.Time // orders.created_at
}

// TicketQuantity returns the number of tickets on the order.
func (o *Order) TicketQuantity() int { return len(o.Tickets) }
