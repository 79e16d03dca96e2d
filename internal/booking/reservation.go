// Package booking turns reserved tickets into orders.  A Reservation is
// the short-lived, in-memory hold a purchase works with between taking
// tickets from the inventory and either completing or cancelling; an
// Order is the durable result of a completed reservation.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/iliyamo/concert-ticketing/internal/billing"
	"github.com/iliyamo/concert-ticketing/internal/model"
)

// ErrReservationClosed is returned when a reservation that was already
// cancelled or completed is used again.
var ErrReservationClosed = errors.New("reservation already cancelled or completed")

// Releaser returns tickets to stock.  *inventory.Inventory satisfies it.
type Releaser interface {
	Release(ctx context.Context, tickets []model.Ticket) error
}

// Reservation holds a set of RESERVED tickets for one email address.
type Reservation struct {
	mu       sync.Mutex
	tickets  []model.Ticket
	email    string
	releaser Releaser
	closed   bool
}

// NewReservation wraps tickets already reserved by the inventory.
func NewReservation(tickets []model.Ticket, email string, releaser Releaser) *Reservation {
	return &Reservation{
		tickets:  append([]model.Ticket(nil), tickets...),
		email:    email,
		releaser: releaser,
	}
}

// Tickets returns a copy of the reserved tickets.
func (r *Reservation) Tickets() []model.Ticket { return append([]model.Ticket(nil), r.tickets...) }

// Email returns the address the tickets are reserved for.
func (r *Reservation) Email() string { return r.email }

// TotalCost is the sum of the reserved tickets' prices.
func (r *Reservation) TotalCost() int64 {
	var total int64
	for _, t := range r.tickets {
		total += t.PriceCents
	}
	return total
}

// Cancel returns every reserved ticket to stock.  It may succeed at most
// once; a failed release leaves the reservation open so it can be retried.
func (r *Reservation) Cancel(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrReservationClosed
	}
	if err := r.releaser.Release(ctx, r.tickets); err != nil {
		return err
	}
	r.closed = true
	return nil
}

// Complete charges TotalCost to token and records the order.  When the
// gateway refuses the charge the error is returned as is and the tickets
// stay reserved; releasing them is the caller's decision.
func (r *Reservation) Complete(ctx context.Context, gateway billing.Gateway, token string, orders *Orders) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrReservationClosed
	}

	charge, err := gateway.Charge(ctx, r.TotalCost(), token)
	if err != nil {
		return nil, err
	}
	order, err := orders.ForTickets(ctx, r.tickets, r.email, charge)
	if err != nil {
		return nil, fmt.Errorf("charge %s succeeded but order was not recorded: %w", charge.Reference, err)
	}
	r.closed = true
	return order, nil
}
