package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/concert-ticketing/internal/billing"
	"github.com/iliyamo/concert-ticketing/internal/metrics"
	"github.com/iliyamo/concert-ticketing/internal/model"
)

// OrderStore persists orders.  CreateOrder sells the order's tickets and
// CancelOrder restocks them in the same atomic step as the order write.
type OrderStore interface {
	// CreateOrder stores the order, assigns its ID and moves each of its
	// RESERVED tickets to SOLD with the code it carries.
	CreateOrder(ctx context.Context, order *model.Order) error
	OrderByConfirmationNumber(ctx context.Context, number string) (*model.Order, error)
	OrdersForEmail(ctx context.Context, concertID uint64, email string) ([]model.Order, error)
	// CancelOrder moves the order's tickets back to AVAILABLE and deletes it.
	CancelOrder(ctx context.Context, orderID uint64) error
}

// ConfirmationNumberFunc generates a new order confirmation number.
type ConfirmationNumberFunc func() string

// TicketCodeFunc generates the admission code for a ticket being sold.
type TicketCodeFunc func(model.Ticket) (string, error)

// confirmationAttempts bounds retries on confirmation number collisions.
const confirmationAttempts = 3

// Orders creates, finds and cancels orders.
type Orders struct {
	store              OrderStore
	confirmationNumber ConfirmationNumberFunc
	ticketCode         TicketCodeFunc
}

// NewOrders returns an Orders using the given generators.
func NewOrders(store OrderStore, confirmationNumber ConfirmationNumberFunc, ticketCode TicketCodeFunc) *Orders {
	if store == nil || confirmationNumber == nil || ticketCode == nil {
		panic("nil dependency passed to booking.NewOrders")
	}
	return &Orders{store: store, confirmationNumber: confirmationNumber, ticketCode: ticketCode}
}

// ForTickets records a paid order for the reserved tickets, giving each a
// code.  A confirmation number collision is retried with a fresh number.
func (o *Orders) ForTickets(ctx context.Context, tickets []model.Ticket, email string, charge billing.Charge) (*model.Order, error) {
	if len(tickets) == 0 {
		return nil, errors.New("booking: an order needs at least one ticket")
	}
	order := &model.Order{
		ConfirmationNumber: o.confirmationNumber(),
		ConcertID:          tickets[0].ConcertID,
		Email:              email,
		AmountCents:        charge.AmountCents,
		CardLastFour:       charge.CardLastFour,
		Tickets:            append([]model.Ticket(nil), tickets...),
	}
	for i := range order.Tickets {
		code, err := o.ticketCode(order.Tickets[i])
		if err != nil {
			return nil, fmt.Errorf("ticket code: %w", err)
		}
		order.Tickets[i].Code = &code
	}
	var err error
	for attempt := 1; attempt <= confirmationAttempts; attempt++ {
		if attempt > 1 {
			order.ConfirmationNumber = o.confirmationNumber()
		}
		err = o.store.CreateOrder(ctx, order)
		if !errors.Is(err, model.ErrDuplicateConfirmation) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	metrics.TicketsSold.Add(float64(len(order.Tickets)))
	return order, nil
}

// FindByConfirmationNumber looks an order up by its public reference.
func (o *Orders) FindByConfirmationNumber(ctx context.Context, number string) (*model.Order, error) {
	return o.store.OrderByConfirmationNumber(ctx, number)
}

// ForEmail returns the concert's orders placed by email.
func (o *Orders) ForEmail(ctx context.Context, concertID uint64, email string) ([]model.Order, error) {
	return o.store.OrdersForEmail(ctx, concertID, email)
}

// HasOrderFor reports whether email has bought tickets for the concert.
func (o *Orders) HasOrderFor(ctx context.Context, concertID uint64, email string) (bool, error) {
	orders, err := o.ForEmail(ctx, concertID, email)
	if err != nil {
		return false, err
	}
	return len(orders) > 0, nil
}

// Cancel restocks the order's tickets and removes the order.
func (o *Orders) Cancel(ctx context.Context, order *model.Order) error {
	if err := o.store.CancelOrder(ctx, order.ID); err != nil {
		return fmt.Errorf("cancel order %s: %w", order.ConfirmationNumber, err)
	}
	metrics.TicketsReleased.WithLabelValues("order_cancelled").Add(float64(order.TicketQuantity()))
	return nil
}
