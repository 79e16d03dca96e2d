// Package inventory owns each concert's ticket pool.  It is the only
// component allowed to move tickets between AVAILABLE and RESERVED, and it
// serialises those moves per concert so that two purchases can never be
// handed the same ticket.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/concert-ticketing/internal/logger"
	"github.com/iliyamo/concert-ticketing/internal/metrics"
	"github.com/iliyamo/concert-ticketing/internal/model"
)

// ErrInsufficientInventory is returned by FindAvailable when the concert
// has fewer available tickets than requested.  No ticket changes state.
var ErrInsufficientInventory = errors.New("not enough tickets remaining")

// TicketStore persists tickets.  MarkReserved and ReleaseTickets are
// all-or-nothing: on error no ticket has changed state.
type TicketStore interface {
	// AddTickets creates quantity AVAILABLE tickets for the concert.
	AddTickets(ctx context.Context, concertID uint64, quantity int) error
	// AvailableTickets returns up to limit AVAILABLE tickets in ascending ID order.
	AvailableTickets(ctx context.Context, concertID uint64, limit int) ([]model.Ticket, error)
	// MarkReserved moves the tickets from AVAILABLE to RESERVED, failing
	// with model.ErrTicketUnavailable if any of them is not AVAILABLE.
	MarkReserved(ctx context.Context, ticketIDs []uint64) error
	// ReleaseTickets moves RESERVED or SOLD tickets back to AVAILABLE,
	// failing with model.ErrTicketNotHeld if any of them is AVAILABLE.
	ReleaseTickets(ctx context.Context, ticketIDs []uint64) error
	// CountAvailable returns the number of AVAILABLE tickets.
	CountAvailable(ctx context.Context, concertID uint64) (int, error)
}

// Inventory hands out and takes back tickets for all concerts.
type Inventory struct {
	store  TicketStore
	locker Locker
	log    *logger.Logger
}

// New returns an Inventory backed by store and serialised by locker.
func New(store TicketStore, locker Locker, log *logger.Logger) *Inventory {
	if store == nil || locker == nil {
		panic("nil store or locker passed to inventory.New")
	}
	return &Inventory{store: store, locker: locker, log: log}
}

// FindAvailable reserves exactly quantity tickets of the concert and
// returns them in ascending ID order.  Selection and reservation happen
// while holding the concert's lock; the lock is released before
// returning, so callers never hold it across a payment.
func (inv *Inventory) FindAvailable(ctx context.Context, concertID uint64, quantity int) ([]model.Ticket, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("inventory: quantity must be at least 1, got %d", quantity)
	}

	start := time.Now()
	unlock, err := inv.locker.Lock(ctx, concertID)
	metrics.LockWait.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("lock concert %d: %w", concertID, err)
	}
	defer unlock()

	tickets, err := inv.store.AvailableTickets(ctx, concertID, quantity)
	if err != nil {
		return nil, fmt.Errorf("load available tickets: %w", err)
	}
	if len(tickets) < quantity {
		return nil, fmt.Errorf("%w: requested %d, %d remaining", ErrInsufficientInventory, quantity, len(tickets))
	}
	if err := inv.store.MarkReserved(ctx, model.TicketIDs(tickets)); err != nil {
		return nil, fmt.Errorf("reserve tickets: %w", err)
	}

	now := time.Now().UTC()
	for i := range tickets {
		tickets[i].Status = model.TicketReserved
		tickets[i].ReservedAt = &now
	}
	inv.log.LogDatabase("RESERVE", "tickets", fmt.Sprintf("concert=%d reserved %d", concertID, quantity))
	return tickets, nil
}

// Release returns reserved or sold tickets to stock.  Releasing a ticket
// that is already available is an error and nothing is changed.
func (inv *Inventory) Release(ctx context.Context, tickets []model.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	if err := inv.store.ReleaseTickets(ctx, model.TicketIDs(tickets)); err != nil {
		return fmt.Errorf("release tickets: %w", err)
	}
	inv.log.LogDatabase("RELEASE", "tickets", fmt.Sprintf("concert=%d released %d", tickets[0].ConcertID, len(tickets)))
	return nil
}

// TicketsRemaining returns the number of tickets still available.
func (inv *Inventory) TicketsRemaining(ctx context.Context, concertID uint64) (int, error) {
	return inv.store.CountAvailable(ctx, concertID)
}

// AddTickets puts quantity new tickets on sale for the concert.
func (inv *Inventory) AddTickets(ctx context.Context, concertID uint64, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("inventory: quantity must be at least 1, got %d", quantity)
	}
	unlock, err := inv.locker.Lock(ctx, concertID)
	if err != nil {
		return fmt.Errorf("lock concert %d: %w", concertID, err)
	}
	defer unlock()
	return inv.store.AddTickets(ctx, concertID, quantity)
}
