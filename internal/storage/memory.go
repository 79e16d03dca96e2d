// Package storage provides the in-memory backend used when STORE_DRIVER is
// "memory" and by the package tests.  A single MemoryStore satisfies the
// concert, ticket and order store contracts so that order creation and
// cancellation can change tickets and orders under one lock, exactly as
// the MySQL repositories do inside one transaction.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/concert-ticketing/internal/model"
)

type orderRecord struct {
	order     model.Order // Tickets left nil; rebuilt from ticketIDs
	ticketIDs []uint64
}

// MemoryStore keeps concerts, tickets and orders in maps guarded by one
// RWMutex.  Ticket IDs are assigned in increasing order so a concert's
// ID slice is always sorted.
type MemoryStore struct {
	mutex sync.RWMutex

	concerts       map[uint64]*model.Concert
	tickets        map[uint64]*model.Ticket
	concertTickets map[uint64][]uint64
	orders         map[uint64]*orderRecord
	byConfirmation map[string]uint64

	nextConcertID uint64
	nextTicketID  uint64
	nextOrderID   uint64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		concerts:       make(map[uint64]*model.Concert),
		tickets:        make(map[uint64]*model.Ticket),
		concertTickets: make(map[uint64][]uint64),
		orders:         make(map[uint64]*orderRecord),
		byConfirmation: make(map[string]uint64),
	}
}

// CreateConcert stores c and assigns its ID.
func (s *MemoryStore) CreateConcert(_ context.Context, c *model.Concert) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.nextConcertID++
	c.ID = s.nextConcertID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	cp := *c
	s.concerts[c.ID] = &cp
	return nil
}

// ConcertByID returns a copy of the concert.
func (s *MemoryStore) ConcertByID(_ context.Context, id uint64) (*model.Concert, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	c, ok := s.concerts[id]
	if !ok {
		return nil, model.ErrConcertNotFound
	}
	cp := *c
	return &cp, nil
}

// PublishConcert sets the concert's publication time if it is unset.
func (s *MemoryStore) PublishConcert(_ context.Context, id uint64, at time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	c, ok := s.concerts[id]
	if !ok {
		return model.ErrConcertNotFound
	}
	if c.PublishedAt == nil {
		t := at.UTC()
		c.PublishedAt = &t
	}
	return nil
}

// AddTickets appends quantity AVAILABLE tickets to the concert.
func (s *MemoryStore) AddTickets(_ context.Context, concertID uint64, quantity int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.concerts[concertID]; !ok {
		return model.ErrConcertNotFound
	}
	for i := 0; i < quantity; i++ {
		s.nextTicketID++
		id := s.nextTicketID
		s.tickets[id] = &model.Ticket{ID: id, ConcertID: concertID, Status: model.TicketAvailable}
		s.concertTickets[concertID] = append(s.concertTickets[concertID], id)
	}
	return nil
}

// ticketCopy returns a detached copy with the concert price filled in.
// Callers hold the mutex.
func (s *MemoryStore) ticketCopy(t *model.Ticket) model.Ticket {
	cp := *t
	if c, ok := s.concerts[t.ConcertID]; ok {
		cp.PriceCents = c.TicketPriceCents
	}
	return cp
}

// AvailableTickets returns up to limit AVAILABLE tickets in ID order.
func (s *MemoryStore) AvailableTickets(_ context.Context, concertID uint64, limit int) ([]model.Ticket, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]model.Ticket, 0, limit)
	for _, id := range s.concertTickets[concertID] {
		if len(out) == limit {
			break
		}
		if t := s.tickets[id]; t.Status == model.TicketAvailable {
			out = append(out, s.ticketCopy(t))
		}
	}
	return out, nil
}

// MarkReserved moves every ticket to RESERVED, or none of them.
func (s *MemoryStore) MarkReserved(_ context.Context, ticketIDs []uint64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, id := range ticketIDs {
		t, ok := s.tickets[id]
		if !ok || t.Status != model.TicketAvailable {
			return fmt.Errorf("ticket %d: %w", id, model.ErrTicketUnavailable)
		}
	}
	now := time.Now().UTC()
	for _, id := range ticketIDs {
		t := s.tickets[id]
		t.Status = model.TicketReserved
		t.ReservedAt = &now
	}
	return nil
}

// ReleaseTickets moves every ticket back to AVAILABLE, or none of them.
func (s *MemoryStore) ReleaseTickets(_ context.Context, ticketIDs []uint64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, id := range ticketIDs {
		t, ok := s.tickets[id]
		if !ok || t.Status == model.TicketAvailable {
			return fmt.Errorf("ticket %d: %w", id, model.ErrTicketNotHeld)
		}
	}
	for _, id := range ticketIDs {
		s.resetTicket(s.tickets[id])
	}
	return nil
}

func (s *MemoryStore) resetTicket(t *model.Ticket) {
	t.Status = model.TicketAvailable
	t.OrderID = nil
	t.Code = nil
	t.ReservedAt = nil
}

// CountAvailable returns the number of AVAILABLE tickets.
func (s *MemoryStore) CountAvailable(_ context.Context, concertID uint64) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	n := 0
	for _, id := range s.concertTickets[concertID] {
		if s.tickets[id].Status == model.TicketAvailable {
			n++
		}
	}
	return n, nil
}

// CountByStatus returns the number of the concert's tickets in status.
func (s *MemoryStore) CountByStatus(_ context.Context, concertID uint64, status model.TicketStatus) int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	n := 0
	for _, id := range s.concertTickets[concertID] {
		if s.tickets[id].Status == status {
			n++
		}
	}
	return n
}

// CreateOrder stores o and sells its tickets with the codes they carry.
// Every ticket must be RESERVED; otherwise nothing changes.
func (s *MemoryStore) CreateOrder(_ context.Context, o *model.Order) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, dup := s.byConfirmation[o.ConfirmationNumber]; dup {
		return fmt.Errorf("order %s: %w", o.ConfirmationNumber, model.ErrDuplicateConfirmation)
	}
	for _, t := range o.Tickets {
		st, ok := s.tickets[t.ID]
		if !ok || st.Status != model.TicketReserved {
			return fmt.Errorf("ticket %d: %w", t.ID, model.ErrTicketUnavailable)
		}
		if t.Code == nil || *t.Code == "" {
			return fmt.Errorf("ticket %d has no code", t.ID)
		}
	}

	s.nextOrderID++
	o.ID = s.nextOrderID
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	ids := make([]uint64, len(o.Tickets))
	for i := range o.Tickets {
		st := s.tickets[o.Tickets[i].ID]
		orderID := o.ID
		code := *o.Tickets[i].Code
		st.Status = model.TicketSold
		st.OrderID = &orderID
		st.Code = &code

		o.Tickets[i].Status = model.TicketSold
		o.Tickets[i].OrderID = &orderID
		ids[i] = st.ID
	}

	rec := &orderRecord{order: *o, ticketIDs: ids}
	rec.order.Tickets = nil
	s.orders[o.ID] = rec
	s.byConfirmation[o.ConfirmationNumber] = o.ID
	return nil
}

func (s *MemoryStore) buildOrder(rec *orderRecord) *model.Order {
	o := rec.order
	o.Tickets = make([]model.Ticket, len(rec.ticketIDs))
	for i, id := range rec.ticketIDs {
		o.Tickets[i] = s.ticketCopy(s.tickets[id])
	}
	return &o
}

// OrderByConfirmationNumber returns the order with its tickets.
func (s *MemoryStore) OrderByConfirmationNumber(_ context.Context, number string) (*model.Order, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	id, ok := s.byConfirmation[number]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	return s.buildOrder(s.orders[id]), nil
}

// OrdersForEmail returns the concert's orders placed by email, oldest first.
func (s *MemoryStore) OrdersForEmail(_ context.Context, concertID uint64, email string) ([]model.Order, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []model.Order
	for id := uint64(1); id <= s.nextOrderID; id++ {
		rec, ok := s.orders[id]
		if !ok || rec.order.ConcertID != concertID || rec.order.Email != email {
			continue
		}
		out = append(out, *s.buildOrder(rec))
	}
	return out, nil
}

// CancelOrder returns the order's tickets to stock and deletes the order.
func (s *MemoryStore) CancelOrder(_ context.Context, orderID uint64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	rec, ok := s.orders[orderID]
	if !ok {
		return model.ErrOrderNotFound
	}
	for _, id := range rec.ticketIDs {
		if s.tickets[id].Status != model.TicketSold {
			return fmt.Errorf("ticket %d: %w", id, model.ErrTicketNotHeld)
		}
	}
	for _, id := range rec.ticketIDs {
		s.resetTicket(s.tickets[id])
	}
	delete(s.byConfirmation, rec.order.ConfirmationNumber)
	delete(s.orders, orderID)
	return nil
}
