package model

import "time"

// TicketStatus is the lifecycle state of a single ticket.
type TicketStatus string

const (
	TicketAvailable TicketStatus = "AVAILABLE" // in stock, may be reserved
	TicketReserved  TicketStatus = "RESERVED"  // held by an in-flight purchase
	TicketSold      TicketStatus = "SOLD"      // owned by an order
)

// Ticket is one unit of a concert's inventory.  A ticket belongs to at
// most one reservation or order at a time; the Status field records
// which of the two (if any) currently owns it.
//
// Fields:
//  ID         – primary key identifier; also the selection order.
//  ConcertID  – concert the ticket admits to.
//  OrderID    – order owning the ticket once sold.
//  Status     – AVAILABLE, RESERVED or SOLD.
//  Code       – admission code assigned when sold.
//  PriceCents – the concert's ticket price, loaded with the ticket.
//  ReservedAt – when the ticket was last reserved.
type Ticket struct {
	ID         uint64       // tickets.id
	ConcertID  uint64       // tickets.concert_id
	OrderID    *uint64      // tickets.order_id (nullable)
	Status     TicketStatus // tickets.status
	Code       *string      // tickets.code (nullable)
	PriceCents int64        // concerts.ticket_price_cents
	ReservedAt *time.Time   // tickets.reserved_at (nullable)
}

// TicketIDs returns the IDs of the given tickets in the same order.
func TicketIDs(tickets []Ticket) []uint64 {
	ids := make([]uint64, len(tickets))
	for i, t := range tickets {
		ids[i] = t.ID
	}
	return ids
}
