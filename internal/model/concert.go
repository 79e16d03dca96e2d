package model

import "time"

// Concert is a single performance that tickets are sold for.  A concert
// is only purchasable once it has been published by its promoter; until
// then it is invisible to customers and every purchase attempt is treated
// as if the concert did not exist.
//
// Fields:
//  ID               – primary key identifier.
//  PromoterID       – user that owns the concert in the backstage area.
//  Title            – headline act.
//  Subtitle         – supporting acts.
//  Venue            – venue name.
//  City             – venue city.
//  Date             – when the doors open.
//  TicketPriceCents – price of every ticket in minor currency units.
//  PublishedAt      – publication timestamp; nil while unpublished.
//  CreatedAt        – creation timestamp.
type Concert struct {
	ID               uint64     // concerts.id
	PromoterID       uint64     // concerts.promoter_id
	Title            string     // concerts.title
	Subtitle         string     // concerts.subtitle
	Venue            string     // concerts.venue
	City             string     // concerts.city
	Date             time.Time  // concerts.date
	TicketPriceCents int64      // concerts.ticket_price_cents
	PublishedAt      *time.Time // concerts.published_at (nullable)
	CreatedAt        time.Time  // concerts.created_at
}

// IsPublished reports whether customers may buy tickets for the concert.
func (c *Concert) IsPublished() bool { return c.PublishedAt != nil }
