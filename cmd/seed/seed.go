package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/iliyamo/concert-ticketing/internal/model"
)

type options struct {
	PromoterID uint64
	Title      string
	Subtitle   string
	Venue      string
	City       string
	Date       string
	PriceCents int64
	Tickets    int
	Publish    bool
}

func defaultOptions() options {
	return options{
		PromoterID: 1,
		Title:      "The Red Chord",
		Subtitle:   "with Animosity and Lethargy",
		Venue:      "The Mosh Pit",
		City:       "Laraville",
		Date:       time.Now().AddDate(0, 1, 0).Format("2006-01-02T20:00"),
		PriceCents: 3250,
		Tickets:    50,
		Publish:    true,
	}
}

func (o *options) addFlags(f *pflag.FlagSet) {
	f.Uint64Var(&o.PromoterID, "promoter-id", o.PromoterID, "owner of the concert and subject of the printed token")
	f.StringVar(&o.Title, "title", o.Title, "headline act")
	f.StringVar(&o.Subtitle, "subtitle", o.Subtitle, "supporting acts")
	f.StringVar(&o.Venue, "venue", o.Venue, "venue name")
	f.StringVar(&o.City, "city", o.City, "venue city")
	f.StringVar(&o.Date, "date", o.Date, "doors open, YYYY-MM-DDTHH:MM in UTC")
	f.Int64Var(&o.PriceCents, "price-cents", o.PriceCents, "ticket price in cents")
	f.IntVarP(&o.Tickets, "tickets", "n", o.Tickets, "tickets to put on sale")
	f.BoolVar(&o.Publish, "publish", o.Publish, "publish the concert immediately")
}

type concertWriter interface {
	CreateConcert(ctx context.Context, c *model.Concert) error
	PublishConcert(ctx context.Context, id uint64, at time.Time) error
	ConcertByID(ctx context.Context, id uint64) (*model.Concert, error)
}

type ticketAdder interface {
	AddTickets(ctx context.Context, concertID uint64, quantity int) error
}

// seedConcert creates the concert described by o, stocks it and
// optionally publishes it.
func seedConcert(ctx context.Context, concerts concertWriter, tickets ticketAdder, o options, now func() time.Time) (*model.Concert, error) {
	date, err := time.Parse("2006-01-02T15:04", o.Date)
	if err != nil {
		return nil, fmt.Errorf("--date: %w", err)
	}
	if o.PriceCents <= 0 {
		return nil, fmt.Errorf("--price-cents must be positive")
	}
	c := &model.Concert{
		PromoterID:       o.PromoterID,
		Title:            o.Title,
		Subtitle:         o.Subtitle,
		Venue:            o.Venue,
		City:             o.City,
		Date:             date,
		TicketPriceCents: o.PriceCents,
	}
	if err := concerts.CreateConcert(ctx, c); err != nil {
		return nil, fmt.Errorf("create concert: %w", err)
	}
	if o.Tickets > 0 {
		if err := tickets.AddTickets(ctx, c.ID, o.Tickets); err != nil {
			return nil, fmt.Errorf("add tickets: %w", err)
		}
	}
	if o.Publish {
		if err := concerts.PublishConcert(ctx, c.ID, now()); err != nil {
			return nil, fmt.Errorf("publish: %w", err)
		}
	}
	return concerts.ConcertByID(ctx, c.ID)
}
