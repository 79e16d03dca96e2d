package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/concert-ticketing/internal/model"
)

func seedConcert(t *testing.T, s *MemoryStore, price int64, tickets int) *model.Concert {
	t.Helper()
	c := &model.Concert{Title: "The Red Chord", TicketPriceCents: price}
	require.NoError(t, s.CreateConcert(context.Background(), c))
	require.NoError(t, s.AddTickets(context.Background(), c.ID, tickets))
	return c
}

func strPtr(s string) *string { return &s }

func TestAvailableTicketsAscendingWithPrice(t *testing.T) {
	s := NewMemoryStore()
	c := seedConcert(t, s, 3250, 5)
	ctx := context.Background()

	require.NoError(t, s.MarkReserved(ctx, []uint64{2}))
	got, err := s.AvailableTickets(ctx, c.ID, 3)
	require.NoError(t, err)

	assert.Equal(t, []uint64{1, 3, 4}, model.TicketIDs(got))
	for _, tk := range got {
		assert.Equal(t, int64(3250), tk.PriceCents)
	}
}

func TestMarkReservedIsAllOrNothing(t *testing.T) {
	s := NewMemoryStore()
	c := seedConcert(t, s, 1000, 3)
	ctx := context.Background()

	require.NoError(t, s.MarkReserved(ctx, []uint64{2}))
	err := s.MarkReserved(ctx, []uint64{1, 2, 3})

	assert.ErrorIs(t, err, model.ErrTicketUnavailable)
	n, _ := s.CountAvailable(ctx, c.ID)
	assert.Equal(t, 2, n)
}

func TestReleaseAvailableTicketIsMisuse(t *testing.T) {
	s := NewMemoryStore()
	c := seedConcert(t, s, 1000, 2)
	ctx := context.Background()

	require.NoError(t, s.MarkReserved(ctx, []uint64{1}))
	err := s.ReleaseTickets(ctx, []uint64{1, 2})

	assert.ErrorIs(t, err, model.ErrTicketNotHeld)
	assert.Equal(t, 1, s.CountByStatus(ctx, c.ID, model.TicketReserved))
}

func TestCreateOrderSellsReservedTickets(t *testing.T) {
	s := NewMemoryStore()
	c := seedConcert(t, s, 1200, 3)
	ctx := context.Background()
	require.NoError(t, s.MarkReserved(ctx, []uint64{1, 2}))

	o := &model.Order{
		ConfirmationNumber: "ORDERCONFIRMATION1234",
		ConcertID:          c.ID,
		Email:              "john@example.com",
		AmountCents:        2400,
		Tickets: []model.Ticket{
			{ID: 1, ConcertID: c.ID, Code: strPtr("TICKETCODE1")},
			{ID: 2, ConcertID: c.ID, Code: strPtr("TICKETCODE2")},
		},
	}
	require.NoError(t, s.CreateOrder(ctx, o))
	assert.NotZero(t, o.ID)

	found, err := s.OrderByConfirmationNumber(ctx, "ORDERCONFIRMATION1234")
	require.NoError(t, err)
	require.Len(t, found.Tickets, 2)
	assert.Equal(t, model.TicketSold, found.Tickets[0].Status)
	assert.Equal(t, "TICKETCODE2", *found.Tickets[1].Code)
	assert.Equal(t, 2, s.CountByStatus(ctx, c.ID, model.TicketSold))

	orders, err := s.OrdersForEmail(ctx, c.ID, "john@example.com")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestCreateOrderRejectsUnreservedTickets(t *testing.T) {
	s := NewMemoryStore()
	c := seedConcert(t, s, 1200, 2)
	ctx := context.Background()

	err := s.CreateOrder(ctx, &model.Order{
		ConfirmationNumber: "X",
		ConcertID:          c.ID,
		Tickets:            []model.Ticket{{ID: 1, Code: strPtr("A")}},
	})

	assert.ErrorIs(t, err, model.ErrTicketUnavailable)
	_, err = s.OrderByConfirmationNumber(ctx, "X")
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestCancelOrderRestocksAndDeletes(t *testing.T) {
	s := NewMemoryStore()
	c := seedConcert(t, s, 1200, 3)
	ctx := context.Background()
	require.NoError(t, s.MarkReserved(ctx, []uint64{1, 2, 3}))
	o := &model.Order{ConfirmationNumber: "ABC", ConcertID: c.ID, Tickets: []model.Ticket{
		{ID: 1, Code: strPtr("A")}, {ID: 2, Code: strPtr("B")}, {ID: 3, Code: strPtr("C")},
	}}
	require.NoError(t, s.CreateOrder(ctx, o))

	require.NoError(t, s.CancelOrder(ctx, o.ID))

	n, _ := s.CountAvailable(ctx, c.ID)
	assert.Equal(t, 3, n)
	_, err := s.OrderByConfirmationNumber(ctx, "ABC")
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
	assert.ErrorIs(t, s.CancelOrder(ctx, o.ID), model.ErrOrderNotFound)
}

func TestPublishConcertKeepsFirstTimestamp(t *testing.T) {
	s := NewMemoryStore()
	c := seedConcert(t, s, 1000, 0)
	ctx := context.Background()
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.PublishConcert(ctx, c.ID, first))
	require.NoError(t, s.PublishConcert(ctx, c.ID, first.Add(time.Hour)))

	got, err := s.ConcertByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPublished())
	assert.Equal(t, first, *got.PublishedAt)
	assert.ErrorIs(t, s.PublishConcert(ctx, 99, first), model.ErrConcertNotFound)
}
