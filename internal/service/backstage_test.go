package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/concert-ticketing/internal/inventory"
	"github.com/iliyamo/concert-ticketing/internal/logger"
	"github.com/iliyamo/concert-ticketing/internal/model"
	"github.com/iliyamo/concert-ticketing/internal/storage"
)

func newBackstage(t *testing.T) (*BackstageService, *model.Concert) {
	t.Helper()
	store := storage.NewMemoryStore()
	c := &model.Concert{PromoterID: 7, Title: "Gig", TicketPriceCents: 2000}
	require.NoError(t, store.CreateConcert(context.Background(), c))
	inv := inventory.New(store, inventory.NewLocalLocker(0), logger.Discard())
	svc := NewBackstageService(store, inv, logger.Discard())
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc, c
}

func TestPromoterCanAddTicketsToTheirConcert(t *testing.T) {
	svc, c := newBackstage(t)

	remaining, err := svc.AddTickets(context.Background(), 7, c.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, remaining)

	remaining, err = svc.AddTickets(context.Background(), 7, c.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 25, remaining)
}

func TestPromoterCannotTouchAnotherPromotersConcert(t *testing.T) {
	svc, c := newBackstage(t)

	_, err := svc.AddTickets(context.Background(), 8, c.ID, 20)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Publish(context.Background(), 8, c.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAddTicketsValidatesQuantity(t *testing.T) {
	svc, c := newBackstage(t)

	_, err := svc.AddTickets(context.Background(), 7, c.ID, 0)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestPublishingAConcert(t *testing.T) {
	svc, c := newBackstage(t)

	got, err := svc.Publish(context.Background(), 7, c.ID)
	require.NoError(t, err)
	require.True(t, got.IsPublished())
	assert.Equal(t, time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC), *got.PublishedAt)

	_, err = svc.Publish(context.Background(), 7, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}
