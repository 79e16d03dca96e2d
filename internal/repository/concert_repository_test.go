package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/concert-ticketing/internal/model"
)

var concertRowColumns = []string{"id", "promoter_id", "title", "subtitle", "venue", "city", "date", "ticket_price_cents", "published_at", "created_at"}

func TestConcertByID(t *testing.T) {
	mock, _, _, concerts := newMock(t)
	date := time.Date(2026, 12, 13, 20, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM concerts WHERE id = ?")).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(concertRowColumns).
			AddRow(1, 7, "The Red Chord", "with Animosity and Lethargy", "The Mosh Pit", "Laraville", date, 3250, nil, date))

	c, err := concerts().ConcertByID(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, uint64(7), c.PromoterID)
	assert.Equal(t, int64(3250), c.TicketPriceCents)
	assert.False(t, c.IsPublished())
}

func TestConcertByIDNotFound(t *testing.T) {
	mock, _, _, concerts := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM concerts WHERE id = ?")).WillReturnRows(sqlmock.NewRows(concertRowColumns))

	_, err := concerts().ConcertByID(context.Background(), 1)

	assert.ErrorIs(t, err, model.ErrConcertNotFound)
}

func TestCreateConcertAssignsID(t *testing.T) {
	mock, _, _, concerts := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO concerts")).WillReturnResult(sqlmock.NewResult(42, 1))

	c := &model.Concert{PromoterID: 1, Title: "Gig", TicketPriceCents: 1000}
	require.NoError(t, concerts().CreateConcert(context.Background(), c))

	assert.Equal(t, uint64(42), c.ID)
	assert.False(t, c.CreatedAt.IsZero())
}

func TestPublishConcertKeepsExistingTimestamp(t *testing.T) {
	mock, _, _, concerts := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("SET published_at = COALESCE(published_at, ?)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM concerts")).WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	assert.NoError(t, concerts().PublishConcert(context.Background(), 1, time.Now()))
}

func TestPublishConcertMissing(t *testing.T) {
	mock, _, _, concerts := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("SET published_at")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM concerts")).WillReturnRows(sqlmock.NewRows([]string{"1"}))

	assert.ErrorIs(t, concerts().PublishConcert(context.Background(), 1, time.Now()), model.ErrConcertNotFound)
}
