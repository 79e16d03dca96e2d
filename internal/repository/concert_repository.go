package repository

import (
	"context"      // context carries deadlines and cancellation to DB calls
	"database/sql" // sql provides generic database operations and drivers
	"errors"
	"time"

	"github.com/iliyamo/concert-ticketing/internal/model"
)

// ConcertRepo encapsulates the queries against the concerts table.
type ConcertRepo struct {
	db *sql.DB // db is the underlying database connection pool
}

// NewConcertRepo constructs a ConcertRepo with the provided DB handle.
func NewConcertRepo(db *sql.DB) *ConcertRepo { return &ConcertRepo{db: db} }

// DB exposes the underlying handle so that callers can run migrations or
// health checks against the same pool.
func (r *ConcertRepo) DB() *sql.DB { return r.db }

const concertColumns = `id, promoter_id, title, subtitle, venue, city, date, ticket_price_cents, published_at, created_at`

// CreateConcert inserts c and populates its ID and CreatedAt.
func (r *ConcertRepo) CreateConcert(ctx context.Context, c *model.Concert) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO concerts (promoter_id, title, subtitle, venue, city, date, ticket_price_cents, published_at, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		c.PromoterID, c.Title, c.Subtitle, c.Venue, c.City, c.Date.UTC(), c.TicketPriceCents, c.PublishedAt, c.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// ConcertByID returns model.ErrConcertNotFound when no row matches.
func (r *ConcertRepo) ConcertByID(ctx context.Context, id uint64) (*model.Concert, error) {
	q := `SELECT ` + concertColumns + ` FROM concerts WHERE id = ?`
	var (
		c           model.Concert
		publishedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&c.ID, &c.PromoterID, &c.Title, &c.Subtitle, &c.Venue, &c.City,
		&c.Date, &c.TicketPriceCents, &publishedAt, &c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrConcertNotFound
	}
	if err != nil {
		return nil, err
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		c.PublishedAt = &t
	}
	return &c, nil
}

// PublishConcert sets published_at to at unless the concert is already
// published, in which case the original timestamp is kept.
func (r *ConcertRepo) PublishConcert(ctx context.Context, id uint64, at time.Time) error {
	const q = `UPDATE concerts SET published_at = COALESCE(published_at, ?) WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, at.UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	// MySQL reports 0 affected rows when the value did not change, so
	// tell an already published concert apart from a missing one.
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM concerts WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrConcertNotFound
	}
	return err
}
