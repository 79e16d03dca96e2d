package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/concert-ticketing/internal/model"
)

// ticketInsertBatch caps the rows per INSERT so large stock additions do
// not exceed max_allowed_packet.
const ticketInsertBatch = 500

// TicketRepo provides access to the tickets table.  Status changes are
// conditional UPDATEs run inside a transaction: if any row is not in the
// expected state the whole batch is rolled back.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// AddTickets creates quantity AVAILABLE tickets for the concert.
func (r *TicketRepo) AddTickets(ctx context.Context, concertID uint64, quantity int) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for quantity > 0 {
			n := quantity
			if n > ticketInsertBatch {
				n = ticketInsertBatch
			}
			rows := strings.TrimSuffix(strings.Repeat("(?, 'AVAILABLE'), ", n), ", ")
			args := make([]interface{}, n)
			for i := range args {
				args[i] = concertID
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO tickets (concert_id, status) VALUES `+rows, args...); err != nil {
				return err
			}
			quantity -= n
		}
		return nil
	})
}

// AvailableTickets returns up to limit AVAILABLE tickets in ascending ID
// order, each carrying the concert's ticket price.
func (r *TicketRepo) AvailableTickets(ctx context.Context, concertID uint64, limit int) ([]model.Ticket, error) {
	const q = `SELECT t.id, t.concert_id, t.status, c.ticket_price_cents
	           FROM tickets t
	           JOIN concerts c ON c.id = t.concert_id
	           WHERE t.concert_id = ? AND t.status = 'AVAILABLE'
	           ORDER BY t.id
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, concertID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Ticket
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.ConcertID, &t.Status, &t.PriceCents); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkReserved moves every ticket from AVAILABLE to RESERVED, or none of
// them.  model.ErrTicketUnavailable is returned when any ticket was not
// AVAILABLE.
func (r *TicketRepo) MarkReserved(ctx context.Context, ticketIDs []uint64) error {
	if len(ticketIDs) == 0 {
		return nil
	}
	in, args := inClause(ticketIDs)
	q := `UPDATE tickets SET status = 'RESERVED', reserved_at = ? WHERE status = 'AVAILABLE' AND id IN (` + in + `)`
	return r.updateAll(ctx, q, append([]interface{}{time.Now().UTC()}, args...), len(ticketIDs), model.ErrTicketUnavailable)
}

// ReleaseTickets returns RESERVED or SOLD tickets to AVAILABLE, or none of
// them.  model.ErrTicketNotHeld is returned when any ticket was already
// AVAILABLE.
func (r *TicketRepo) ReleaseTickets(ctx context.Context, ticketIDs []uint64) error {
	if len(ticketIDs) == 0 {
		return nil
	}
	in, args := inClause(ticketIDs)
	q := `UPDATE tickets SET status = 'AVAILABLE', order_id = NULL, code = NULL, reserved_at = NULL
	      WHERE status <> 'AVAILABLE' AND id IN (` + in + `)`
	return r.updateAll(ctx, q, args, len(ticketIDs), model.ErrTicketNotHeld)
}

// updateAll runs q in a transaction and commits only if exactly want rows
// changed.
func (r *TicketRepo) updateAll(ctx context.Context, q string, args []interface{}, want int, mismatch error) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if int(n) != want {
			return fmt.Errorf("%d of %d tickets: %w", want-int(n), want, mismatch)
		}
		return nil
	})
}

// CountAvailable returns the number of AVAILABLE tickets for the concert.
func (r *TicketRepo) CountAvailable(ctx context.Context, concertID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets WHERE concert_id = ? AND status = 'AVAILABLE'`, concertID).Scan(&n)
	return n, err
}
