package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/concert-ticketing/internal/model"
)

// OrderRepo stores orders and sells or restocks their tickets in the same
// transaction as the order row.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// CreateOrder inserts o, assigns its ID and marks each RESERVED ticket
// SOLD with the code it carries.  If any ticket is not RESERVED nothing is
// written and model.ErrTicketUnavailable is returned.
func (r *OrderRepo) CreateOrder(ctx context.Context, o *model.Order) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		const qOrder = `INSERT INTO orders (confirmation_number, concert_id, email, amount_cents, card_last_four, created_at)
		                VALUES (?, ?, ?, ?, ?, ?)`
		res, err := tx.ExecContext(ctx, qOrder,
			o.ConfirmationNumber, o.ConcertID, o.Email, o.AmountCents, o.CardLastFour, o.CreatedAt)
		if isDuplicateKey(err) {
			return fmt.Errorf("order %s: %w", o.ConfirmationNumber, model.ErrDuplicateConfirmation)
		}
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		orderID := uint64(id)

		const qSell = `UPDATE tickets SET status = 'SOLD', order_id = ?, code = ? WHERE id = ? AND status = 'RESERVED'`
		for _, t := range o.Tickets {
			if t.Code == nil || *t.Code == "" {
				return fmt.Errorf("ticket %d has no code", t.ID)
			}
			res, err := tx.ExecContext(ctx, qSell, orderID, *t.Code, t.ID)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err != nil {
				return err
			} else if n != 1 {
				return fmt.Errorf("ticket %d: %w", t.ID, model.ErrTicketUnavailable)
			}
		}

		o.ID = orderID
		for i := range o.Tickets {
			o.Tickets[i].Status = model.TicketSold
			o.Tickets[i].OrderID = &orderID
		}
		return nil
	})
}

const orderColumns = `id, confirmation_number, concert_id, email, amount_cents, card_last_four, created_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (*model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.ConfirmationNumber, &o.ConcertID, &o.Email, &o.AmountCents, &o.CardLastFour, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// OrderByConfirmationNumber returns the order with its tickets, or
// model.ErrOrderNotFound.
func (r *OrderRepo) OrderByConfirmationNumber(ctx context.Context, number string) (*model.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE confirmation_number = ?`, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.Tickets, err = r.ticketsFor(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

// OrdersForEmail returns the concert's orders placed by email, oldest first.
func (r *OrderRepo) OrdersForEmail(ctx context.Context, concertID uint64, email string) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE concert_id = ? AND email = ? ORDER BY id`, concertID, email)
	if err != nil {
		return nil, err
	}
	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Tickets, err = r.ticketsFor(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *OrderRepo) ticketsFor(ctx context.Context, orderID uint64) ([]model.Ticket, error) {
	const q = `SELECT t.id, t.concert_id, t.order_id, t.status, t.code, c.ticket_price_cents, t.reserved_at
	           FROM tickets t
	           JOIN concerts c ON c.id = t.concert_id
	           WHERE t.order_id = ?
	           ORDER BY t.id`
	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Ticket
	for rows.Next() {
		var (
			t          model.Ticket
			oid        sql.NullInt64
			code       sql.NullString
			reservedAt sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.ConcertID, &oid, &t.Status, &code, &t.PriceCents, &reservedAt); err != nil {
			return nil, err
		}
		if oid.Valid {
			v := uint64(oid.Int64)
			t.OrderID = &v
		}
		if code.Valid {
			v := code.String
			t.Code = &v
		}
		if reservedAt.Valid {
			v := reservedAt.Time
			t.ReservedAt = &v
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CancelOrder restocks the order's SOLD tickets and deletes the order in
// one transaction.
func (r *OrderRepo) CancelOrder(ctx context.Context, orderID uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		const qRestock = `UPDATE tickets SET status = 'AVAILABLE', order_id = NULL, code = NULL, reserved_at = NULL
		                  WHERE order_id = ? AND status = 'SOLD'`
		if _, err := tx.ExecContext(ctx, qRestock, orderID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, orderID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return model.ErrOrderNotFound
		}
		return nil
	})
}
