package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/concert-ticketing/internal/billing"
	"github.com/iliyamo/concert-ticketing/internal/booking"
	"github.com/iliyamo/concert-ticketing/internal/inventory"
	"github.com/iliyamo/concert-ticketing/internal/logger"
	"github.com/iliyamo/concert-ticketing/internal/metrics"
	"github.com/iliyamo/concert-ticketing/internal/model"
	"github.com/iliyamo/concert-ticketing/internal/queue"
)

var (
	// ErrNotFound is returned for concerts that do not exist or are not
	// published.  Inventory is never touched.
	ErrNotFound = errors.New("concert not found")
	// ErrPaymentDeclined wraps billing.ErrPaymentFailed once the
	// reservation has been released.
	ErrPaymentDeclined = errors.New("payment declined")
)

// ValidationError lists invalid request fields by JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid purchase request: " + strings.Join(parts, "; ")
}

// ConcertStore reads and publishes concerts.
type ConcertStore interface {
	ConcertByID(ctx context.Context, id uint64) (*model.Concert, error)
	PublishConcert(ctx context.Context, id uint64, at time.Time) error
}

// TicketInventory is the inventory as the coordinator uses it.
// *inventory.Inventory satisfies it.
type TicketInventory interface {
	FindAvailable(ctx context.Context, concertID uint64, quantity int) ([]model.Ticket, error)
	Release(ctx context.Context, tickets []model.Ticket) error
	TicketsRemaining(ctx context.Context, concertID uint64) (int, error)
	AddTickets(ctx context.Context, concertID uint64, quantity int) error
}

// PurchaseRequest is a customer's request to buy tickets.
type PurchaseRequest struct {
	ConcertID      uint64
	Email          string
	TicketQuantity int
	PaymentToken   string
}

// Validate reports every invalid field at once.
func (r PurchaseRequest) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(r.Email) == "" {
		fields["email"] = "is required"
	} else if _, err := mail.ParseAddress(r.Email); err != nil {
		fields["email"] = "must be a valid email address"
	}
	if r.TicketQuantity < 1 {
		fields["ticket_quantity"] = "must be at least 1"
	}
	if strings.TrimSpace(r.PaymentToken) == "" {
		fields["payment_token"] = "is required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// State is a purchase attempt's position in the purchase state machine.
type State string

const (
	StateRequested State = "REQUESTED"
	StateReserving State = "RESERVING"
	StateCharging  State = "CHARGING"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
)

// attempt tracks one purchase through its states for logging and metrics.
type attempt struct {
	req   PurchaseRequest
	state State
	log   *logger.Logger
}

func (a *attempt) to(next State) {
	a.log.Debug("PURCHASE", fmt.Sprintf("concert=%d email=%s %s -> %s", a.req.ConcertID, a.req.Email, a.state, next))
	a.state = next
}

// finish records the terminal outcome of the attempt.
func (a *attempt) finish(err error) {
	outcome := metrics.OutcomeCompleted
	var verr *ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		outcome = metrics.OutcomeInvalid
	case errors.Is(err, ErrNotFound):
		outcome = metrics.OutcomeNotFound
	case errors.Is(err, inventory.ErrInsufficientInventory):
		outcome = metrics.OutcomeSoldOut
	case errors.Is(err, ErrPaymentDeclined):
		outcome = metrics.OutcomeDeclined
	default:
		outcome = metrics.OutcomeInternalFailed
	}
	if err != nil {
		failedIn := a.state
		a.to(StateFailed)
		a.log.Info("PURCHASE", fmt.Sprintf("concert=%d failed while %s: %v", a.req.ConcertID, failedIn, err))
	}
	metrics.PurchaseOutcomes.WithLabelValues(outcome).Inc()
}

// PurchaseService runs the purchase protocol: find and reserve tickets
// under the concert's lock, charge without holding it, then record the
// order or release the tickets.
type PurchaseService struct {
	concerts  ConcertStore
	inventory TicketInventory
	gateway   billing.Gateway
	orders    *booking.Orders
	publisher EventPublisher
	log       *logger.Logger
}

// NewPurchaseService wires a PurchaseService.  publisher may be nil.
func NewPurchaseService(concerts ConcertStore, inv TicketInventory, gateway billing.Gateway, orders *booking.Orders, publisher EventPublisher, log *logger.Logger) *PurchaseService {
	if concerts == nil || inv == nil || gateway == nil || orders == nil {
		panic("nil dependency passed to NewPurchaseService")
	}
	return &PurchaseService{concerts: concerts, inventory: inv, gateway: gateway, orders: orders, publisher: publisher, log: log}
}

// Purchase buys req.TicketQuantity tickets for req.Email.  The concert is
// looked up before the request is validated.  Failures are
// ErrNotFound, *ValidationError, inventory.ErrInsufficientInventory,
// ErrPaymentDeclined or an internal error; in every failure case no
// ticket remains reserved by this attempt.
func (s *PurchaseService) Purchase(ctx context.Context, req PurchaseRequest) (order *model.Order, err error) {
	req.Email = strings.TrimSpace(req.Email)
	a := &attempt{req: req, state: StateRequested, log: s.log}
	defer func() {
		if r := recover(); r != nil {
			a.finish(fmt.Errorf("panic: %v", r))
			panic(r)
		}
		a.finish(err)
	}()

	concert, err := s.publishedConcert(ctx, req.ConcertID)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	a.to(StateReserving)
	tickets, err := s.inventory.FindAvailable(ctx, concert.ID, req.TicketQuantity)
	if err != nil {
		return nil, err
	}
	reservation := booking.NewReservation(tickets, req.Email, s.inventory)

	completed := false
	defer func() {
		if completed {
			return
		}
		r := recover()
		s.release(ctx, reservation)
		if r != nil {
			panic(r)
		}
	}()

	a.to(StateCharging)
	order, err = reservation.Complete(ctx, s.gateway, req.PaymentToken, s.orders)
	if err != nil {
		if errors.Is(err, billing.ErrPaymentFailed) {
			return nil, fmt.Errorf("%w: %w", ErrPaymentDeclined, err)
		}
		s.log.Error("PURCHASE", fmt.Sprintf("concert=%d email=%s: %v", concert.ID, req.Email, err))
		return nil, err
	}
	completed = true
	a.to(StateCompleted)

	s.log.Info("PURCHASE", fmt.Sprintf("order %s: %d tickets for concert=%d, %d cents", order.ConfirmationNumber, order.TicketQuantity(), concert.ID, order.AmountCents))
	s.publish(ctx, concert, order)
	return order, nil
}

// release cancels the reservation even if the request was cancelled.
func (s *PurchaseService) release(ctx context.Context, r *booking.Reservation) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.Cancel(ctx); err != nil {
		s.log.Error("PURCHASE", fmt.Sprintf("release of %d reserved tickets failed: %v", len(r.Tickets()), err))
		return
	}
	metrics.TicketsReleased.WithLabelValues("purchase_failed").Add(float64(len(r.Tickets())))
}

func (s *PurchaseService) publish(ctx context.Context, concert *model.Concert, order *model.Order) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.publisher.PublishOrderConfirmed(ctx, queue.NewOrderConfirmedEvent(concert, order)); err != nil {
		s.log.Warn("PURCHASE", fmt.Sprintf("order %s confirmed but event not published: %v", order.ConfirmationNumber, err))
	}
}

func (s *PurchaseService) publishedConcert(ctx context.Context, id uint64) (*model.Concert, error) {
	concert, err := s.concerts.ConcertByID(ctx, id)
	if errors.Is(err, model.ErrConcertNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load concert %d: %w", id, err)
	}
	if !concert.IsPublished() {
		return nil, ErrNotFound
	}
	return concert, nil
}

// ConcertView is a published concert with its remaining stock.
type ConcertView struct {
	Concert          *model.Concert
	TicketsRemaining int
}

// PublishedConcert returns the concert shown on the public concert page.
func (s *PurchaseService) PublishedConcert(ctx context.Context, id uint64) (*ConcertView, error) {
	concert, err := s.publishedConcert(ctx, id)
	if err != nil {
		return nil, err
	}
	remaining, err := s.inventory.TicketsRemaining(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count tickets: %w", err)
	}
	return &ConcertView{Concert: concert, TicketsRemaining: remaining}, nil
}

// Order returns the order with the given confirmation number.
func (s *PurchaseService) Order(ctx context.Context, confirmationNumber string) (*model.Order, error) {
	return s.orders.FindByConfirmationNumber(ctx, confirmationNumber)
}

// CancelOrder restocks the order's tickets and deletes it.
func (s *PurchaseService) CancelOrder(ctx context.Context, confirmationNumber string) error {
	order, err := s.orders.FindByConfirmationNumber(ctx, confirmationNumber)
	if err != nil {
		return err
	}
	if err := s.orders.Cancel(ctx, order); err != nil {
		return err
	}
	s.log.Info("ORDER", fmt.Sprintf("order %s cancelled, %d tickets restocked", order.ConfirmationNumber, order.TicketQuantity()))
	return nil
}

// OrdersFor returns the concert's orders placed by email.
func (s *PurchaseService) OrdersFor(ctx context.Context, concertID uint64, email string) ([]model.Order, error) {
	return s.orders.ForEmail(ctx, concertID, email)
}
