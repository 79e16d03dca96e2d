package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/concert-ticketing/internal/logger"
	"github.com/iliyamo/concert-ticketing/internal/model"
)

// ErrForbidden is returned when a promoter acts on a concert they do not
// own.  Handlers translate it into 403.
var ErrForbidden = errors.New("forbidden")

// BackstageService lets promoters stock and publish their concerts.
type BackstageService struct {
	concerts  ConcertStore
	inventory TicketInventory
	log       *logger.Logger
	now       func() time.Time
}

// NewBackstageService returns a BackstageService.
func NewBackstageService(concerts ConcertStore, inv TicketInventory, log *logger.Logger) *BackstageService {
	return &BackstageService{concerts: concerts, inventory: inv, log: log, now: time.Now}
}

// ownedConcert loads the concert and checks promoterID owns it.
func (s *BackstageService) ownedConcert(ctx context.Context, promoterID, concertID uint64) (*model.Concert, error) {
	c, err := s.concerts.ConcertByID(ctx, concertID)
	if errors.Is(err, model.ErrConcertNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load concert %d: %w", concertID, err)
	}
	if c.PromoterID != promoterID {
		return nil, ErrForbidden
	}
	return c, nil
}

// AddTickets puts quantity more tickets on sale and returns the new
// number remaining.
func (s *BackstageService) AddTickets(ctx context.Context, promoterID, concertID uint64, quantity int) (int, error) {
	if quantity < 1 {
		return 0, &ValidationError{Fields: map[string]string{"quantity": "must be at least 1"}}
	}
	if _, err := s.ownedConcert(ctx, promoterID, concertID); err != nil {
		return 0, err
	}
	if err := s.inventory.AddTickets(ctx, concertID, quantity); err != nil {
		return 0, fmt.Errorf("add tickets: %w", err)
	}
	s.log.Info("BACKSTAGE", fmt.Sprintf("promoter=%d added %d tickets to concert=%d", promoterID, quantity, concertID))
	return s.inventory.TicketsRemaining(ctx, concertID)
}

// Publish makes the concert purchasable.  Publishing twice keeps the
// original publication time.
func (s *BackstageService) Publish(ctx context.Context, promoterID, concertID uint64) (*model.Concert, error) {
	if _, err := s.ownedConcert(ctx, promoterID, concertID); err != nil {
		return nil, err
	}
	if err := s.concerts.PublishConcert(ctx, concertID, s.now()); err != nil {
		return nil, fmt.Errorf("publish concert: %w", err)
	}
	s.log.Info("BACKSTAGE", fmt.Sprintf("promoter=%d published concert=%d", promoterID, concertID))
	return s.concerts.ConcertByID(ctx, concertID)
}
