package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/concert-ticketing/internal/logger"
	"github.com/iliyamo/concert-ticketing/internal/service"
)

// ConcertHandler serves the public concert page.
type ConcertHandler struct {
	Purchases *service.PurchaseService
	Log       *logger.Logger
}

// PublicConcert is a published concert as customers see it.  Promoter and
// timestamps are never exposed.
type PublicConcert struct {
	ID               uint64    `json:"id"`
	Title            string    `json:"title"`
	Subtitle         string    `json:"subtitle"`
	Venue            string    `json:"venue"`
	City             string    `json:"city"`
	Date             time.Time `json:"date"`
	TicketPrice      int64     `json:"ticket_price"`           // cents
	TicketPriceText  string    `json:"ticket_price_formatted"` // "32.50"
	TicketsRemaining int       `json:"tickets_remaining"`
}

// Show handles GET /v1/concerts/:id.
func (h *ConcertHandler) Show(c echo.Context) error {
	id, ok := concertID(c)
	if !ok {
		return writeError(c, h.Log, service.ErrNotFound)
	}
	view, err := h.Purchases.PublishedConcert(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	con := view.Concert
	return c.JSON(http.StatusOK, PublicConcert{
		ID:               con.ID,
		Title:            con.Title,
		Subtitle:         con.Subtitle,
		Venue:            con.Venue,
		City:             con.City,
		Date:             con.Date,
		TicketPrice:      con.TicketPriceCents,
		TicketPriceText:  decimal.New(con.TicketPriceCents, -2).StringFixed(2),
		TicketsRemaining: view.TicketsRemaining,
	})
}
