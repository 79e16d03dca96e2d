package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/concert-ticketing/internal/logger"
	"github.com/iliyamo/concert-ticketing/internal/model"
	"github.com/iliyamo/concert-ticketing/internal/service"
)

// OrderHandler serves ticket purchases and the order page.
type OrderHandler struct {
	Purchases *service.PurchaseService
	Log       *logger.Logger
}

// NewOrderHandler panics if purchases is nil.
func NewOrderHandler(purchases *service.PurchaseService, log *logger.Logger) *OrderHandler {
	if purchases == nil {
		panic("nil purchase service passed to NewOrderHandler")
	}
	return &OrderHandler{Purchases: purchases, Log: log}
}

// purchaseRequest is the JSON body of POST /v1/concerts/:id/orders.
type purchaseRequest struct {
	Email          string `json:"email"`
	TicketQuantity int    `json:"ticket_quantity"`
	PaymentToken   string `json:"payment_token"`
}

type ticketJSON struct {
	Code string `json:"code"`
}

// orderJSON is the purchase response.  Amount is in cents.
type orderJSON struct {
	ConfirmationNumber string       `json:"confirmation_number"`
	Email              string       `json:"email"`
	Amount             int64        `json:"amount"`
	Tickets            []ticketJSON `json:"tickets"`
}

// orderDetailJSON is the order page.
type orderDetailJSON struct {
	orderJSON
	ConcertID    uint64    `json:"concert_id"`
	CardLastFour string    `json:"card_last_four"`
	CreatedAt    time.Time `json:"created_at"`
}

func newOrderJSON(o *model.Order) orderJSON {
	out := orderJSON{
		ConfirmationNumber: o.ConfirmationNumber,
		Email:              o.Email,
		Amount:             o.AmountCents,
		Tickets:            make([]ticketJSON, 0, len(o.Tickets)),
	}
	for _, t := range o.Tickets {
		if t.Code != nil {
			out.Tickets = append(out.Tickets, ticketJSON{Code: *t.Code})
		}
	}
	return out
}

// Purchase handles POST /v1/concerts/:id/orders.
func (h *OrderHandler) Purchase(c echo.Context) error {
	id, ok := concertID(c)
	if !ok {
		return writeError(c, h.Log, service.ErrNotFound)
	}
	var req purchaseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	order, err := h.Purchases.Purchase(c.Request().Context(), service.PurchaseRequest{
		ConcertID:      id,
		Email:          req.Email,
		TicketQuantity: req.TicketQuantity,
		PaymentToken:   req.PaymentToken,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, newOrderJSON(order))
}

// Show handles GET /v1/orders/:confirmation_number.
func (h *OrderHandler) Show(c echo.Context) error {
	order, err := h.Purchases.Order(c.Request().Context(), c.Param("confirmation_number"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, orderDetailJSON{
		orderJSON:    newOrderJSON(order),
		ConcertID:    order.ConcertID,
		CardLastFour: order.CardLastFour,
		CreatedAt:    order.CreatedAt,
	})
}

// Cancel handles DELETE /v1/orders/:confirmation_number.  The order's
// tickets go back on sale.
func (h *OrderHandler) Cancel(c echo.Context) error {
	if err := h.Purchases.CancelOrder(c.Request().Context(), c.Param("confirmation_number")); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
