package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/concert-ticketing/internal/billing"
	"github.com/iliyamo/concert-ticketing/internal/booking"
	"github.com/iliyamo/concert-ticketing/internal/inventory"
	"github.com/iliyamo/concert-ticketing/internal/logger"
	"github.com/iliyamo/concert-ticketing/internal/model"
	"github.com/iliyamo/concert-ticketing/internal/service"
	"github.com/iliyamo/concert-ticketing/internal/storage"
)

type app struct {
	e       *echo.Echo
	store   *storage.MemoryStore
	inv     *inventory.Inventory
	gateway *billing.FakeGateway
}

func newApp(t *testing.T) *app {
	t.Helper()
	log := logger.Discard()
	store := storage.NewMemoryStore()
	inv := inventory.New(store, inventory.NewLocalLocker(0), log)
	gateway := billing.NewFakeGateway()

	var mu sync.Mutex
	n := 0
	codes := func(model.Ticket) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("TICKETCODE%d", n), nil
	}
	orders := booking.NewOrders(store, func() string { return "ORDERCONFIRMATION1234" }, codes)
	purchases := service.NewPurchaseService(store, inv, gateway, orders, nil, log)

	e := echo.New()
	oh := NewOrderHandler(purchases, log)
	ch := &ConcertHandler{Purchases: purchases, Log: log}
	bh := &BackstageHandler{Backstage: service.NewBackstageService(store, inv, log), Log: log}
	e.GET("/v1/concerts/:id", ch.Show)
	e.POST("/v1/concerts/:id/orders", oh.Purchase)
	e.GET("/v1/orders/:confirmation_number", oh.Show)
	e.DELETE("/v1/orders/:confirmation_number", oh.Cancel)

	// Stands in for JWTAuth: the X-Promoter header carries the subject.
	asPromoter := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", c.Request().Header.Get("X-Promoter"))
			return next(c)
		}
	}
	g := e.Group("/v1/backstage", asPromoter)
	g.POST("/concerts/:id/tickets", bh.AddTickets)
	g.POST("/concerts/:id/publish", bh.Publish)

	return &app{e: e, store: store, inv: inv, gateway: gateway}
}

func (a *app) concert(t *testing.T, price int64, tickets int, published bool) *model.Concert {
	t.Helper()
	ctx := context.Background()
	c := &model.Concert{
		PromoterID: 1, Title: "The Red Chord", Subtitle: "with Animosity and Lethargy",
		Venue: "The Mosh Pit", City: "Laraville", Date: time.Date(2026, 12, 13, 20, 0, 0, 0, time.UTC),
		TicketPriceCents: price,
	}
	require.NoError(t, a.store.CreateConcert(ctx, c))
	if tickets > 0 {
		require.NoError(t, a.store.AddTickets(ctx, c.ID, tickets))
	}
	if published {
		require.NoError(t, a.store.PublishConcert(ctx, c.ID, time.Now()))
	}
	return c
}

func (a *app) do(method, target, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *app) orderTickets(c *model.Concert, body string) *httptest.ResponseRecorder {
	return a.do(http.MethodPost, fmt.Sprintf("/v1/concerts/%d/orders", c.ID), body)
}

func (a *app) remaining(t *testing.T, c *model.Concert) int {
	t.Helper()
	n, err := a.inv.TicketsRemaining(context.Background(), c.ID)
	require.NoError(t, err)
	return n
}

func validationErrors(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Errors
}

func TestCustomerCanPurchaseTicketsToAPublishedConcert(t *testing.T) {
	a := newApp(t)
	c := a.concert(t, 3250, 3, true)

	rec := a.orderTickets(c, `{"email":"john@example.com","ticket_quantity":3,"payment_token":"`+a.gateway.ValidTestToken()+`"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{
		"confirmation_number": "ORDERCONFIRMATION1234",
		"email": "john@example.com",
		"amount": 9750,
		"tickets": [{"code": "TICKETCODE1"}, {"code": "TICKETCODE2"}, {"code": "TICKETCODE3"}]
	}`, rec.Body.String())
	assert.Equal(t, int64(9750), a.gateway.TotalCharges())
	assert.Equal(t, 0, a.remaining(t, c))
}

func TestCannotPurchaseTicketsToAnUnpublishedConcert(t *testing.T) {
	a := newApp(t)
	c := a.concert(t, 3250, 3, false)

	rec := a.orderTickets(c, `{"email":"john@example.com","ticket_quantity":3,"payment_token":"`+billing.TestToken+`"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, a.gateway.TotalCharges())
	assert.Equal(t, 3, a.remaining(t, c))
}

func TestUnknownConcertIDsAreNotFound(t *testing.T) {
	a := newApp(t)

	for _, target := range []string{"/v1/concerts/999/orders", "/v1/concerts/abc/orders"} {
		rec := a.do(http.MethodPost, target, `{"email":"john@example.com","ticket_quantity":1,"payment_token":"x"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}
}

func TestInvalidOrderForUnpublishedOrMissingConcertIsNotFound(t *testing.T) {
	a := newApp(t)
	c := a.concert(t, 3250, 3, false)

	for _, target := range []string{fmt.Sprintf("/v1/concerts/%d/orders", c.ID), "/v1/concerts/999/orders"} {
		rec := a.do(http.MethodPost, target, `{"email":"","ticket_quantity":0}`)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}
	assert.Equal(t, 3, a.remaining(t, c))
}

func TestAnOrderIsNotCreatedIfPaymentFails(t *testing.T) {
	a := newApp(t)
	c := a.concert(t, 3250, 3, true)

	rec := a.orderTickets(c, `{"email":"john@example.com","ticket_quantity":3,"payment_token":"invalid-payment-token"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 3, a.remaining(t, c))
	assert.Zero(t, a.store.CountByStatus(context.Background(), c.ID, model.TicketReserved))
}

func TestCannotPurchaseMoreTicketsThanRemain(t *testing.T) {
	a := newApp(t)
	c := a.concert(t, 3250, 50, true)

	rec := a.orderTickets(c, `{"email":"john@example.com","ticket_quantity":52,"payment_token":"`+billing.TestToken+`"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, a.gateway.TotalCharges())
	assert.Equal(t, 50, a.remaining(t, c))
}

func TestCannotPurchaseTicketsAnotherCustomerIsAlreadyTryingToPurchase(t *testing.T) {
	a := newApp(t)
	c := a.concert(t, 1200, 3, true)

	a.gateway.BeforeFirstCharge(func(g *billing.FakeGateway) {
		rec := a.orderTickets(c, `{"email":"personB@example.com","ticket_quantity":1,"payment_token":"`+g.ValidTestToken()+`"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, 0, a.remaining(t, c))
	})

	rec := a.orderTickets(c, `{"email":"personA@example.com","ticket_quantity":3,"payment_token":"`+a.gateway.ValidTestToken()+`"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(3600), a.gateway.TotalCharges())
}

func TestPurchaseValidation(t *testing.T) {
	a := newApp(t)
	c := a.concert(t, 3250, 3, true)
	cases := map[string]struct {
		body  string
		field string
	}{
		"email is required":            {`{"ticket_quantity":1,"payment_token":"` + billing.TestToken + `"}`, "email"},
		"email must be valid":          {`{"email":"not-an-email","ticket_quantity":1,"payment_token":"` + billing.TestToken + `"}`, "email"},
		"ticket quantity is required":  {`{"email":"john@example.com","payment_token":"` + billing.TestToken + `"}`, "ticket_quantity"},
		"ticket quantity must be >= 1": {`{"email":"john@example.com","ticket_quantity":0,"payment_token":"` + billing.TestToken + `"}`, "ticket_quantity"},
		"payment token is required":    {`{"email":"john@example.com","ticket_quantity":1}`, "payment_token"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := a.orderTickets(c, tc.body)

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, validationErrors(t, rec), tc.field)
		})
	}
	assert.Equal(t, 3, a.remaining(t, c))
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	a := newApp(t)
	c := a.concert(t, 3250, 3, true)

	rec := a.orderTickets(c, `{"email":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestViewingAndCancellingAnOrder(t *testing.T) {
	a := newApp(t)
	c := a.concert(t, 3250, 3, true)
	require.Equal(t, http.StatusCreated,
		a.orderTickets(c, `{"email":"john@example.com","ticket_quantity":2,"payment_token":"`+billing.TestToken+`"}`).Code)

	rec := a.do(http.MethodGet, "/v1/orders/ORDERCONFIRMATION1234", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var order struct {
		ConfirmationNumber string `json:"confirmation_number"`
		Amount             int64  `json:"amount"`
		CardLastFour       string `json:"card_last_four"`
		ConcertID          uint64 `json:"concert_id"`
		Tickets            []struct {
			Code string `json:"code"`
		} `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, int64(6500), order.Amount)
	assert.Equal(t, "4242", order.CardLastFour)
	assert.Equal(t, c.ID, order.ConcertID)
	assert.Len(t, order.Tickets, 2)

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/v1/orders/ORDERCONFIRMATION1234", "").Code)
	assert.Equal(t, 3, a.remaining(t, c))
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/v1/orders/ORDERCONFIRMATION1234", "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, "/v1/orders/ORDERCONFIRMATION1234", "").Code)
}

func TestPublicConcertPage(t *testing.T) {
	a := newApp(t)
	published := a.concert(t, 3250, 10, true)
	draft := a.concert(t, 3250, 10, false)

	rec := a.do(http.MethodGet, fmt.Sprintf("/v1/concerts/%d", published.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body PublicConcert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "The Red Chord", body.Title)
	assert.Equal(t, "32.50", body.TicketPriceText)
	assert.Equal(t, 10, body.TicketsRemaining)
	assert.NotContains(t, rec.Body.String(), "promoter")

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, fmt.Sprintf("/v1/concerts/%d", draft.ID), "").Code)
}

func TestBackstage(t *testing.T) {
	a := newApp(t)
	c := a.concert(t, 2000, 0, false)
	tickets := fmt.Sprintf("/v1/backstage/concerts/%d/tickets", c.ID)
	publish := fmt.Sprintf("/v1/backstage/concerts/%d/publish", c.ID)

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, tickets, `{"quantity":5}`, "X-Promoter", "2").Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, tickets, `{"quantity":5}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodPost, tickets, `{"quantity":0}`, "X-Promoter", "1").Code)

	rec := a.do(http.MethodPost, tickets, `{"quantity":5}`, "X-Promoter", "1")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"concert_id":%d,"tickets_remaining":5}`, c.ID), rec.Body.String())

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, fmt.Sprintf("/v1/concerts/%d", c.ID), "").Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodPost, publish, "", "X-Promoter", "1").Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, fmt.Sprintf("/v1/concerts/%d", c.ID), "").Code)
}

type pingerFunc func(context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/ok", Health(nil))
	e.GET("/down", Health(pingerFunc(func(context.Context) error { return errors.New("gone") })))

	for target, want := range map[string]int{"/ok": http.StatusOK, "/down": http.StatusServiceUnavailable} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, want, rec.Code, target)
	}
}
