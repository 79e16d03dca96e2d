package router_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/concert-ticketing/internal/billing"
	"github.com/iliyamo/concert-ticketing/internal/booking"
	"github.com/iliyamo/concert-ticketing/internal/config"
	"github.com/iliyamo/concert-ticketing/internal/handler"
	"github.com/iliyamo/concert-ticketing/internal/inventory"
	"github.com/iliyamo/concert-ticketing/internal/logger"
	"github.com/iliyamo/concert-ticketing/internal/model"
	"github.com/iliyamo/concert-ticketing/internal/router"
	"github.com/iliyamo/concert-ticketing/internal/service"
	"github.com/iliyamo/concert-ticketing/internal/storage"
	"github.com/iliyamo/concert-ticketing/internal/utils"
)

const secret = "router-secret"

func newServer(t *testing.T) (*echo.Echo, *storage.MemoryStore) {
	t.Helper()
	log := logger.Discard()
	store := storage.NewMemoryStore()
	inv := inventory.New(store, inventory.NewLocalLocker(0), log)
	orders := booking.NewOrders(store, booking.RandomConfirmationNumber, func(tk model.Ticket) (string, error) {
		return fmt.Sprintf("CODE%d", tk.ID), nil
	})
	purchases := service.NewPurchaseService(store, inv, billing.NewFakeGateway(), orders, nil, log)

	e := echo.New()
	router.RegisterRoutes(e, router.Deps{
		Log:       log,
		JWTSecret: secret,
		RateLimit: config.RateLimitConfig{Enabled: true, Capacity: 100, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute},
		Cache:     config.CacheConfig{Enabled: true},
		Orders:    handler.NewOrderHandler(purchases, log),
		Concerts:  &handler.ConcertHandler{Purchases: purchases, Log: log},
		Backstage: &handler.BackstageHandler{Backstage: service.NewBackstageService(store, inv, log), Log: log},
	})
	return e, store
}

func call(e *echo.Echo, method, target, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPromoterStocksPublishesAndSellsAConcert(t *testing.T) {
	e, store := newServer(t)
	c := &model.Concert{PromoterID: 3, Title: "Gig", TicketPriceCents: 1500}
	require.NoError(t, store.CreateConcert(context.Background(), c))
	tok, err := utils.NewAccessToken(secret, 3, "PROMOTER", 5)
	require.NoError(t, err)

	rec := call(e, http.MethodPost, fmt.Sprintf("/v1/backstage/concerts/%d/tickets", c.ID), `{"quantity":4}`, tok.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = call(e, http.MethodPost, fmt.Sprintf("/v1/backstage/concerts/%d/publish", c.ID), "", tok.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(e, http.MethodPost, fmt.Sprintf("/v1/concerts/%d/orders", c.ID),
		`{"email":"fan@example.com","ticket_quantity":2,"payment_token":"`+billing.TestToken+`"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"amount":3000`)
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestBackstageRequiresPromoterToken(t *testing.T) {
	e, _ := newServer(t)
	customer, err := utils.NewAccessToken(secret, 3, "CUSTOMER", 5)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, call(e, http.MethodPost, "/v1/backstage/concerts/1/publish", "", "").Code)
	assert.Equal(t, http.StatusForbidden, call(e, http.MethodPost, "/v1/backstage/concerts/1/publish", "", customer.Token).Code)
}

func TestOperationalEndpoints(t *testing.T) {
	e, _ := newServer(t)

	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/healthz", "", "").Code)
	rec := call(e, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
