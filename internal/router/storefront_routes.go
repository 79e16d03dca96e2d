package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/concert-ticketing/internal/middleware"
)

// RegisterStorefront registers the unauthenticated customer routes.  The
// concert page is cached; purchases and order changes are rate limited.
func RegisterStorefront(e *echo.Echo, d Deps) {
	limit := middleware.NewTokenBucket(d.RateLimit, d.scripter(), d.Log)
	cache := middleware.NewRedisCache(d.Cache, d.cmdable(), d.Log)

	g := e.Group("/v1")
	g.GET("/concerts/:id", d.Concerts.Show, cache)
	g.POST("/concerts/:id/orders", d.Orders.Purchase, limit)
	g.GET("/orders/:confirmation_number", d.Orders.Show, limit)
	g.DELETE("/orders/:confirmation_number", d.Orders.Cancel, limit)
}
