// Package router registers the HTTP routes and the middleware that guards
// each group.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/concert-ticketing/internal/config"
	"github.com/iliyamo/concert-ticketing/internal/handler"
	"github.com/iliyamo/concert-ticketing/internal/logger"
)

// Deps carries what the route groups need.  Redis and DB may be nil.
type Deps struct {
	Log       *logger.Logger
	JWTSecret string
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	DB        handler.Pinger

	Orders    *handler.OrderHandler
	Concerts  *handler.ConcertHandler
	Backstage *handler.BackstageHandler
}

// scripter and cmdable avoid handing middleware a typed nil client.
func (d Deps) scripter() redis.Scripter {
	if d.Redis == nil {
		return nil
	}
	return d.Redis
}

func (d Deps) cmdable() redis.Cmdable {
	if d.Redis == nil {
		return nil
	}
	return d.Redis
}

// RegisterRoutes registers every route group on e.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	RegisterStorefront(e, d)
	RegisterBackstage(e, d)
}
