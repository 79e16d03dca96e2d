package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/concert-ticketing/internal/middleware"
)

// RegisterBackstage registers promoter routes under /v1/backstage.  All
// routes require a valid JWT with the PROMOTER role; ownership of the
// concert is checked by the service.
func RegisterBackstage(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1/backstage",
		middleware.JWTAuth(d.JWTSecret, d.Log),
		middleware.RequireRole(middleware.RolePromoter),
	)
	g.POST("/concerts/:id/tickets", d.Backstage.AddTickets)
	g.POST("/concerts/:id/publish", d.Backstage.Publish)
}
