// Package handler exposes the HTTP handlers for the storefront, order
// pages and the promoter backstage.  Handlers translate domain errors into
// status codes; they never touch storage directly.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/concert-ticketing/internal/inventory"
	"github.com/iliyamo/concert-ticketing/internal/logger"
	"github.com/iliyamo/concert-ticketing/internal/model"
	"github.com/iliyamo/concert-ticketing/internal/service"
)

// writeError maps err onto a JSON error response.
//
//	*service.ValidationError           -> 422 with per-field "errors"
//	service.ErrNotFound, ErrOrderNotFound -> 404
//	inventory.ErrInsufficientInventory -> 422
//	service.ErrPaymentDeclined         -> 422
//	service.ErrForbidden               -> 403
//	inventory.ErrLockTimeout           -> 503
//	anything else                      -> 500, logged
func writeError(c echo.Context, log *logger.Logger, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "validation failed", "errors": verr.Fields})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "concert not found"})
	case errors.Is(err, model.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	case errors.Is(err, inventory.ErrInsufficientInventory):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "not enough tickets remaining"})
	case errors.Is(err, service.ErrPaymentDeclined):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "payment failed"})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, inventory.ErrLockTimeout):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "concert is busy, try again"})
	}
	log.Error("HTTP", fmt.Sprintf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// concertID parses the :id path parameter.  An unparsable ID is reported
// the same way as a missing concert.
func concertID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}
