package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/concert-ticketing/internal/logger"
	"github.com/iliyamo/concert-ticketing/internal/service"
)

// BackstageHandler lets promoters stock and publish their own concerts.
// Routes are behind JWTAuth and RequireRole(PROMOTER).
type BackstageHandler struct {
	Backstage *service.BackstageService
	Log       *logger.Logger
}

type addTicketsRequest struct {
	Quantity int `json:"quantity"`
}

// getUserID extracts the user_id stored by JWTAuth.  Numeric JWT claims
// arrive as float64, string subjects as string.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case float64:
		if t > 0 {
			return uint64(t), nil
		}
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil && n > 0 {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// AddTickets handles POST /v1/backstage/concerts/:id/tickets.
func (h *BackstageHandler) AddTickets(c echo.Context) error {
	promoterID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := concertID(c)
	if !ok {
		return writeError(c, h.Log, service.ErrNotFound)
	}
	var req addTicketsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	remaining, err := h.Backstage.AddTickets(c.Request().Context(), promoterID, id, req.Quantity)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"concert_id": id, "tickets_remaining": remaining})
}

// Publish handles POST /v1/backstage/concerts/:id/publish.
func (h *BackstageHandler) Publish(c echo.Context) error {
	promoterID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := concertID(c)
	if !ok {
		return writeError(c, h.Log, service.ErrNotFound)
	}
	con, err := h.Backstage.Publish(c.Request().Context(), promoterID, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"concert_id": con.ID, "published_at": con.PublishedAt})
}
