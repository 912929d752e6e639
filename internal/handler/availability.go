package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/course-registration/internal/booking"
)

// AvailabilityHandler serves the public browsing endpoints.  Responses
// expose only the public capacity figures; the hidden administrative
// buffer is not part of the projection the store produces, so it can
// never leak here.
type AvailabilityHandler struct {
	Store booking.Store
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(store booking.Store) *AvailabilityHandler {
	if store == nil {
		panic("nil store passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{Store: store}
}

// GetSessionAvailability handles GET /v1/sessions/availability.  It
// returns capacity, registered, available and is_waitlist_only per
// active session.  The advisory figure the storefront renders; the
// authoritative check happens at checkout.
func (h *AvailabilityHandler) GetSessionAvailability(c echo.Context) error {
	items, err := h.Store.SessionAvailability(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetRoleAvailability handles GET /v1/sessions/:id/roles, returning
// capacity, assigned and available per character role of the session.
func (h *AvailabilityHandler) GetRoleAvailability(c echo.Context) error {
	sessionID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	items, err := h.Store.RoleAvailability(c.Request().Context(), sessionID)
	if err != nil {
		if errors.Is(err, booking.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
