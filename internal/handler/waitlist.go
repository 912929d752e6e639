package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/course-registration/internal/booking"
)

// WaitlistHandler lets parents view their queue entries and claim
// offered slots.
type WaitlistHandler struct {
	Store    booking.Store
	Waitlist *booking.WaitlistManager
}

// NewWaitlistHandler constructs a WaitlistHandler.
func NewWaitlistHandler(store booking.Store, waitlist *booking.WaitlistManager) *WaitlistHandler {
	if store == nil || waitlist == nil {
		panic("nil dependency passed to NewWaitlistHandler")
	}
	return &WaitlistHandler{Store: store, Waitlist: waitlist}
}

// ListEntries handles GET /v1/waitlist, returning the caller's entries
// oldest first.
func (h *WaitlistHandler) ListEntries(c echo.Context) error {
	parentID, err := getParentID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Store.WaitlistByParent(c.Request().Context(), parentID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ClaimOffer handles POST /v1/waitlist/:id/claim.  Claiming a live
// offer finalizes the entry; the slot reserved at offer time stays
// with it.  A lapsed offer returns 410 and the slot moves to the next
// entry in line.
func (h *WaitlistHandler) ClaimOffer(c echo.Context) error {
	parentID, err := getParentID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	entryID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entry id"})
	}
	entry, err := h.Waitlist.Claim(c.Request().Context(), entryID, parentID)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrWaitlistEntryNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "waitlist entry not found"})
		case errors.Is(err, booking.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, booking.ErrOfferExpired):
			return c.JSON(http.StatusGone, echo.Map{"error": "offer expired"})
		case errors.Is(err, booking.ErrInvalidStateTransition):
			return c.JSON(http.StatusConflict, echo.Map{"error": "entry has no open offer"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to claim offer"})
		}
	}
	return c.JSON(http.StatusOK, entry)
}
