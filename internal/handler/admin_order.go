package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/course-registration/internal/booking"
	"github.com/iliyamo/course-registration/internal/model"
)

// AdminOrderHandler exposes the administrative lifecycle actions:
// confirming paid orders, manual cancellation and override order
// creation that may consume the hidden buffer.  Routes using it must
// be wrapped with RequireRole("ADMIN") and the admin key middleware.
type AdminOrderHandler struct {
	Lifecycle *booking.OrderLifecycle
}

// NewAdminOrderHandler constructs an AdminOrderHandler.
func NewAdminOrderHandler(lifecycle *booking.OrderLifecycle) *AdminOrderHandler {
	if lifecycle == nil {
		panic("nil lifecycle passed to NewAdminOrderHandler")
	}
	return &AdminOrderHandler{Lifecycle: lifecycle}
}

// ConfirmOrder handles POST /v1/admin/orders/:id/confirm, moving a
// PAYMENT_SUBMITTED order to CONFIRMED.
func (h *AdminOrderHandler) ConfirmOrder(c echo.Context) error {
	orderID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	order, err := h.Lifecycle.Confirm(c.Request().Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrOrderNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		case errors.Is(err, booking.ErrInvalidStateTransition):
			return c.JSON(http.StatusConflict, echo.Map{"error": "order has no submitted payment"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to confirm order"})
		}
	}
	return c.JSON(http.StatusOK, toOrderResponse(order))
}

// CancelOrder handles POST /v1/admin/orders/:id/cancel.  Cancelling a
// non-terminal order releases its reserved capacity and promotes
// waitlist entries in the same transaction.
func (h *AdminOrderHandler) CancelOrder(c echo.Context) error {
	orderID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	order, err := h.Lifecycle.CancelManual(c.Request().Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrOrderNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		case errors.Is(err, booking.ErrInvalidStateTransition):
			return c.JSON(http.StatusConflict, echo.Map{"error": "order is already in a terminal state"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel order"})
		}
	}
	return c.JSON(http.StatusOK, toOrderResponse(order))
}

// adminCreateBody is the override checkout payload.  parent_id is
// explicit because the admin registers on a family's behalf.
type adminCreateBody struct {
	ParentID      uint64                `json:"parent_id"`
	Items         []booking.ItemRequest `json:"items"`
	GroupCode     *string               `json:"group_code,omitempty"`
	PaymentMethod string                `json:"payment_method"`
	Notes         *string               `json:"notes,omitempty"`
}

// CreateOverrideOrder handles POST /v1/admin/orders.  Admission runs
// with the hidden buffer in scope, letting staff overbook past the
// public capacity up to capacity + hidden_buffer.
func (h *AdminOrderHandler) CreateOverrideOrder(c echo.Context) error {
	var body adminCreateBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ParentID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "parent_id is required"})
	}
	if len(body.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "items is required"})
	}
	if !model.ValidPaymentMethod(body.PaymentMethod) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment method"})
	}
	result, err := h.Lifecycle.Create(c.Request().Context(), booking.CreateOrderRequest{
		ParentID:      body.ParentID,
		Items:         body.Items,
		GroupCode:     body.GroupCode,
		PaymentMethod: body.PaymentMethod,
		Notes:         body.Notes,
		AllowBuffer:   true,
	})
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrCapacityExceeded):
			return c.JSON(http.StatusConflict, echo.Map{"error": "capacity exceeded even with buffer"})
		case errors.Is(err, booking.ErrSessionNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		case errors.Is(err, booking.ErrSessionInactive):
			return c.JSON(http.StatusConflict, echo.Map{"error": "session is not accepting registrations"})
		case errors.Is(err, booking.ErrRoleNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found for session"})
		case errors.Is(err, booking.ErrRoleNotRequired):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "session has no roles; omit role_id"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create order"})
		}
	}
	return c.JSON(http.StatusCreated, toOrderResponse(result.Order))
}
