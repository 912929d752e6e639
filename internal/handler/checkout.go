package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/course-registration/internal/booking"
	"github.com/iliyamo/course-registration/internal/model"
)

// OrderHandler serves the storefront checkout: order creation, order
// listing and payment-proof submission.  All admission decisions happen
// server-side inside the lifecycle's transaction; the handler only
// binds input and maps engine errors to HTTP responses.
type OrderHandler struct {
	Store     booking.Store
	Lifecycle *booking.OrderLifecycle
}

// NewOrderHandler constructs an OrderHandler.  Dependencies must be
// non-nil.
func NewOrderHandler(store booking.Store, lifecycle *booking.OrderLifecycle) *OrderHandler {
	if store == nil || lifecycle == nil {
		panic("nil dependency passed to NewOrderHandler")
	}
	return &OrderHandler{Store: store, Lifecycle: lifecycle}
}

// createOrderBody is the checkout request payload.
type createOrderBody struct {
	Items         []booking.ItemRequest `json:"items"`
	GroupCode     *string               `json:"group_code,omitempty"`
	PaymentMethod string                `json:"payment_method"`
	Notes         *string               `json:"notes,omitempty"`
	JoinWaitlist  bool                  `json:"join_waitlist"`
}

// orderResponse shapes an order for API responses.  The payment
// deadline is rendered in RFC3339 so the storefront can count down
// without caring about the storage format.
type orderResponse struct {
	ID              uint64            `json:"id"`
	OrderNumber     string            `json:"order_number"`
	Status          string            `json:"status"`
	TotalCents      int64             `json:"total_cents"`
	DiscountCents   int64             `json:"discount_cents"`
	FinalCents      int64             `json:"final_cents"`
	PaymentDeadline string            `json:"payment_deadline"`
	GroupCode       *string           `json:"group_code,omitempty"`
	PaymentMethod   string            `json:"payment_method"`
	PaymentProofURL *string           `json:"payment_proof_url,omitempty"`
	Notes           *string           `json:"notes,omitempty"`
	Items           []model.OrderItem `json:"items"`
	CreatedAt       string            `json:"created_at"`
}

func toOrderResponse(o *model.Order) orderResponse {
	items := o.Items
	if items == nil {
		items = []model.OrderItem{}
	}
	return orderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		Status:          o.Status,
		TotalCents:      o.TotalCents,
		DiscountCents:   o.DiscountCents,
		FinalCents:      o.FinalCents,
		PaymentDeadline: o.PaymentDeadline.UTC().Format(time.RFC3339),
		GroupCode:       o.GroupCode,
		PaymentMethod:   o.PaymentMethod,
		PaymentProofURL: o.PaymentProofURL,
		Notes:           o.Notes,
		Items:           items,
		CreatedAt:       o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// CreateOrder handles POST /v1/orders.  It admits, prices and persists
// a registration order in one shot.  Capacity failures return 409; when
// the caller opted into the waitlist the response additionally lists
// the entries that were enqueued in place of the order.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	parentID, err := getParentID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body createOrderBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "items is required"})
	}
	if !model.ValidPaymentMethod(body.PaymentMethod) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment method"})
	}
	for _, it := range body.Items {
		if it.SessionID == 0 || it.ChildID == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "each item needs session_id and child_id"})
		}
	}

	result, err := h.Lifecycle.Create(c.Request().Context(), booking.CreateOrderRequest{
		ParentID:      parentID,
		Items:         body.Items,
		GroupCode:     body.GroupCode,
		PaymentMethod: body.PaymentMethod,
		Notes:         body.Notes,
		JoinWaitlist:  body.JoinWaitlist,
	})
	if err != nil {
		if errors.Is(err, booking.ErrCapacityExceeded) {
			resp := echo.Map{"error": "capacity exceeded"}
			if errors.Is(err, booking.ErrRoleFull) {
				resp["error"] = "role full"
			}
			if result != nil && len(result.Waitlisted) > 0 {
				resp["waitlisted"] = result.Waitlisted
			}
			return c.JSON(http.StatusConflict, resp)
		}
		switch {
		case errors.Is(err, booking.ErrSessionNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		case errors.Is(err, booking.ErrSessionInactive):
			return c.JSON(http.StatusConflict, echo.Map{"error": "session is not accepting registrations"})
		case errors.Is(err, booking.ErrRoleNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found for session"})
		case errors.Is(err, booking.ErrRoleNotRequired):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "session has no roles; omit role_id"})
		case errors.Is(err, booking.ErrEmptyOrder):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "items is required"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create order"})
		}
	}
	return c.JSON(http.StatusCreated, toOrderResponse(result.Order))
}

// GetOrder handles GET /v1/orders/:id.  Parents can only read their own
// orders.
func (h *OrderHandler) GetOrder(c echo.Context) error {
	parentID, err := getParentID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	o, err := h.Store.OrderByID(c.Request().Context(), orderID)
	if err != nil {
		if errors.Is(err, booking.ErrOrderNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if o.ParentID != parentID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}

// ListOrders handles GET /v1/orders, returning the caller's orders
// newest first.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	parentID, err := getParentID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orders, err := h.Store.OrdersByParent(c.Request().Context(), parentID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResponse(&orders[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}
