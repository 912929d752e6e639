package model

import "time"

// Order statuses.  PENDING_PAYMENT is the only initial state.
// CONFIRMED, CANCELLED_TIMEOUT and CANCELLED_MANUAL are terminal.
const (
	OrderPendingPayment   = "PENDING_PAYMENT"
	OrderPaymentSubmitted = "PAYMENT_SUBMITTED"
	OrderConfirmed        = "CONFIRMED"
	OrderCancelledTimeout = "CANCELLED_TIMEOUT"
	OrderCancelledManual  = "CANCELLED_MANUAL"
)

// Payment methods accepted at checkout.
const (
	PaymentBankTransfer = "bank_transfer"
	PaymentLinePay      = "line_pay"
)

// ValidPaymentMethod reports whether m is an accepted payment method.
func ValidPaymentMethod(m string) bool {
	return m == PaymentBankTransfer || m == PaymentLinePay
}

// orderTransitions enumerates the legal status transitions.  Anything
// not listed here is an invalid transition; the lifecycle service is
// the only writer of order status and rejects everything else.
var orderTransitions = map[string][]string{
	OrderPendingPayment:   {OrderPaymentSubmitted, OrderCancelledTimeout, OrderCancelledManual},
	OrderPaymentSubmitted: {OrderConfirmed, OrderCancelledManual},
}

// CanTransition reports whether an order may move from one status to
// another.  Terminal statuses have no outgoing transitions.
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TerminalOrderStatus reports whether the status is terminal.
func TerminalOrderStatus(s string) bool {
	return s == OrderConfirmed || s == OrderCancelledTimeout || s == OrderCancelledManual
}

// Order groups one or more registration items under a single payment.
// Monetary fields are stored in cents.  FinalCents is always
// TotalCents − DiscountCents, floored at zero.  PaymentDeadline is
// fixed at creation time; once it passes an order still in
// PENDING_PAYMENT is cancelled automatically and its reserved capacity
// released.
//
// Fields:
//  ID              – primary key identifier.
//  OrderNumber     – human-readable number (creation date + random suffix).
//  ParentID        – registering parent (from the identity token).
//  Status          – see constants above.
//  TotalCents      – sum of item prices.
//  DiscountCents   – order-level discount.
//  FinalCents      – amount due.
//  PaymentDeadline – hard deadline for proof submission.
//  GroupCode       – optional free-form join key, never capacity-checked.
//  PaymentMethod   – bank_transfer or line_pay.
//  PaymentProofURL – set only after proof submission.
//  Notes           – optional free text from the caller.
type Order struct {
	ID              uint64      `json:"id"`
	OrderNumber     string      `json:"order_number"`
	ParentID        uint64      `json:"parent_id"`
	Status          string      `json:"status"`
	TotalCents      int64       `json:"total_cents"`
	DiscountCents   int64       `json:"discount_cents"`
	FinalCents      int64       `json:"final_cents"`
	PaymentDeadline time.Time   `json:"payment_deadline"`
	GroupCode       *string     `json:"group_code,omitempty"`
	PaymentMethod   string      `json:"payment_method"`
	PaymentProofURL *string     `json:"payment_proof_url,omitempty"`
	Notes           *string     `json:"notes,omitempty"`
	Items           []OrderItem `json:"items,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
