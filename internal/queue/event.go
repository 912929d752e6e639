// Package queue defines message payloads exchanged over the message
// broker and the background consumer that turns them into an audit log.
package queue

// Event types published on the registration.events queue.
const (
	TypeOrderCreated     = "order.created"
	TypeOrderCancelled   = "order.cancelled"
	TypePaymentSubmitted = "payment.submitted"
	TypeWaitlistOffered  = "waitlist.offered"
)

// Event is the envelope for every registration event.  Exactly one of
// Order or Waitlist is populated depending on Type.  Asynchronous side
// effects (deadline cancellations, waitlist promotions) have no caller
// to report to; these events are their observability record.
type Event struct {
	EventID    string         `json:"event_id"`
	Type       string         `json:"type"`
	OccurredAt string         `json:"occurred_at"`
	Reason     string         `json:"reason,omitempty"`
	Order      *OrderEvent    `json:"order,omitempty"`
	Waitlist   *WaitlistEvent `json:"waitlist,omitempty"`
}

// OrderEvent carries enough order state for downstream consumers to
// log, notify or run analytics without querying the primary database.
type OrderEvent struct {
	OrderID         uint64 `json:"order_id"`
	OrderNumber     string `json:"order_number"`
	ParentID        uint64 `json:"parent_id"`
	Status          string `json:"status"`
	TotalCents      int64  `json:"total_cents"`
	DiscountCents   int64  `json:"discount_cents"`
	FinalCents      int64  `json:"final_cents"`
	PaymentDeadline string `json:"payment_deadline"`
}

// WaitlistEvent describes an offer made to a queued registrant.  The
// notification service uses it to email the claim window to the parent.
type WaitlistEvent struct {
	EntryID   uint64  `json:"entry_id"`
	SessionID uint64  `json:"session_id"`
	RoleID    *uint64 `json:"role_id,omitempty"`
	ChildID   uint64  `json:"child_id"`
	ParentID  uint64  `json:"parent_id"`
	ExpiresAt string  `json:"expires_at,omitempty"`
}
