package model

// OrderItem is a single (session, child, optional role) registration
// within an order.  Addon items reference a session for scheduling only
// and never consume session or role capacity.  DiscountCents is this
// item's share of the order discount; item shares always sum exactly to
// the order-level discount.
type OrderItem struct {
	ID            uint64  `json:"id"`
	OrderID       uint64  `json:"order_id"`
	SessionID     uint64  `json:"session_id"`
	ChildID       uint64  `json:"child_id"`
	RoleID        *uint64 `json:"role_id,omitempty"`
	PriceCents    int64   `json:"price_cents"`
	DiscountCents int64   `json:"discount_cents"`
	Addon         bool    `json:"addon"`
}

// Billable reports whether the item counts toward capacity and the
// discount tier.  Addons are never billable for tiering purposes.
func (i *OrderItem) Billable() bool { return !i.Addon }
