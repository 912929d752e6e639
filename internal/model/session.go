package model

import "time"

// Session statuses.  Only ACTIVE sessions accept new registrations;
// COMPLETED and CANCELLED sessions reject reservations regardless of
// remaining capacity.
const (
	SessionActive    = "ACTIVE"
	SessionCompleted = "COMPLETED"
	SessionCancelled = "CANCELLED"
)

// Session represents a scheduled, capacity-limited course instance.
// Capacity is the publicly advertised number of slots.  HiddenBuffer is
// an administrative overbooking allowance layered on top of Capacity;
// it is consulted only by override admission paths and must never be
// serialized in availability responses.  CurrentRegistrations counts
// admitted, non-cancelled order items (addon items excluded).
//
// Fields:
//  ID                   – primary key identifier.
//  Title                – course title for display and audit events.
//  Capacity             – public visible slots.
//  HiddenBuffer         – extra admin-only slots.
//  CurrentRegistrations – admitted registrant count.
//  Status               – ACTIVE, COMPLETED or CANCELLED.
//  CreatedAt/UpdatedAt  – row timestamps.
type Session struct {
	ID                   uint64    // sessions.id
	Title                string    // sessions.title
	PriceCents           int64     // sessions.price_cents
	Capacity             int64     // sessions.capacity
	HiddenBuffer         int64     // sessions.hidden_buffer
	CurrentRegistrations int64     // sessions.current_registrations
	Status               string    // sessions.status
	CreatedAt            time.Time // sessions.created_at
	UpdatedAt            time.Time // sessions.updated_at
}

// Remaining returns the publicly visible free slots.  The hidden buffer
// is deliberately excluded; callers on the admin override path must add
// it themselves.  The result can be negative when admin overbooking has
// pushed registrations past the public capacity.
func (s *Session) Remaining() int64 {
	return s.Capacity - s.CurrentRegistrations
}

// SessionAvailability is the public availability projection of a
// session.  Available is floored at zero so that admin overbooking via
// the hidden buffer never surfaces as a negative figure.
type SessionAvailability struct {
	SessionID      uint64 `json:"session_id"`
	Title          string `json:"title"`
	Capacity       int64  `json:"capacity"`
	Registered     int64  `json:"registered"`
	Available      int64  `json:"available"`
	IsWaitlistOnly bool   `json:"is_waitlist_only"`
}
