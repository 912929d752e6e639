package model

import "time"

// Waitlist entry statuses.  WAITING entries are promoted strictly FIFO
// by creation time.  CLAIMED and EXPIRED are terminal; an expired offer
// immediately triggers promotion of the next waiting entry for the same
// (session, role) pair.
const (
	WaitlistWaiting = "WAITING"
	WaitlistOffered = "OFFERED"
	WaitlistClaimed = "CLAIMED"
	WaitlistExpired = "EXPIRED"
)

// WaitlistEntry queues a registrant for a full session.  OfferedAt and
// ExpiresAt are populated only once an offer is made; an offer holds
// the freed slot (it is reserved in the ledger) so that it cannot be
// taken by a direct registration while the holder decides.
//
// Fields:
//  ID        – primary key identifier.
//  SessionID – session the registrant is waiting for.
//  RoleID    – optional role the registrant is waiting for.
//  ChildID   – child to be registered.
//  ParentID  – parent who owns the entry.
//  Status    – WAITING, OFFERED, CLAIMED or EXPIRED.
//  OfferedAt – when the slot was offered (nil while waiting).
//  ExpiresAt – offer claim deadline (nil while waiting).
type WaitlistEntry struct {
	ID        uint64     `json:"id"`
	SessionID uint64     `json:"session_id"`
	RoleID    *uint64    `json:"role_id,omitempty"`
	ChildID   uint64     `json:"child_id"`
	ParentID  uint64     `json:"parent_id"`
	Status    string     `json:"status"`
	OfferedAt *time.Time `json:"offered_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
