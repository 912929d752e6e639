// Package booking implements the capacity-constrained reservation and
// pricing engine: the capacity ledger, role assignment validation, the
// discount engine, the waitlist manager and the order lifecycle.  All
// admission decisions happen server-side inside a single transaction;
// callers never get a separate check and commit step.
package booking

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the engine.  Handlers compare these with
// errors.Is and translate them into HTTP responses.  None of them is
// ever swallowed: a failed admission attempt either returns one of
// these or enqueues a waitlist entry, never both silently.
var (
	// ErrSessionNotFound is returned when a referenced session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionInactive is returned when a session is completed or
	// cancelled.  Inactive sessions reject all new reservations
	// regardless of remaining capacity.
	ErrSessionInactive = errors.New("session inactive")

	// ErrCapacityExceeded is returned when a session or role has no free
	// slots.  It is recoverable: callers may opt into the waitlist.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrRoleNotFound is returned when a role id is not part of the
	// session's configured role list.  Referential integrity violation,
	// independent of capacity.
	ErrRoleNotFound = errors.New("role not found")

	// ErrRoleFull is returned when a role has no free sub-capacity.
	ErrRoleFull = errors.New("role full")

	// ErrRoleNotRequired is returned when the caller supplied a role for
	// a session that has no configured roles.
	ErrRoleNotRequired = errors.New("role not required for session")

	// ErrEmptyOrder is returned when an order request carries no items.
	ErrEmptyOrder = errors.New("order has no items")

	// ErrOrderNotFound is returned when a referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidStateTransition is returned on an illegal lifecycle
	// transition.  The public API should make this impossible; seeing it
	// indicates a programming error.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrOrderExpired is returned when the payment deadline has passed
	// before proof submission.  The reserved capacity has already been
	// (or is about to be) released by the deadline sweeper.
	ErrOrderExpired = errors.New("order expired")

	// ErrWaitlistEntryNotFound is returned when a waitlist entry does not exist.
	ErrWaitlistEntryNotFound = errors.New("waitlist entry not found")

	// ErrOfferExpired is returned when claiming a waitlist offer whose
	// claim window has already lapsed.
	ErrOfferExpired = errors.New("waitlist offer expired")

	// ErrForbidden is returned when a caller operates on a resource
	// owned by someone else.
	ErrForbidden = errors.New("forbidden")
)

// CapacityError reports which (session, role) pair ran out of slots.
// It matches ErrCapacityExceeded (session-level) and ErrRoleFull
// (role-level) under errors.Is so handlers can branch without type
// assertions, while the waitlist path can recover the pair to enqueue.
type CapacityError struct {
	SessionID uint64
	RoleID    *uint64
}

// Error implements the error interface.
func (e *CapacityError) Error() string {
	if e.RoleID != nil {
		return fmt.Sprintf("capacity exceeded: session %d role %d", e.SessionID, *e.RoleID)
	}
	return fmt.Sprintf("capacity exceeded: session %d", e.SessionID)
}

// Is lets errors.Is(err, ErrCapacityExceeded) succeed for any capacity
// error, and errors.Is(err, ErrRoleFull) for role-level ones.
func (e *CapacityError) Is(target error) bool {
	if target == ErrCapacityExceeded {
		return true
	}
	return target == ErrRoleFull && e.RoleID != nil
}
