package booking

import (
	"context"

	"github.com/iliyamo/course-registration/internal/model"
)

// CapacityLedger is the authoritative counter of admitted registrants
// per session and per role.  Checking and reserving happen in one
// operation against rows locked FOR UPDATE, so there is no
// check-then-act window between reading the remaining count and
// incrementing it.  Callers own the enclosing transaction: a multi-item
// order reserves all of its slots or none.
type CapacityLedger struct{}

// NewCapacityLedger returns the ledger.
func NewCapacityLedger() CapacityLedger { return CapacityLedger{} }

// ReserveSession locks the session row, verifies it is active and has
// count free slots, then increments current_registrations.  When
// allowBuffer is set (administrative override paths only) the hidden
// buffer extends the effective capacity; the public path never sees it.
// Returns the locked session on success.
func (CapacityLedger) ReserveSession(ctx context.Context, tx Tx, sessionID uint64, count int64, allowBuffer bool) (*model.Session, error) {
	sess, err := tx.SessionForUpdate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.SessionActive {
		return nil, ErrSessionInactive
	}
	limit := sess.Capacity
	if allowBuffer {
		limit += sess.HiddenBuffer
	}
	if sess.CurrentRegistrations+count > limit {
		return nil, &CapacityError{SessionID: sessionID}
	}
	if err := tx.AddRegistrations(ctx, sessionID, count); err != nil {
		return nil, err
	}
	sess.CurrentRegistrations += count
	return sess, nil
}

// ReserveRole locks the role row and increments its assigned counter if
// sub-capacity remains.  Role capacity is an independent ledger from
// the session's; the two are only tied together by sharing the
// caller's transaction.
func (CapacityLedger) ReserveRole(ctx context.Context, tx Tx, sessionID, roleID uint64, count int64) error {
	role, err := tx.RoleForUpdate(ctx, roleID)
	if err != nil {
		return err
	}
	if role.Assigned+count > role.Capacity {
		rid := roleID
		return &CapacityError{SessionID: sessionID, RoleID: &rid}
	}
	return tx.AddAssignments(ctx, roleID, count)
}

// ReleaseSession returns count slots to a session.  The store clamps
// the counter at zero, so releasing more than was reserved cannot
// drive registrations negative.
func (CapacityLedger) ReleaseSession(ctx context.Context, tx Tx, sessionID uint64, count int64) error {
	return tx.AddRegistrations(ctx, sessionID, -count)
}

// ReleaseRole returns count assignments to a role.
func (CapacityLedger) ReleaseRole(ctx context.Context, tx Tx, roleID uint64, count int64) error {
	return tx.AddAssignments(ctx, roleID, -count)
}
