package booking

import (
	"context"

	"github.com/iliyamo/course-registration/internal/model"
)

// RoleAssignmentValidator checks that requested roles exist for their
// session and still have free sub-capacity.  Validation of a whole
// order batches all item checks and fails on the first invalid one, so
// a partially valid order is never admitted.
type RoleAssignmentValidator struct{}

// NewRoleAssignmentValidator returns the validator.
func NewRoleAssignmentValidator() RoleAssignmentValidator { return RoleAssignmentValidator{} }

// ValidateSelection checks one role reference against a session's
// configured role list.  A session with zero roles treats any role
// reference as ErrRoleNotRequired (the caller should omit it).  A role
// id absent from the list is ErrRoleNotFound regardless of capacity.
// A present role with no free sub-capacity is ErrRoleFull.
func (RoleAssignmentValidator) ValidateSelection(roles []model.CharacterRole, sessionID, roleID uint64) error {
	if len(roles) == 0 {
		return ErrRoleNotRequired
	}
	for i := range roles {
		if roles[i].ID == roleID {
			if roles[i].Remaining() <= 0 {
				rid := roleID
				return &CapacityError{SessionID: sessionID, RoleID: &rid}
			}
			return nil
		}
	}
	return ErrRoleNotFound
}

// ValidateBatch checks every role reference in an item batch against
// the session's roles loaded inside the caller's transaction.  The
// advisory capacity check here gives early, precise errors; the
// authoritative sub-capacity check happens again in the ledger under
// the role row lock.
func (v RoleAssignmentValidator) ValidateBatch(ctx context.Context, tx Tx, sessionID uint64, roleIDs []uint64) error {
	if len(roleIDs) == 0 {
		return nil
	}
	roles, err := tx.RolesBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	// Count requested assignments per role so that a batch asking for
	// more slots than a role has left fails up front.
	requested := make(map[uint64]int64, len(roleIDs))
	for _, rid := range roleIDs {
		if err := v.ValidateSelection(roles, sessionID, rid); err != nil {
			return err
		}
		requested[rid]++
	}
	for i := range roles {
		if n := requested[roles[i].ID]; n > 0 && roles[i].Remaining() < n {
			rid := roles[i].ID
			return &CapacityError{SessionID: sessionID, RoleID: &rid}
		}
	}
	return nil
}
