package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/course-registration/internal/booking"
	"github.com/iliyamo/course-registration/internal/model"
)

// RolesBySession lists the configured roles of a session in id order.
// Used by the validator for referential checks; no locks are taken
// here, the authoritative capacity check locks per role.
func (t *storeTx) RolesBySession(ctx context.Context, sessionID uint64) ([]model.CharacterRole, error) {
	const q = `SELECT id, session_id, name, capacity, assigned, created_at, updated_at
	           FROM character_roles WHERE session_id = ? ORDER BY id`
	rows, err := t.tx.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []model.CharacterRole
	for rows.Next() {
		var r model.CharacterRole
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Name, &r.Capacity, &r.Assigned, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// RoleForUpdate loads and locks a role row.  The role ledger is
// independent of the session ledger; the two only share the enclosing
// transaction.
func (t *storeTx) RoleForUpdate(ctx context.Context, id uint64) (*model.CharacterRole, error) {
	const q = `SELECT id, session_id, name, capacity, assigned, created_at, updated_at
	           FROM character_roles WHERE id = ? FOR UPDATE`
	var r model.CharacterRole
	err := t.tx.QueryRowContext(ctx, q, id).Scan(
		&r.ID, &r.SessionID, &r.Name, &r.Capacity, &r.Assigned, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrRoleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// AddAssignments adjusts a role's assigned counter by delta, clamped
// at zero.
func (t *storeTx) AddAssignments(ctx context.Context, roleID uint64, delta int64) error {
	const q = `UPDATE character_roles
	           SET assigned = GREATEST(0, assigned + ?)
	           WHERE id = ?`
	_, err := t.tx.ExecContext(ctx, q, delta, roleID)
	return err
}

// RoleAvailability lists the role availability projection for one
// session.  Returns booking.ErrSessionNotFound when the session does
// not exist so handlers can 404 instead of returning an empty list.
func (s *Store) RoleAvailability(ctx context.Context, sessionID uint64) ([]model.RoleAvailability, error) {
	var exists uint64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	const q = `SELECT id, name, capacity, assigned
	           FROM character_roles WHERE session_id = ? ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.RoleAvailability, 0)
	for rows.Next() {
		var a model.RoleAvailability
		if err := rows.Scan(&a.RoleID, &a.Name, &a.Capacity, &a.Assigned); err != nil {
			return nil, err
		}
		a.Available = a.Capacity - a.Assigned
		if a.Available < 0 {
			a.Available = 0
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
