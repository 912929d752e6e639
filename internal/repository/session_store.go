package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/course-registration/internal/booking"
	"github.com/iliyamo/course-registration/internal/model"
)

// SessionForUpdate loads a session row and locks it for the remainder
// of the transaction.  Every admission decision for the session
// serializes behind this lock.
func (t *storeTx) SessionForUpdate(ctx context.Context, id uint64) (*model.Session, error) {
	const q = `SELECT id, title, price_cents, capacity, hidden_buffer, current_registrations, status, created_at, updated_at
	           FROM sessions WHERE id = ? FOR UPDATE`
	var s model.Session
	err := t.tx.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.Title, &s.PriceCents, &s.Capacity, &s.HiddenBuffer,
		&s.CurrentRegistrations, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// AddRegistrations adjusts current_registrations by delta.  GREATEST
// clamps at zero so a release can never drive the counter negative,
// even if called twice for the same slot.
func (t *storeTx) AddRegistrations(ctx context.Context, sessionID uint64, delta int64) error {
	const q = `UPDATE sessions
	           SET current_registrations = GREATEST(0, current_registrations + ?)
	           WHERE id = ?`
	_, err := t.tx.ExecContext(ctx, q, delta, sessionID)
	return err
}

// SessionAvailability lists the public availability of active sessions.
// The hidden buffer column is intentionally not selected: the public
// remaining figure is capacity − registered, floored at zero.
func (s *Store) SessionAvailability(ctx context.Context) ([]model.SessionAvailability, error) {
	const q = `SELECT id, title, capacity, current_registrations
	           FROM sessions WHERE status = ? ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q, model.SessionActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.SessionAvailability, 0)
	for rows.Next() {
		var a model.SessionAvailability
		if err := rows.Scan(&a.SessionID, &a.Title, &a.Capacity, &a.Registered); err != nil {
			return nil, err
		}
		a.Available = a.Capacity - a.Registered
		if a.Available < 0 {
			a.Available = 0
		}
		a.IsWaitlistOnly = a.Registered >= a.Capacity
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
