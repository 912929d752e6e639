package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/course-registration/internal/booking"
	"github.com/iliyamo/course-registration/internal/model"
)

// CreateWaitlistEntry inserts a WAITING entry and populates its ID and
// creation timestamp.  created_at is the FIFO ordering key.
func (t *storeTx) CreateWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) error {
	const q = `INSERT INTO waitlist_entries (session_id, role_id, child_id, parent_id, status)
	           VALUES (?, ?, ?, ?, ?)`
	result, err := t.tx.ExecContext(ctx, q, e.SessionID, e.RoleID, e.ChildID, e.ParentID, e.Status)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return t.tx.QueryRowContext(ctx, `SELECT created_at FROM waitlist_entries WHERE id = ?`, e.ID).Scan(&e.CreatedAt)
}

// scanWaitlistEntry reads one entry row.
func scanWaitlistEntry(scan func(dest ...interface{}) error) (*model.WaitlistEntry, error) {
	var e model.WaitlistEntry
	var roleID sql.NullInt64
	var offeredAt, expiresAt sql.NullTime
	err := scan(&e.ID, &e.SessionID, &roleID, &e.ChildID, &e.ParentID, &e.Status, &offeredAt, &expiresAt, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if roleID.Valid {
		rid := uint64(roleID.Int64)
		e.RoleID = &rid
	}
	if offeredAt.Valid {
		v := offeredAt.Time
		e.OfferedAt = &v
	}
	if expiresAt.Valid {
		v := expiresAt.Time
		e.ExpiresAt = &v
	}
	return &e, nil
}

const waitlistColumns = `id, session_id, role_id, child_id, parent_id, status, offered_at, expires_at, created_at`

// NextWaiting locks and returns the oldest WAITING entry for the
// (session, role) pair, or nil when the queue is empty.  The row lock
// keeps two concurrent releases from offering the same entry twice.  A
// nil roleID matches only entries with no role.
func (t *storeTx) NextWaiting(ctx context.Context, sessionID uint64, roleID *uint64) (*model.WaitlistEntry, error) {
	var row *sql.Row
	if roleID == nil {
		q := `SELECT ` + waitlistColumns + ` FROM waitlist_entries
		      WHERE session_id = ? AND role_id IS NULL AND status = ?
		      ORDER BY created_at, id LIMIT 1 FOR UPDATE`
		row = t.tx.QueryRowContext(ctx, q, sessionID, model.WaitlistWaiting)
	} else {
		q := `SELECT ` + waitlistColumns + ` FROM waitlist_entries
		      WHERE session_id = ? AND role_id = ? AND status = ?
		      ORDER BY created_at, id LIMIT 1 FOR UPDATE`
		row = t.tx.QueryRowContext(ctx, q, sessionID, *roleID, model.WaitlistWaiting)
	}
	e, err := scanWaitlistEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// WaitlistEntryForUpdate loads and locks one entry.
func (t *storeTx) WaitlistEntryForUpdate(ctx context.Context, id uint64) (*model.WaitlistEntry, error) {
	q := `SELECT ` + waitlistColumns + ` FROM waitlist_entries WHERE id = ? FOR UPDATE`
	e, err := scanWaitlistEntry(t.tx.QueryRowContext(ctx, q, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrWaitlistEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateWaitlistStatus sets an entry's status and offer window.
func (t *storeTx) UpdateWaitlistStatus(ctx context.Context, id uint64, status string, offeredAt, expiresAt *time.Time) error {
	const q = `UPDATE waitlist_entries SET status = ?, offered_at = ?, expires_at = ? WHERE id = ?`
	var off, exp interface{}
	if offeredAt != nil {
		off = offeredAt.UTC().Format("2006-01-02 15:04:05")
	}
	if expiresAt != nil {
		exp = expiresAt.UTC().Format("2006-01-02 15:04:05")
	}
	_, err := t.tx.ExecContext(ctx, q, status, off, exp, id)
	return err
}

// ExpiredOffers returns ids of OFFERED entries whose claim window has
// lapsed, oldest first.  Lock-free scan; the sweeper re-checks each
// entry under its row lock.
func (t *storeTx) ExpiredOffers(ctx context.Context, now time.Time, limit int) ([]uint64, error) {
	const q = `SELECT id FROM waitlist_entries
	           WHERE status = ? AND expires_at <= ?
	           ORDER BY expires_at LIMIT ?`
	rows, err := t.tx.QueryContext(ctx, q, model.WaitlistOffered, now.UTC().Format("2006-01-02 15:04:05"), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// WaitlistByParent lists a parent's entries, oldest first.
func (s *Store) WaitlistByParent(ctx context.Context, parentID uint64) ([]model.WaitlistEntry, error) {
	q := `SELECT ` + waitlistColumns + ` FROM waitlist_entries WHERE parent_id = ? ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, q, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.WaitlistEntry, 0)
	for rows.Next() {
		e, err := scanWaitlistEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
