// Package repository implements the booking.Store contract on MySQL.
// All admission-critical reads lock their rows with SELECT ... FOR
// UPDATE inside the transaction opened by InTx, which is what makes
// check-and-reserve atomic with respect to concurrent attempts on the
// same session or role.  All timestamps are stored in UTC.
package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/course-registration/internal/booking"
)

// Store wraps a *sql.DB and exposes the transactional and read-only
// surfaces the engine needs.  Entity-specific methods live in the
// session_store.go, role_store.go, order_store.go and
// waitlist_store.go files of this package.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store bound to the given database handle.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// storeTx adapts a *sql.Tx to the booking.Tx interface.
type storeTx struct {
	tx *sql.Tx
}

var (
	_ booking.Store = (*Store)(nil)
	_ booking.Tx    = (*storeTx)(nil)
)

// InTx opens a transaction, runs fn against it and commits when fn
// returns nil.  Any error (including a panic re-raised after rollback)
// rolls the transaction back, so partial admissions never persist.
func (s *Store) InTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&storeTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
