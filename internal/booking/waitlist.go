package booking

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/course-registration/internal/model"
)

// WaitlistManager owns waitlist entry status.  Entries join the queue
// when an admission attempt fails with a capacity error and the caller
// opted in.  Promotion is strictly FIFO by creation time and runs in
// the same transaction as the release that freed the slot, so a freed
// slot can never be claimed twice: the offer re-reserves it in the
// ledger before the transaction commits.
type WaitlistManager struct {
	store       Store
	ledger      CapacityLedger
	notify      Notifier
	offerWindow time.Duration
	now         func() time.Time
}

// NewWaitlistManager constructs a manager.  offerWindow is how long an
// offered entry may take to claim its slot before it expires and the
// slot moves to the next entry in line.
func NewWaitlistManager(store Store, notify Notifier, offerWindow time.Duration) *WaitlistManager {
	if notify == nil {
		notify = NopNotifier{}
	}
	return &WaitlistManager{
		store:       store,
		ledger:      NewCapacityLedger(),
		notify:      notify,
		offerWindow: offerWindow,
		now:         time.Now,
	}
}

// Enqueue creates WAITING entries for the given (session, role, child)
// tuples in one transaction.  Called by the lifecycle after a capacity
// failure when the parent opted into the waitlist.
func (m *WaitlistManager) Enqueue(ctx context.Context, entries []model.WaitlistEntry) ([]model.WaitlistEntry, error) {
	out := make([]model.WaitlistEntry, len(entries))
	copy(out, entries)
	err := m.store.InTx(ctx, func(tx Tx) error {
		for i := range out {
			out[i].Status = model.WaitlistWaiting
			if err := tx.CreateWaitlistEntry(ctx, &out[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PromoteFreed offers up to slots freed slots on (session, role) to the
// oldest WAITING entries, inside the caller's transaction.  Each offer
// reserves the slot back in the ledger and stamps the claim window.
// The returned entries must be passed to NotifyOffers after the
// transaction commits.  Promotion stops quietly when the queue is
// empty, the session went inactive, or the slot was consumed by a
// concurrent reservation in the same lock scope.
func (m *WaitlistManager) PromoteFreed(ctx context.Context, tx Tx, sessionID uint64, roleID *uint64, slots int64) ([]model.WaitlistEntry, error) {
	var offered []model.WaitlistEntry
	for i := int64(0); i < slots; i++ {
		entry, err := tx.NextWaiting(ctx, sessionID, roleID)
		if err != nil {
			return offered, err
		}
		if entry == nil {
			return offered, nil
		}
		if _, err := m.ledger.ReserveSession(ctx, tx, sessionID, 1, false); err != nil {
			if errors.Is(err, ErrCapacityExceeded) || errors.Is(err, ErrSessionInactive) {
				return offered, nil
			}
			return offered, err
		}
		if roleID != nil {
			if err := m.ledger.ReserveRole(ctx, tx, sessionID, *roleID, 1); err != nil {
				if errors.Is(err, ErrCapacityExceeded) {
					// Give the session slot back; the role has no room.
					if relErr := m.ledger.ReleaseSession(ctx, tx, sessionID, 1); relErr != nil {
						return offered, relErr
					}
					return offered, nil
				}
				return offered, err
			}
		}
		offeredAt := m.now().UTC()
		expiresAt := offeredAt.Add(m.offerWindow)
		if err := tx.UpdateWaitlistStatus(ctx, entry.ID, model.WaitlistOffered, &offeredAt, &expiresAt); err != nil {
			return offered, err
		}
		entry.Status = model.WaitlistOffered
		entry.OfferedAt = &offeredAt
		entry.ExpiresAt = &expiresAt
		offered = append(offered, *entry)
	}
	return offered, nil
}

// NotifyOffers dispatches offer notifications after commit.  Fire and
// forget: the notifier must not block the caller.
func (m *WaitlistManager) NotifyOffers(ctx context.Context, offered []model.WaitlistEntry) {
	for i := range offered {
		m.notify.WaitlistOffered(ctx, &offered[i])
	}
}

// Claim flips an unexpired OFFERED entry owned by parentID to CLAIMED.
// The slot stays reserved in the ledger; CLAIMED is the terminal
// success state.  Claiming a lapsed offer expires it, releases the held
// slot, promotes the next entry in line and returns ErrOfferExpired.
func (m *WaitlistManager) Claim(ctx context.Context, entryID, parentID uint64) (*model.WaitlistEntry, error) {
	var claimed *model.WaitlistEntry
	err := m.store.InTx(ctx, func(tx Tx) error {
		entry, err := tx.WaitlistEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.ParentID != parentID {
			return ErrForbidden
		}
		if entry.Status != model.WaitlistOffered {
			return ErrInvalidStateTransition
		}
		if entry.ExpiresAt != nil && !m.now().UTC().Before(*entry.ExpiresAt) {
			return ErrOfferExpired
		}
		if err := tx.UpdateWaitlistStatus(ctx, entry.ID, model.WaitlistClaimed, entry.OfferedAt, entry.ExpiresAt); err != nil {
			return err
		}
		entry.Status = model.WaitlistClaimed
		claimed = entry
		return nil
	})
	if errors.Is(err, ErrOfferExpired) {
		// Expire the lapsed offer in its own transaction so its slot
		// moves on without waiting for the next sweep.
		if _, sweepErr := m.expireEntry(ctx, entryID); sweepErr != nil {
			return nil, sweepErr
		}
		return nil, ErrOfferExpired
	}
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// SweepOffers expires every OFFERED entry whose claim window has
// lapsed, releasing each held slot to the next WAITING entry.  It
// returns the number of entries expired.  Designed to be run
// periodically by RunSweeper.
func (m *WaitlistManager) SweepOffers(ctx context.Context) (int, error) {
	var ids []uint64
	err := m.store.InTx(ctx, func(tx Tx) error {
		var err error
		ids, err = tx.ExpiredOffers(ctx, m.now().UTC(), 100)
		return err
	})
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, id := range ids {
		ok, err := m.expireEntry(ctx, id)
		if err != nil {
			return expired, err
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

// expireEntry expires one offered entry in its own transaction,
// re-checking state under the row lock, and notifies any follow-up
// offer after commit.  Returns false when the entry was claimed or
// already expired by a concurrent actor.
func (m *WaitlistManager) expireEntry(ctx context.Context, id uint64) (bool, error) {
	var offered []model.WaitlistEntry
	expired := false
	err := m.store.InTx(ctx, func(tx Tx) error {
		entry, err := tx.WaitlistEntryForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, ErrWaitlistEntryNotFound) {
				return nil
			}
			return err
		}
		if entry.Status != model.WaitlistOffered {
			return nil
		}
		if entry.ExpiresAt != nil && m.now().UTC().Before(*entry.ExpiresAt) {
			return nil
		}
		offered, err = m.expireLocked(ctx, tx, entry)
		if err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		return false, err
	}
	m.NotifyOffers(ctx, offered)
	return expired, nil
}

// expireLocked marks a locked OFFERED entry EXPIRED, releases its held
// slot and promotes the next waiting entry for the same pair.
func (m *WaitlistManager) expireLocked(ctx context.Context, tx Tx, entry *model.WaitlistEntry) ([]model.WaitlistEntry, error) {
	if err := tx.UpdateWaitlistStatus(ctx, entry.ID, model.WaitlistExpired, entry.OfferedAt, entry.ExpiresAt); err != nil {
		return nil, err
	}
	if err := m.ledger.ReleaseSession(ctx, tx, entry.SessionID, 1); err != nil {
		return nil, err
	}
	if entry.RoleID != nil {
		if err := m.ledger.ReleaseRole(ctx, tx, *entry.RoleID, 1); err != nil {
			return nil, err
		}
	}
	return m.PromoteFreed(ctx, tx, entry.SessionID, entry.RoleID, 1)
}

// RunSweeper blocks, expiring lapsed offers every interval until the
// context is cancelled.  Sweep errors are logged and the loop keeps
// running.
func (m *WaitlistManager) RunSweeper(ctx context.Context, interval time.Duration, logf func(format string, args ...any)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := m.SweepOffers(ctx); err != nil {
				logf("waitlist sweeper: %v", err)
			} else if n > 0 {
				logf("waitlist sweeper: expired %d offers", n)
			}
		}
	}
}
