package booking

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/iliyamo/course-registration/internal/model"
)

// ItemRequest is one requested (session, child, optional role) tuple at
// checkout.  Prices are never taken from the client; they come from the
// session row inside the admission transaction.
type ItemRequest struct {
	SessionID uint64  `json:"session_id"`
	ChildID   uint64  `json:"child_id"`
	RoleID    *uint64 `json:"role_id,omitempty"`
	Addon     bool    `json:"addon"`
}

// CreateOrderRequest carries everything needed to admit and price a new
// order.  AllowBuffer switches admission to the administrative override
// path that may consume the hidden buffer; the public checkout never
// sets it.
type CreateOrderRequest struct {
	ParentID      uint64
	Items         []ItemRequest
	GroupCode     *string
	PaymentMethod string
	Notes         *string
	JoinWaitlist  bool
	AllowBuffer   bool
}

// CreateOrderResult is returned by Create.  When admission failed with
// a capacity error and the caller opted into the waitlist, Order is nil
// and Waitlisted carries the entries that were enqueued instead.
type CreateOrderResult struct {
	Order      *model.Order
	Waitlisted []model.WaitlistEntry
}

// OrderLifecycle owns order status from creation through the payment
// deadline to a terminal state; nothing else writes it.  Creation
// combines role validation, capacity reservation, pricing and
// persistence in one transaction so the stored order reflects exactly
// the capacity state that admitted it.
type OrderLifecycle struct {
	store         Store
	ledger        CapacityLedger
	validator     RoleAssignmentValidator
	pricing       DiscountEngine
	waitlist      *WaitlistManager
	notify        Notifier
	paymentWindow time.Duration
	now           func() time.Time
}

// NewOrderLifecycle constructs the lifecycle.  paymentWindow is the
// fixed span between order creation and the payment deadline.
func NewOrderLifecycle(store Store, waitlist *WaitlistManager, notify Notifier, paymentWindow time.Duration) *OrderLifecycle {
	if notify == nil {
		notify = NopNotifier{}
	}
	return &OrderLifecycle{
		store:         store,
		ledger:        NewCapacityLedger(),
		validator:     NewRoleAssignmentValidator(),
		pricing:       NewDiscountEngine(),
		waitlist:      waitlist,
		notify:        notify,
		paymentWindow: paymentWindow,
		now:           time.Now,
	}
}

// Create admits, prices and persists a new order.  Either every item is
// admitted or none: any validation or capacity failure rolls the whole
// transaction back.  On a capacity failure with JoinWaitlist set, the
// affected session's items are enqueued on the waitlist instead and the
// capacity error is still returned alongside the entries.
func (l *OrderLifecycle) Create(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	now := l.now().UTC()
	number, err := NewOrderNumber(now)
	if err != nil {
		return nil, err
	}

	var order *model.Order
	err = l.store.InTx(ctx, func(tx Tx) error {
		items := make([]model.OrderItem, 0, len(req.Items))
		for _, sessionID := range sessionOrder(req.Items) {
			group := itemsForSession(req.Items, sessionID)
			billable := int64(0)
			for _, it := range group {
				if !it.Addon {
					billable++
				}
			}
			// Locks the session row, checks active status and remaining
			// capacity, and increments the counter in one step.  A zero
			// count still locks and validates for addon-only groups.
			sess, err := l.ledger.ReserveSession(ctx, tx, sessionID, billable, req.AllowBuffer)
			if err != nil {
				return err
			}
			var roleIDs []uint64
			for _, it := range group {
				if it.RoleID != nil && !it.Addon {
					roleIDs = append(roleIDs, *it.RoleID)
				}
			}
			if err := l.validator.ValidateBatch(ctx, tx, sessionID, roleIDs); err != nil {
				return err
			}
			for _, rid := range roleIDs {
				if err := l.ledger.ReserveRole(ctx, tx, sessionID, rid, 1); err != nil {
					return err
				}
			}
			for _, it := range group {
				items = append(items, model.OrderItem{
					SessionID:  it.SessionID,
					ChildID:    it.ChildID,
					RoleID:     it.RoleID,
					PriceCents: sess.PriceCents,
					Addon:      it.Addon,
				})
			}
		}

		priced := make([]PricedItem, len(items))
		for i := range items {
			priced[i] = PricedItem{PriceCents: items[i].PriceCents, Addon: items[i].Addon}
		}
		quote := l.pricing.Price(priced)
		for i := range items {
			if items[i].Billable() {
				items[i].DiscountCents = quote.Tier
			}
		}

		order = &model.Order{
			OrderNumber:     number,
			ParentID:        req.ParentID,
			Status:          model.OrderPendingPayment,
			TotalCents:      quote.TotalCents,
			DiscountCents:   quote.DiscountCents,
			FinalCents:      quote.FinalCents,
			PaymentDeadline: now.Add(l.paymentWindow),
			GroupCode:       req.GroupCode,
			PaymentMethod:   req.PaymentMethod,
			Notes:           req.Notes,
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.CreateOrderItems(ctx, items); err != nil {
			return err
		}
		order.Items = items
		return nil
	})

	var capErr *CapacityError
	if errors.As(err, &capErr) && req.JoinWaitlist {
		entries := waitlistEntriesFor(req, capErr.SessionID)
		enqueued, enqErr := l.waitlist.Enqueue(ctx, entries)
		if enqErr != nil {
			return nil, enqErr
		}
		return &CreateOrderResult{Waitlisted: enqueued}, err
	}
	if err != nil {
		return nil, err
	}
	go l.notify.OrderCreated(context.WithoutCancel(ctx), order)
	return &CreateOrderResult{Order: order}, nil
}

// SubmitProof records a stored payment-proof reference and moves the
// order from PENDING_PAYMENT to PAYMENT_SUBMITTED.  Submitting past the
// payment deadline cancels the order eagerly (same side effects as the
// sweep) and returns ErrOrderExpired.
func (l *OrderLifecycle) SubmitProof(ctx context.Context, orderID, parentID uint64, proofURL string) (*model.Order, error) {
	var updated *model.Order
	err := l.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.ParentID != parentID {
			return ErrForbidden
		}
		if o.Status == model.OrderPendingPayment && !l.now().UTC().Before(o.PaymentDeadline) {
			return ErrOrderExpired
		}
		if !model.CanTransition(o.Status, model.OrderPaymentSubmitted) {
			return ErrInvalidStateTransition
		}
		if err := tx.SetPaymentProof(ctx, o.ID, proofURL); err != nil {
			return err
		}
		if err := tx.UpdateOrderStatus(ctx, o.ID, model.OrderPaymentSubmitted); err != nil {
			return err
		}
		o.Status = model.OrderPaymentSubmitted
		o.PaymentProofURL = &proofURL
		updated = o
		return nil
	})
	if errors.Is(err, ErrOrderExpired) {
		// Cancel eagerly through the sweep path so the freed capacity
		// reaches the waitlist without waiting for the next tick.
		if _, sweepErr := l.cancelExpiredOrder(ctx, orderID); sweepErr != nil {
			return nil, sweepErr
		}
		return nil, ErrOrderExpired
	}
	if err != nil {
		return nil, err
	}
	go l.notify.PaymentSubmitted(context.WithoutCancel(ctx), updated)
	return updated, nil
}

// Confirm moves an order from PAYMENT_SUBMITTED to CONFIRMED.
// Administrative action; capacity stays consumed.
func (l *OrderLifecycle) Confirm(ctx context.Context, orderID uint64) (*model.Order, error) {
	var updated *model.Order
	err := l.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !model.CanTransition(o.Status, model.OrderConfirmed) {
			return ErrInvalidStateTransition
		}
		if err := tx.UpdateOrderStatus(ctx, o.ID, model.OrderConfirmed); err != nil {
			return err
		}
		o.Status = model.OrderConfirmed
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CancelManual cancels any non-terminal order administratively,
// releasing its reserved capacity and promoting waitlist entries under
// the same lock scope as the release.
func (l *OrderLifecycle) CancelManual(ctx context.Context, orderID uint64) (*model.Order, error) {
	var updated *model.Order
	var offered []model.WaitlistEntry
	err := l.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if model.TerminalOrderStatus(o.Status) {
			return ErrInvalidStateTransition
		}
		offered, err = l.cancelLocked(ctx, tx, o, model.OrderCancelledManual)
		if err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.waitlist.NotifyOffers(ctx, offered)
	go l.notify.OrderCancelled(context.WithoutCancel(ctx), updated, "manual")
	return updated, nil
}

// SweepDeadlines cancels every PENDING_PAYMENT order whose payment
// deadline has passed, one transaction per order, and returns how many
// were cancelled.  Run periodically so freed capacity reaches the
// waitlist promptly.
func (l *OrderLifecycle) SweepDeadlines(ctx context.Context) (int, error) {
	var ids []uint64
	err := l.store.InTx(ctx, func(tx Tx) error {
		var err error
		ids, err = tx.ExpiredPendingOrders(ctx, l.now().UTC(), 100)
		return err
	})
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for _, id := range ids {
		ok, err := l.cancelExpiredOrder(ctx, id)
		if err != nil {
			return cancelled, err
		}
		if ok {
			cancelled++
		}
	}
	return cancelled, nil
}

// cancelExpiredOrder times out one order in its own transaction,
// re-checking status and deadline under the row lock so a proof that
// arrived between the scan and the lock wins.
func (l *OrderLifecycle) cancelExpiredOrder(ctx context.Context, orderID uint64) (bool, error) {
	var cancelled *model.Order
	var offered []model.WaitlistEntry
	err := l.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				return nil
			}
			return err
		}
		if o.Status != model.OrderPendingPayment || l.now().UTC().Before(o.PaymentDeadline) {
			return nil
		}
		offered, err = l.cancelLocked(ctx, tx, o, model.OrderCancelledTimeout)
		if err != nil {
			return err
		}
		cancelled = o
		return nil
	})
	if err != nil {
		return false, err
	}
	if cancelled == nil {
		return false, nil
	}
	l.waitlist.NotifyOffers(ctx, offered)
	go l.notify.OrderCancelled(context.WithoutCancel(ctx), cancelled, "timeout")
	return true, nil
}

// cancelLocked flips a locked order to the given cancelled status and
// releases exactly the capacity its billable items reserved, promoting
// waitlist entries per freed (session, role) slot inside the same
// transaction.
func (l *OrderLifecycle) cancelLocked(ctx context.Context, tx Tx, o *model.Order, status string) ([]model.WaitlistEntry, error) {
	items, err := tx.ItemsByOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	var offered []model.WaitlistEntry
	for i := range items {
		if !items[i].Billable() {
			continue
		}
		if err := l.ledger.ReleaseSession(ctx, tx, items[i].SessionID, 1); err != nil {
			return nil, err
		}
		if items[i].RoleID != nil {
			if err := l.ledger.ReleaseRole(ctx, tx, *items[i].RoleID, 1); err != nil {
				return nil, err
			}
		}
		promoted, err := l.waitlist.PromoteFreed(ctx, tx, items[i].SessionID, items[i].RoleID, 1)
		if err != nil {
			return nil, err
		}
		offered = append(offered, promoted...)
	}
	if err := tx.UpdateOrderStatus(ctx, o.ID, status); err != nil {
		return nil, err
	}
	o.Status = status
	return offered, nil
}

// RunSweeper blocks, sweeping expired payment deadlines every interval
// until the context is cancelled.
func (l *OrderLifecycle) RunSweeper(ctx context.Context, interval time.Duration, logf func(format string, args ...any)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := l.SweepDeadlines(ctx); err != nil {
				logf("deadline sweeper: %v", err)
			} else if n > 0 {
				logf("deadline sweeper: cancelled %d orders", n)
			}
		}
	}
}

// sessionOrder returns the distinct session ids of the request items in
// ascending order.  Locking session rows in a global order prevents
// deadlocks between concurrent multi-session orders.
func sessionOrder(items []ItemRequest) []uint64 {
	seen := make(map[uint64]struct{}, len(items))
	var out []uint64
	for _, it := range items {
		if _, ok := seen[it.SessionID]; !ok {
			seen[it.SessionID] = struct{}{}
			out = append(out, it.SessionID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// itemsForSession filters the request items belonging to one session.
func itemsForSession(items []ItemRequest, sessionID uint64) []ItemRequest {
	var out []ItemRequest
	for _, it := range items {
		if it.SessionID == sessionID {
			out = append(out, it)
		}
	}
	return out
}

// waitlistEntriesFor builds WAITING entries for the billable items of
// the session that failed admission.
func waitlistEntriesFor(req CreateOrderRequest, sessionID uint64) []model.WaitlistEntry {
	var out []model.WaitlistEntry
	for _, it := range req.Items {
		if it.SessionID != sessionID || it.Addon {
			continue
		}
		out = append(out, model.WaitlistEntry{
			SessionID: it.SessionID,
			RoleID:    it.RoleID,
			ChildID:   it.ChildID,
			ParentID:  req.ParentID,
		})
	}
	return out
}
