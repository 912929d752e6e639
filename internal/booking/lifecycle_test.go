package booking

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/course-registration/internal/model"
)

// testClock is a settable clock shared by the lifecycle and waitlist
// under test.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLifecycle(store *memStore) (*OrderLifecycle, *WaitlistManager, *testClock) {
	clock := &testClock{t: time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)}
	wl := NewWaitlistManager(store, NopNotifier{}, 24*time.Hour)
	wl.now = clock.Now
	l := NewOrderLifecycle(store, wl, NopNotifier{}, 120*time.Hour)
	l.now = clock.Now
	return l, wl, clock
}

func ptr(v uint64) *uint64 { return &v }

func TestCreateOrderPricesAndReserves(t *testing.T) {
	store := newMemStore()
	store.addSession(model.Session{ID: 1, Title: "Drama A", PriceCents: 2800, Capacity: 5, Status: model.SessionActive})
	l, _, clock := newTestLifecycle(store)

	result, err := l.Create(context.Background(), CreateOrderRequest{
		ParentID: 7,
		Items: []ItemRequest{
			{SessionID: 1, ChildID: 100},
			{SessionID: 1, ChildID: 101},
			{SessionID: 1, ChildID: 102},
		},
		PaymentMethod: model.PaymentBankTransfer,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Order)

	o := result.Order
	assert.Equal(t, model.OrderPendingPayment, o.Status)
	assert.EqualValues(t, 8400, o.TotalCents)
	assert.EqualValues(t, 1200, o.DiscountCents)
	assert.EqualValues(t, 7200, o.FinalCents)
	assert.True(t, strings.HasPrefix(o.OrderNumber, "R20260829-"))
	assert.Equal(t, clock.Now().Add(120*time.Hour), o.PaymentDeadline)

	require.Len(t, o.Items, 3)
	var shareSum int64
	for _, it := range o.Items {
		assert.EqualValues(t, 400, it.DiscountCents)
		assert.EqualValues(t, 2800, it.PriceCents)
		shareSum += it.DiscountCents
	}
	assert.Equal(t, o.DiscountCents, shareSum)

	assert.EqualValues(t, 3, store.session(1).CurrentRegistrations)
}

func TestCreateOrderAllOrNothing(t *testing.T) {
	store := newMemStore()
	store.addSession(model.Session{ID: 1, PriceCents: 2800, Capacity: 5, Status: model.SessionActive})
	store.addSession(model.Session{ID: 2, PriceCents: 2800, Capacity: 1, CurrentRegistrations: 1, Status: model.SessionActive})
	l, _, _ := newTestLifecycle(store)

	_, err := l.Create(context.Background(), CreateOrderRequest{
		ParentID: 7,
		Items: []ItemRequest{
			{SessionID: 1, ChildID: 100},
			{SessionID: 2, ChildID: 100},
		},
		PaymentMethod: model.PaymentBankTransfer,
	})
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	// The admitted slot on session 1 must be rolled back with the
	// failed transaction.
	assert.EqualValues(t, 0, store.session(1).CurrentRegistrations)
}

func TestCreateOrderEmpty(t *testing.T) {
	store := newMemStore()
	l, _, _ := newTestLifecycle(store)
	_, err := l.Create(context.Background(), CreateOrderRequest{ParentID: 7, PaymentMethod: model.PaymentBankTransfer})
	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestCreateOrderInactiveSession(t *testing.T) {
	store := newMemStore()
	store.addSession(model.Session{ID: 1, PriceCents: 2800, Capacity: 5, Status: model.SessionCancelled})
	l, _, _ := newTestLifecycle(store)
	_, err := l.Create(context.Background(), CreateOrderRequest{
		ParentID:      7,
		Items:         []ItemRequest{{SessionID: 1, ChildID: 100}},
		PaymentMethod: model.PaymentBankTransfer,
	})
	assert.ErrorIs(t, err, ErrSessionInactive)
}

func TestCreateOrderAddonsDoNotConsumeCapacity(t *testing.T) {
	store := newMemStore()
	store.addSession(model.Session{ID: 1, PriceCents: 2800, Capacity: 1, CurrentRegistrations: 1, Status: model.SessionActive})
	l, _, _ := newTestLifecycle(store)

	// A full session still accepts addon-only items.
	result, err := l.Create(context.Background(), CreateOrderRequest{
		ParentID:      7,
		Items:         []ItemRequest{{SessionID: 1, ChildID: 100, Addon: true}},
		PaymentMethod: model.PaymentBankTransfer,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, store.session(1).CurrentRegistrations)
	assert.EqualValues(t, 0, result.Order.DiscountCents)
}

func TestCreateOrderHiddenBufferOverride(t *testing.T) {
	store := newMemStore()
	store.addSession(model.Session{ID: 1, PriceCents: 2800, Capacity: 2, HiddenBuffer: 1, CurrentRegistrations: 2, Status: model.SessionActive})
	l, _, _ := newTestLifecycle(store)

	req := CreateOrderRequest{
		ParentID:      7,
		Items:         []ItemRequest{{SessionID: 1, ChildID: 100}},
		PaymentMethod: model.PaymentBankTransfer,
	}

	// Public checkout never sees the buffer.
	_, err := l.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	// The override path may dip into it once.
	req.AllowBuffer = true
	_, err = l.Create(context.Background(), req)
	require.NoError(t, err)
	assert.EqualValues(t, 3, store.session(1).CurrentRegistrations)

	// Capacity plus buffer is still a hard limit.
	_, err = l.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestCreateOrderConcurrentAdmission(t *testing.T) {
	store := newMemStore()
	store.addSession(model.Session{ID: 1, PriceCents: 2800, Capacity: 3, Status: model.SessionActive})
	l, _, _ := newTestLifecycle(store)

	const attempts = 10
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(child uint64) {
			defer wg.Done()
			_, err := l.Create(context.Background(), CreateOrderRequest{
				ParentID:      child,
				Items:         []ItemRequest{{SessionID: 1, ChildID: child}},
				PaymentMethod: model.PaymentBankTransfer,
			})
			errs <- err
		}(uint64(i + 1))
	}
	wg.Wait()
	close(errs)

	admitted, rejected := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			admitted++
		case assert.ErrorIs(t, err, ErrCapacityExceeded):
			rejected++
		}
	}
	assert.Equal(t, 3, admitted)
	assert.Equal(t, attempts-3, rejected)
	assert.EqualValues(t, 3, store.session(1).CurrentRegistrations)
}

func TestSubmitProofAndConfirm(t *testing.T) {
	store := newMemStore()
	store.addSession(model.Session{ID: 1, PriceCents: 2800, Capacity: 5, Status: model.SessionActive})
	l, _, _ := newTestLifecycle(store)

	result, err := l.Create(context.Background(), CreateOrderRequest{
		ParentID:      7,
		Items:         []ItemRequest{{SessionID: 1, ChildID: 100}},
		PaymentMethod: model.PaymentLinePay,
	})
	require.NoError(t, err)
	orderID := result.Order.ID

	// Confirming without a submitted proof is illegal.
	_, err = l.Confirm(context.Background(), orderID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	// Proof submission by a stranger is rejected.
	_, err = l.SubmitProof(context.Background(), orderID, 8, "file:///p.jpg")
	assert.ErrorIs(t, err, ErrForbidden)

	o, err := l.SubmitProof(context.Background(), orderID, 7, "file:///p.jpg")
	require.NoError(t, err)
	assert.Equal(t, model.OrderPaymentSubmitted, o.Status)
	require.NotNil(t, o.PaymentProofURL)
	assert.Equal(t, "file:///p.jpg", *o.PaymentProofURL)

	// Double submission is rejected; the deadline no longer applies.
	_, err = l.SubmitProof(context.Background(), orderID, 7, "file:///p2.jpg")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	o, err = l.Confirm(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderConfirmed, o.Status)

	// CONFIRMED is terminal, even for manual cancellation.
	_, err = l.CancelManual(context.Background(), orderID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestSubmitProofAfterDeadlineCancels(t *testing.T) {
	store := newMemStore()
	store.addSession(model.Session{ID: 1, PriceCents: 2800, Capacity: 5, Status: model.SessionActive})
	l, _, clock := newTestLifecycle(store)

	result, err := l.Create(context.Background(), CreateOrderRequest{
		ParentID:      7,
		Items:         []ItemRequest{{SessionID: 1, ChildID: 100}},
		PaymentMethod: model.PaymentBankTransfer,
	})
	require.NoError(t, err)
	orderID := result.Order.ID
	require.EqualValues(t, 1, store.session(1).CurrentRegistrations)

	clock.Advance(120*time.Hour + time.Minute)

	_, err = l.SubmitProof(context.Background(), orderID, 7, "file:///p.jpg")
	assert.ErrorIs(t, err, ErrOrderExpired)

	// The late submission cancels eagerly and frees the slot.
	assert.Equal(t, model.OrderCancelledTimeout, store.order(orderID).Status)
	assert.EqualValues(t, 0, store.session(1).CurrentRegistrations)
}

func TestSweepDeadlines(t *testing.T) {
	store := newMemStore()
	store.addSession(model.Session{ID: 1, PriceCents: 2800, Capacity: 5, Status: model.SessionActive})
	l, _, clock := newTestLifecycle(store)

	mk := func(child uint64) uint64 {
		result, err := l.Create(context.Background(), CreateOrderRequest{
			ParentID:      child,
			Items:         []ItemRequest{{SessionID: 1, ChildID: child}},
			PaymentMethod: model.PaymentBankTransfer,
		})
		require.NoError(t, err)
		return result.Order.ID
	}
	first := mk(1)
	second := mk(2)
	third := mk(3)

	// The third order submits proof in time and must survive the sweep.
	_, err := l.SubmitProof(context.Background(), third, 3, "file:///p.jpg")
	require.NoError(t, err)

	clock.Advance(120*time.Hour + time.Minute)
	n, err := l.SweepDeadlines(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, model.OrderCancelledTimeout, store.order(first).Status)
	assert.Equal(t, model.OrderCancelledTimeout, store.order(second).Status)
	assert.Equal(t, model.OrderPaymentSubmitted, store.order(third).Status)
	// Exactly the two timed-out slots come back.
	assert.EqualValues(t, 1, store.session(1).CurrentRegistrations)

	// Sweeping again is a no-op.
	n, err = l.SweepDeadlines(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCancelManualReleasesRoles(t *testing.T) {
	store := newMemStore()
	store.addSession(model.Session{ID: 1, PriceCents: 2800, Capacity: 5, Status: model.SessionActive})
	store.addRole(model.CharacterRole{ID: 10, SessionID: 1, Name: "Lead", Capacity: 1})
	l, _, _ := newTestLifecycle(store)

	result, err := l.Create(context.Background(), CreateOrderRequest{
		ParentID:      7,
		Items:         []ItemRequest{{SessionID: 1, ChildID: 100, RoleID: ptr(10)}},
		PaymentMethod: model.PaymentBankTransfer,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, store.role(10).Assigned)

	o, err := l.CancelManual(context.Background(), result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelledManual, o.Status)
	assert.EqualValues(t, 0, store.session(1).CurrentRegistrations)
	assert.EqualValues(t, 0, store.role(10).Assigned)
}

func TestCreateOrderRoleFull(t *testing.T) {
	store := newMemStore()
	store.addSession(model.Session{ID: 1, PriceCents: 2800, Capacity: 5, Status: model.SessionActive})
	store.addRole(model.CharacterRole{ID: 10, SessionID: 1, Name: "Lead", Capacity: 1, Assigned: 1})
	l, _, _ := newTestLifecycle(store)

	_, err := l.Create(context.Background(), CreateOrderRequest{
		ParentID:      7,
		Items:         []ItemRequest{{SessionID: 1, ChildID: 100, RoleID: ptr(10)}},
		PaymentMethod: model.PaymentBankTransfer,
	})
	assert.ErrorIs(t, err, ErrRoleFull)
	// Session capacity reserved before role validation must roll back.
	assert.EqualValues(t, 0, store.session(1).CurrentRegistrations)
}

func TestCreateOrderRoleOnRolelessSession(t *testing.T) {
	store := newMemStore()
	store.addSession(model.Session{ID: 1, PriceCents: 2800, Capacity: 5, Status: model.SessionActive})
	l, _, _ := newTestLifecycle(store)

	_, err := l.Create(context.Background(), CreateOrderRequest{
		ParentID:      7,
		Items:         []ItemRequest{{SessionID: 1, ChildID: 100, RoleID: ptr(10)}},
		PaymentMethod: model.PaymentBankTransfer,
	})
	assert.ErrorIs(t, err, ErrRoleNotRequired)
}
