package booking

import (
	"context"
	"time"

	"github.com/iliyamo/course-registration/internal/model"
)

// Store is the persistence surface the engine runs on.  InTx must
// provide serializable behavior for the work done inside fn: two
// transactions touching the same session or role rows must not
// interleave their read-check-write sequences.  The MySQL
// implementation achieves this with SELECT ... FOR UPDATE row locks;
// the in-memory store used in tests holds a single mutex for the whole
// transaction.
type Store interface {
	// InTx runs fn inside a transaction, committing when fn returns nil
	// and rolling back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// SessionAvailability lists the public availability of all active
	// sessions.  The hidden buffer is never part of the projection.
	SessionAvailability(ctx context.Context) ([]model.SessionAvailability, error)

	// RoleAvailability lists role availability for one session.  It
	// returns ErrSessionNotFound when the session does not exist.
	RoleAvailability(ctx context.Context, sessionID uint64) ([]model.RoleAvailability, error)

	// OrderByID loads an order with its items, or ErrOrderNotFound.
	OrderByID(ctx context.Context, id uint64) (*model.Order, error)

	// OrdersByParent lists a parent's orders with items, newest first.
	OrdersByParent(ctx context.Context, parentID uint64) ([]model.Order, error)

	// WaitlistByParent lists a parent's waitlist entries, oldest first.
	WaitlistByParent(ctx context.Context, parentID uint64) ([]model.WaitlistEntry, error)
}

// Tx is the transactional view used by the engine.  All ForUpdate
// methods must lock the underlying row for the remainder of the
// transaction.  Counter mutations never go below zero.
type Tx interface {
	// SessionForUpdate loads and locks a session row, or ErrSessionNotFound.
	SessionForUpdate(ctx context.Context, id uint64) (*model.Session, error)

	// AddRegistrations adjusts a session's current_registrations by
	// delta (negative to release), clamping at zero.
	AddRegistrations(ctx context.Context, sessionID uint64, delta int64) error

	// RolesBySession lists the configured roles of a session.
	RolesBySession(ctx context.Context, sessionID uint64) ([]model.CharacterRole, error)

	// RoleForUpdate loads and locks a role row, or ErrRoleNotFound.
	RoleForUpdate(ctx context.Context, id uint64) (*model.CharacterRole, error)

	// AddAssignments adjusts a role's assigned counter by delta,
	// clamping at zero.
	AddAssignments(ctx context.Context, roleID uint64, delta int64) error

	// CreateOrder inserts an order row and populates its generated ID
	// and timestamps.
	CreateOrder(ctx context.Context, o *model.Order) error

	// CreateOrderItems inserts the items of an order in bulk.
	CreateOrderItems(ctx context.Context, items []model.OrderItem) error

	// OrderForUpdate loads and locks an order row (without items), or
	// ErrOrderNotFound.
	OrderForUpdate(ctx context.Context, id uint64) (*model.Order, error)

	// UpdateOrderStatus sets the order status.
	UpdateOrderStatus(ctx context.Context, id uint64, status string) error

	// SetPaymentProof records the stored proof reference.
	SetPaymentProof(ctx context.Context, id uint64, url string) error

	// ItemsByOrder lists the items of an order.
	ItemsByOrder(ctx context.Context, orderID uint64) ([]model.OrderItem, error)

	// ExpiredPendingOrders returns ids of PENDING_PAYMENT orders whose
	// payment deadline is at or before now, oldest first, up to limit.
	ExpiredPendingOrders(ctx context.Context, now time.Time, limit int) ([]uint64, error)

	// CreateWaitlistEntry inserts a WAITING entry and populates its ID.
	CreateWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) error

	// NextWaiting locks and returns the oldest WAITING entry for the
	// (session, role) pair, or nil when the queue is empty.  A nil
	// roleID matches only entries without a role.
	NextWaiting(ctx context.Context, sessionID uint64, roleID *uint64) (*model.WaitlistEntry, error)

	// WaitlistEntryForUpdate loads and locks an entry, or
	// ErrWaitlistEntryNotFound.
	WaitlistEntryForUpdate(ctx context.Context, id uint64) (*model.WaitlistEntry, error)

	// UpdateWaitlistStatus sets an entry's status and offer window
	// timestamps (nil leaves the column NULL).
	UpdateWaitlistStatus(ctx context.Context, id uint64, status string, offeredAt, expiresAt *time.Time) error

	// ExpiredOffers returns ids of OFFERED entries whose claim window
	// lapsed at or before now, oldest first, up to limit.
	ExpiredOffers(ctx context.Context, now time.Time, limit int) ([]uint64, error)
}

// Notifier receives fire-and-forget notifications after a state
// transition commits.  Implementations must never block the request
// path on external I/O; the AMQP implementation logs and swallows
// broker errors.
type Notifier interface {
	OrderCreated(ctx context.Context, o *model.Order)
	OrderCancelled(ctx context.Context, o *model.Order, reason string)
	PaymentSubmitted(ctx context.Context, o *model.Order)
	WaitlistOffered(ctx context.Context, e *model.WaitlistEntry)
}

// NopNotifier discards all notifications.  Used in tests and when the
// broker is not configured.
type NopNotifier struct{}

func (NopNotifier) OrderCreated(context.Context, *model.Order)            {}
func (NopNotifier) OrderCancelled(context.Context, *model.Order, string)  {}
func (NopNotifier) PaymentSubmitted(context.Context, *model.Order)        {}
func (NopNotifier) WaitlistOffered(context.Context, *model.WaitlistEntry) {}
