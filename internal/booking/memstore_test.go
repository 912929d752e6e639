package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/course-registration/internal/model"
)

// memStore is an in-memory Store for tests.  One mutex guards every
// transaction, so transactions are trivially serializable; a snapshot
// taken at the start of InTx restores the previous state when fn fails,
// mirroring a SQL rollback.
type memStore struct {
	mu       sync.Mutex
	sessions map[uint64]*model.Session
	roles    map[uint64]*model.CharacterRole
	orders   map[uint64]*model.Order
	items    map[uint64][]model.OrderItem
	entries  map[uint64]*model.WaitlistEntry

	nextOrderID uint64
	nextItemID  uint64
	nextEntryID uint64
}

var (
	_ Store = (*memStore)(nil)
	_ Tx    = (*memTx)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		sessions: make(map[uint64]*model.Session),
		roles:    make(map[uint64]*model.CharacterRole),
		orders:   make(map[uint64]*model.Order),
		items:    make(map[uint64][]model.OrderItem),
		entries:  make(map[uint64]*model.WaitlistEntry),
	}
}

func (s *memStore) addSession(sess model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := sess
	s.sessions[cp.ID] = &cp
}

func (s *memStore) addRole(role model.CharacterRole) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := role
	s.roles[cp.ID] = &cp
}

func (s *memStore) session(id uint64) model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.sessions[id]
}

func (s *memStore) role(id uint64) model.CharacterRole {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.roles[id]
}

func (s *memStore) entry(id uint64) model.WaitlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.entries[id]
}

func (s *memStore) order(id uint64) model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.orders[id]
}

type memSnapshot struct {
	sessions map[uint64]*model.Session
	roles    map[uint64]*model.CharacterRole
	orders   map[uint64]*model.Order
	items    map[uint64][]model.OrderItem
	entries  map[uint64]*model.WaitlistEntry

	nextOrderID uint64
	nextItemID  uint64
	nextEntryID uint64
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		sessions:    make(map[uint64]*model.Session, len(s.sessions)),
		roles:       make(map[uint64]*model.CharacterRole, len(s.roles)),
		orders:      make(map[uint64]*model.Order, len(s.orders)),
		items:       make(map[uint64][]model.OrderItem, len(s.items)),
		entries:     make(map[uint64]*model.WaitlistEntry, len(s.entries)),
		nextOrderID: s.nextOrderID,
		nextItemID:  s.nextItemID,
		nextEntryID: s.nextEntryID,
	}
	for id, v := range s.sessions {
		cp := *v
		snap.sessions[id] = &cp
	}
	for id, v := range s.roles {
		cp := *v
		snap.roles[id] = &cp
	}
	for id, v := range s.orders {
		cp := *v
		snap.orders[id] = &cp
	}
	for id, v := range s.items {
		snap.items[id] = append([]model.OrderItem(nil), v...)
	}
	for id, v := range s.entries {
		cp := *v
		snap.entries[id] = &cp
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.sessions = snap.sessions
	s.roles = snap.roles
	s.orders = snap.orders
	s.items = snap.items
	s.entries = snap.entries
	s.nextOrderID = snap.nextOrderID
	s.nextItemID = snap.nextItemID
	s.nextEntryID = snap.nextEntryID
}

func (s *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot()
	if err := fn(&memTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) SessionAvailability(ctx context.Context) ([]model.SessionAvailability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.SessionAvailability
	for _, sess := range s.sessions {
		if sess.Status != model.SessionActive {
			continue
		}
		avail := sess.Capacity - sess.CurrentRegistrations
		if avail < 0 {
			avail = 0
		}
		out = append(out, model.SessionAvailability{
			SessionID:      sess.ID,
			Title:          sess.Title,
			Capacity:       sess.Capacity,
			Registered:     sess.CurrentRegistrations,
			Available:      avail,
			IsWaitlistOnly: sess.CurrentRegistrations >= sess.Capacity,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

func (s *memStore) RoleAvailability(ctx context.Context, sessionID uint64) ([]model.RoleAvailability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return nil, ErrSessionNotFound
	}
	var out []model.RoleAvailability
	for _, r := range s.roles {
		if r.SessionID != sessionID {
			continue
		}
		avail := r.Capacity - r.Assigned
		if avail < 0 {
			avail = 0
		}
		out = append(out, model.RoleAvailability{
			RoleID:    r.ID,
			Name:      r.Name,
			Capacity:  r.Capacity,
			Assigned:  r.Assigned,
			Available: avail,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoleID < out[j].RoleID })
	return out, nil
}

func (s *memStore) OrderByID(ctx context.Context, id uint64) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	cp.Items = append([]model.OrderItem(nil), s.items[id]...)
	return &cp, nil
}

func (s *memStore) OrdersByParent(ctx context.Context, parentID uint64) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Order
	for _, o := range s.orders {
		if o.ParentID != parentID {
			continue
		}
		cp := *o
		cp.Items = append([]model.OrderItem(nil), s.items[o.ID]...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memStore) WaitlistByParent(ctx context.Context, parentID uint64) ([]model.WaitlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.WaitlistEntry
	for _, e := range s.entries {
		if e.ParentID == parentID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// memTx operates directly on the store; the mutex held by InTx makes
// row locking a no-op.
type memTx struct {
	s *memStore
}

func (t *memTx) SessionForUpdate(ctx context.Context, id uint64) (*model.Session, error) {
	sess, ok := t.s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (t *memTx) AddRegistrations(ctx context.Context, sessionID uint64, delta int64) error {
	sess, ok := t.s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	sess.CurrentRegistrations += delta
	if sess.CurrentRegistrations < 0 {
		sess.CurrentRegistrations = 0
	}
	return nil
}

func (t *memTx) RolesBySession(ctx context.Context, sessionID uint64) ([]model.CharacterRole, error) {
	var out []model.CharacterRole
	for _, r := range t.s.roles {
		if r.SessionID == sessionID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) RoleForUpdate(ctx context.Context, id uint64) (*model.CharacterRole, error) {
	r, ok := t.s.roles[id]
	if !ok {
		return nil, ErrRoleNotFound
	}
	cp := *r
	return &cp, nil
}

func (t *memTx) AddAssignments(ctx context.Context, roleID uint64, delta int64) error {
	r, ok := t.s.roles[roleID]
	if !ok {
		return ErrRoleNotFound
	}
	r.Assigned += delta
	if r.Assigned < 0 {
		r.Assigned = 0
	}
	return nil
}

func (t *memTx) CreateOrder(ctx context.Context, o *model.Order) error {
	t.s.nextOrderID++
	o.ID = t.s.nextOrderID
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	cp.Items = nil
	t.s.orders[o.ID] = &cp
	return nil
}

func (t *memTx) CreateOrderItems(ctx context.Context, items []model.OrderItem) error {
	for i := range items {
		t.s.nextItemID++
		items[i].ID = t.s.nextItemID
		t.s.items[items[i].OrderID] = append(t.s.items[items[i].OrderID], items[i])
	}
	return nil
}

func (t *memTx) OrderForUpdate(ctx context.Context, id uint64) (*model.Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (t *memTx) UpdateOrderStatus(ctx context.Context, id uint64, status string) error {
	o, ok := t.s.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (t *memTx) SetPaymentProof(ctx context.Context, id uint64, url string) error {
	o, ok := t.s.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	u := url
	o.PaymentProofURL = &u
	return nil
}

func (t *memTx) ItemsByOrder(ctx context.Context, orderID uint64) ([]model.OrderItem, error) {
	return append([]model.OrderItem(nil), t.s.items[orderID]...), nil
}

func (t *memTx) ExpiredPendingOrders(ctx context.Context, now time.Time, limit int) ([]uint64, error) {
	var ids []uint64
	for _, o := range t.s.orders {
		if o.Status == model.OrderPendingPayment && !now.Before(o.PaymentDeadline) {
			ids = append(ids, o.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (t *memTx) CreateWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) error {
	t.s.nextEntryID++
	e.ID = t.s.nextEntryID
	e.CreatedAt = time.Now().UTC()
	cp := *e
	t.s.entries[e.ID] = &cp
	return nil
}

func roleIDsEqual(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (t *memTx) NextWaiting(ctx context.Context, sessionID uint64, roleID *uint64) (*model.WaitlistEntry, error) {
	var best *model.WaitlistEntry
	for _, e := range t.s.entries {
		if e.Status != model.WaitlistWaiting || e.SessionID != sessionID || !roleIDsEqual(e.RoleID, roleID) {
			continue
		}
		// IDs are assigned monotonically, so the smallest ID is the
		// oldest entry.
		if best == nil || e.ID < best.ID {
			best = e
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (t *memTx) WaitlistEntryForUpdate(ctx context.Context, id uint64) (*model.WaitlistEntry, error) {
	e, ok := t.s.entries[id]
	if !ok {
		return nil, ErrWaitlistEntryNotFound
	}
	cp := *e
	return &cp, nil
}

func (t *memTx) UpdateWaitlistStatus(ctx context.Context, id uint64, status string, offeredAt, expiresAt *time.Time) error {
	e, ok := t.s.entries[id]
	if !ok {
		return ErrWaitlistEntryNotFound
	}
	e.Status = status
	e.OfferedAt = offeredAt
	e.ExpiresAt = expiresAt
	return nil
}

func (t *memTx) ExpiredOffers(ctx context.Context, now time.Time, limit int) ([]uint64, error) {
	var ids []uint64
	for _, e := range t.s.entries {
		if e.Status == model.WaitlistOffered && e.ExpiresAt != nil && !now.Before(*e.ExpiresAt) {
			ids = append(ids, e.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}
