package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/course-registration/internal/booking"
	"github.com/iliyamo/course-registration/internal/model"
)

// CreateOrder inserts a new order row and queries it back to populate
// the generated ID and timestamp defaults.
func (t *storeTx) CreateOrder(ctx context.Context, o *model.Order) error {
	const q = `INSERT INTO orders
	           (order_number, parent_id, status, total_cents, discount_cents, final_cents,
	            payment_deadline, group_code, payment_method, notes)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := t.tx.ExecContext(ctx, q,
		o.OrderNumber, o.ParentID, o.Status, o.TotalCents, o.DiscountCents, o.FinalCents,
		o.PaymentDeadline.UTC().Format("2006-01-02 15:04:05"), o.GroupCode, o.PaymentMethod, o.Notes,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM orders WHERE id = ?`
	return t.tx.QueryRowContext(ctx, sel, o.ID).Scan(&o.CreatedAt, &o.UpdatedAt)
}

// CreateOrderItems inserts all items of an order in a single statement.
// Passing an empty slice has no effect and returns nil.
func (t *storeTx) CreateOrderItems(ctx context.Context, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	query := `INSERT INTO order_items (order_id, session_id, child_id, role_id, price_cents, discount_cents, addon) VALUES `
	args := make([]interface{}, 0, len(items)*7)
	for i, it := range items {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?)"
		args = append(args, it.OrderID, it.SessionID, it.ChildID, it.RoleID, it.PriceCents, it.DiscountCents, it.Addon)
	}
	_, err := t.tx.ExecContext(ctx, query, args...)
	return err
}

// scanOrder reads one order row shared by the ForUpdate and read paths.
func scanOrder(row *sql.Row) (*model.Order, error) {
	var o model.Order
	var groupCode, proofURL, notes sql.NullString
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.ParentID, &o.Status,
		&o.TotalCents, &o.DiscountCents, &o.FinalCents,
		&o.PaymentDeadline, &groupCode, &o.PaymentMethod, &proofURL, &notes,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if groupCode.Valid {
		v := groupCode.String
		o.GroupCode = &v
	}
	if proofURL.Valid {
		v := proofURL.String
		o.PaymentProofURL = &v
	}
	if notes.Valid {
		v := notes.String
		o.Notes = &v
	}
	return &o, nil
}

const orderColumns = `id, order_number, parent_id, status, total_cents, discount_cents, final_cents,
	payment_deadline, group_code, payment_method, payment_proof_url, notes, created_at, updated_at`

// OrderForUpdate loads and locks an order row without its items.  The
// lifecycle is the only caller; the lock makes it the single writer of
// order status.
func (t *storeTx) OrderForUpdate(ctx context.Context, id uint64) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = ? FOR UPDATE`
	return scanOrder(t.tx.QueryRowContext(ctx, q, id))
}

// UpdateOrderStatus sets the order status.
func (t *storeTx) UpdateOrderStatus(ctx context.Context, id uint64, status string) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ?`, status, id)
	return err
}

// SetPaymentProof records the stored proof reference.
func (t *storeTx) SetPaymentProof(ctx context.Context, id uint64, url string) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE orders SET payment_proof_url = ? WHERE id = ?`, url, id)
	return err
}

// ItemsByOrder lists the items of one order within the transaction.
func (t *storeTx) ItemsByOrder(ctx context.Context, orderID uint64) ([]model.OrderItem, error) {
	const q = `SELECT id, order_id, session_id, child_id, role_id, price_cents, discount_cents, addon
	           FROM order_items WHERE order_id = ? ORDER BY id`
	rows, err := t.tx.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// ExpiredPendingOrders returns ids of PENDING_PAYMENT orders whose
// deadline is at or before now, oldest deadline first.  The sweep locks
// and re-checks each order in its own transaction, so this scan takes
// no locks.
func (t *storeTx) ExpiredPendingOrders(ctx context.Context, now time.Time, limit int) ([]uint64, error) {
	const q = `SELECT id FROM orders
	           WHERE status = ? AND payment_deadline <= ?
	           ORDER BY payment_deadline LIMIT ?`
	rows, err := t.tx.QueryContext(ctx, q, model.OrderPendingPayment, now.UTC().Format("2006-01-02 15:04:05"), limit)
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

// OrderByID loads one order with its items.
func (s *Store) OrderByID(ctx context.Context, id uint64) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	o, err := scanOrder(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, err
	}
	const itemQ = `SELECT id, order_id, session_id, child_id, role_id, price_cents, discount_cents, addon
	               FROM order_items WHERE order_id = ? ORDER BY id`
	rows, err := s.db.QueryContext(ctx, itemQ, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	o.Items, err = scanItems(rows)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// OrdersByParent lists a parent's orders, newest first, populating the
// items of all orders with a single IN query.
func (s *Store) OrdersByParent(ctx context.Context, parentID uint64) ([]model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE parent_id = ? ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := make([]model.Order, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var o model.Order
		var groupCode, proofURL, notes sql.NullString
		if err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.ParentID, &o.Status,
			&o.TotalCents, &o.DiscountCents, &o.FinalCents,
			&o.PaymentDeadline, &groupCode, &o.PaymentMethod, &proofURL, &notes,
			&o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if groupCode.Valid {
			v := groupCode.String
			o.GroupCode = &v
		}
		if proofURL.Valid {
			v := proofURL.String
			o.PaymentProofURL = &v
		}
		if notes.Valid {
			v := notes.String
			o.Notes = &v
		}
		o.Items = []model.OrderItem{}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}
	ids := make([]interface{}, 0, len(orders))
	placeholders := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		placeholders = append(placeholders, "?")
	}
	itemQ := `SELECT id, order_id, session_id, child_id, role_id, price_cents, discount_cents, addon
	          FROM order_items WHERE order_id IN (` + strings.Join(placeholders, ",") + `) ORDER BY order_id, id`
	irows, err := s.db.QueryContext(ctx, itemQ, ids...)
	if err != nil {
		return nil, err
	}
	defer irows.Close()
	items, err := scanItems(irows)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if idx, ok := index[it.OrderID]; ok {
			orders[idx].Items = append(orders[idx].Items, it)
		}
	}
	return orders, nil
}

// scanItems drains an order_items result set.
func scanItems(rows *sql.Rows) ([]model.OrderItem, error) {
	var items []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		var roleID sql.NullInt64
		if err := rows.Scan(&it.ID, &it.OrderID, &it.SessionID, &it.ChildID, &roleID, &it.PriceCents, &it.DiscountCents, &it.Addon); err != nil {
			return nil, err
		}
		if roleID.Valid {
			rid := uint64(roleID.Int64)
			it.RoleID = &rid
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
