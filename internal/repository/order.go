package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carmonterr/tejon/internal/model"
)

const orderColumns = `id, user_id, ship_address, ship_city, ship_country, ship_phone,
	shipping_cents, total_cents, is_paid, paid_at, is_delivered, delivered_at,
	delivery_status, created_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.Shipping.Address, &o.Shipping.City, &o.Shipping.Country, &o.Shipping.Phone,
		&o.ShippingCents, &o.TotalCents, &o.IsPaid, &o.PaidAt, &o.IsDelivered, &o.DeliveredAt,
		&o.DeliveryStatus, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return &o, nil
}

// loadOrderItems attaches line items to the given orders, keyed by order id.
func (r *PostgresRepository) loadOrderItems(ctx context.Context, orders map[int64]*model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(orders))
	for id := range orders {
		ids = append(ids, id)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT order_id, product_id, name, qty, size, image, price_cents
		 FROM order_items
		 WHERE order_id = ANY($1)
		 ORDER BY id`, ids)
	if err != nil {
		return fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID int64
		var item model.OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &item.Qty, &item.Size, &item.Image, &item.PriceCents); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := orders[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

// CreateOrder inserts the order and its line items in one transaction.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (user_id, ship_address, ship_city, ship_country, ship_phone, shipping_cents, total_cents)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		o.UserID, o.Shipping.Address, o.Shipping.City, o.Shipping.Country, o.Shipping.Phone,
		o.ShippingCents, o.TotalCents,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (order_id, product_id, name, qty, size, image, price_cents)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, item.ProductID, item.Name, item.Qty, item.Size, item.Image, item.PriceCents)
		if err != nil {
			return 0, fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return id, nil
}

// GetOrderByID returns one order with its line items.
func (r *PostgresRepository) GetOrderByID(ctx context.Context, id int64) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}

	if err := r.loadOrderItems(ctx, map[int64]*model.Order{o.ID: o}); err != nil {
		return nil, err
	}
	return o, nil
}

// GetOrdersByUser returns the orders of one account, newest first.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE user_id = $1
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []*model.Order
	byID := map[int64]*model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
		byID[o.ID] = o
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := r.loadOrderItems(ctx, byID); err != nil {
		return nil, err
	}

	res := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		res = append(res, *o)
	}
	return res, nil
}

// PayOrder marks the order paid and applies the inventory side effects. The
// whole transition runs in one transaction with the order row locked, so a
// crash cannot leave a paid order with half-updated stock.
func (r *PostgresRepository) PayOrder(ctx context.Context, id int64, paidAt time.Time) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var isPaid bool
		err = tx.QueryRow(ctx, `SELECT is_paid FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&isPaid)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("lock order: %w", err)
		}
		if isPaid {
			return ErrOrderAlreadyPaid
		}

		_, err = tx.Exec(ctx,
			`UPDATE orders SET is_paid = TRUE, paid_at = $2 WHERE id = $1`, id, paidAt)
		if err != nil {
			return fmt.Errorf("mark paid: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE products p
			 SET stock = GREATEST(p.stock - i.qty, 0), sold = p.sold + i.qty
			 FROM order_items i
			 WHERE i.order_id = $1 AND p.id = i.product_id`, id)
		if err != nil {
			return fmt.Errorf("apply inventory: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// RevertOrderPayment is the inverse of PayOrder: clears the paid flag and
// restores stock and sold counters. Stock is not re-validated.
func (r *PostgresRepository) RevertOrderPayment(ctx context.Context, id int64) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var isPaid bool
		err = tx.QueryRow(ctx, `SELECT is_paid FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&isPaid)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("lock order: %w", err)
		}
		if !isPaid {
			return ErrOrderNotPaid
		}

		_, err = tx.Exec(ctx,
			`UPDATE orders SET is_paid = FALSE, paid_at = NULL WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("clear paid: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE products p
			 SET stock = p.stock + i.qty, sold = p.sold - i.qty
			 FROM order_items i
			 WHERE i.order_id = $1 AND p.id = i.product_id`, id)
		if err != nil {
			return fmt.Errorf("restore inventory: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// SetInTransit moves the delivery status to "en tránsito".
func (r *PostgresRepository) SetInTransit(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET delivery_status = $2 WHERE id = $1`,
		id, string(model.DeliveryInTransit))
	if err != nil {
		return fmt.Errorf("set in transit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// SetDelivered marks the order delivered.
func (r *PostgresRepository) SetDelivered(ctx context.Context, id int64, deliveredAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders
		 SET is_delivered = TRUE, delivered_at = $2, delivery_status = $3
		 WHERE id = $1`,
		id, deliveredAt, string(model.DeliveryDelivered))
	if err != nil {
		return fmt.Errorf("set delivered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// DeleteUnpaidOrder removes an order only while it is unpaid.
func (r *PostgresRepository) DeleteUnpaidOrder(ctx context.Context, id int64) error {
	var isPaid bool
	err := r.pool.QueryRow(ctx, `SELECT is_paid FROM orders WHERE id = $1`, id).Scan(&isPaid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("select order: %w", err)
	}
	if isPaid {
		return ErrOrderPaid
	}

	_, err = r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1 AND NOT is_paid`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

// OrderSearchFilter describes the admin order search. UserIDs holds the
// candidate owners resolved from the free-text query in a first phase; Query
// additionally matches the order id as text.
type OrderSearchFilter struct {
	Query     string
	UserIDs   []int64
	Paid      *bool
	Delivered *bool
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

func (f OrderSearchFilter) whereClause() (string, []any) {
	conds := []string{"TRUE"}
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Paid != nil {
		conds = append(conds, "o.is_paid = "+arg(*f.Paid))
	}
	if f.Delivered != nil {
		conds = append(conds, "o.is_delivered = "+arg(*f.Delivered))
	}
	if f.From != nil {
		conds = append(conds, "o.created_at >= "+arg(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "o.created_at <= "+arg(*f.To))
	}
	if f.Query != "" {
		text := "o.id::text ILIKE " + arg("%"+f.Query+"%")
		if len(f.UserIDs) > 0 {
			text = "(o.user_id = ANY(" + arg(f.UserIDs) + ") OR " + text + ")"
		}
		conds = append(conds, text)
	}

	return strings.Join(conds, " AND "), args
}

// SearchOrders runs the filtered admin search: one result page enriched with
// the owner identity, the total match count and the paid revenue over the
// whole filtered set (independent of pagination).
func (r *PostgresRepository) SearchOrders(ctx context.Context, f OrderSearchFilter) ([]model.AdminOrder, int64, int64, error) {
	where, args := f.whereClause()

	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders o WHERE `+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("count orders: %w", err)
	}

	var revenueCents int64
	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(o.total_cents), 0) FROM orders o WHERE `+where+` AND o.is_paid`, args...,
	).Scan(&revenueCents)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("sum orders: %w", err)
	}

	pageArgs := append(args, f.Limit, f.Offset)
	rows, err := r.pool.Query(ctx,
		`SELECT o.id, o.user_id, o.ship_address, o.ship_city, o.ship_country, o.ship_phone,
		        o.shipping_cents, o.total_cents, o.is_paid, o.paid_at, o.is_delivered, o.delivered_at,
		        o.delivery_status, o.created_at,
		        COALESCE(u.name, ''), COALESCE(u.email, '')
		 FROM orders o
		 LEFT JOIN users u ON u.id = o.user_id
		 WHERE `+where+`
		 ORDER BY o.created_at DESC
		 LIMIT $`+fmt.Sprint(len(args)+1)+` OFFSET $`+fmt.Sprint(len(args)+2),
		pageArgs...)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var page []*model.AdminOrder
	byID := map[int64]*model.Order{}
	for rows.Next() {
		var o model.AdminOrder
		err := rows.Scan(
			&o.ID, &o.UserID, &o.Shipping.Address, &o.Shipping.City, &o.Shipping.Country, &o.Shipping.Phone,
			&o.ShippingCents, &o.TotalCents, &o.IsPaid, &o.PaidAt, &o.IsDelivered, &o.DeliveredAt,
			&o.DeliveryStatus, &o.CreatedAt,
			&o.UserName, &o.UserEmail,
		)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("scan order: %w", err)
		}
		page = append(page, &o)
		byID[o.ID] = &o.Order
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, fmt.Errorf("rows error: %w", err)
	}

	if err := r.loadOrderItems(ctx, byID); err != nil {
		return nil, 0, 0, err
	}

	res := make([]model.AdminOrder, 0, len(page))
	for _, o := range page {
		res = append(res, *o)
	}
	return res, total, revenueCents, nil
}

// OrderStatsBetween returns the order count and revenue inside a date range.
// Unpaid orders count toward the total but contribute no revenue, matching the
// global summary.
func (r *PostgresRepository) OrderStatsBetween(ctx context.Context, from, to time.Time) (int64, int64, error) {
	var count, totalCents int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_cents) FILTER (WHERE is_paid), 0)
		 FROM orders
		 WHERE created_at BETWEEN $1 AND $2`,
		from, to,
	).Scan(&count, &totalCents)
	if err != nil {
		return 0, 0, fmt.Errorf("order stats: %w", err)
	}
	return count, totalCents, nil
}

// CountOrdersAndPaidRevenue returns the global order count and the revenue of
// paid orders, for the admin dashboard.
func (r *PostgresRepository) CountOrdersAndPaidRevenue(ctx context.Context) (int64, int64, error) {
	var count, revenueCents int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_cents) FILTER (WHERE is_paid), 0) FROM orders`,
	).Scan(&count, &revenueCents)
	if err != nil {
		return 0, 0, fmt.Errorf("order summary: %w", err)
	}
	return count, revenueCents, nil
}

// SalesByDate buckets paid revenue by day or month of the payment timestamp.
func (r *PostgresRepository) SalesByDate(ctx context.Context, from, to time.Time, byMonth bool) ([]model.SalesBucket, error) {
	format := "YYYY-MM-DD"
	if byMonth {
		format = "YYYY-MM"
	}

	rows, err := r.pool.Query(ctx,
		`SELECT to_char(paid_at, $1) AS bucket, SUM(total_cents)
		 FROM orders
		 WHERE is_paid AND paid_at BETWEEN $2 AND $3
		 GROUP BY bucket
		 ORDER BY bucket`,
		format, from, to)
	if err != nil {
		return nil, fmt.Errorf("sales by date: %w", err)
	}
	defer rows.Close()

	var res []model.SalesBucket
	for rows.Next() {
		var b model.SalesBucket
		if err := rows.Scan(&b.Date, &b.TotalCents); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		res = append(res, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
