package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/foodcourt/internal/domain/order"
	"github.com/xenking/foodcourt/internal/domain/pricing"
)

const orderColumns = `id, order_number, customer_email, customer_phone, delivery_address, status,
	subtotal, tax, delivery_fee, discount, discount_code, total, special_instructions,
	created_at, updated_at`

const (
	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	insertOrderItemSQL = `INSERT INTO order_items
		(id, order_id, position, menu_item_id, menu_item_name, quantity, unit_price, total_price, customizations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	getOrderByNumberSQL = `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`
	getOrderByIDSQL     = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	countOrdersSQL = `SELECT count(*) FROM orders WHERE ($1 = '' OR status = $1)`

	listOrderItemsSQL = `SELECT order_id, menu_item_id, menu_item_name, quantity, unit_price, total_price, customizations
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY order_id, position`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`

	orderTotalsSQL = `SELECT count(*),
			count(*) FILTER (WHERE created_at >= $1),
			COALESCE(sum(total), 0)
		FROM orders`

	orderStatusCountsSQL = `SELECT status, count(*) FROM orders GROUP BY status`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts the order and its lines and, when a discount code was
// applied, increments its usage. All writes share one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.Number, nullIfEmpty(o.Customer.Email), nullIfEmpty(o.Customer.Phone),
			encodeAddress(o.Address), string(o.Status),
			o.Subtotal, o.Tax, o.DeliveryFee, o.Discount, nullIfEmpty(o.DiscountCode), o.Total,
			o.SpecialInstructions, o.CreatedAt, o.UpdatedAt,
		); err != nil {
			return fmt.Errorf("creating order %q: %w", o.Number, err)
		}

		batch := &pgx.Batch{}
		for i, l := range o.Lines {
			batch.Queue(insertOrderItemSQL,
				uuid.New().String(), o.ID, i, l.MenuItemID, l.Name, l.Quantity,
				l.UnitPrice, l.Total, encodeCustomizations(l.Customizations),
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("creating items of order %q: %w", o.Number, err)
		}

		if o.DiscountCode != "" {
			if err := incrementUsage(ctx, tx, o.DiscountCode); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByNumber returns the order with its lines.
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByNumberSQL, number)
}

// GetByID returns the order with its lines.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByIDSQL, id)
}

func (r *OrderRepository) getOne(ctx context.Context, query, key string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", key, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", key, err)
	}

	orders := []order.Order{o}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// List returns a page of orders with their lines and the total number of
// orders matching the filter.
func (r *OrderRepository) List(ctx context.Context, f order.ListFilter) ([]order.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, countOrdersSQL, string(f.Status)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	rows, err := r.pool.Query(ctx, listOrdersSQL, string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	if orders == nil {
		orders = []order.Order{}
	}

	if err := r.attachLines(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatus sets the status of the order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status, at time.Time) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(status), at)
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// Summary aggregates all orders. Orders created at or after since count as
// today's orders.
func (r *OrderRepository) Summary(ctx context.Context, since time.Time) (*order.Summary, error) {
	sum := &order.Summary{ByStatus: make(map[order.Status]int)}
	if err := r.pool.QueryRow(ctx, orderTotalsSQL, since).Scan(
		&sum.TotalOrders, &sum.TodayOrders, &sum.TotalRevenue,
	); err != nil {
		return nil, fmt.Errorf("summarizing orders: %w", err)
	}

	rows, err := r.pool.Query(ctx, orderStatusCountsSQL)
	if err != nil {
		return nil, fmt.Errorf("counting orders by status: %w", err)
	}
	var (
		status string
		count  int
	)
	if _, err := pgx.ForEachRow(rows, []any{&status, &count}, func() error {
		sum.ByStatus[order.Status(status)] = count
		return nil
	}); err != nil {
		return nil, fmt.Errorf("counting orders by status: %w", err)
	}
	return sum, nil
}

// attachLines loads the lines of every order in one query.
func (r *OrderRepository) attachLines(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		orders[i].Lines = []pricing.Line{}
	}

	rows, err := r.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	var (
		orderID string
		line    pricing.Line
		custom  []byte
	)
	_, err = pgx.ForEachRow(rows, []any{
		&orderID, &line.MenuItemID, &line.Name, &line.Quantity, &line.UnitPrice, &line.Total, &custom,
	}, func() error {
		c, err := decodeCustomizations(custom)
		if err != nil {
			return err
		}
		l := line
		l.Customizations = c
		i := index[orderID]
		orders[i].Lines = append(orders[i].Lines, l)
		return nil
	})
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                  order.Order
		email, phone, code *string
		address            []byte
		status             string
		subtotal, tax, fee decimal.Decimal
		discountAmt, total decimal.Decimal
	)
	if err := row.Scan(
		&o.ID, &o.Number, &email, &phone, &address, &status,
		&subtotal, &tax, &fee, &discountAmt, &code, &total, &o.SpecialInstructions,
		&o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return order.Order{}, err
	}

	addr, err := decodeAddress(address)
	if err != nil {
		return order.Order{}, fmt.Errorf("order %q: %w", o.Number, err)
	}

	o.Customer = order.Customer{Email: derefString(email), Phone: derefString(phone)}
	o.Address = addr
	o.Status = order.Status(status)
	o.Subtotal, o.Tax, o.DeliveryFee, o.Discount, o.Total = subtotal, tax, fee, discountAmt, total
	o.DiscountCode = derefString(code)
	return o, nil
}
