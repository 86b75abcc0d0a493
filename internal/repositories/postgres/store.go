package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salonfield/backoffice/internal/domain"
	"github.com/salonfield/backoffice/internal/repositories"
)

const orderColumns = `id, order_number, customer_id, customer_name, customer_phone, staff_id,
subtotal, tax_rate, tax_amount, tip_percentage, tip_amount, total_amount,
payment_method, payment_status, order_status,
transaction_id, authorization_code, card_last4, terminal_id, payment_completed_at,
refunded_total, refund_reasons, notes, cancel_reason, cancelled_at,
version, created_at, updated_at`

// OrderStore implements repositories.OrderRepository on PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore constructs an order store over the provided pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Insert implements repositories.OrderRepository.
func (s *OrderStore) Insert(ctx context.Context, order domain.Order) error {
	const stmt = `
INSERT INTO orders (` + orderColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)`

	const itemStmt = `
INSERT INTO order_items (order_id, position, service_id, name, category, unit_price, quantity, staff_id, duration_minutes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	order.Version = 1

	err := withTx(ctx, s.pool, func(txCtx context.Context) error {
		if _, err := s.exec(txCtx, stmt,
			order.ID, order.OrderNumber, order.Customer.ID, order.Customer.Name, order.Customer.Phone, order.StaffID,
			order.Subtotal, order.TaxRate, order.TaxAmount, order.TipPercentage, order.TipAmount, order.TotalAmount,
			string(order.PaymentMethod), string(order.PaymentStatus), string(order.Status),
			order.TransactionID, order.AuthorizationCode, order.CardLast4, order.TerminalID, order.PaymentCompletedAt,
			order.RefundedTotal, refundReasons(order.RefundReasons), order.Notes, order.CancelReason, order.CancelledAt,
			order.Version, order.CreatedAt, order.UpdatedAt,
		); err != nil {
			if isUniqueViolation(err) {
				return repositories.NewConflictError("postgres: insert order", err)
			}
			return classify("postgres: insert order", err)
		}

		for i, item := range order.Items {
			if _, err := s.exec(txCtx, itemStmt,
				order.ID, i, item.ServiceID, item.Name, item.Category,
				item.UnitPrice, item.Quantity, item.StaffID, item.DurationMinutes,
			); err != nil {
				return classify("postgres: insert order item", err)
			}
		}
		return nil
	})
	return err
}

// FindByID implements repositories.OrderRepository.
func (s *OrderStore) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := s.scanOrder(s.queryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, repositories.NewNotFoundError("postgres: find order", fmt.Errorf("order %s", orderID))
		}
		return domain.Order{}, classify("postgres: find order", err)
	}

	items, err := s.loadItems(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items
	return order, nil
}

// Update implements repositories.OrderRepository. Line items are immutable
// after creation, so only the aggregate row is written; the stored version
// must match order.Version.
func (s *OrderStore) Update(ctx context.Context, order domain.Order) (domain.Order, error) {
	const stmt = `
UPDATE orders SET
	payment_method = $3, payment_status = $4, order_status = $5,
	transaction_id = $6, authorization_code = $7, card_last4 = $8, terminal_id = $9, payment_completed_at = $10,
	refunded_total = $11, refund_reasons = $12, notes = $13, cancel_reason = $14, cancelled_at = $15,
	version = version + 1, updated_at = $16
WHERE id = $1 AND version = $2`

	tag, err := s.exec(ctx, stmt,
		order.ID, order.Version,
		string(order.PaymentMethod), string(order.PaymentStatus), string(order.Status),
		order.TransactionID, order.AuthorizationCode, order.CardLast4, order.TerminalID, order.PaymentCompletedAt,
		order.RefundedTotal, refundReasons(order.RefundReasons), order.Notes, order.CancelReason, order.CancelledAt,
		order.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, classify("postgres: update order", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, order.ID).Scan(&exists); err != nil {
			return domain.Order{}, classify("postgres: update order", err)
		}
		if !exists {
			return domain.Order{}, repositories.NewNotFoundError("postgres: update order", fmt.Errorf("order %s", order.ID))
		}
		return domain.Order{}, repositories.NewConflictError("postgres: update order",
			fmt.Errorf("order %s version %d is stale", order.ID, order.Version))
	}

	order.Version++
	return order, nil
}

// List implements repositories.OrderRepository.
func (s *OrderStore) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	args := []any{}

	if len(filter.Status) > 0 {
		args = append(args, statusStrings(filter.Status))
		query += fmt.Sprintf(" AND order_status = ANY($%d)", len(args))
	}
	if len(filter.PaymentStatus) > 0 {
		args = append(args, paymentStatusStrings(filter.PaymentStatus))
		query += fmt.Sprintf(" AND payment_status = ANY($%d)", len(args))
	}
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		query += fmt.Sprintf(" AND customer_id = $%d", len(args))
	}
	query += " ORDER BY created_at, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, classify("postgres: list orders", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := s.scanOrder(rows)
		if err != nil {
			return nil, classify("postgres: list orders", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("postgres: list orders", err)
	}

	for i := range orders {
		items, err := s.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (s *OrderStore) loadItems(ctx context.Context, orderID string) ([]domain.LineItem, error) {
	const query = `
SELECT service_id, name, category, unit_price, quantity, staff_id, duration_minutes
FROM order_items
WHERE order_id = $1
ORDER BY position`

	rows, err := s.query(ctx, query, orderID)
	if err != nil {
		return nil, classify("postgres: load order items", err)
	}
	defer rows.Close()

	items := []domain.LineItem{}
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ServiceID, &item.Name, &item.Category, &item.UnitPrice,
			&item.Quantity, &item.StaffID, &item.DurationMinutes); err != nil {
			return nil, classify("postgres: load order items", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("postgres: load order items", err)
	}
	return items, nil
}

func (s *OrderStore) scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o                                  domain.Order
		method, paymentStatus, orderStatus string
		reasons                            []string
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.Customer.ID, &o.Customer.Name, &o.Customer.Phone, &o.StaffID,
		&o.Subtotal, &o.TaxRate, &o.TaxAmount, &o.TipPercentage, &o.TipAmount, &o.TotalAmount,
		&method, &paymentStatus, &orderStatus,
		&o.TransactionID, &o.AuthorizationCode, &o.CardLast4, &o.TerminalID, &o.PaymentCompletedAt,
		&o.RefundedTotal, &reasons, &o.Notes, &o.CancelReason, &o.CancelledAt,
		&o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	o.PaymentMethod = domain.PaymentMethod(method)
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	o.Status = domain.OrderStatus(orderStatus)
	o.RefundReasons = reasons
	return o, nil
}

func (s *OrderStore) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return s.pool.Exec(ctx, sql, args...)
}

func (s *OrderStore) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return s.pool.Query(ctx, sql, args...)
}

func (s *OrderStore) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return s.pool.QueryRow(ctx, sql, args...)
}

// CounterStore implements repositories.CounterRepository on PostgreSQL.
type CounterStore struct {
	pool *pgxpool.Pool
}

// NewCounterStore constructs a counter store over the provided pool.
func NewCounterStore(pool *pgxpool.Pool) *CounterStore {
	return &CounterStore{pool: pool}
}

// Next implements repositories.CounterRepository.
func (s *CounterStore) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if step <= 0 {
		return 0, errors.New("postgres: counter step must be positive")
	}

	const stmt = `
INSERT INTO counters (id, value) VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET value = counters.value + EXCLUDED.value
RETURNING value`

	var value int64
	if err := s.pool.QueryRow(ctx, stmt, counterID, step).Scan(&value); err != nil {
		return 0, classify("postgres: next counter", err)
	}
	return value, nil
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return repositories.NewConflictError(op, err)
	}
	return repositories.NewUnavailableError(op, err)
}

func refundReasons(reasons []string) []string {
	if reasons == nil {
		return []string{}
	}
	return reasons
}

func statusStrings(statuses []domain.OrderStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func paymentStatusStrings(statuses []domain.PaymentStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
