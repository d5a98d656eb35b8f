package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
	"github.com/jmoiron/sqlx"
)

// Tx is the write surface available inside WithinTx. Every method runs on
// the same database transaction.
type Tx interface {
	LockProducts(ctx context.Context, ids []int64) ([]domain.Product, error)
	DecrementStock(ctx context.Context, productID int64, quantity int) error
	CreateOrder(ctx context.Context, order *domain.Order) error
	CreateOrderItems(ctx context.Context, orderID int64, items []domain.OrderItem) error
	GetOrderForUpdate(ctx context.Context, id int64) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) error
	CreatePayment(ctx context.Context, payment *domain.Payment) error
	GetPaymentForUpdate(ctx context.Context, id int64) (*domain.Payment, error)
	GetPaymentByIntentForUpdate(ctx context.Context, intentID string) (*domain.Payment, error)
	UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) error
	RecordWebhookEvent(ctx context.Context, eventID, eventType string) (bool, error)
	AddOutboxEvent(ctx context.Context, event *domain.OutboxEvent) error
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// WithinTx runs fn in a transaction, committing when fn returns nil and
// rolling back otherwise.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	sqlTx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(ctx, &txRepository{tx: sqlTx, dialect: r.dialect}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type txRepository struct {
	tx      *sqlx.Tx
	dialect dialect
}

// LockProducts loads and locks products in ascending id order so that
// concurrent checkouts always acquire row locks in the same sequence.
func (t *txRepository) LockProducts(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)

	query, args, err := in(t.tx, `SELECT `+productColumns+` FROM products WHERE id IN (?) ORDER BY id`+t.dialect.lockSuffix, sorted)
	if err != nil {
		return nil, fmt.Errorf("build lock query: %w", err)
	}

	products := []domain.Product{}
	if err := t.tx.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	return products, nil
}

// DecrementStock never lets stock go negative; ErrStockConflict means the
// guarded update matched no row.
func (t *txRepository) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	query := t.tx.Rebind(`UPDATE products
	          SET stock_quantity = stock_quantity - ?, updated_at = ?
	          WHERE id = ? AND stock_quantity >= ?`)

	res, err := t.tx.ExecContext(ctx, query, quantity, time.Now().UTC(), productID, quantity)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	return expectOneRow(res, ErrStockConflict)
}

func (t *txRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	now := time.Now().UTC()
	query := t.tx.Rebind(`INSERT INTO orders (user_id, status, total_amount, currency, shipping_address, shipping_city,
	              shipping_postal_code, shipping_country, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	err := t.tx.QueryRowxContext(ctx, query,
		order.UserID,
		order.Status,
		order.TotalAmount,
		order.Currency,
		order.ShippingAddress,
		order.ShippingCity,
		order.ShippingPostalCode,
		order.ShippingCountry,
		now,
		now,
	).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	order.CreatedAt, order.UpdatedAt = now, now
	return nil
}

func (t *txRepository) CreateOrderItems(ctx context.Context, orderID int64, items []domain.OrderItem) error {
	query := t.tx.Rebind(`INSERT INTO order_items (order_id, product_id, product_name, quantity, price)
	          VALUES (?, ?, ?, ?, ?) RETURNING id`)

	for i := range items {
		items[i].OrderID = orderID
		err := t.tx.QueryRowxContext(ctx, query,
			orderID,
			items[i].ProductID,
			items[i].ProductName,
			items[i].Quantity,
			items[i].Price,
		).Scan(&items[i].ID)
		if err != nil {
			return fmt.Errorf("insert order item for product %d: %w", items[i].ProductID, err)
		}
	}
	return nil
}

func (t *txRepository) GetOrderForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	query := t.tx.Rebind(`SELECT ` + orderColumns + ` FROM orders WHERE id = ?` + t.dialect.lockSuffix)

	var order domain.Order
	err := t.tx.GetContext(ctx, &order, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return &order, nil
}

func (t *txRepository) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	query := t.tx.Rebind(`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`)
	res, err := t.tx.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return expectOneRow(res, ErrOrderNotFound)
}

func (t *txRepository) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	now := time.Now().UTC()
	query := t.tx.Rebind(`INSERT INTO payments (order_id, stripe_payment_intent_id, amount, currency, status, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	err := t.tx.QueryRowxContext(ctx, query,
		payment.OrderID,
		payment.StripePaymentIntentID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		now,
		now,
	).Scan(&payment.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePayment
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	payment.CreatedAt, payment.UpdatedAt = now, now
	return nil
}

func (t *txRepository) GetPaymentForUpdate(ctx context.Context, id int64) (*domain.Payment, error) {
	return t.lockPayment(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
}

func (t *txRepository) GetPaymentByIntentForUpdate(ctx context.Context, intentID string) (*domain.Payment, error) {
	return t.lockPayment(ctx, `SELECT `+paymentColumns+` FROM payments WHERE stripe_payment_intent_id = ?`, intentID)
}

func (t *txRepository) lockPayment(ctx context.Context, query string, arg any) (*domain.Payment, error) {
	var p domain.Payment
	err := t.tx.GetContext(ctx, &p, t.tx.Rebind(query+t.dialect.lockSuffix), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock payment: %w", err)
	}
	return &p, nil
}

func (t *txRepository) UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) error {
	query := t.tx.Rebind(`UPDATE payments SET status = ?, updated_at = ? WHERE id = ?`)
	res, err := t.tx.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return expectOneRow(res, ErrPaymentNotFound)
}

// RecordWebhookEvent reports false when eventID was already recorded.
func (t *txRepository) RecordWebhookEvent(ctx context.Context, eventID, eventType string) (bool, error) {
	query := t.tx.Rebind(`INSERT INTO webhook_events (event_id, event_type, received_at)
	          VALUES (?, ?, ?) ON CONFLICT (event_id) DO NOTHING`)

	res, err := t.tx.ExecContext(ctx, query, eventID, eventType, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (t *txRepository) AddOutboxEvent(ctx context.Context, event *domain.OutboxEvent) error {
	now := time.Now().UTC()
	query := t.tx.Rebind(`INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at)
	          VALUES (?, ?, ?, ?) RETURNING id`)

	if err := t.tx.QueryRowxContext(ctx, query, event.AggregateID, event.EventType, string(event.Payload), now).Scan(&event.ID); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	event.CreatedAt = now
	return nil
}
