package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
)

const orderColumns = `id, user_id, status, total_amount, currency, shipping_address, shipping_city,
	shipping_postal_code, shipping_country, created_at, updated_at`

// OrderFilter scopes listings. A zero UserID lists every order.
type OrderFilter struct {
	UserID int64
}

func (r *Repository) ListOrders(ctx context.Context, filter OrderFilter) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	if filter.UserID != 0 {
		query += ` WHERE user_id = ?`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	orders := []domain.Order{}
	if err := r.db.SelectContext(ctx, &orders, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	return orders, nil
}

func (r *Repository) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`

	var order domain.Order
	err := r.db.GetContext(ctx, &order, r.db.Rebind(query), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	return &order, nil
}

func (r *Repository) ListOrderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	query := `SELECT id, order_id, product_id, product_name, quantity, price
	          FROM order_items WHERE order_id = ? ORDER BY id`

	items := []domain.OrderItem{}
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(query), orderID); err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	return items, nil
}
