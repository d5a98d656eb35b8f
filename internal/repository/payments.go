package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
)

const paymentColumns = `id, order_id, stripe_payment_intent_id, amount, currency, status, created_at, updated_at`

// PaymentFilter scopes listings by the owner of the paid order. A zero
// UserID lists every payment.
type PaymentFilter struct {
	UserID int64
}

func (r *Repository) ListPayments(ctx context.Context, filter PaymentFilter) ([]domain.Payment, error) {
	query := `SELECT p.id, p.order_id, p.stripe_payment_intent_id, p.amount, p.currency, p.status,
	                 p.created_at, p.updated_at
	          FROM payments p
	          JOIN orders o ON o.id = p.order_id`
	var args []any
	if filter.UserID != 0 {
		query += ` WHERE o.user_id = ?`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC`

	payments := []domain.Payment{}
	if err := r.db.SelectContext(ctx, &payments, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	return payments, nil
}

func (r *Repository) GetPayment(ctx context.Context, id int64) (*domain.Payment, error) {
	return r.getPayment(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
}

func (r *Repository) GetPaymentByOrderID(ctx context.Context, orderID int64) (*domain.Payment, error) {
	return r.getPayment(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = ?`, orderID)
}

func (r *Repository) getPayment(ctx context.Context, query string, arg any) (*domain.Payment, error) {
	var p domain.Payment
	err := r.db.GetContext(ctx, &p, r.db.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query payment: %w", err)
	}
	return &p, nil
}
