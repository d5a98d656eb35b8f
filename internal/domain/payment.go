package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// A late success overrides a failure. Nothing leaves succeeded.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusSucceeded, PaymentStatusFailed},
	PaymentStatusFailed:  {PaymentStatusSucceeded},
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSucceeded || s == PaymentStatusFailed
}

func (s PaymentStatus) String() string {
	return string(s)
}

type Payment struct {
	ID                    int64           `db:"id" json:"id"`
	OrderID               int64           `db:"order_id" json:"order_id"`
	StripePaymentIntentID string          `db:"stripe_payment_intent_id" json:"stripe_payment_intent_id"`
	Amount                decimal.Decimal `db:"amount" json:"amount"`
	Currency              string          `db:"currency" json:"currency"`
	Status                PaymentStatus   `db:"status" json:"status"`
	CreatedAt             time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time       `db:"updated_at" json:"updated_at"`
}
