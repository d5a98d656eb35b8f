package payment

import (
	"errors"
	"fmt"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
	"github.com/Faraj-M/E-Commerce-Platform/internal/repository"
)

var (
	ErrOrderNotFound        = repository.ErrOrderNotFound
	ErrPaymentNotFound      = repository.ErrPaymentNotFound
	ErrPaymentExists        = errors.New("payment already exists for this order")
	ErrGatewayMisconfigured = errors.New("payment gateway is not configured")
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")
	ErrVerificationIssue    = errors.New("could not verify payment status")
	ErrSignatureInvalid     = errors.New("invalid webhook signature")
	ErrMalformedPayload     = errors.New("malformed webhook payload")
)

// GatewayError is a failed call to the remote gateway. StatusCode is zero
// when no response was received.
type GatewayError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("gateway %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("gateway %s failed", e.Op)
	}
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool {
	return target == ErrGatewayUnavailable
}

// VerificationError leaves the payment untouched; the caller may retry.
type VerificationError struct {
	PaymentID int64
	Err       error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verify payment %d: %v", e.PaymentID, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

func (e *VerificationError) Is(target error) bool {
	return target == ErrVerificationIssue
}

// ExistsError carries the payment already recorded for an order.
type ExistsError struct {
	Payment *domain.Payment
}

func (e *ExistsError) Error() string {
	return fmt.Sprintf("payment %d already exists for order %d", e.Payment.ID, e.Payment.OrderID)
}

func (e *ExistsError) Is(target error) bool {
	return target == ErrPaymentExists
}
