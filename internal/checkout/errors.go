package checkout

import (
	"errors"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
)

var (
	ErrEmptyCart         = domain.ErrEmptyCart
	ErrInsufficientStock = domain.ErrInsufficientStock
	ErrMissingUser       = errors.New("checkout requires an authenticated user")
)

// failureReason is the metrics label for a rejected checkout.
func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	default:
		return "error"
	}
}
