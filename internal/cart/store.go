package cart

import (
	"context"
	"errors"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrInvalidSession  = errors.New("missing session identifier")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// SessionStore persists carts keyed by session id. Carts expire together
// with the session.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*domain.Cart, error)
	Save(ctx context.Context, sessionID string, cart *domain.Cart) error
	Delete(ctx context.Context, sessionID string) error
}
