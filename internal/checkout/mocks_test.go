package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
)

// fakeCarts keeps session carts in memory.
type fakeCarts struct {
	mu       sync.Mutex
	carts    map[string]*domain.Cart
	clearErr error
	cleared  []string
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{carts: map[string]*domain.Cart{}}
}

func (f *fakeCarts) put(sessionID string, entries ...domain.CartEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts[sessionID] = domain.NewCart(entries...)
}

func (f *fakeCarts) Get(_ context.Context, sessionID string) (*domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[sessionID]
	if !ok {
		return domain.NewCart(), nil
	}
	return domain.NewCart(c.Entries()...), nil
}

func (f *fakeCarts) Clear(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, sessionID)
	if f.clearErr != nil {
		return f.clearErr
	}
	delete(f.carts, sessionID)
	return nil
}

func (f *fakeCarts) len(sessionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.carts[sessionID]; ok {
		return c.Len()
	}
	return 0
}

var errBoom = errors.New("boom")
