package cart

import (
	"context"
	"sync"

	"github.com/Faraj-M/E-Commerce-Platform/internal/catalog"
	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
)

type memoryStore struct {
	mu      sync.Mutex
	carts   map[string]*domain.Cart
	loadErr error
	saveErr error
	loads   int
	saves   int
	deletes int
	// afterLoad runs once the lock is released, to interleave writes
	afterLoad func()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{carts: map[string]*domain.Cart{}}
}

func (m *memoryStore) Load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	c, err := m.load(sessionID)
	if m.afterLoad != nil {
		m.afterLoad()
	}
	return c, err
}

func (m *memoryStore) load(sessionID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	c, ok := m.carts[sessionID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return domain.NewCart(c.Entries()...), nil
}

func (m *memoryStore) Save(_ context.Context, sessionID string, c *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.carts[sessionID] = domain.NewCart(c.Entries()...)
	return nil
}

func (m *memoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.carts, sessionID)
	return nil
}

type mockCatalog struct {
	products map[int64]domain.Product
}

func (m *mockCatalog) GetActive(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok || !p.IsActive {
		return nil, catalog.ErrProductNotFound
	}
	return &p, nil
}

func (m *mockCatalog) Lookup(_ context.Context, ids []int64) (map[int64]domain.Product, error) {
	out := map[int64]domain.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok && p.IsActive {
			out[id] = p
		}
	}
	return out, nil
}
