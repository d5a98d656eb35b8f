package orders

import (
	"context"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
	"github.com/Faraj-M/E-Commerce-Platform/internal/repository"
)

type MockRepository struct {
	orders     []domain.Order
	items      map[int64][]domain.OrderItem
	lastFilter *repository.OrderFilter
	err        error
}

func (m *MockRepository) ListOrders(_ context.Context, filter repository.OrderFilter) ([]domain.Order, error) {
	m.lastFilter = &filter
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.Order{}
	for _, o := range m.orders {
		if filter.UserID == 0 || o.UserID == filter.UserID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MockRepository) GetOrder(_ context.Context, id int64) (*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, o := range m.orders {
		if o.ID == id {
			cp := o
			return &cp, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *MockRepository) ListOrderItems(_ context.Context, orderID int64) ([]domain.OrderItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.items[orderID], nil
}
