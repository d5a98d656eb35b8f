// Package orders serves read access to orders scoped to the caller.
package orders

import (
	"context"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
	"github.com/Faraj-M/E-Commerce-Platform/internal/repository"
)

var ErrOrderNotFound = repository.ErrOrderNotFound

type OrderRepository interface {
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListOrderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error)
}

type Service struct {
	repo OrderRepository
}

func NewService(repo OrderRepository) *Service {
	return &Service{repo: repo}
}

// List returns the caller's orders, newest first. Staff see every order.
func (s *Service) List(ctx context.Context, who domain.Identity) ([]domain.Order, error) {
	var filter repository.OrderFilter
	switch {
	case who.Staff:
	case who.Authenticated():
		filter.UserID = who.UserID
	default:
		return []domain.Order{}, nil
	}
	return s.repo.ListOrders(ctx, filter)
}

// Get returns the order with its items. Orders of other users are
// reported as not found.
func (s *Service) Get(ctx context.Context, who domain.Identity, id int64) (*domain.Order, error) {
	order, err := s.owned(ctx, who, id)
	if err != nil {
		return nil, err
	}
	order.Items, err = s.repo.ListOrderItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) Items(ctx context.Context, who domain.Identity, id int64) ([]domain.OrderItem, error) {
	if _, err := s.owned(ctx, who, id); err != nil {
		return nil, err
	}
	return s.repo.ListOrderItems(ctx, id)
}

func (s *Service) owned(ctx context.Context, who domain.Identity, id int64) (*domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !who.CanAccess(order.UserID) {
		return nil, ErrOrderNotFound
	}
	return order, nil
}
