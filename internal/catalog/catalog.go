package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
	"github.com/Faraj-M/E-Commerce-Platform/internal/repository"
	"golang.org/x/sync/singleflight"
)

var ErrProductNotFound = repository.ErrProductNotFound

type ProductRepository interface {
	ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	GetProducts(ctx context.Context, ids []int64) ([]domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type Service struct {
	repo ProductRepository
	sfg  singleflight.Group // collapses concurrent lookups of the same product
}

func NewService(repo ProductRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, filter)
}

func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

// GetBySlug resolves an active product for the detail page.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return s.repo.GetProductBySlug(ctx, slug)
}

// Get returns a product regardless of its active flag.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Product, error) {
	v, err, _ := s.sfg.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {
		return s.repo.GetProduct(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	p := *v.(*domain.Product)
	return &p, nil
}

// GetActive is Get restricted to active products.
func (s *Service) GetActive(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ErrProductNotFound
	}
	return p, nil
}

// Lookup returns the active products among ids keyed by id. Missing or
// inactive ids are simply absent from the result.
func (s *Service) Lookup(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	products, err := s.repo.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lookup products: %w", err)
	}
	out := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		if p.IsActive {
			out[p.ID] = p
		}
	}
	return out, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound)
}
