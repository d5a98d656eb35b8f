package cart

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type ProductCatalog interface {
	GetActive(ctx context.Context, id int64) (*domain.Product, error)
	Lookup(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
}

type Service struct {
	store   SessionStore
	catalog ProductCatalog
	log     logrus.FieldLogger
}

func NewService(store SessionStore, catalog ProductCatalog, log logrus.FieldLogger) *Service {
	return &Service{store: store, catalog: catalog, log: log}
}

// MutationResult describes the stored quantity after add or set. Clamped
// is a warning, not an error: less stock was available than requested.
type MutationResult struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Quantity    int    `json:"quantity"`
	Available   int    `json:"available"`
	Clamped     bool   `json:"clamped"`
}

func (r MutationResult) Warning() string {
	if !r.Clamped {
		return ""
	}
	return fmt.Sprintf("Only %d items available in stock.", r.Available)
}

type Line struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	Available int             `json:"available"`
}

type View struct {
	Lines     []Line          `json:"items"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

// Get returns the session cart with entries for missing or inactive
// products removed. The pruned cart is written back.
func (s *Service) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, _, err := s.pruned(ctx, sessionID)
	return cart, err
}

// View prices the cart at current catalog prices.
func (s *Service) View(ctx context.Context, sessionID string) (*View, error) {
	cart, products, err := s.pruned(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	view := &View{Lines: make([]Line, 0, cart.Len()), Total: decimal.Zero}
	for _, e := range cart.Entries() {
		p := products[e.ProductID]
		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(e.Quantity)))
		view.Lines = append(view.Lines, Line{
			ProductID: p.ID,
			Name:      p.Name,
			Slug:      p.Slug,
			UnitPrice: p.Price,
			Quantity:  e.Quantity,
			LineTotal: lineTotal,
			Available: p.StockQuantity,
		})
		view.ItemCount += e.Quantity
		view.Total = view.Total.Add(lineTotal)
	}
	return view, nil
}

// Add increases the quantity of productID by delta, clamped to stock.
func (s *Service) Add(ctx context.Context, sessionID string, productID int64, delta int) (*MutationResult, error) {
	if delta < 1 {
		return nil, ErrInvalidQuantity
	}
	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	current := cart.Quantity(productID)
	// saturate instead of wrapping; stock clamps the rest
	delta = min(delta, math.MaxInt-current)
	return s.apply(ctx, sessionID, cart, productID, current+delta)
}

// Set replaces the quantity of productID, clamped to stock. A quantity of
// zero or less removes the entry.
func (s *Service) Set(ctx context.Context, sessionID string, productID int64, quantity int) (*MutationResult, error) {
	if quantity <= 0 {
		if err := s.Remove(ctx, sessionID, productID); err != nil {
			return nil, err
		}
		return &MutationResult{ProductID: productID, Requested: quantity}, nil
	}
	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, sessionID, cart, productID, quantity)
}

func (s *Service) apply(ctx context.Context, sessionID string, cart *domain.Cart, productID int64, requested int) (*MutationResult, error) {
	product, err := s.catalog.GetActive(ctx, productID)
	if err != nil {
		return nil, err
	}

	quantity := min(requested, product.StockQuantity)
	result := &MutationResult{
		ProductID:   product.ID,
		ProductName: product.Name,
		Requested:   requested,
		Quantity:    max(quantity, 0),
		Available:   product.StockQuantity,
		Clamped:     quantity < requested,
	}
	cart.Set(productID, quantity)

	if err := s.store.Save(ctx, sessionID, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	if result.Clamped {
		s.log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"product_id": productID,
			"requested":  requested,
			"available":  product.StockQuantity,
		}).Info("cart quantity clamped to stock")
	}
	return result, nil
}

// Remove drops productID from the cart. Removing an absent product is a no-op.
func (s *Service) Remove(ctx context.Context, sessionID string, productID int64) error {
	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if !cart.Remove(productID) {
		return nil
	}
	if err := s.store.Save(ctx, sessionID, cart); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidSession
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	cart, err := s.store.Load(ctx, sessionID)
	if errors.Is(err, ErrCartNotFound) {
		return domain.NewCart(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return cart, nil
}

func (s *Service) pruned(ctx context.Context, sessionID string) (*domain.Cart, map[int64]domain.Product, error) {
	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if cart.IsEmpty() {
		return cart, map[int64]domain.Product{}, nil
	}

	products, err := s.catalog.Lookup(ctx, cart.ProductIDs())
	if err != nil {
		return nil, nil, err
	}

	dropped := false
	for _, id := range cart.ProductIDs() {
		if _, ok := products[id]; !ok {
			cart.Remove(id)
			dropped = true
		}
	}
	if dropped {
		if err := s.store.Save(ctx, sessionID, cart); err != nil {
			s.log.WithError(err).WithField("session_id", sessionID).Warn("failed to save pruned cart")
		}
	}
	return cart, products, nil
}
