// Package checkout turns a session cart into a persisted order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
	"github.com/Faraj-M/E-Commerce-Platform/internal/metrics"
	"github.com/Faraj-M/E-Commerce-Platform/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CartReader is the part of the cart service checkout depends on.
type CartReader interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	Clear(ctx context.Context, sessionID string) error
}

type Engine struct {
	tx       repository.Transactor
	carts    CartReader
	currency string
	log      logrus.FieldLogger
}

func NewEngine(tx repository.Transactor, carts CartReader, currency string, log logrus.FieldLogger) *Engine {
	return &Engine{tx: tx, carts: carts, currency: currency, log: log}
}

type orderPlacedPayload struct {
	OrderID     int64           `json:"order_id"`
	UserID      int64           `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	Items       []placedItem    `json:"items"`
}

type placedItem struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Checkout places an order for everything in the session cart. Either the
// order, its items, the stock decrements and the order.placed event are all
// committed, or nothing is written. The cart is cleared after commit.
func (e *Engine) Checkout(ctx context.Context, userID int64, sessionID string, shipping domain.ShippingInfo) (*domain.Order, error) {
	order, err := e.checkout(ctx, userID, sessionID, shipping)
	if err != nil {
		metrics.CheckoutFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}
	metrics.OrdersPlaced.Inc()
	return order, nil
}

func (e *Engine) checkout(ctx context.Context, userID int64, sessionID string, shipping domain.ShippingInfo) (*domain.Order, error) {
	if userID <= 0 {
		return nil, ErrMissingUser
	}
	shipping = shipping.Normalize()
	if err := shipping.Validate(); err != nil {
		return nil, err
	}

	cart, err := e.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	var order *domain.Order
	err = e.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		placed, err := e.placeOrder(ctx, tx, userID, cart, shipping)
		if err != nil {
			return err
		}
		order = placed
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := e.log.WithFields(logrus.Fields{
		"order_id":   order.ID,
		"user_id":    userID,
		"session_id": sessionID,
	})
	log.WithField("total_amount", order.TotalAmount.StringFixed(2)).Info("order placed")

	if err := e.carts.Clear(ctx, sessionID); err != nil {
		log.WithError(err).Error("failed to clear cart after checkout")
	}
	return order, nil
}

func (e *Engine) placeOrder(ctx context.Context, tx repository.Tx, userID int64, cart *domain.Cart, shipping domain.ShippingInfo) (*domain.Order, error) {
	locked, err := tx.LockProducts(ctx, cart.ProductIDs())
	if err != nil {
		return nil, err
	}
	products := make(map[int64]domain.Product, len(locked))
	for _, p := range locked {
		products[p.ID] = p
	}

	// Every line is checked before anything is written.
	items := make([]domain.OrderItem, 0, cart.Len())
	for _, entry := range cart.Entries() {
		p, ok := products[entry.ProductID]
		if !ok || !p.IsActive {
			return nil, &domain.InsufficientStockError{
				ProductID:   entry.ProductID,
				ProductName: p.Name,
				Requested:   entry.Quantity,
			}
		}
		if entry.Quantity > p.StockQuantity {
			return nil, &domain.InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   entry.Quantity,
				Available:   p.StockQuantity,
			}
		}
		items = append(items, domain.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    entry.Quantity,
			Price:       p.Price,
		})
	}

	order := &domain.Order{
		UserID:   userID,
		Status:   domain.OrderStatusPending,
		Currency: e.currency,
		Items:    items,
	}
	order.TotalAmount = order.ItemsTotal()
	order.SetShipping(shipping)

	if err := tx.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	if err := tx.CreateOrderItems(ctx, order.ID, order.Items); err != nil {
		return nil, err
	}

	for _, item := range order.Items {
		if err := tx.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, repository.ErrStockConflict) {
				return nil, &domain.InsufficientStockError{
					ProductID:   item.ProductID,
					ProductName: item.ProductName,
					Requested:   item.Quantity,
					Available:   products[item.ProductID].StockQuantity,
				}
			}
			return nil, err
		}
	}

	payload := orderPlacedPayload{
		OrderID:     order.ID,
		UserID:      userID,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
		Items:       make([]placedItem, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, placedItem{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.Price})
	}
	event, err := domain.NewOutboxEvent(strconv.FormatInt(order.ID, 10), domain.EventOrderPlaced, payload)
	if err != nil {
		return nil, fmt.Errorf("marshal order placed event: %w", err)
	}
	if err := tx.AddOutboxEvent(ctx, event); err != nil {
		return nil, err
	}
	return order, nil
}
