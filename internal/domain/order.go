package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func (s OrderStatus) String() string {
	return string(s)
}

// Order totals are frozen at checkout and never recomputed.
type Order struct {
	ID                 int64           `db:"id" json:"id"`
	UserID             int64           `db:"user_id" json:"user"`
	Status             OrderStatus     `db:"status" json:"status"`
	TotalAmount        decimal.Decimal `db:"total_amount" json:"total_amount"`
	Currency           string          `db:"currency" json:"currency"`
	ShippingAddress    string          `db:"shipping_address" json:"shipping_address"`
	ShippingCity       string          `db:"shipping_city" json:"shipping_city"`
	ShippingPostalCode string          `db:"shipping_postal_code" json:"shipping_postal_code"`
	ShippingCountry    string          `db:"shipping_country" json:"shipping_country"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
	Items              []OrderItem     `db:"-" json:"items,omitempty"`
}

func (o *Order) SetShipping(s ShippingInfo) {
	o.ShippingAddress = s.Address
	o.ShippingCity = s.City
	o.ShippingPostalCode = s.PostalCode
	o.ShippingCountry = s.Country
}

// ItemsTotal sums the frozen line totals.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// OrderItem copies the product price at purchase time.
type OrderItem struct {
	ID          int64           `db:"id" json:"id"`
	OrderID     int64           `db:"order_id" json:"order_id"`
	ProductID   int64           `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Price       decimal.Decimal `db:"price" json:"price"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
