package http

import (
	"context"
	"net/http"

	"github.com/Faraj-M/E-Commerce-Platform/internal/cart"
	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
	"github.com/Faraj-M/E-Commerce-Platform/internal/health"
	"github.com/Faraj-M/E-Commerce-Platform/internal/payment"
	"github.com/Faraj-M/E-Commerce-Platform/internal/repository"
	"github.com/go-chi/chi/v5"
)

// --- Mocks ---

type CatalogMock struct {
	products   []domain.Product
	product    *domain.Product
	categories []domain.Category
	err        error
	lastFilter repository.ProductFilter
}

func (m *CatalogMock) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	m.lastFilter = filter
	return m.products, m.err
}

func (m *CatalogMock) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.product == nil || m.product.Slug != slug {
		return nil, repository.ErrProductNotFound
	}
	return m.product, nil
}

func (m *CatalogMock) Categories(ctx context.Context) ([]domain.Category, error) {
	return m.categories, m.err
}

type CartMock struct {
	view   *cart.View
	result *cart.MutationResult
	err    error

	lastSession  string
	lastProduct  int64
	lastQuantity int
	removed      bool
	cleared      bool
}

func (m *CartMock) View(ctx context.Context, sessionID string) (*cart.View, error) {
	m.lastSession = sessionID
	if m.err != nil {
		return nil, m.err
	}
	if m.view == nil {
		return &cart.View{Lines: []cart.Line{}}, nil
	}
	return m.view, nil
}

func (m *CartMock) Add(ctx context.Context, sessionID string, productID int64, delta int) (*cart.MutationResult, error) {
	m.lastSession, m.lastProduct, m.lastQuantity = sessionID, productID, delta
	return m.result, m.err
}

func (m *CartMock) Set(ctx context.Context, sessionID string, productID int64, quantity int) (*cart.MutationResult, error) {
	m.lastSession, m.lastProduct, m.lastQuantity = sessionID, productID, quantity
	return m.result, m.err
}

func (m *CartMock) Remove(ctx context.Context, sessionID string, productID int64) error {
	m.lastSession, m.lastProduct = sessionID, productID
	m.removed = true
	return m.err
}

func (m *CartMock) Clear(ctx context.Context, sessionID string) error {
	m.lastSession = sessionID
	m.cleared = true
	return m.err
}

type CheckoutMock struct {
	order *domain.Order
	err   error

	lastUser     int64
	lastSession  string
	lastShipping domain.ShippingInfo
}

func (m *CheckoutMock) Checkout(ctx context.Context, userID int64, sessionID string, shipping domain.ShippingInfo) (*domain.Order, error) {
	m.lastUser, m.lastSession, m.lastShipping = userID, sessionID, shipping
	return m.order, m.err
}

type OrdersMock struct {
	orders []domain.Order
	order  *domain.Order
	items  []domain.OrderItem
	err    error
	who    domain.Identity
}

func (m *OrdersMock) List(ctx context.Context, who domain.Identity) ([]domain.Order, error) {
	m.who = who
	return m.orders, m.err
}

func (m *OrdersMock) Get(ctx context.Context, who domain.Identity, id int64) (*domain.Order, error) {
	m.who = who
	return m.order, m.err
}

func (m *OrdersMock) Items(ctx context.Context, who domain.Identity, id int64) ([]domain.OrderItem, error) {
	m.who = who
	return m.items, m.err
}

type PaymentsMock struct {
	created    *payment.CreatePaymentResult
	createErr  error
	confirmed  *domain.Payment
	confirmErr error
	outcome    payment.WebhookOutcome
	webhookErr error
	payments   []domain.Payment
	payment    *domain.Payment
	err        error

	lastBody      []byte
	lastSignature string
}

func (m *PaymentsMock) CreatePayment(ctx context.Context, who domain.Identity, orderID int64) (*payment.CreatePaymentResult, error) {
	return m.created, m.createErr
}

func (m *PaymentsMock) Confirm(ctx context.Context, who domain.Identity, paymentID int64) (*domain.Payment, error) {
	return m.confirmed, m.confirmErr
}

func (m *PaymentsMock) HandleWebhook(ctx context.Context, body []byte, signature string) (payment.WebhookOutcome, error) {
	m.lastBody, m.lastSignature = body, signature
	return m.outcome, m.webhookErr
}

func (m *PaymentsMock) ListPayments(ctx context.Context, who domain.Identity) ([]domain.Payment, error) {
	return m.payments, m.err
}

func (m *PaymentsMock) GetPayment(ctx context.Context, who domain.Identity, id int64) (*domain.Payment, error) {
	return m.payment, m.err
}

type HealthMock struct {
	report health.Report
}

func (m HealthMock) Check(ctx context.Context) health.Report {
	return m.report
}

// --- helpers ---

func withUser(r *http.Request) *http.Request {
	return r.WithContext(domain.WithIdentity(r.Context(), domain.Identity{UserID: 1}))
}

func withSession(r *http.Request, sessionID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), sessionIDKey, sessionID))
}

func withParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
