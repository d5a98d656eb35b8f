package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Faraj-M/E-Commerce-Platform/internal/health"
	"github.com/Faraj-M/E-Commerce-Platform/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

type HealthReporter interface {
	Check(ctx context.Context) health.Report
}

type Deps struct {
	Catalog  ProductCatalog
	Carts    CartService
	Checkout CheckoutEngine
	Orders   OrderService
	Payments PaymentService
	Health   HealthReporter
	Log      logrus.FieldLogger
}

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	SessionTTL         time.Duration
	SecureCookies      bool
}

func NewRouter(deps Deps, cfg RouterConfig) http.Handler {
	productHandler := NewProductHandler(deps.Catalog, cfg.RequestTimeout)
	cartHandler := NewCartHandler(deps.Carts, cfg.RequestTimeout)
	checkoutHandler := NewCheckoutHandler(deps.Checkout, deps.Carts, cfg.RequestTimeout)
	ordersHandler := NewOrdersHandler(deps.Orders, cfg.RequestTimeout)
	paymentHandler := NewPaymentHandler(deps.Payments, cfg.RequestTimeout, cfg.MaxRequestBodySize)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(deps.Log))
	r.Use(metrics.Middleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", healthHandler(deps.Health))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// The gateway signs its calls instead of sending identity headers.
		r.Post("/payments/webhook", paymentHandler.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(IdentityMiddleware)

			r.Get("/categories", productHandler.ListCategories)
			r.Get("/products", productHandler.ListProducts)
			r.Get("/products/{slug}", productHandler.GetProduct)

			r.Group(func(r chi.Router) {
				r.Use(SessionMiddleware(cfg.SessionTTL, cfg.SecureCookies))

				r.Route("/cart", func(r chi.Router) {
					r.Get("/", cartHandler.GetCart)
					r.Delete("/", cartHandler.ClearCart)
					r.Post("/items", cartHandler.AddItem)
					r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
					r.Post("/items/{product_id}", cartHandler.UpdateQuantity)
					r.Delete("/items/{product_id}", cartHandler.RemoveItem)
					r.Post("/items/{product_id}/remove", cartHandler.RemoveItem)
				})

				r.With(RequireUser).Get("/checkout", checkoutHandler.Summary)
				r.With(RequireUser).Post("/checkout", checkoutHandler.Checkout)
			})

			r.Group(func(r chi.Router) {
				r.Use(RequireUser)

				r.Get("/orders", ordersHandler.ListOrders)
				r.Get("/orders/{order_id}", ordersHandler.GetOrder)
				r.Get("/orders/{order_id}/items", ordersHandler.GetOrderItems)
				r.Get("/orders/{order_id}/payment", paymentHandler.PaymentPage)
				r.Post("/orders/{order_id}/payment", paymentHandler.CreatePayment)

				r.Get("/payments", paymentHandler.ListPayments)
				r.Get("/payments/{payment_id}", paymentHandler.GetPayment)
				r.Post("/payments/{payment_id}/confirm", paymentHandler.Confirm)
			})
		})
	})

	return r
}

func healthHandler(checker HealthReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker == nil {
			respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
		report := checker.Check(r.Context())
		status := http.StatusOK
		if !report.Healthy() {
			status = http.StatusServiceUnavailable
		}
		respondJSON(w, status, report)
	}
}
