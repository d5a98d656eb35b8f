package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Faraj-M/E-Commerce-Platform/internal/checkout"
	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
)

type CheckoutEngine interface {
	Checkout(ctx context.Context, userID int64, sessionID string, shipping domain.ShippingInfo) (*domain.Order, error)
}

type CheckoutHandler struct {
	engine  CheckoutEngine
	carts   CartService
	timeout time.Duration
}

func NewCheckoutHandler(engine CheckoutEngine, carts CartService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		engine:  engine,
		carts:   carts,
		timeout: timeout,
	}
}

type CheckoutResponseDTO struct {
	Order      *domain.Order `json:"order"`
	PaymentURL string        `json:"payment_url"`
}

// GET /api/v1/checkout
func (h *CheckoutHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.carts.View(ctx, getSessionID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if len(view.Lines) == 0 {
		h.respondFailure(w, r, checkout.ErrEmptyCart)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var shipping domain.ShippingInfo
	if isJSONBody(r) {
		if err := json.NewDecoder(r.Body).Decode(&shipping); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	} else {
		shipping = domain.ShippingInfo{
			Address:    r.FormValue("shipping_address"),
			City:       r.FormValue("shipping_city"),
			PostalCode: r.FormValue("shipping_postal_code"),
			Country:    r.FormValue("shipping_country"),
		}
	}

	who := domain.IdentityFromContext(r.Context())
	order, err := h.engine.Checkout(ctx, who.UserID, getSessionID(r.Context()), shipping)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	paymentURL := fmt.Sprintf("/api/v1/orders/%d/payment", order.ID)
	if !wantsJSON(r) {
		redirect(w, r, paymentURL)
		return
	}
	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{Order: order, PaymentURL: paymentURL})
}

// respondFailure sends interactive callers back to the cart for problems
// with the cart itself. Everything else is answered as an error.
func (h *CheckoutHandler) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	if !wantsJSON(r) && (errors.Is(err, checkout.ErrEmptyCart) || errors.Is(err, checkout.ErrInsufficientStock)) {
		w.Header().Set(headerCartWarning, err.Error())
		redirect(w, r, cartPath)
		return
	}
	respondServiceError(w, r, err)
}
