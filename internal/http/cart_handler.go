package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Faraj-M/E-Commerce-Platform/internal/cart"
)

const (
	cartPath          = "/api/v1/cart"
	headerCartWarning = "X-Cart-Warning"
)

type CartService interface {
	View(ctx context.Context, sessionID string) (*cart.View, error)
	Add(ctx context.Context, sessionID string, productID int64, delta int) (*cart.MutationResult, error)
	Set(ctx context.Context, sessionID string, productID int64, quantity int) (*cart.MutationResult, error)
	Remove(ctx context.Context, sessionID string, productID int64) error
	Clear(ctx context.Context, sessionID string) error
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
}

func NewCartHandler(carts CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  *int  `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

type CartResponseDTO struct {
	Cart    *cart.View           `json:"cart"`
	Result  *cart.MutationResult `json:"result,omitempty"`
	Warning string               `json:"warning,omitempty"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.carts.View(ctx, getSessionID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if isJSONBody(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	} else {
		productID, err := strconv.ParseInt(r.FormValue("product_id"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
			return
		}
		quantity, err := formInt(r, "quantity", 1)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be an integer")
			return
		}
		req.ProductID, req.Quantity = productID, &quantity
	}

	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	delta := 1
	if req.Quantity != nil {
		delta = *req.Quantity
	}
	if delta < 1 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at least 1")
		return
	}

	result, err := h.carts.Add(ctx, getSessionID(r.Context()), req.ProductID, delta)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	h.respondMutation(ctx, w, r, http.StatusCreated, result)
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseIDParam(r, "product_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	var quantity int
	if isJSONBody(r) {
		var req UpdateQuantityRequestDTO
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
		if req.Quantity == nil {
			respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity is required")
			return
		}
		quantity = *req.Quantity
	} else {
		q, err := formInt(r, "quantity", 0)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be an integer")
			return
		}
		quantity = q
	}

	// zero or less removes the product
	result, err := h.carts.Set(ctx, getSessionID(r.Context()), productID, quantity)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	h.respondMutation(ctx, w, r, http.StatusOK, result)
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseIDParam(r, "product_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	if err := h.carts.Remove(ctx, getSessionID(r.Context()), productID); err != nil {
		respondServiceError(w, r, err)
		return
	}

	h.respondMutation(ctx, w, r, http.StatusOK, nil)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.carts.Clear(ctx, getSessionID(r.Context())); err != nil {
		respondServiceError(w, r, err)
		return
	}

	h.respondMutation(ctx, w, r, http.StatusOK, nil)
}

// respondMutation answers programmatic callers with the updated cart and
// redirects interactive ones back to the cart. A clamp warning travels in
// the body or in X-Cart-Warning.
func (h *CartHandler) respondMutation(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, result *cart.MutationResult) {
	warning := ""
	if result != nil {
		warning = result.Warning()
	}

	if !wantsJSON(r) {
		if warning != "" {
			w.Header().Set(headerCartWarning, warning)
		}
		redirect(w, r, cartPath)
		return
	}

	view, err := h.carts.View(ctx, getSessionID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, status, CartResponseDTO{Cart: view, Result: result, Warning: warning})
}
